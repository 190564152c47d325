package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	lnbridge "github.com/lightvault/lnbridge-go"
)

func pipePair(t *testing.T, method string, h Handler) (*Bridge, *Bridge) {
	t.Helper()
	pageEnd, walletEnd := Pipe()
	page := New(pageEnd)
	var opts []Option
	if h != nil {
		opts = append(opts, WithHandler(method, h))
	}
	wallet := New(walletEnd, opts...)
	t.Cleanup(func() { _ = wallet.Close() })
	return page, wallet
}

func TestCall_ReplyRoundTrip(t *testing.T) {
	page, _ := pipePair(t, "echo", func(ctx context.Context, in *Inbound) {
		var params map[string]string
		if err := json.Unmarshal(in.Params, &params); err != nil {
			_ = in.Responder.Error(err)
			return
		}
		_ = in.Responder.Reply(map[string]string{"echo": params["msg"]})
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result, err := page.Call(ctx, "echo", map[string]string{"msg": "hi"}, nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	var out map[string]string
	if err := json.Unmarshal(result, &out); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if out["echo"] != "hi" {
		t.Errorf("expected echo hi, got %v", out)
	}
}

func TestCall_CarriesOriginAndMetadata(t *testing.T) {
	got := make(chan *Inbound, 1)
	page, _ := pipePair(t, "sendPayment", func(ctx context.Context, in *Inbound) {
		got <- in
		_ = in.Responder.Reply(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cc := &CallContext{
		Origin:   &lnbridge.Origin{Host: "podcast.example", Name: "Podcast"},
		Metadata: json.RawMessage(`{"episode":42}`),
	}
	if _, err := page.Call(ctx, "sendPayment", map[string]string{"paymentRequest": "lnbc1"}, cc); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	in := <-got
	if in.Origin == nil || in.Origin.Host != "podcast.example" {
		t.Errorf("expected origin to cross the bridge, got %+v", in.Origin)
	}
	if string(in.Metadata) != `{"episode":42}` {
		t.Errorf("expected metadata to cross the bridge, got %s", in.Metadata)
	}
}

func TestCall_ErrorCompletion(t *testing.T) {
	page, _ := pipePair(t, "sendPayment", func(ctx context.Context, in *Inbound) {
		_ = in.Responder.Error(lnbridge.ErrUserRejected)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := page.Call(ctx, "sendPayment", nil, nil)
	if !errors.Is(err, lnbridge.ErrUserRejected) {
		t.Errorf("expected ErrUserRejected across the bridge, got %v", err)
	}
}

func TestResponder_ExactlyOnce(t *testing.T) {
	responders := make(chan *Responder, 1)
	page, _ := pipePair(t, "sendPayment", func(ctx context.Context, in *Inbound) {
		responders <- in.Responder
		_ = in.Responder.Reply("ok")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := page.Call(ctx, "sendPayment", nil, nil); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	r := <-responders
	if err := r.Reply("again"); !errors.Is(err, lnbridge.ErrAlreadyCompleted) {
		t.Errorf("expected ErrAlreadyCompleted on second reply, got %v", err)
	}
	if err := r.Error(errors.New("late")); !errors.Is(err, lnbridge.ErrAlreadyCompleted) {
		t.Errorf("expected ErrAlreadyCompleted on error after reply, got %v", err)
	}
}

func TestBridgeReply_UnknownIDRejected(t *testing.T) {
	_, wallet := pipePair(t, "noop", func(ctx context.Context, in *Inbound) {
		_ = in.Responder.Reply(nil)
	})

	if err := wallet.Reply("never-seen", "value"); !errors.Is(err, lnbridge.ErrAlreadyCompleted) {
		t.Errorf("expected ErrAlreadyCompleted for unknown id, got %v", err)
	}
}

func TestCall_UnknownMethod(t *testing.T) {
	page, _ := pipePair(t, "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := page.Call(ctx, "doesNotExist", nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	var be *lnbridge.BridgeError
	if !errors.As(err, &be) || be.Code != lnbridge.CodeInternal {
		t.Errorf("expected internal bridge error, got %v", err)
	}
}

func TestClose_FailsPendingCalls(t *testing.T) {
	block := make(chan struct{})
	page, wallet := pipePair(t, "hang", func(ctx context.Context, in *Inbound) {
		<-block
	})
	defer close(block)

	done := make(chan error, 1)
	go func() {
		_, err := page.Call(context.Background(), "hang", nil, nil)
		done <- err
	}()

	// Let the call get registered and sent before tearing down.
	time.Sleep(20 * time.Millisecond)
	_ = wallet.Close()

	select {
	case err := <-done:
		if !errors.Is(err, lnbridge.ErrConnectionClosed) {
			t.Errorf("expected ErrConnectionClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending call was not failed on close")
	}
}

func TestCall_AfterCloseFailsFast(t *testing.T) {
	page, wallet := pipePair(t, "noop", nil)
	_ = wallet.Close()

	_, err := page.Call(context.Background(), "noop", nil, nil)
	if !errors.Is(err, lnbridge.ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestConcurrentCalls_IndependentCorrelation(t *testing.T) {
	page, _ := pipePair(t, "echo", func(ctx context.Context, in *Inbound) {
		var params map[string]int
		_ = json.Unmarshal(in.Params, &params)
		_ = in.Responder.Reply(params["n"])
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := page.Call(ctx, "echo", map[string]int{"n": n}, nil)
			if err != nil {
				t.Errorf("call %d failed: %v", n, err)
				return
			}
			var got int
			_ = json.Unmarshal(result, &got)
			if got != n {
				t.Errorf("call %d got response %d", n, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestCall_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	page, _ := pipePair(t, "hang", func(ctx context.Context, in *Inbound) {
		<-block
		_ = in.Responder.Reply(nil)
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := page.Call(ctx, "hang", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
