// Package chi mounts the wallet bridge endpoint on a Chi router. This
// package is a thin adapter; all bridge and session logic lives in the http
// package.
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lightvault/lnbridge-go/bridge"
	httpbridge "github.com/lightvault/lnbridge-go/http"
)

// Mount registers the wallet bridge endpoint at path and returns the
// wallet-side bridge.
//
// Example usage:
//
//	r := chi.NewRouter()
//	b := chix.Mount(r, "/bridge", &httpbridge.Config{
//	    Service: svc,
//	    Issuer:  issuer,
//	})
//	defer b.Close()
func Mount(r chi.Router, path string, config *httpbridge.Config) *bridge.Bridge {
	handler, b := httpbridge.NewHandler(config)
	r.Method(http.MethodPost, path, handler)
	return b
}

// NewSessionMiddleware wraps routes with bearer-token session auth, for
// protecting sibling wallet endpoints with the same tokens as the bridge.
func NewSessionMiddleware(issuer *httpbridge.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return httpbridge.RequireSession(issuer, next)
	}
}
