package lnbridge

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const lnurlPrefix = "lnurlp:"

// ParseRecipient parses the content of a page-declared lightning tag into a
// Recipient. Three shapes are accepted, first match wins:
//
//  1. "lnurlp:<address>" shorthand
//  2. a bare value containing no "=" (treated as a lightning address)
//  3. a semicolon-delimited list of key=value tokens
//
// Keys and values are trimmed; unknown keys pass through into Extra. The
// returned recipient is not yet validated; call Validate before use.
func ParseRecipient(content string) *Recipient {
	content = strings.TrimSpace(content)

	if hasLnurlPrefix(content) || !strings.Contains(content, "=") {
		address := content
		if hasLnurlPrefix(content) {
			address = content[len(lnurlPrefix):]
		}
		return &Recipient{
			Method:  RecipientMethodLNURL,
			Address: address,
		}
	}

	bag := make(map[string]string)
	for _, token := range strings.Split(content, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, value, _ := strings.Cut(token, "=")
		bag[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	r := &Recipient{
		Method:      RecipientMethod(takeKey(bag, "method")),
		Address:     takeKey(bag, "address"),
		CustomKey:   takeKey(bag, "customkey"),
		CustomValue: takeKey(bag, "customvalue"),
		Extra:       bag,
	}
	return r
}

// Validate checks that a parsed recipient carries every required field.
// A recipient missing required fields fails closed with ErrInvalidRecipient
// instead of flowing downstream partially populated.
func (r *Recipient) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	if (r.CustomKey == "") != (r.CustomValue == "") {
		return fmt.Errorf("%w: customkey and customvalue must be set together", ErrInvalidRecipient)
	}
	if r.Method == RecipientMethodLNURL && (r.CustomKey != "" || r.CustomValue != "") {
		return fmt.Errorf("%w: custom records are only valid for keysend", ErrInvalidRecipient)
	}
	return nil
}

func hasLnurlPrefix(s string) bool {
	return len(s) >= len(lnurlPrefix) && strings.EqualFold(s[:len(lnurlPrefix)], lnurlPrefix)
}

func takeKey(bag map[string]string, key string) string {
	v := bag[key]
	delete(bag, key)
	return v
}
