// Package pocketbase mounts the wallet bridge endpoint on a PocketBase app.
// This package is a thin adapter; all bridge and session logic lives in the
// http package.
package pocketbase

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/lightvault/lnbridge-go/bridge"
	httpbridge "github.com/lightvault/lnbridge-go/http"
)

// Register binds the wallet bridge endpoint at path during OnServe and
// returns the wallet-side bridge.
//
// Example usage:
//
//	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
//	    b = pbbridge.Register(se, "/api/bridge", &httpbridge.Config{
//	        Service: svc,
//	        Issuer:  issuer,
//	    })
//	    return se.Next()
//	})
func Register(se *core.ServeEvent, path string, config *httpbridge.Config) *bridge.Bridge {
	handler, b := httpbridge.NewHandler(config)

	se.Router.POST(path, func(e *core.RequestEvent) error {
		handler.ServeHTTP(e.Response, e.Request)
		return nil
	})
	return b
}

// NewSessionMiddleware returns a PocketBase route middleware enforcing
// bearer-token session auth, for protecting sibling wallet routes with the
// same tokens as the bridge.
func NewSessionMiddleware(issuer *httpbridge.TokenIssuer) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, err := issuer.Authorize(e.Request); err != nil {
			return e.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or missing session token",
			})
		}
		return e.Next()
	}
}
