// Package gin mounts the wallet bridge endpoint on a Gin engine. This
// package is a thin adapter that translates gin.Context to stdlib http
// patterns and delegates all bridge and session logic to the http package.
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lightvault/lnbridge-go/bridge"
	httpbridge "github.com/lightvault/lnbridge-go/http"
)

// Mount registers the wallet bridge endpoint at path and returns the
// wallet-side bridge.
//
// Example usage:
//
//	r := gin.Default()
//	b := ginx.Mount(r, "/bridge", &httpbridge.Config{
//	    Service: svc,
//	    Issuer:  issuer,
//	})
//	defer b.Close()
func Mount(r gin.IRoutes, path string, config *httpbridge.Config) *bridge.Bridge {
	handler, b := httpbridge.NewHandler(config)
	r.POST(path, gin.WrapH(handler))
	return b
}

// NewSessionMiddleware returns a Gin middleware enforcing bearer-token
// session auth. It aborts the chain with 401 on a missing or invalid token
// and stores the session subject in the Gin context under "lnbridge_session".
func NewSessionMiddleware(issuer *httpbridge.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := issuer.Authorize(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing session token",
			})
			return
		}
		c.Set("lnbridge_session", subject)
		c.Next()
	}
}
