package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// ErrInvalidToken is returned for missing, malformed, expired or otherwise
// unverifiable session tokens.
var ErrInvalidToken = errors.New("invalid session token")

// DefaultTokenTTL is the session lifetime when none is configured.
const DefaultTokenTTL = 12 * time.Hour

// TokenIssuer mints and verifies signed session tokens for the bridge
// endpoint. Tokens are HS256 JWTs bound to a subject (the unlocked wallet
// session) with an expiry.
type TokenIssuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
}

// NewTokenIssuer creates an issuer from a symmetric signing key. The key
// must be at least 32 bytes.
func NewTokenIssuer(key []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes, got %d", len(key))
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{key: key, ttl: ttl, issuer: "lnbridge"}, nil
}

// Mint issues a session token for the given subject.
func (t *TokenIssuer) Mint(subject string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: t.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	now := time.Now()
	claims := jwt.Claims{
		Issuer:   t.issuer,
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks the token signature and expiry and returns its subject.
func (t *TokenIssuer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims jwt.Claims
	if err := parsed.Claims(t.key, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := claims.Validate(jwt.Expected{Issuer: t.issuer, Time: time.Now()}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

// Authorize extracts and verifies the bearer token on a request, returning
// the session subject.
func (t *TokenIssuer) Authorize(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrInvalidToken)
	}
	return t.Verify(token)
}

// RequireSession wraps a handler with bearer-token session auth.
func RequireSession(issuer *TokenIssuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := issuer.Authorize(r); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
