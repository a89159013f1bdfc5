// Package dslauth issues and validates the HS512-signed bearer tokens that
// gate the compile service. A compile client has no account, only a client
// ID baked into the token's subject claim and a shared signing secret
// configured into the service.
package dslauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "dslc-compile-service"

// ctxKey is a key in the context of a request populated by Middleware.
type ctxKey int

const clientIDKey ctxKey = iota

// Issue returns a signed bearer token identifying clientID, valid for ttl.
func Issue(clientID string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"iss": issuer,
		"sub": clientID,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return tok.SignedString(secret)
}

// Validate parses and verifies tok against secret, returning the client ID
// from its subject claim.
func Validate(tok string, secret []byte) (clientID string, err error) {
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(issuer), jwt.WithLeeway(time.Minute))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	subj, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token has no subject: %w", err)
	}
	return subj, nil
}

// FromRequest extracts the bearer token from req's Authorization header.
func FromRequest(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "bearer") {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return strings.TrimSpace(parts[1]), nil
}

// ClientID retrieves the client ID Middleware attached to ctx. The second
// return value is false if no client ID was attached.
func ClientID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey).(string)
	return id, ok
}

// Middleware validates the bearer token on every request it wraps against
// secret, rejecting with HTTP-401 on failure. The server wraps /compile and
// /jobs/{id} with it; /info is served without a token.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			tok, err := FromRequest(req)
			if err != nil {
				unauthorized(w, err)
				return
			}

			clientID, err := Validate(tok, secret)
			if err != nil {
				unauthorized(w, err)
				return
			}

			ctx := context.WithValue(req.Context(), clientIDKey, clientID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="dslc compile service"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q,"status":401}`, err.Error())
}
