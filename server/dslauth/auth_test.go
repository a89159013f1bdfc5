package dslauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Issue_Validate_roundTrip(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := Issue("client-1", secret, time.Hour)
	require.NoError(t, err)

	clientID, err := Validate(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "client-1", clientID)
}

func Test_Validate_rejectsWrongSecret(t *testing.T) {
	tok, err := Issue("client-1", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = Validate(tok, []byte("secret-b"))
	assert.Error(t, err)
}

func Test_Validate_rejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := Issue("client-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = Validate(tok, secret)
	assert.Error(t, err)
}

func Test_FromRequest_parsesBearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")

	tok, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)
}

func Test_FromRequest_rejectsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := FromRequest(req)
	assert.Error(t, err)
}

func Test_FromRequest_rejectsNonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	_, err := FromRequest(req)
	assert.Error(t, err)
}

func Test_Middleware_rejectsMissingToken(t *testing.T) {
	secret := []byte("test-secret")
	called := false
	mw := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/compile", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_Middleware_attachesClientIDOnSuccess(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := Issue("client-9", secret, time.Hour)
	require.NoError(t, err)

	var seenID string
	var seenOK bool
	mw := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, seenOK = ClientID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/compile", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seenOK)
	assert.Equal(t, "client-9", seenID)
}
