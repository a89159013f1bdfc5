package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/dslc/server/dslauth"
)

func testServer(t *testing.T) (*Server, []byte) {
	t.Helper()
	secret := []byte("0123456789abcdef0123456789abcdef")
	s, err := New(Config{
		StorageDir:  t.TempDir(),
		TokenSecret: secret,
		UnauthDelay: time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, secret
}

func Test_handleInfo_noAuthRequired(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, PathPrefix+"/info", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body infoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Version)
	assert.Contains(t, body.Targets, "linux-x64")
}

func Test_handleCompile_rejectsMissingToken(t *testing.T) {
	s, _ := testServer(t)

	body, _ := json.Marshal(compileRequest{Source: `Fn add "a,b" { ret a + b }`})
	req := httptest.NewRequest(http.MethodPost, PathPrefix+"/compile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_handleCompile_succeedsAndIsRetrievable(t *testing.T) {
	s, secret := testServer(t)
	tok, err := dslauth.Issue("test-client", secret, time.Hour)
	require.NoError(t, err)

	reqBody, _ := json.Marshal(compileRequest{Source: `Fn add "a,b" { ret a + b }`})
	req := httptest.NewRequest(http.MethodPost, PathPrefix+"/compile", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var job jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "succeeded", job.Status)
	assert.NotEmpty(t, job.Artifact)

	getReq := httptest.NewRequest(http.MethodGet, PathPrefix+"/jobs/"+job.ID, nil)
	getReq.Header.Set("Authorization", "Bearer "+tok)
	getRec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(getRec, getReq)

	require.Equal(t, http.StatusOK, getRec.Code)
	var fetched jobResponse
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &fetched))
	assert.Equal(t, job.ID, fetched.ID)
	assert.Equal(t, job.Artifact, fetched.Artifact)
}

func Test_handleCompile_parseFailureReportsFailedJob(t *testing.T) {
	s, secret := testServer(t)
	tok, err := dslauth.Issue("test-client", secret, time.Hour)
	require.NoError(t, err)

	reqBody, _ := json.Marshal(compileRequest{Source: "let x = ;"})
	req := httptest.NewRequest(http.MethodPost, PathPrefix+"/compile", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "failed", job.Status)
	assert.NotEmpty(t, job.Error)
}

func Test_handleGetJob_unknownIDReturnsNotFound(t *testing.T) {
	s, secret := testServer(t)
	tok, err := dslauth.Issue("test-client", secret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, PathPrefix+"/jobs/00000000-0000-0000-0000-000000000000", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_IssueToken_producesValidBearerToken(t *testing.T) {
	s, secret := testServer(t)

	tok, err := s.IssueToken("a-client", time.Hour)
	require.NoError(t, err)

	clientID, err := dslauth.Validate(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "a-client", clientID)
}

func Test_ListenAndServe_shutsDownOnContextCancel(t *testing.T) {
	s, _ := testServer(t)
	s.cfg.ListenAddress = "127.0.0.1:0"
	s.srv.Addr = s.cfg.ListenAddress

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond) // let the listener bind before we shut it down
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not shut down in time")
	}
}
