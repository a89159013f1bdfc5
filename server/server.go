// Package server implements the compile-as-a-service HTTP surface: a thin
// wrapper that runs one Pipeline per request behind a chi router and a JWT
// bearer-auth gate.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dekarrin/dslc/server/dslauth"
	"github.com/dekarrin/dslc/server/dslstore"
)

const (
	// MaxSecretSize and MinSecretSize bound the JWT signing secret.
	MaxSecretSize = 64
	MinSecretSize = 32
)

// Config configures a Server.
type Config struct {
	// ListenAddress is the host:port to bind to.
	ListenAddress string

	// StorageDir holds the job database and compiled artifacts. Created if
	// it does not exist.
	StorageDir string

	// TokenSecret signs and verifies bearer tokens.
	TokenSecret []byte

	// UnauthDelay is the amount of additional time to wait before sending a
	// response indicating an internal server error, to deprioritize such
	// requests from processing and I/O. Defaults to one second.
	UnauthDelay time.Duration
}

// FillDefaults returns a copy of cfg with unset values set to their
// defaults.
func (cfg Config) FillDefaults() Config {
	newCfg := cfg
	if newCfg.ListenAddress == "" {
		newCfg.ListenAddress = ":8080"
	}
	if newCfg.UnauthDelay == 0 {
		newCfg.UnauthDelay = time.Second
	}
	return newCfg
}

// Validate returns an error if cfg has invalid field values. Call it on the
// result of FillDefaults if defaults are intended to be used.
func (cfg Config) Validate() error {
	if len(cfg.TokenSecret) < MinSecretSize {
		return fmt.Errorf("token secret: must be at least %d bytes, but is %d", MinSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.TokenSecret) > MaxSecretSize {
		return fmt.Errorf("token secret: must be no more than %d bytes, but is %d", MaxSecretSize, len(cfg.TokenSecret))
	}
	if cfg.StorageDir == "" {
		return fmt.Errorf("storage dir must be set")
	}
	return nil
}

// Server is the compile-as-a-service HTTP server.
type Server struct {
	cfg Config
	api *API
	srv *http.Server

	jobs        *dslstore.Store
	artifactDir string
}

// New constructs a Server, opening its job store under cfg.StorageDir.
func New(cfg Config) (*Server, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.StorageDir, 0770); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	artifactDir := filepath.Join(cfg.StorageDir, "artifacts")
	if err := os.MkdirAll(artifactDir, 0770); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	jobs, err := dslstore.Open(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		jobs:        jobs,
		artifactDir: artifactDir,
		api: &API{
			Jobs:        jobs,
			ArtifactDir: artifactDir,
			UnauthDelay: cfg.UnauthDelay,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Route(PathPrefix, func(pr chi.Router) {
		pr.Get("/info", s.api.httpEndpoint(s.api.handleInfo))
		pr.Group(func(ar chi.Router) {
			ar.Use(dslauth.Middleware(cfg.TokenSecret))
			ar.Post("/compile", s.api.httpEndpoint(s.api.handleCompile))
			ar.Get("/jobs/{id}", s.api.httpEndpoint(s.api.handleGetJob))
		})
	})

	s.srv = &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: r,
	}

	return s, nil
}

// ListenAndServe runs the server until ctx is canceled or an unrecoverable
// error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close releases the server's resources, notably its job store.
func (s *Server) Close() error {
	return s.jobs.Close()
}

// IssueToken mints a bearer token for clientID, for use by an out-of-band
// provisioning step; the service itself has no signup endpoint.
func (s *Server) IssueToken(clientID string, ttl time.Duration) (string, error) {
	return dslauth.Issue(clientID, s.cfg.TokenSecret, ttl)
}

func clientIDFromRequest(req *http.Request) (string, bool) {
	return dslauth.ClientID(req.Context())
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
