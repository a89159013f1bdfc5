package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dekarrin/dslc"
	"github.com/dekarrin/dslc/internal/dslconfig"
	"github.com/dekarrin/dslc/internal/dslreport"
	"github.com/dekarrin/dslc/internal/version"
	"github.com/dekarrin/dslc/server/dslstore"
	"github.com/dekarrin/dslc/server/result"
	"github.com/dekarrin/dslc/server/serr"
)

// PathPrefix is the prefix of all paths served by the compile API. Routers
// should mount a sub-router that routes all requests to it at this path.
const PathPrefix = "/v1"

// API holds the dependencies needed to run the compile service's endpoints.
// Create one and assign the result of its HTTP* methods as handlers to a
// router.
type API struct {
	Jobs *dslstore.Store

	// ArtifactDir is where a compiled binary is staged before being read
	// back and base64-encoded into its job's stored result.
	ArtifactDir string

	// UnauthDelay is the amount of time a request pauses before responding
	// with an HTTP-500, to deprioritize such requests from processing and
	// I/O the way a failed-login request is deprioritized.
	UnauthDelay time.Duration
}

type EndpointFunc func(req *http.Request) result.Result

func (a *API) httpEndpoint(ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer a.panicTo500(w, req)
		r := ep(req)

		if r.Status == 0 {
			result.InternalServerError("endpoint result was never populated").WriteResponse(w)
			return
		}

		if err := r.PrepareMarshaledResponse(); err != nil {
			newResp := result.InternalServerError("could not marshal JSON response: %s", err.Error())
			newResp.WriteResponse(w)
			newResp.Log(req)
			return
		}

		r.Log(req)
		if r.Status == http.StatusInternalServerError {
			time.Sleep(a.UnauthDelay)
		}
		r.WriteResponse(w)
	}
}

func (a *API) panicTo500(w http.ResponseWriter, req *http.Request) {
	if panicErr := recover(); panicErr != nil {
		r := result.TextErr(
			http.StatusInternalServerError,
			"An internal server error occurred",
			fmt.Sprintf("panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack())),
		)
		r.WriteResponse(w)
		r.Log(req)
	}
}

type infoResponse struct {
	Version string   `json:"version"`
	Targets []string `json:"targets"`
}

func (a *API) handleInfo(req *http.Request) result.Result {
	return result.OK(infoResponse{
		Version: version.Current,
		Targets: []string{string(dslconfig.TargetLinuxX64), string(dslconfig.TargetWindowsX64), string(dslconfig.TargetMacOSX64)},
	})
}

// compileRequest is the body of POST /v1/compile: a source program and the
// configuration knobs a CLI invocation would otherwise take as flags.
type compileRequest struct {
	Source            string `json:"source"`
	Target            string `json:"target"`
	OptimizationLevel int    `json:"optimizationLevel"`
	UnrollFactor      int    `json:"unrollFactor"`
	EmitDebugInfo     bool   `json:"emitDebugInfo"`
}

type jobResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Diagnostics string `json:"diagnostics,omitempty"`
	Artifact    string `json:"artifact,omitempty"`
	Error       string `json:"error,omitempty"`
}

func jobToResponse(j dslstore.Job) jobResponse {
	return jobResponse{
		ID:          j.ID.String(),
		Status:      string(j.Status),
		Diagnostics: j.Diagnostics,
		Artifact:    j.ArtifactB64,
		Error:       j.ErrorMsg,
	}
}

func (a *API) handleCompile(req *http.Request) result.Result {
	var body compileRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error())
	}
	if strings.TrimSpace(body.Source) == "" {
		return result.BadRequest("source must not be empty")
	}

	cfg := dslconfig.NewConfig()
	if body.Target != "" {
		cfg.Target = dslconfig.Target(body.Target)
	}
	if body.OptimizationLevel != 0 {
		cfg.OptimizationLevel = body.OptimizationLevel
	}
	if body.UnrollFactor != 0 {
		cfg.UnrollFactor = body.UnrollFactor
	}
	cfg.EmitDebugInfo = body.EmitDebugInfo

	if err := cfg.Validate(); err != nil {
		return result.BadRequest(err.Error())
	}

	configJSON, err := json.Marshal(body)
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	clientID, _ := clientIDFromRequest(req)

	job, err := a.Jobs.Create(req.Context(), clientID, body.Source, string(configJSON))
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	outFile := filepath.Join(a.ArtifactDir, job.ID.String()+".bin")
	cfg.OutputPath = outFile

	p, err := dslc.New(cfg, "")
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	compileResult, compileErr := p.Compile([]byte(body.Source))

	diagText := formatDiagnostics(compileResult)
	if compileErr != nil {
		finishErr := a.Jobs.Finish(req.Context(), job.ID, dslstore.StatusFailed, diagText, "", compileErr.Error())
		if finishErr != nil {
			return result.InternalServerError(finishErr.Error())
		}
		job, _ = a.Jobs.Get(req.Context(), job.ID)
		return result.OK(jobToResponse(job), "compile failed")
	}

	artifactB64, err := readArtifactBase64(outFile)
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	if err := a.Jobs.Finish(req.Context(), job.ID, dslstore.StatusSucceeded, diagText, artifactB64, ""); err != nil {
		return result.InternalServerError(err.Error())
	}

	job, err = a.Jobs.Get(req.Context(), job.ID)
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	return result.Created(jobToResponse(job))
}

func (a *API) handleGetJob(req *http.Request) result.Result {
	idStr := chi.URLParam(req, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return result.BadRequest("job id must be a UUID")
	}

	job, err := a.Jobs.Get(req.Context(), id)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	return result.OK(jobToResponse(job))
}

func formatDiagnostics(r dslc.Result) string {
	var artifactBytes int64
	if r.Artifact != nil {
		artifactBytes = int64(len(r.Artifact.Code) + len(r.Artifact.Data))
	}

	var b strings.Builder
	if len(r.Diagnostics.Entries) > 0 {
		b.WriteString(dslreport.Diagnostics(r.Diagnostics))
		b.WriteByte('\n')
	}
	b.WriteString(dslreport.Summary(r.Diagnostics, artifactBytes))
	return b.String()
}

func readArtifactBase64(path string) (string, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// v must be a pointer to a type. Will return an error wrapping
// serr.ErrBodyUnmarshal if the problem is decoding the JSON itself.
func parseJSON(req *http.Request, v interface{}) error {
	contentType := req.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return fmt.Errorf("request content-type is not application/json")
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}

	if err := json.Unmarshal(bodyData, v); err != nil {
		return serr.New("malformed JSON in request", err, serr.ErrBodyUnmarshal)
	}

	return nil
}
