// Package result contains results that are used to write out compile
// service API responses.
package result

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// OK returns a Result containing an HTTP-200 along with a more detailed
// message (if desired; if none is provided it defaults to a generic one)
// that is not displayed to the caller.
func OK(respObj interface{}, internalMsg ...interface{}) Result {
	return response(http.StatusOK, respObj, "OK", internalMsg...)
}

// Created returns a Result containing an HTTP-201.
func Created(respObj interface{}, internalMsg ...interface{}) Result {
	return response(http.StatusCreated, respObj, "created", internalMsg...)
}

// NoContent returns a Result containing an HTTP-204.
func NoContent(internalMsg ...interface{}) Result {
	return response(http.StatusNoContent, nil, "no content", internalMsg...)
}

// BadRequest returns a Result containing an HTTP-400.
func BadRequest(userMsg string, internalMsg ...interface{}) Result {
	return errResponse(http.StatusBadRequest, userMsg, "bad request", internalMsg...)
}

// Unauthorized returns a Result containing an HTTP-401 along with the
// WWW-Authenticate header a bearer-token client expects.
func Unauthorized(userMsg string, internalMsg ...interface{}) Result {
	if userMsg == "" {
		userMsg = "You are not authorized to do that"
	}
	return errResponse(http.StatusUnauthorized, userMsg, "unauthorized", internalMsg...).
		WithHeader("WWW-Authenticate", `Bearer realm="dslc compile service"`)
}

// Forbidden returns a Result containing an HTTP-403.
func Forbidden(internalMsg ...interface{}) Result {
	return errResponse(http.StatusForbidden, "You don't have permission to do that", "forbidden", internalMsg...)
}

// NotFound returns a Result containing an HTTP-404.
func NotFound(internalMsg ...interface{}) Result {
	return errResponse(http.StatusNotFound, "The requested resource was not found", "not found", internalMsg...)
}

// MethodNotAllowed returns a Result containing an HTTP-405.
func MethodNotAllowed(req *http.Request, internalMsg ...interface{}) Result {
	userMsg := fmt.Sprintf("Method %s is not allowed for %s", req.Method, req.URL.Path)
	return errResponse(http.StatusMethodNotAllowed, userMsg, "method not allowed", internalMsg...)
}

// Conflict returns a Result containing an HTTP-409.
func Conflict(userMsg string, internalMsg ...interface{}) Result {
	return errResponse(http.StatusConflict, userMsg, "conflict", internalMsg...)
}

// InternalServerError returns a Result containing an HTTP-500.
func InternalServerError(internalMsg ...interface{}) Result {
	return errResponse(http.StatusInternalServerError, "An internal server error occurred", "internal server error", internalMsg...)
}

// TextErr is like the error helpers above (BadRequest, NotFound, ...) but
// avoids JSON encoding and writes plain text.
func TextErr(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      false,
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        userMsg,
	}
}

func response(status int, respObj interface{}, internalMsg string, v ...interface{}) Result {
	msg, args := splitMsg(internalMsg, v)
	return Result{
		IsJSON:      true,
		Status:      status,
		InternalMsg: fmt.Sprintf(msg, args...),
		resp:        respObj,
	}
}

func errResponse(status int, userMsg, internalMsg string, v ...interface{}) Result {
	msg, args := splitMsg(internalMsg, v)
	return Result{
		IsJSON:      true,
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(msg, args...),
		resp:        ErrorResponse{Error: userMsg, Status: status},
	}
}

// splitMsg allows an optional leading format-string argument to override the
// default internal message.
func splitMsg(def string, v []interface{}) (string, []interface{}) {
	if len(v) >= 1 {
		if s, ok := v[0].(string); ok {
			return s, v[1:]
		}
	}
	return def, nil
}

// Result is a prepared HTTP response together with the log line that should
// accompany it. Construct one with OK, BadRequest, or one of the other helpers.
type Result struct {
	Status      int
	IsErr       bool
	IsJSON      bool
	InternalMsg string

	resp interface{}
	hdrs [][2]string

	respJSONBytes []byte
}

func (r Result) WithHeader(name, val string) Result {
	cp := r
	cp.hdrs = append(append([][2]string{}, r.hdrs...), [2]string{name, val})
	return cp
}

// PrepareMarshaledResponse marshals the response body ahead of time so that
// WriteResponse itself cannot fail partway through writing headers.
func (r *Result) PrepareMarshaledResponse() error {
	if r.respJSONBytes != nil {
		return nil
	}
	if r.IsJSON && r.Status != http.StatusNoContent {
		var err error
		r.respJSONBytes, err = json.Marshal(r.resp)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteResponse writes the prepared result to w. Call PrepareMarshaledResponse
// first if the caller needs to distinguish a marshal failure from a write
// failure; otherwise WriteResponse will do it and panic if it errors.
func (r Result) WriteResponse(w http.ResponseWriter) {
	if r.Status == 0 {
		panic("result not populated")
	}
	if err := r.PrepareMarshaledResponse(); err != nil {
		panic(fmt.Sprintf("could not marshal response: %s", err.Error()))
	}

	var respBytes []byte
	if r.IsJSON {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		respBytes = r.respJSONBytes
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if r.Status != http.StatusNoContent {
			respBytes = []byte(fmt.Sprintf("%v", r.resp))
		}
	}

	for i := range r.hdrs {
		w.Header().Set(r.hdrs[i][0], r.hdrs[i][1])
	}

	w.WriteHeader(r.Status)
	if r.Status != http.StatusNoContent {
		w.Write(respBytes)
	}
}

// Log writes a one-line summary of the result against req to the standard
// logger, in the level-padded "LEVEL remoteIP METHOD PATH: HTTP-nnn msg"
// form.
func (r Result) Log(req *http.Request) {
	level := "INFO "
	if r.IsErr {
		level = "ERROR"
	}

	remoteIP := req.RemoteAddr
	if idx := strings.LastIndex(remoteIP, ":"); idx >= 0 {
		remoteIP = remoteIP[:idx]
	}

	log.Printf("%s %s %s %s: HTTP-%d %s", level, remoteIP, req.Method, req.URL.Path, r.Status, r.InternalMsg)
}
