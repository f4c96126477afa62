package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const (
	// StatusSuccess marks a 2xx envelope.
	StatusSuccess = "success"
	// StatusFail marks a 4xx envelope: the client can fix the request.
	StatusFail = "fail"
	// StatusError marks a 5xx envelope.
	StatusError = "error"
)

// HealthPath is the liveness route. It stays reachable in maintenance mode.
const HealthPath = "/api/healthchecker"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

// Handler is the application-style handler used by this router.
//
// The returned payload is JSON encoded as the whole response body. A payload
// implementing StatusCode() int chooses its own 2xx status.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	// Config provides runtime configuration values.
	Config config.Config
	// UUID generates request correlation IDs.
	UUID uid.StringID
	// Instrument provides tracing and metrics helpers.
	Instrument instrument.Instrumentation
}

// Router is an http.Handler that wraps httprouter and a middleware chain.
type Router struct {
	hr  *httprouter.Router
	mws []Middleware
}

// NewRouter builds the application router with the standard middleware:
// panic recovery, client IP, correlation id, observability and maintenance.
func NewRouter(cfg Config) *Router {
	ins := cfg.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, ErrorResponse{Status: StatusFail, Message: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, ErrorResponse{Status: StatusFail, Message: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	return &Router{
		hr: hr,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareIP,
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, ins),
			middlewareMaintenance(cfg.Config),
		},
	}
}

// GET registers a GET endpoint.
func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodGet, path, h, mws...)
}

// POST registers a POST endpoint.
func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPost, path, h, mws...)
}

func (r *Router) endpoint(method, path string, h Handler, mws ...Middleware) {
	final := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if setter, ok := w.(interface{ SetError(error) }); ok {
				setter.SetError(err)
			}
			writeError(req.Context(), w, err)
			return
		}
		writeOK(w, resp)
	})

	r.hr.Handler(method, path, Chain(final, append(r.mws, mws...)...))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

func envelopeStatus(code int) string {
	if code >= http.StatusInternalServerError {
		return StatusError
	}
	return StatusFail
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		slog.ErrorContext(ctx, "unclassified handler error", "error", err)
		writeJSON(w, ErrorResponse{Status: StatusError, Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	code := gerr.StatusCode()
	resp := ErrorResponse{Status: envelopeStatus(code), Message: gerr.Msg()}

	var errValidate validator.V10ValidationError
	if errors.As(err, &errValidate) {
		resp.Error = errValidate.Values()
	} else if len(gerr.Fields()) > 0 {
		resp.Error = gerr.Fields()
	}

	writeJSON(w, resp, code)
}

func writeOK(w http.ResponseWriter, resp any) {
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}

	writeJSON(w, resp, code)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("router: failed to encode response", "error", err)
	}
}
