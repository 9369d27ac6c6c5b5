package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	composition "github.com/hanpama/fedgraph/internal/composition"
	eventbus "github.com/hanpama/fedgraph/internal/eventbus"
	events "github.com/hanpama/fedgraph/internal/events"
	reqid "github.com/hanpama/fedgraph/internal/reqid"
	resolvability "github.com/hanpama/fedgraph/internal/resolvability"
	subgraph "github.com/hanpama/fedgraph/internal/subgraph"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Handler serves the schema check API. Every request builds and validates a
// fresh graph, so requests never share state.
type Handler struct {
	composer *composition.Composer
	mux      *http.ServeMux
	opt      Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// Metrics, if set, is served at /metrics.
	Metrics http.Handler

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option       { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                       { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option          { return func(o *Options) { o.MaxBodyBytes = n } }
func WithMetricsHandler(h http.Handler) Option { return func(o *Options) { o.Metrics = h } }
func WithLogger(l *zap.Logger) Option          { return func(o *Options) { o.Logger = l } }

// New creates a new check handler backed by composer.
func New(composer *composition.Composer, opts ...Option) (*Handler, error) {
	if composer == nil {
		return nil, fmt.Errorf("server: composer is required")
	}
	op := Options{Timeout: 10 * time.Second, Logger: zap.NewNop()}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	h := &Handler{composer: composer, mux: http.NewServeMux(), opt: op}
	h.mux.Handle("/check", h.instrument("/check", http.HandlerFunc(h.serveCheck)))
	h.mux.Handle("/healthz", h.instrument("/healthz", http.HandlerFunc(serveHealth)))
	if op.Metrics != nil {
		h.mux.Handle("/metrics", op.Metrics)
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument assigns the request ID, applies the default timeout and emits
// HTTP events around next.
func (h *Handler) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
			defer cancel()
		}
		var rid string
		if id := r.Header.Get(requestIDHeader); id != "" {
			ctx, rid = reqid.WithID(ctx, id)
		} else {
			ctx, rid = reqid.NewContext(ctx)
		}
		w.Header().Set(requestIDHeader, rid)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		eventbus.Publish(ctx, events.HTTPStart{Request: r, Route: route})
		defer func() {
			duration := time.Since(start)
			eventbus.Publish(ctx, events.HTTPFinish{Request: r, Route: route, Status: rec.status, Duration: duration})
			h.opt.Logger.Debug("request served",
				zap.String("request_id", rid),
				zap.String("route", route),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration))
		}()
		next.ServeHTTP(rec, r)
	})
}

func serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// ------------------ Check endpoint ------------------

type CheckRequest struct {
	Subgraphs []CheckSubgraph `json:"subgraphs"`
}

type CheckSubgraph struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

type CheckResponse struct {
	ID      string       `json:"id"`
	Success bool         `json:"success"`
	Errors  []CheckError `json:"errors"`
}

// CheckError is one problem found by a check. Resolvability errors carry the
// root field and the path of the unresolvable field.
type CheckError struct {
	Message   string   `json:"message"`
	RootField string   `json:"rootField,omitempty"`
	TypeName  string   `json:"typeName,omitempty"`
	Field     string   `json:"field,omitempty"`
	Path      string   `json:"path,omitempty"`
	Subgraphs []string `json:"subgraphs,omitempty"`
	File      string   `json:"file,omitempty"`
	Line      int      `json:"line,omitempty"`
	Column    int      `json:"column,omitempty"`
}

func (h *Handler) serveCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rid, _ := reqid.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeJSON(w, http.StatusMethodNotAllowed, failure(rid, CheckError{Message: "method not allowed"}))
		return
	}

	req, status, err := parseCheckRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		h.writeJSON(w, status, failure(rid, CheckError{Message: err.Error()}))
		return
	}

	inMemory := make([]subgraph.InMemorySubgraph, len(req.Subgraphs))
	for i, sg := range req.Subgraphs {
		inMemory[i] = subgraph.InMemorySubgraph{Name: sg.Name, Content: sg.Schema}
	}
	result, err := h.composer.Compose(ctx, subgraph.NewInMemoryDiscovery(inMemory))
	if err != nil {
		var verr subgraph.ValidationError
		switch {
		case errors.As(err, &verr):
			h.writeJSON(w, http.StatusUnprocessableEntity, failure(rid, violationErrors(verr)...))
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			h.writeJSON(w, http.StatusServiceUnavailable, failure(rid, CheckError{Message: err.Error()}))
		default:
			h.writeJSON(w, http.StatusBadRequest, failure(rid, CheckError{Message: err.Error()}))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, NewCheckResponse(rid, result))
}

// NewCheckResponse reports result under id.
func NewCheckResponse(id string, result *composition.Result) CheckResponse {
	resp := CheckResponse{ID: id, Success: result.Success(), Errors: make([]CheckError, 0, len(result.Errors))}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, toCheckError(e))
	}
	return resp
}

func parseCheckRequest(r *http.Request, maxBody int64) (CheckRequest, int, error) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return CheckRequest{}, http.StatusUnsupportedMediaType, errors.New("unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	defer r.Body.Close()
	if err != nil {
		return CheckRequest{}, http.StatusBadRequest, errors.New("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return CheckRequest{}, http.StatusRequestEntityTooLarge, errors.New("body too large")
	}
	var req CheckRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return CheckRequest{}, http.StatusBadRequest, errors.New("invalid JSON")
	}
	if len(req.Subgraphs) == 0 {
		return CheckRequest{}, http.StatusBadRequest, errors.New("missing 'subgraphs'")
	}
	seen := make(map[string]bool, len(req.Subgraphs))
	for i, sg := range req.Subgraphs {
		if sg.Name == "" {
			return CheckRequest{}, http.StatusBadRequest, fmt.Errorf("subgraphs[%d]: missing 'name'", i)
		}
		if seen[sg.Name] {
			return CheckRequest{}, http.StatusBadRequest, fmt.Errorf("subgraphs[%d]: duplicate name %q", i, sg.Name)
		}
		seen[sg.Name] = true
	}
	return req, http.StatusOK, nil
}

// ------------------ Response formatting ------------------

func failure(rid string, errs ...CheckError) CheckResponse {
	return CheckResponse{ID: rid, Success: false, Errors: errs}
}

func violationErrors(verr subgraph.ValidationError) []CheckError {
	out := make([]CheckError, len(verr))
	for i, v := range verr {
		out[i] = CheckError{Message: v.Message, File: v.File, Line: v.Line, Column: v.Column}
	}
	return out
}

func toCheckError(err error) CheckError {
	var ufe *resolvability.UnresolvableFieldError
	if errors.As(err, &ufe) {
		return CheckError{
			Message:   ufe.Error(),
			RootField: ufe.RootField.Coords,
			TypeName:  ufe.TypeName,
			Field:     ufe.FieldName,
			Path:      ufe.FieldPath,
			Subgraphs: ufe.SubgraphNames,
		}
	}
	var dle *resolvability.DepthLimitError
	if errors.As(err, &dle) {
		return CheckError{Message: dle.Error(), Path: dle.Path}
	}
	return CheckError{Message: err.Error()}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
