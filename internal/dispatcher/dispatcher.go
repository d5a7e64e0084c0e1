package dispatcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Response is a complete HTTP response produced by a handler.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// HandlerFunc serves one request and returns the full response.
type HandlerFunc func(r *http.Request) Response

type routeKey struct {
	method string
	path   string
}

// Dispatcher routes requests on an exact (method, path) match.
type Dispatcher struct {
	mu      sync.RWMutex
	routes  map[routeKey]HandlerFunc
	baseURL string
	Logger  *scribe.Scribe

	// OnNotFound is called for every unmatched request, if set.
	OnNotFound func(r *http.Request)
}

func New(logger *scribe.Scribe) *Dispatcher {
	return &Dispatcher{
		routes: make(map[routeKey]HandlerFunc),
		Logger: logger,
	}
}

// Register stores handler under the lowercased method and exact path and
// returns it unchanged. A previous registration for the same pair is replaced.
func (d *Dispatcher) Register(method, path string, handler HandlerFunc) HandlerFunc {
	d.mu.Lock()
	d.routes[routeKey{method: strings.ToLower(method), path: path}] = handler
	d.mu.Unlock()

	d.Logger.Debug().
		Str("method", strings.ToUpper(method)).
		Str("path", path).
		Msg("Registered route")

	return handler
}

// SetBaseURL sets the URL echoed in 404 diagnostics.
func (d *Dispatcher) SetBaseURL(url string) {
	d.mu.Lock()
	d.baseURL = url
	d.mu.Unlock()
}

func (d *Dispatcher) BaseURL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.baseURL
}

// Dispatch invokes the handler registered for the request, or the 404 handler.
func (d *Dispatcher) Dispatch(r *http.Request) Response {
	r = WithTrace(r)
	ctx := r.Context()

	d.Logger.InfoCtx(ctx).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(fmt.Sprintf("Dispatcher called for: %s %s", r.Method, r.URL.Path))

	d.Logger.DebugCtx(ctx).
		Str("remote_addr", r.RemoteAddr).
		Int("content_length", int(r.ContentLength)).
		Str("content_type", r.Header.Get("Content-Type")).
		Str("user_agent", r.UserAgent()).
		Str("query", r.URL.RawQuery).
		Msg("Request metadata")

	d.mu.RLock()
	handler, ok := d.routes[routeKey{method: strings.ToLower(r.Method), path: r.URL.Path}]
	d.mu.RUnlock()

	if !ok {
		return d.NotFound(r)
	}

	return handler(r)
}

// NotFound answers an unmatched request with the configured base URL.
func (d *Dispatcher) NotFound(r *http.Request) Response {
	d.Logger.WarnCtx(r.Context()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Unexpected URL/method")

	if d.OnNotFound != nil {
		d.OnNotFound(r)
	}

	return Response{
		StatusCode:  http.StatusNotFound,
		ContentType: ContentTypeText,
		Body:        []byte("POST " + d.BaseURL()),
	}
}

// ServeGin adapts the dispatcher to a gin engine.
func (d *Dispatcher) ServeGin(c *gin.Context) {
	resp := d.Dispatch(c.Request)
	Write(c.Writer, resp)
}

// Write sends a Response. The Content-Type header is only set when the
// response names one.
func Write(w http.ResponseWriter, resp Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

type traceKey struct{}

// WithTrace attaches a request trace id to the request context and to its
// scribe log context. Requests that already carry one are returned as is.
func WithTrace(r *http.Request) *http.Request {
	if TraceID(r.Context()) != "" {
		return r
	}

	id := uuid.New().String()
	ctx := scribe.WithCtx(r.Context())
	scribe.GetLogContext(ctx).Set("request_trace_id", id)
	ctx = context.WithValue(ctx, traceKey{}, id)

	return r.WithContext(ctx)
}

// TraceID returns the trace id set by WithTrace, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
