package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"vescollector/internal/logger"
	"vescollector/internal/models"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *scribe.Scribe {
	t.Helper()
	log, err := logger.GetLoggerContext(models.LogDescriptor{
		Name: "dispatcher-test",
		Path: filepath.Join(t.TempDir(), "test.log"),
		File: true,
	})
	require.NoError(t, err)
	return log
}

func fixed(status int, body string) HandlerFunc {
	return func(*http.Request) Response {
		return Response{StatusCode: status, ContentType: ContentTypeText, Body: []byte(body)}
	}
}

func TestDispatchExactMatch(t *testing.T) {
	d := New(newTestLogger(t))
	d.SetBaseURL("/eventListener/v5")

	d.Register("POST", "/eventListener/v5", fixed(http.StatusAccepted, "post"))
	d.Register("get", "/eventListener/v5", fixed(http.StatusOK, "get"))

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{"registered post", http.MethodPost, "/eventListener/v5", http.StatusAccepted, "post"},
		{"registered get", http.MethodGet, "/eventListener/v5", http.StatusOK, "get"},
		{"unregistered method", http.MethodPut, "/eventListener/v5", http.StatusNotFound, "POST /eventListener/v5"},
		{"trailing slash", http.MethodPost, "/eventListener/v5/", http.StatusNotFound, "POST /eventListener/v5"},
		{"prefix only", http.MethodPost, "/eventListener", http.StatusNotFound, "POST /eventListener/v5"},
		{"longer path", http.MethodPost, "/eventListener/v5/topic", http.StatusNotFound, "POST /eventListener/v5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			resp := d.Dispatch(req)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, tt.expectedBody, string(resp.Body))
		})
	}
}

func TestRegisterLastWins(t *testing.T) {
	d := New(newTestLogger(t))

	d.Register("post", "/path", fixed(http.StatusOK, "first"))
	d.Register("POST", "/path", fixed(http.StatusOK, "second"))

	resp := d.Dispatch(httptest.NewRequest(http.MethodPost, "/path", nil))
	assert.Equal(t, "second", string(resp.Body))
}

func TestRegisterReturnsHandler(t *testing.T) {
	d := New(newTestLogger(t))

	called := false
	h := func(*http.Request) Response {
		called = true
		return Response{StatusCode: http.StatusNoContent}
	}

	returned := d.Register("get", "/x", h)
	returned(httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, called)
}

func TestNotFoundDiagnostic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	d := New(newTestLogger(t))
	d.SetBaseURL("/vendor_event_listener/eventListener/v5/example_vnf")

	notFound := 0
	d.OnNotFound = func(*http.Request) { notFound++ }

	router := gin.New()
	router.Any("/*path", d.ServeGin)
	router.NoRoute(d.ServeGin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/unregistered/path", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "POST /vendor_event_listener/eventListener/v5/example_vnf", w.Body.String())
	assert.Equal(t, 1, notFound)
}

func TestServeGinWithoutContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)

	d := New(newTestLogger(t))
	d.Register("post", "/empty", func(*http.Request) Response {
		return Response{StatusCode: http.StatusAccepted}
	})

	router := gin.New()
	router.Any("/*path", d.ServeGin)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/empty", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Type"))
}

func TestConcurrentRegisterAndDispatch(t *testing.T) {
	d := New(newTestLogger(t))
	d.Register("get", "/stable", fixed(http.StatusOK, "ok"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Register("post", "/late", fixed(http.StatusAccepted, "late"))
		}()
		go func() {
			defer wg.Done()
			resp := d.Dispatch(httptest.NewRequest(http.MethodGet, "/stable", nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	wg.Wait()

	resp := d.Dispatch(httptest.NewRequest(http.MethodPost, "/late", nil))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestDispatchSetsTraceID(t *testing.T) {
	d := New(newTestLogger(t))

	var seen string
	d.Register("get", "/trace", func(r *http.Request) Response {
		seen = TraceID(r.Context())
		return Response{StatusCode: http.StatusOK}
	})

	d.Dispatch(httptest.NewRequest(http.MethodGet, "/trace", nil))
	assert.NotEmpty(t, seen)

	req := WithTrace(httptest.NewRequest(http.MethodGet, "/trace", nil))
	existing := TraceID(req.Context())
	d.Dispatch(req)
	assert.Equal(t, existing, seen)
}
