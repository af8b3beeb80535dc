package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speechbridge/errors"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/server/middleware"
)

// methodOK stands in for the method-call endpoint.
var methodOK = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"result":true}`))
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// hostChain is the chain the server installs in front of every route.
func hostChain(cors *middleware.CORSConfig, final http.Handler) http.Handler {
	log := logger.NewNop()
	return middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.CORS(cors),
		middleware.RequestLogger(log),
	)(final)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	h := middleware.Recovery(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("listener exploded")
	}))
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/v1/speech/methods/listen", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != errors.ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", body.Error.Code)
	}
}

func TestRecoveryRethrowsAbort(t *testing.T) {
	h := middleware.Recovery(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	serve(h, httptest.NewRequest(http.MethodGet, "/v1/speech/events", http.NoBody))
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "host-call-17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.Header.Get(middleware.HeaderRequestID)
			}))
			req := httptest.NewRequest(http.MethodPost, "/v1/speech/methods/stop", http.NoBody)
			if tt.incoming != "" {
				req.Header.Set(middleware.HeaderRequestID, tt.incoming)
			}
			rr := serve(h, req)

			got := rr.Header().Get(middleware.HeaderRequestID)
			if got == "" || got != seen {
				t.Fatalf("expected the handler and reply to share one id, got %q and %q", seen, got)
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("expected %q to be kept, got %q", tt.incoming, got)
			}
		})
	}
}

func TestCORSActualRequest(t *testing.T) {
	cors := &middleware.CORSConfig{
		AllowedOrigins:   []string{"https://host.example.com", "https://*.apps.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowCredentials: true,
	}
	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"exact origin", "https://host.example.com", true},
		{"wildcard subdomain", "https://panel.apps.example.com", true},
		{"wildcard needs a subdomain", "https://apps.example.com", false},
		{"scheme must match", "http://panel.apps.example.com", false},
		{"unknown origin", "https://evil.example.net", false},
		{"no origin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/speech/methods/listen", strings.NewReader(`"en_US"`))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := serve(hostChain(cors, methodOK), req)

			if rr.Code != http.StatusOK {
				t.Fatalf("actual requests always reach the handler, got %d", rr.Code)
			}
			allowOrigin := rr.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				if allowOrigin != tt.origin {
					t.Errorf("expected origin echoed, got %q", allowOrigin)
				}
				if rr.Header().Get("Access-Control-Expose-Headers") != middleware.HeaderRequestID {
					t.Error("expected X-Request-Id to be exposed to the host")
				}
				if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Error("expected credentials to be allowed")
				}
			} else if allowOrigin != "" {
				t.Errorf("expected no CORS headers, got origin %q", allowOrigin)
			}
			if rr.Header().Get("Vary") != "Origin" {
				t.Errorf("expected Vary: Origin, got %q", rr.Header().Get("Vary"))
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cors := &middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.HeaderRequestID},
		MaxAge:         10 * time.Minute,
	}
	reached := false
	h := hostChain(cors, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))

	req := httptest.NewRequest(http.MethodOptions, "/v1/speech/methods/changeLocale", http.NoBody)
	req.Header.Set("Origin", "https://host.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := serve(h, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if reached {
		t.Error("preflight must not reach the method handler")
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("unexpected allowed methods %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Request-Id" {
		t.Errorf("unexpected allowed headers %q", got)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("expected max age 600, got %q", got)
	}

	// A plain OPTIONS without the preflight header is an ordinary request.
	reached = false
	serve(h, httptest.NewRequest(http.MethodOptions, "/v1/speech/methods/changeLocale", http.NoBody))
	if !reached {
		t.Error("non-preflight OPTIONS should reach the handler")
	}
}

func TestMatchOrigin(t *testing.T) {
	if !middleware.MatchOrigin("https://a.b.example.com", []string{"https://*.example.com"}) {
		t.Error("nested subdomains should match a wildcard")
	}
	if middleware.MatchOrigin("https://example.com.evil.net", []string{"https://*.example.com"}) {
		t.Error("suffix must anchor at the end of the host")
	}
	if middleware.MatchOrigin("https://host.example.com", nil) {
		t.Error("an empty list allows nothing")
	}
}

func TestRequestLoggerPassesStatus(t *testing.T) {
	for _, path := range []string{"/v1/speech/methods/initialize", "/health", "/ready"} {
		h := middleware.RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		if rr := serve(h, httptest.NewRequest(http.MethodGet, path, http.NoBody)); rr.Code != http.StatusAccepted {
			t.Errorf("%s: expected 202, got %d", path, rr.Code)
		}
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestRequestLoggerKeepsEventStreamFlushable(t *testing.T) {
	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	h := middleware.RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("event stream writer lost http.Flusher")
		}
		_, _ = io.WriteString(w, "event: onSpeechAvailability\ndata: true\n\n")
		f.Flush()
	}))
	h.ServeHTTP(fr, httptest.NewRequest(http.MethodGet, "/v1/speech/events", http.NoBody))

	if fr.flushes != 1 {
		t.Errorf("expected one flush to reach the connection, got %d", fr.flushes)
	}
}

func TestBodySizeLimit(t *testing.T) {
	h := middleware.BodySizeLimit("1KB")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))
	tests := []struct {
		name string
		body string
		want int
	}{
		{"locale argument", `{"lang":"de","country":"DE"}`, http.StatusOK},
		{"oversized", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, httptest.NewRequest(http.MethodPost, "/v1/speech/methods/listen", strings.NewReader(tt.body)))
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRateLimitPerClient(t *testing.T) {
	h := middleware.RateLimit(2)(methodOK)
	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/speech/methods/listen", http.NoBody)
		req.RemoteAddr = addr
		return serve(h, req).Code
	}

	for i := 0; i < 2; i++ {
		if code := call("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, code)
		}
	}
	if code := call("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for the same host on another port, got %d", code)
	}
	if code := call("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("expected 200 for another host, got %d", code)
	}

	unlimited := middleware.RateLimit(0)(methodOK)
	for i := 0; i < 50; i++ {
		if rr := serve(unlimited, httptest.NewRequest(http.MethodPost, "/", http.NoBody)); rr.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected call %d", i)
		}
	}
}

func TestChainOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
				order = append(order, "/"+name)
			})
		}
	}
	h := middleware.Chain(tag("recovery"), tag("request-id"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "method")
	}))
	serve(h, httptest.NewRequest(http.MethodPost, "/", http.NoBody))

	want := "recovery request-id method /request-id /recovery"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGinWrapAbortsWhenRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reached := false
	engine.POST("/methods/:method",
		middleware.GinWrap(middleware.RateLimit(1)),
		func(c *gin.Context) {
			reached = true
			c.Status(http.StatusOK)
		},
	)

	call := func() int {
		req := httptest.NewRequest(http.MethodPost, "/methods/stop", http.NoBody)
		req.RemoteAddr = "10.0.0.9:1000"
		return serve(engine, req).Code
	}

	if code := call(); code != http.StatusOK || !reached {
		t.Fatalf("expected first call to reach handler, got %d", code)
	}
	reached = false
	if code := call(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if reached {
		t.Error("handler must not run after the middleware rejected the call")
	}
}
