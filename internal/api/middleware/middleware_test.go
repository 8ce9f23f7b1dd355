package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexahealth/triagebot/internal/relay"
)

const testSecret = "relay-secret"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRelayAuth(t *testing.T) {
	valid, err := relay.IssueToken(testSecret, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Wallet " + valid, wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer abc.def.ghi", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RelayAuth(testSecret), RequireRelay())

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestPerIP(t *testing.T) {
	r := newRouter(PerIP(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other IP got %d", w.Code)
	}
}

func TestPerWallet(t *testing.T) {
	r := newRouter(PerWallet(0.001, 1))
	header := "Wallet 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	send := func(auth string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := send(header); got != http.StatusOK {
		t.Fatalf("first request = %d", got)
	}
	if got := send(header); got != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", got)
	}
	if got := send(""); got != http.StatusOK {
		t.Errorf("anonymous request = %d, want 200", got)
	}
}

func TestPerMinute(t *testing.T) {
	limit, burst := PerMinute(120)
	if float64(limit) != 2 || burst != 20 {
		t.Errorf("PerMinute(120) = %v, %d", limit, burst)
	}
	if _, burst := PerMinute(3); burst != 1 {
		t.Errorf("burst floor = %d, want 1", burst)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{name: "reflect any", origin: "https://app.example", method: http.MethodGet, wantOrigin: "https://app.example", wantStatus: http.StatusOK},
		{name: "no origin", method: http.MethodGet, wantOrigin: "*", wantStatus: http.StatusOK},
		{name: "allow list hit", allowed: []string{"https://a.example"}, origin: "https://a.example", method: http.MethodGet, wantOrigin: "https://a.example", wantStatus: http.StatusOK},
		{name: "allow list miss", allowed: []string{"https://a.example"}, origin: "https://evil.example", method: http.MethodGet, wantOrigin: "", wantStatus: http.StatusOK},
		{name: "preflight", origin: "https://app.example", method: http.MethodOptions, wantOrigin: "https://app.example", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(CORS(tt.allowed...))

			req := httptest.NewRequest(tt.method, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should only be sent over TLS")
	}
}
