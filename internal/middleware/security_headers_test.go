package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeadersMiddleware_SetsDefaultHeaders(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(SecurityHeadersConfig{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-DNS-Prefetch-Control", "off"},
		{"X-Download-Options", "noopen"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
	}

	for _, tt := range tests {
		if got := rec.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}

	// 既定のCSPはWebSocket接続を許可する
	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "ws:") {
		t.Errorf("CSP should allow websocket connections, got %q", csp)
	}

	// HSTSは既定で無効
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want empty", got)
	}
}

func TestSecurityHeadersMiddleware_CustomCSP(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'none'",
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Content-Security-Policy"); got != "default-src 'none'" {
		t.Errorf("CSP = %q, want %q", got, "default-src 'none'")
	}
}

func TestSecurityHeadersMiddleware_HSTSEnabled(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(SecurityHeadersConfig{EnableHSTS: true})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=") {
		t.Errorf("Strict-Transport-Security = %q, want max-age directive", got)
	}
}
