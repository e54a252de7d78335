package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithCORS(origins []string, req *http.Request) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder, called
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "listed", origins: []string{"https://booth.example.com"}, origin: "https://booth.example.com", want: "https://booth.example.com"},
		{name: "listed with slash", origins: []string{"https://booth.example.com/"}, origin: "https://booth.example.com", want: "https://booth.example.com"},
		{name: "not listed", origins: []string{"https://booth.example.com"}, origin: "https://evil.example.com", want: ""},
		{name: "localhost not implied", origins: nil, origin: "http://localhost:5173", want: ""},
		{name: "wildcard", origins: []string{"*"}, origin: "https://any.example.com", want: "https://any.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			req.Header.Set("Origin", tt.origin)
			recorder, called := serveWithCORS(tt.origins, req)

			if !called {
				t.Error("expected request passed to the handler")
			}
			if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("expected allow origin '%s', got '%s'", tt.want, got)
			}
			if recorder.Header().Get("Vary") != "Origin" {
				t.Error("expected Vary: Origin")
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/print/status", nil)
	req.Header.Set("Origin", "https://booth.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	recorder, called := serveWithCORS([]string{"https://booth.example.com"}, req)

	if called {
		t.Error("expected preflight to stop before the handler")
	}
	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); got != allowedHeaders {
		t.Errorf("expected allowed headers '%s', got '%s'", allowedHeaders, got)
	}
}

func TestCORS_NoOriginPassesThrough(t *testing.T) {
	recorder, called := serveWithCORS(nil, httptest.NewRequest(http.MethodOptions, "/", nil))
	if !called {
		t.Error("expected same-origin request passed to the handler")
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS headers without an Origin")
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options DENY")
	}
	if recorder.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected Content-Security-Policy")
	}
}
