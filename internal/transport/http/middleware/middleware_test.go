package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(token string) (string, error) {
	if name, ok := v[token]; ok {
		return name, nil
	}
	return "", errors.New("unknown token")
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			var seen string
			h := Auth(staticVerifier{"good": "alice"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetUsername(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			req.Equal(tt.wantStatus, w.Code)
			req.Equal(tt.wantUser, seen)
			if tt.wantStatus == http.StatusUnauthorized {
				req.Contains(w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	req := require.New(t)
	h := CORS([]string{"https://chat.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	// Given an allowed preflight
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/groups", nil)
	r.Header.Set("Origin", "https://chat.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	// Then it is answered without reaching the handler
	req.Equal(http.StatusNoContent, w.Code)
	req.Equal("https://chat.example", w.Header().Get("Access-Control-Allow-Origin"))

	// Given a foreign origin
	r = httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)

	req.Equal(http.StatusTeapot, w.Code)
	req.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}
