package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthDisabled(t *testing.T) {
	for name, a := range map[string]*Auth{
		"nil":           nil,
		"no admin pass": NewAuth("admin", "", "", ""),
	} {
		t.Run(name, func(t *testing.T) {
			if a.Enabled() {
				t.Fatal("auth should be disabled")
			}
			called := false
			w := httptest.NewRecorder()
			a.RequireAdmin(okHandler(&called))(w, httptest.NewRequest("GET", "/events", nil))
			if !called || w.Code != http.StatusOK {
				t.Errorf("disabled auth must pass through, got %d", w.Code)
			}
		})
	}
}

func TestAuthRoles(t *testing.T) {
	a := NewAuth("admin", "secret", "operator", "opsecret")

	cases := []struct {
		name       string
		user, pass string
		adminOnly  bool
		wantStatus int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"admin on any-role", "admin", "secret", false, http.StatusOK},
		{"operator on any-role", "operator", "opsecret", false, http.StatusOK},
		{"admin on admin-only", "admin", "secret", true, http.StatusOK},
		{"operator on admin-only", "operator", "opsecret", true, http.StatusForbidden},
		{"wrong password", "admin", "wrong", false, http.StatusUnauthorized},
		{"operator name with admin pass", "operator", "secret", false, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := a.RequireAnyRole(okHandler(&called))
			if tc.adminOnly {
				handler = a.RequireAdmin(okHandler(&called))
			}
			req := httptest.NewRequest("GET", "/events", nil)
			if tc.user != "" {
				req.SetBasicAuth(tc.user, tc.pass)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, w.Code)
			}
			if called != (tc.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tc.wantStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestAuthFromEnv(t *testing.T) {
	passFile := filepath.Join(t.TempDir(), "admin_pass")
	if err := os.WriteFile(passFile, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LORECRAFTER_ADMIN_USER", "admin")
	t.Setenv("LORECRAFTER_ADMIN_PASS", "ignored")
	t.Setenv("LORECRAFTER_ADMIN_PASS_FILE", passFile)
	t.Setenv("LORECRAFTER_OPERATOR_USER", "")
	t.Setenv("LORECRAFTER_OPERATOR_PASS", "")

	a, err := AuthFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if !a.Enabled() {
		t.Fatal("auth should be enabled")
	}
	req := httptest.NewRequest("GET", "/events", nil)
	req.SetBasicAuth("admin", "from-file")
	if role := a.authenticate(req); role != RoleAdmin {
		t.Errorf("expected admin, got %q", role)
	}

	t.Setenv("LORECRAFTER_ADMIN_PASS_FILE", "/nonexistent/secret")
	if _, err := AuthFromEnv(); err == nil {
		t.Error("expected error for unreadable secret file")
	}
}

func TestEventsEndpointRequiresAdmin(t *testing.T) {
	s, _ := newTestServer(t)
	s.auth = NewAuth("admin", "secret", "operator", "opsecret")
	h := s.Handler()

	if w := do(t, h, "GET", "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w := do(t, h, "GET", "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health must stay public, got %d", w.Code)
	}
}
