package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	tests := []struct {
		role, perm string
		want       bool
	}{
		{"student", "quiz:generate", true},
		{"student", "quiz:publish", false},
		{"student", "stats:view", false},
		{"teacher", "quiz:publish", true},
		// wildcard expansion
		{"teacher", "stats:view", true},
		{"teacher", "class:manage", true},
		{"", "quiz:view", false},
		// unknown role
		{"admin", "quiz:view", false},
	}
	for _, tt := range tests {
		if got := c.Has(tt.role, tt.perm); got != tt.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestRequireMiddleware(t *testing.T) {
	h := Require("stats:view")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "teacher")))
	if rec.Code != http.StatusOK {
		t.Fatalf("teacher should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "student")))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student should be forbidden, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req) // no role in context
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing role should be forbidden, got %d", rec.Code)
	}
}
