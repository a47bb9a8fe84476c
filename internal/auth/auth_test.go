package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studyloop/studyloop-backend/internal/rbac"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	a := NewAuthService("unit-test-secret")
	tok, err := a.IssueJWT("s100", "student")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "s100" || c.Role != "student" {
		t.Fatalf("claims = %+v", c)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewAuthService("secret-a").IssueJWT("t1", "teacher")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if c, err := NewAuthService("secret-b").Parse(tok); err == nil && c != nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestJWTMiddlewareAttachesIdentity(t *testing.T) {
	a := NewAuthService("unit-test-secret")
	tok, _ := a.IssueJWT("t42", "teacher")

	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotSub != "t42" || gotRole != "teacher" {
		t.Fatalf("context identity = %q/%q", gotSub, gotRole)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer should be 401, got %d", rec.Code)
	}
}
