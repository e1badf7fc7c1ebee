package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func guardedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RouteGuard())
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/", ok)
	r.GET("/login", ok)
	r.GET("/survey", ok)
	r.GET("/survey/overview", ok)
	r.GET("/about", ok)
	return r
}

func TestProtected(t *testing.T) {
	cases := map[string]bool{
		"/":                false,
		"/login":           false,
		"/register":        false,
		"/survey":          true,
		"/survey/overview": true,
		"/survey/ws":       true,
		"/surveys":         false,
		"/about":           false,
	}
	for path, want := range cases {
		if got := Protected(path); got != want {
			t.Fatalf("Protected(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGuardRedirectsWithNext(t *testing.T) {
	r := guardedEngine()
	req := httptest.NewRequest(http.MethodGet, "/survey/overview?x=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?next=%2Fsurvey%2Foverview%3Fx%3D1" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestGuardHTMXRedirect(t *testing.T) {
	r := guardedEngine()
	req := httptest.NewRequest(http.MethodGet, "/survey", nil)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("HX-Redirect"); got != "/login?next=%2Fsurvey" {
		t.Fatalf("unexpected HX-Redirect %q", got)
	}
}

func TestGuardPassesWithCookieAndPublicPaths(t *testing.T) {
	r := guardedEngine()

	req := httptest.NewRequest(http.MethodGet, "/survey", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "anything"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through with cookie, got %d", w.Code)
	}

	for _, path := range []string{"/", "/login", "/about"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected %s to pass, got %d", path, w.Code)
		}
	}
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                     "/survey",
		"/survey/overview?x=1": "/survey/overview?x=1",
		"https://evil.example": "/survey",
		"//evil.example/path":  "/survey",
		"/\\evil.example":      "/survey",
		"relative":             "/survey",
	}
	for in, want := range cases {
		if got := SafeNext(in, "/survey"); got != want {
			t.Fatalf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
