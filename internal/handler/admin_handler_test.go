package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(env *testEnv) (*gin.Engine, *stubHTMLRender) {
	r, htmlRender := env.engine()
	r.GET("/dashboard/login", env.api.ShowLoginPage)
	r.POST("/dashboard/login", env.api.Login)
	r.GET("/dashboard/logout", env.api.Logout)

	auth := r.Group("/dashboard")
	auth.Use(AuthRequired())
	auth.GET("/cms/pages", env.api.ShowPageIndex)
	auth.GET("/api/pages", env.api.ListPages)
	return r, htmlRender
}

func login(r http.Handler, username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/dashboard/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := setupTestAPI(t)
	r, htmlRender := authRouter(env)

	w := login(r, "tester", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
	if htmlRender.lastName != "login.html" {
		t.Fatalf("expected login page to be rendered again, got %q", htmlRender.lastName)
	}
	if data := htmlRender.lastData.(gin.H); data["loginName"] != "tester" || data["username"] != nil {
		t.Fatalf("unexpected login page data %+v", data)
	}
}

func TestLoginSessionGuardsDashboard(t *testing.T) {
	env := setupTestAPI(t)
	r, htmlRender := authRouter(env)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/cms/pages", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != loginPath {
		t.Fatalf("expected redirect to login, got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/api/pages", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected API request to be rejected with 401, got %d", w.Code)
	}

	w = login(r, "tester", "secret")
	if w.Code != http.StatusFound || w.Header().Get("Location") != dashboardHome {
		t.Fatalf("expected redirect to dashboard, got %d %q", w.Code, w.Header().Get("Location"))
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/cms/pages", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || htmlRender.lastName != "pages_index.html" {
		t.Fatalf("expected page index, got %d %q", w.Code, htmlRender.lastName)
	}
	if data := htmlRender.lastData.(gin.H); data["username"] != "tester" {
		t.Fatalf("expected username in template data, got %v", data["username"])
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard/logout", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != loginPath {
		t.Fatalf("expected logout redirect, got %d", w.Code)
	}
}
