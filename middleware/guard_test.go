package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabarportal/portal/utils"
)

const testCookie = "admin_session"

type verifierFunc func(string) (*utils.Session, error)

func (f verifierFunc) Verify(token string) (*utils.Session, error) { return f(token) }

func newGuardedEngine(v SessionVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAccessGuard(v, nil).Middleware(testCookie))
	ok := func(c *gin.Context) {
		username, role, _ := CurrentAdmin(c)
		c.JSON(http.StatusOK, gin.H{"username": username, "role": role})
	}
	for _, p := range []string{
		"/admin", "/admin/news", "/admin/login", "/administrator",
		"/api/admin/news", "/api/news", "/api/news/:slug", "/api/auth/csrf", "/api/health", "/",
	} {
		r.GET(p, ok)
	}
	r.POST("/api/auth/login", ok)
	r.POST("/api/auth/logout", ok)
	r.POST("/api/track-article-view", ok)
	return r
}

func perform(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func issue(t *testing.T, m *utils.SessionManager, role string) string {
	t.Helper()
	tok, _, err := m.Issue("redaksi", role)
	require.NoError(t, err)
	return tok
}

func TestGuardAdminPageWithoutSessionRedirects(t *testing.T) {
	r := newGuardedEngine(utils.NewSessionManager("secret", time.Hour))

	rec := perform(r, http.MethodGet, "/admin/news", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?redirect=%2Fadmin%2Fnews", rec.Header().Get("Location"))

	rec = perform(r, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?redirect=%2Fadmin", rec.Header().Get("Location"))
}

func TestGuardAdminAPIWithoutSessionIs401(t *testing.T) {
	r := newGuardedEngine(utils.NewSessionManager("secret", time.Hour))

	rec := perform(r, http.MethodGet, "/api/admin/news?limit=1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Authentication required"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestGuardPublicPathsIgnoreSession(t *testing.T) {
	m := utils.NewSessionManager("secret", time.Hour)
	r := newGuardedEngine(m)

	for _, tok := range []string{"", "garbage", issue(t, m, "editor"), issue(t, m, "admin")} {
		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/news"},
			{http.MethodGet, "/api/news/contoh-berita"},
			{http.MethodGet, "/api/auth/csrf"},
			{http.MethodGet, "/api/health"},
			{http.MethodPost, "/api/auth/login"},
			{http.MethodPost, "/api/auth/logout"},
			{http.MethodPost, "/api/track-article-view"},
			{http.MethodGet, "/admin/login"},
			{http.MethodGet, "/administrator"},
			{http.MethodGet, "/"},
		} {
			rec := perform(r, tc.method, tc.path, tok)
			assert.Equal(t, http.StatusOK, rec.Code, "%s %s token=%q", tc.method, tc.path, tok)
		}
	}
}

func TestGuardAuthorizedRoles(t *testing.T) {
	m := utils.NewSessionManager("secret", time.Hour)
	r := newGuardedEngine(m)

	for _, role := range []string{"admin", "super_admin"} {
		rec := perform(r, http.MethodGet, "/api/admin/news", issue(t, m, role))
		require.Equal(t, http.StatusOK, rec.Code, role)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "redaksi", body["username"])
		assert.Equal(t, role, body["role"])

		rec = perform(r, http.MethodGet, "/admin/news", issue(t, m, role))
		assert.Equal(t, http.StatusOK, rec.Code, role)
	}
}

func TestGuardInsufficientRole(t *testing.T) {
	m := utils.NewSessionManager("secret", time.Hour)
	r := newGuardedEngine(m)
	tok := issue(t, m, "editor")

	rec := perform(r, http.MethodGet, "/api/admin/news", tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Insufficient permissions"}`, rec.Body.String())

	rec = perform(r, http.MethodGet, "/admin/news", tok)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?redirect=%2Fadmin%2Fnews", rec.Header().Get("Location"))
}

func TestGuardBearerFallback(t *testing.T) {
	m := utils.NewSessionManager("secret", time.Hour)
	r := newGuardedEngine(m)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/news", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, m, "admin"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardFailsClosed(t *testing.T) {
	verifiers := map[string]SessionVerifier{
		"error":     verifierFunc(func(string) (*utils.Session, error) { return nil, errors.New("db down") }),
		"nil":       verifierFunc(func(string) (*utils.Session, error) { return nil, nil }),
		"panic":     verifierFunc(func(string) (*utils.Session, error) { panic("boom") }),
		"wrong key": utils.NewSessionManager("other", time.Hour),
	}
	tok := issue(t, utils.NewSessionManager("secret", time.Hour), "super_admin")

	for name, v := range verifiers {
		t.Run(name, func(t *testing.T) {
			r := newGuardedEngine(v)
			rec := perform(r, http.MethodGet, "/api/admin/news", tok)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = perform(r, http.MethodGet, "/admin/news", tok)
			assert.Equal(t, http.StatusFound, rec.Code)
		})
	}
}

func TestGuardDecideRuleOrder(t *testing.T) {
	rules := []Rule{
		{Name: "open", Match: PathPrefix("/api/admin/ping"), Policy: PolicyPublic},
		{Name: "admin-api", Match: PathPrefix("/api/admin"), Policy: PolicyAdminAPI},
	}
	g := NewAccessGuard(utils.NewSessionManager("secret", time.Hour), rules)

	d := g.Decide("/api/admin/ping", "")
	assert.Equal(t, OutcomePublicPass, d.Outcome)
	assert.Equal(t, "open", d.Rule)

	d = g.Decide("/api/admin/news", "")
	assert.Equal(t, OutcomeUnauthorized, d.Outcome)
	assert.Equal(t, "admin-api", d.Rule)

	d = g.Decide("/elsewhere", "")
	assert.Equal(t, OutcomePublicPass, d.Outcome)
	assert.Equal(t, "default", d.Rule)
}

func TestPathPrefixSegmentBoundary(t *testing.T) {
	m := PathPrefix("/admin")
	assert.True(t, m("/admin"))
	assert.True(t, m("/admin/"))
	assert.True(t, m("/admin/news/12"))
	assert.False(t, m("/administrator"))
	assert.False(t, m("/api/admin"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "redirect_to_login", OutcomeRedirectToLogin.String())
	assert.Equal(t, "outcome(42)", Outcome(42).String())
}
