package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/analytics"
	"github.com/kabarportal/portal/config"
	"github.com/kabarportal/portal/controllers"
	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/routes"
	"github.com/kabarportal/portal/testutil"
	"github.com/kabarportal/portal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type harness struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	sessions *utils.SessionManager
	recorder *analytics.Recorder
}

func newHarness(t *testing.T, store analytics.Store) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o600))
	cfg := config.AppConfig{GinMode: "test", StaticDir: dir, GinPath: filepath.Join(dir, "gin.log"), AccessLogPerMinute: 2}
	config.ApplyDefaults(&cfg)
	if store == nil {
		store = analytics.NewGormStore(db)
	}
	h := &harness{
		t:        t,
		db:       db,
		sessions: utils.NewSessionManager("test-secret", time.Hour),
		recorder: analytics.NewRecorder(store, 0, 0),
	}
	h.engine = routes.SetupRouter(cfg, routes.Deps{DB: db, Sessions: h.sessions, Recorder: h.recorder})
	return h
}

type reqOpt func(*http.Request)

func withSession(token string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "admin_session", Value: token}) }
}

func withCSRF(token string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
		r.Header.Set("X-CSRF-Token", token)
	}
}

func (h *harness) do(method, path string, body interface{}, opts ...reqOpt) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.10:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func (h *harness) session(role string) string {
	h.t.Helper()
	tok, _, err := h.sessions.Issue("redaksi", role)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) publish(slug string) models.Article {
	h.t.Helper()
	now := time.Now()
	a := models.Article{Title: "Judul " + slug, Slug: slug, Status: models.StatusPublished, PublishedAt: &now}
	require.NoError(h.t, h.db.Create(&a).Error)
	return a
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestAdminPageRedirectsToLogin(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/admin/news", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?redirect=%2Fadmin%2Fnews", rec.Header().Get("Location"))
}

func TestAdminAPIRequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/admin/news?limit=1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Authentication required"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/admin/does-not-exist", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAPIEditorForbidden(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/admin/news", nil, withSession(h.session(models.RoleEditor)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestTrackArticleViewTwiceFromSameIP(t *testing.T) {
	h := newHarness(t, nil)
	h.publish("x")

	type result struct {
		Views        int64 `json:"views"`
		IsUniqueView bool  `json:"isUniqueView"`
	}
	for i, wantUnique := range []bool{true, false} {
		rec := h.do(http.MethodPost, "/api/track-article-view", gin.H{"articleSlug": "x"})
		require.Equal(t, http.StatusOK, rec.Code, "call %d", i)
		env := decode(t, rec)
		require.True(t, env.Success, env.Error)
		var got result
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(1), got.Views, "call %d", i)
		assert.Equal(t, wantUnique, got.IsUniqueView, "call %d", i)
	}

	var events []models.ArticleView
	require.NoError(t, h.db.Order("id").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, "203.0.113.10", events[0].IPAddress)
	assert.NotEmpty(t, events[0].SessionID, "missing sessionId is generated")
}

func TestTrackArticleViewErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.publish("ada")
	require.NoError(t, h.db.Create(&models.Article{Title: "Draft", Slug: "draft", Status: models.StatusDraft}).Error)

	rec := h.do(http.MethodPost, "/api/track-article-view", gin.H{"articleSlug": "tidak-ada"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article not found", decode(t, rec).Error)

	rec = h.do(http.MethodPost, "/api/track-article-view", gin.H{"articleSlug": "draft"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/track-article-view", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenStore struct{}

func (brokenStore) HasRecentView(context.Context, string, string, time.Time) (bool, error) {
	return false, errors.New("analytics store unreachable")
}
func (brokenStore) InsertView(context.Context, *models.ArticleView) error {
	return errors.New("analytics store unreachable")
}
func (brokenStore) IncrementViews(context.Context, uint) (int64, error) {
	return 0, errors.New("analytics store unreachable")
}

func TestArticleReadSurvivesAnalyticsFailure(t *testing.T) {
	healthy := newHarness(t, nil)
	healthy.publish("contoh-berita")
	broken := newHarness(t, brokenStore{})
	broken.publish("contoh-berita")

	ok := healthy.do(http.MethodGet, "/api/news/contoh-berita", nil)
	healthy.recorder.Wait()
	failed := broken.do(http.MethodGet, "/api/news/contoh-berita", nil)
	broken.recorder.Wait()

	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, ok.Code, failed.Code)

	var a, b models.Article
	require.NoError(t, json.Unmarshal(decode(t, ok).Data, &a))
	require.NoError(t, json.Unmarshal(decode(t, failed).Data, &b))
	assert.Equal(t, a.Slug, b.Slug)
	assert.Equal(t, a.Title, b.Title)

	var views int64
	require.NoError(t, healthy.db.Model(&models.Article{}).Where("slug = ?", "contoh-berita").Pluck("views", &views).Error)
	assert.Equal(t, int64(1), views)

	rec := broken.do(http.MethodPost, "/api/track-article-view", gin.H{"articleSlug": "contoh-berita"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Failed to track article view"}`, rec.Body.String())
}

func TestPublicNewsHidesDrafts(t *testing.T) {
	h := newHarness(t, nil)
	h.publish("terbit")
	require.NoError(t, h.db.Create(&models.Article{Title: "Draft", Slug: "draft", Status: models.StatusDraft}).Error)

	rec := h.do(http.MethodGet, "/api/news", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []models.Article `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "terbit", page.Items[0].Slug)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/news/draft", nil).Code)
}

func TestLoginAndManageNews(t *testing.T) {
	h := newHarness(t, nil)
	_, err := controllers.EnsureBootstrapAdmin(h.db, "admin", "rahasia123")
	require.NoError(t, err)

	rec := h.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "rahasia123"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "login requires the CSRF token")

	rec = h.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "salah"}, withCSRF("t1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "rahasia123"}, withCSRF("t1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "admin_session" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	rec = h.do(http.MethodGet, "/api/admin/me", nil, withSession(session.Value))
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.AdminUser
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &me))
	assert.Equal(t, models.RoleSuperAdmin, me.Role)
	assert.NotNil(t, me.LastLoginAt)

	article := gin.H{"title": "Banjir di Kota", "content": "<p>isi</p><script>x()</script>", "status": "published"}
	rec = h.do(http.MethodPost, "/api/admin/news", article, withSession(session.Value))
	assert.Equal(t, http.StatusForbidden, rec.Code, "admin writes require the CSRF token")

	rec = h.do(http.MethodPost, "/api/admin/news", article, withSession(session.Value), withCSRF("t2"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Article
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, "banjir-di-kota", created.Slug)
	assert.NotContains(t, created.Content, "<script>")
	assert.NotNil(t, created.PublishedAt)

	rec = h.do(http.MethodPost, "/api/admin/news", article, withSession(session.Value), withCSRF("t2"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/news/banjir-di-kota", nil).Code)
	h.recorder.Wait()

	rec = h.do(http.MethodPut, "/api/admin/news/"+itoa(created.ID),
		gin.H{"title": "Banjir di Kota", "status": "draft"}, withSession(session.Value), withCSRF("t2"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stored models.Article
	require.NoError(t, h.db.First(&stored, created.ID).Error)
	assert.Equal(t, models.StatusDraft, stored.Status)
	assert.Equal(t, int64(1), stored.Views, "editing keeps the view counter")

	rec = h.do(http.MethodDelete, "/api/admin/news/"+itoa(created.ID), nil, withSession(session.Value), withCSRF("t2"))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/api/admin/news/"+itoa(created.ID), nil, withSession(session.Value))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "admin_session" {
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0)
		}
	}
}

func TestAnalyticsViewsMaskIPs(t *testing.T) {
	h := newHarness(t, nil)
	h.publish("x")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/track-article-view", gin.H{"articleSlug": "x"}).Code)

	rec := h.do(http.MethodGet, "/api/admin/analytics/views?slug=x", nil, withSession(h.session(models.RoleAdmin)))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Items []analytics.ViewRow `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "203.0.113.xxx", out.Items[0].IPAddress)

	rec = h.do(http.MethodGet, "/api/admin/analytics/top-articles", nil, withSession(h.session(models.RoleAdmin)))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/api/admin/analytics/overview", nil, withSession(h.session(models.RoleSuperAdmin)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccessLogRateLimited(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/access-log", gin.H{"path": "/"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/access-log", gin.H{"path": "/"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var n int64
	require.NoError(t, h.db.Model(&models.VisitorLog{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAccessLogRateLimitIgnoresForwardedHeaders(t *testing.T) {
	h := newHarness(t, nil)
	codes := make([]int, 0, 3)
	for _, ip := range []string{"8.8.8.8", "9.9.9.9", "1.0.0.1"} {
		spoof := func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", ip)
			r.Header.Set("X-Real-IP", ip)
		}
		codes = append(codes, h.do(http.MethodPost, "/api/access-log", gin.H{"path": "/"}, spoof).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestSPAFallbackIsNotAPageView(t *testing.T) {
	h := newHarness(t, nil)
	for _, p := range []string{"/wp-login.php", "/.env"} {
		rec := h.do(http.MethodGet, p, nil)
		require.Equal(t, http.StatusOK, rec.Code, p)
	}
	rec := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.PageView
	require.NoError(t, h.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "/", rows[0].Path)
}

func TestUnknownAPIRouteIs404(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Route not found"}`, rec.Body.String())
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
