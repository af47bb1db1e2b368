package routes

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/analytics"
	"github.com/kabarportal/portal/config"
	"github.com/kabarportal/portal/controllers"
	"github.com/kabarportal/portal/middleware"
	"github.com/kabarportal/portal/utils"
)

// LoginAttemptsPerMinute is the per-IP budget for POST /api/auth/login.
const LoginAttemptsPerMinute = 10

// Deps are the shared services handlers are built from. Cache and both limiters may be nil.
type Deps struct {
	DB           *gorm.DB
	Sessions     *utils.SessionManager
	Cache        *utils.Cache
	Recorder     *analytics.Recorder
	Limiter      middleware.LimiterStore
	LoginLimiter middleware.LimiterStore
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// nil trusts no proxy: ClientIP is then the socket peer
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		utils.Sugar.Warnf("invalid trusted proxies %v, trusting none: %v", cfg.TrustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("gin log file unavailable, using app logger: %v", err)
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false))

	csrfCfg := middleware.DefaultCSRFConfig()
	csrfCfg.Secure = cfg.CookieSecure

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", csrfCfg.HeaderName},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	// every admin page and API goes through the access table before routing
	guard := middleware.NewAccessGuard(deps.Sessions, nil)
	r.Use(guard.Middleware(cfg.SessionCookieName))
	r.Use(middleware.PageViewRecorder(deps.DB))

	static := cfg.StaticDir
	if static == "" {
		static = "./static"
	}
	r.Static("/static", static)
	page := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) { c.File(filepath.Join(static, name)) }
	}
	r.GET("/", page("index.html"))
	r.GET("/news/:slug", page("index.html"))
	r.GET("/admin", page("admin/index.html"))
	// a catch-all cannot share its segment with /admin/login, so the login page is dispatched here
	r.GET("/admin/*any", func(c *gin.Context) {
		if c.Param("any") == "/login" {
			page("admin/login.html")(c)
			return
		}
		page("admin/index.html")(c)
	})

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewMemoryLimiterStore(cfg.AccessLogPerMinute)
	}
	// login attempts are throttled apart from the access-log budget
	loginLimiter := deps.LoginLimiter
	if loginLimiter == nil {
		loginLimiter = middleware.NewMemoryLimiterStore(LoginAttemptsPerMinute)
	}

	retention := time.Duration(cfg.ViewRetentionDays) * 24 * time.Hour
	authController := controllers.NewAuthController(deps.DB, deps.Sessions,
		controllers.SessionCookie{Name: cfg.SessionCookieName, Secure: cfg.CookieSecure}, csrfCfg)
	newsController := controllers.NewNewsController(deps.DB, deps.Cache, deps.Recorder)
	trackingController := controllers.NewTrackingController(deps.DB, deps.Recorder, retention)
	categoryController := controllers.NewCategoryController(deps.DB, deps.Cache)
	eventController := controllers.NewEventController(deps.DB)
	teamController := controllers.NewTeamController(deps.DB)
	adController := controllers.NewAdvertisementController(deps.DB)
	footerController := controllers.NewFooterController(deps.DB)
	analyticsController := controllers.NewAnalyticsController(analytics.NewReporter(deps.DB))

	api := r.Group("/api")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api.GET("/news", newsController.ListPublished)
	api.GET("/news/:slug", newsController.GetPublished)
	api.GET("/events", eventController.ListPublic)
	api.GET("/events/:slug", eventController.GetPublic)
	api.GET("/categories", categoryController.ListPublic)
	api.GET("/team", teamController.ListPublic)
	api.GET("/advertisements", adController.ListPublic)
	api.GET("/footer", footerController.List)
	api.POST("/track-article-view", trackingController.TrackArticleView)
	api.POST("/access-log", middleware.RateLimitMiddleware(limiter), trackingController.AccessLog)

	authGroup := api.Group("/auth")
	authGroup.GET("/csrf", authController.CSRF)
	authGroup.POST("/login", middleware.RateLimitMiddleware(loginLimiter), middleware.CSRFProtect(csrfCfg), authController.Login)
	authGroup.POST("/logout", authController.Logout)

	admin := api.Group("/admin")
	admin.Use(middleware.CSRFProtect(csrfCfg))
	admin.GET("/me", authController.Me)

	news := admin.Group("/news")
	news.GET("", newsController.AdminList)
	news.POST("", newsController.Create)
	news.GET("/:id", newsController.AdminGet)
	news.PUT("/:id", newsController.Update)
	news.DELETE("/:id", newsController.Delete)

	categories := admin.Group("/categories")
	categories.GET("", categoryController.AdminList)
	categories.POST("", categoryController.Create)
	categories.GET("/:id", categoryController.AdminGet)
	categories.PUT("/:id", categoryController.Update)
	categories.DELETE("/:id", categoryController.Delete)

	events := admin.Group("/events")
	events.GET("", eventController.AdminList)
	events.POST("", eventController.Create)
	events.GET("/:id", eventController.AdminGet)
	events.PUT("/:id", eventController.Update)
	events.DELETE("/:id", eventController.Delete)

	team := admin.Group("/team")
	team.GET("", teamController.AdminList)
	team.POST("", teamController.Create)
	team.GET("/:id", teamController.AdminGet)
	team.PUT("/:id", teamController.Update)
	team.DELETE("/:id", teamController.Delete)

	ads := admin.Group("/advertisements")
	ads.GET("", adController.AdminList)
	ads.POST("", adController.Create)
	ads.GET("/:id", adController.AdminGet)
	ads.PUT("/:id", adController.Update)
	ads.DELETE("/:id", adController.Delete)

	footer := admin.Group("/footer")
	footer.GET("", footerController.List)
	footer.POST("", footerController.Create)
	footer.GET("/:id", footerController.AdminGet)
	footer.PUT("/:id", footerController.Update)
	footer.DELETE("/:id", footerController.Delete)

	stats := admin.Group("/analytics")
	stats.GET("/overview", analyticsController.Overview)
	stats.GET("/views", analyticsController.Views)
	stats.GET("/top-articles", analyticsController.TopArticles)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, "Route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			utils.Error(ctx, http.StatusNotFound, "Static asset not found")
			return
		}
		ctx.Status(http.StatusOK)
		ctx.File(filepath.Join(static, "index.html"))
	})

	return r
}
