package main

import (
	"context"
	"strings"
	"time"

	"github.com/kabarportal/portal/analytics"
	"github.com/kabarportal/portal/config"
	"github.com/kabarportal/portal/controllers"
	"github.com/kabarportal/portal/middleware"
	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/routes"
	"github.com/kabarportal/portal/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(cfg, models.All()...)

	created, err := controllers.EnsureBootstrapAdmin(db, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	if err != nil {
		utils.Sugar.Fatalf("bootstrap admin failed: %v", err)
	}
	if created {
		utils.Sugar.Infof("created bootstrap super admin %q", cfg.BootstrapAdminUsername)
	}

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc := utils.NewRedisClient(cfg)
	var limiter middleware.LimiterStore
	if strings.EqualFold(cfg.RateLimitBackend, "redis") && rc != nil {
		limiter = middleware.NewRedisLimiterStore(rc, cfg.AccessLogPerMinute)
	} else {
		if strings.EqualFold(cfg.RateLimitBackend, "redis") {
			utils.Sugar.Warn("redis rate limit backend requested but redis is unavailable, using memory store")
		}
		mem := middleware.NewMemoryLimiterStore(cfg.AccessLogPerMinute)
		mem.StartSweeper(bg, time.Minute)
		limiter = mem
	}
	loginLimiter := middleware.NewMemoryLimiterStore(routes.LoginAttemptsPerMinute)
	loginLimiter.StartSweeper(bg, time.Minute)

	recorder := analytics.NewRecorder(
		analytics.NewGormStore(db),
		time.Duration(cfg.ViewUniqueWindowHours)*time.Hour,
		time.Duration(cfg.ViewRetentionDays)*24*time.Hour,
	)
	utils.StartRetentionCleaner(bg, db, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute)

	r := routes.SetupRouter(cfg, routes.Deps{
		DB:           db,
		Sessions:     utils.NewSessionManager(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour),
		Cache:        utils.NewCache(rc),
		Recorder:     recorder,
		Limiter:      limiter,
		LoginLimiter: loginLimiter,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r,
		func(ctx context.Context) {
			done := make(chan struct{})
			go func() {
				recorder.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				utils.Sugar.Warn("shutdown deadline reached with view recordings in flight")
			}
		},
		func(context.Context) { cancel() },
		func(context.Context) {
			if rc != nil {
				_ = rc.Close()
			}
		},
	)
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
	_ = utils.Logger.Sync()
}
