package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/analytics"
	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// TrackingController receives the public site's analytics beacons.
type TrackingController struct {
	db        *gorm.DB
	recorder  *analytics.Recorder
	retention time.Duration
	now       func() time.Time
}

// NewTrackingController creates a new TrackingController instance.
func NewTrackingController(db *gorm.DB, recorder *analytics.Recorder, retention time.Duration) *TrackingController {
	if retention <= 0 {
		retention = analytics.DefaultRetention
	}
	return &TrackingController{db: db, recorder: recorder, retention: retention, now: time.Now}
}

// TrackArticleView records one read of a published article and returns its counter.
// Store failures answer 200 with success=false so the article page is never broken by analytics.
func (t *TrackingController) TrackArticleView(ctx *gin.Context) {
	var req struct {
		ArticleSlug string `json:"articleSlug"`
		Referrer    string `json:"referrer"`
		SessionID   string `json:"sessionId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ArticleSlug) == "" {
		utils.Error(ctx, http.StatusBadRequest, "articleSlug is required")
		return
	}

	// the write outlives a disconnecting client
	rctx := context.WithoutCancel(ctx.Request.Context())

	var article models.Article
	err := t.db.WithContext(rctx).Preload("Category").
		Where("slug = ? AND status = ?", strings.TrimSpace(req.ArticleSlug), models.StatusPublished).
		First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Article not found")
			return
		}
		utils.Sugar.Warnw("track lookup failed", "slug", req.ArticleSlug, "err", err)
		utils.Error(ctx, http.StatusOK, "Failed to track article view")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	referrer := req.Referrer
	if referrer == "" {
		referrer = ctx.Request.Referer()
	}

	out := t.recorder.Record(rctx, analytics.Visit{
		Article:   analytics.RefOf(&article),
		IP:        utils.ClientIP(ctx),
		UserAgent: ctx.Request.UserAgent(),
		SessionID: sessionID,
		Referrer:  referrer,
	})
	if !out.Recorded {
		utils.Error(ctx, http.StatusOK, "Failed to track article view")
		return
	}
	utils.Success(ctx, gin.H{"views": out.Views, "isUniqueView": out.Unique})
}

// AccessLog stores a visitor log row for a public page hit.
func (t *TrackingController) AccessLog(ctx *gin.Context) {
	var req struct {
		Path     string `json:"path" binding:"required"`
		Referrer string `json:"referrer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "path is required")
		return
	}
	now := t.now()
	entry := models.VisitorLog{
		IPAddress: utils.ClientIP(ctx),
		Path:      utils.Truncate(req.Path, 512),
		UserAgent: utils.Truncate(ctx.Request.UserAgent(), 512),
		Referrer:  utils.Truncate(req.Referrer, 1024),
		VisitedAt: now,
		ExpireAt:  now.Add(t.retention),
	}
	if err := t.db.WithContext(context.WithoutCancel(ctx.Request.Context())).Create(&entry).Error; err != nil {
		utils.Sugar.Warnw("access log insert failed", "path", req.Path, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to record visit")
		return
	}
	utils.Success(ctx, gin.H{"recorded": true})
}
