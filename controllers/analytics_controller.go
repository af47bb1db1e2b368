package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kabarportal/portal/analytics"
	"github.com/kabarportal/portal/utils"
)

// AnalyticsController serves the admin dashboard figures.
type AnalyticsController struct {
	reporter *analytics.Reporter
}

// NewAnalyticsController creates a new AnalyticsController instance.
func NewAnalyticsController(reporter *analytics.Reporter) *AnalyticsController {
	return &AnalyticsController{reporter: reporter}
}

// Overview returns article and traffic totals.
func (a *AnalyticsController) Overview(ctx *gin.Context) {
	utils.Success(ctx, a.reporter.Overview(ctx.Request.Context()))
}

// Views lists recent view events with redacted IPs, optionally for one slug.
func (a *AnalyticsController) Views(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	rows, err := a.reporter.RecentViews(ctx.Request.Context(), ctx.Query("slug"), limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to load views")
		return
	}
	utils.Success(ctx, gin.H{"items": rows})
}

// TopArticles ranks published articles by views.
func (a *AnalyticsController) TopArticles(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	top, err := a.reporter.TopArticles(ctx.Request.Context(), limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to load top articles")
		return
	}
	utils.Success(ctx, gin.H{"items": top})
}
