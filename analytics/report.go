package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// Overview is the dashboard summary.
type Overview struct {
	TotalArticles     int64 `json:"totalArticles"`
	PublishedArticles int64 `json:"publishedArticles"`
	TotalViews        int64 `json:"totalViews"`
	ViewsToday        int64 `json:"viewsToday"`
	UniqueViewsToday  int64 `json:"uniqueViewsToday"`
	VisitorsToday     int64 `json:"visitorsToday"`
	PageViewsToday    int64 `json:"pageViewsToday"`
}

// ViewRow is a view event as shown to admins, with the IP partially redacted.
type ViewRow struct {
	ArticleSlug  string    `json:"articleSlug"`
	ArticleTitle string    `json:"articleTitle"`
	Category     string    `json:"category"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
	Referrer     string    `json:"referrer"`
	IsUniqueView bool      `json:"isUniqueView"`
	ViewedAt     time.Time `json:"viewedAt"`
}

// TopArticle is one entry of the most-read ranking.
type TopArticle struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Views    int64  `json:"views"`
	Category string `json:"category"`
}

// Reporter answers the admin analytics queries.
type Reporter struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReporter wraps db.
func NewReporter(db *gorm.DB) *Reporter {
	return &Reporter{db: db, now: time.Now}
}

// Overview counts articles, total views and today's traffic. A failing count reads as zero.
func (r *Reporter) Overview(ctx context.Context) Overview {
	db := r.db.WithContext(ctx)
	now := r.now().In(time.Local)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var o Overview
	if err := db.Model(&models.Article{}).Count(&o.TotalArticles).Error; err != nil {
		o.TotalArticles = 0
	}
	if err := db.Model(&models.Article{}).Where("status = ?", models.StatusPublished).Count(&o.PublishedArticles).Error; err != nil {
		o.PublishedArticles = 0
	}
	if err := db.Model(&models.Article{}).Select("COALESCE(SUM(views),0)").Scan(&o.TotalViews).Error; err != nil {
		o.TotalViews = 0
	}
	if err := db.Model(&models.ArticleView{}).Where("viewed_at >= ?", midnight).Count(&o.ViewsToday).Error; err != nil {
		o.ViewsToday = 0
	}
	if err := db.Model(&models.ArticleView{}).Where("viewed_at >= ? AND is_unique_view = ?", midnight, true).Count(&o.UniqueViewsToday).Error; err != nil {
		o.UniqueViewsToday = 0
	}
	if err := db.Model(&models.VisitorLog{}).Where("visited_at >= ?", midnight).Distinct("ip_address").Count(&o.VisitorsToday).Error; err != nil {
		o.VisitorsToday = 0
	}
	// DATE column compared as a string avoids driver timezone conversions
	if err := db.Model(&models.PageView{}).Where("date = ?", now.Format("2006-01-02")).
		Select("COALESCE(SUM(count),0)").Scan(&o.PageViewsToday).Error; err != nil {
		o.PageViewsToday = 0
	}
	return o
}

// RecentViews lists the newest view events, optionally for one slug.
func (r *Reporter) RecentViews(ctx context.Context, slug string, limit int) ([]ViewRow, error) {
	q := r.db.WithContext(ctx).Model(&models.ArticleView{}).Order("viewed_at DESC").Limit(clampLimit(limit))
	if slug != "" {
		q = q.Where("article_slug = ?", slug)
	}
	var views []models.ArticleView
	if err := q.Find(&views).Error; err != nil {
		return nil, err
	}
	rows := make([]ViewRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, ViewRow{
			ArticleSlug:  v.ArticleSlug,
			ArticleTitle: v.ArticleTitle,
			Category:     v.CategoryName,
			IPAddress:    utils.MaskIP(v.IPAddress),
			UserAgent:    v.UserAgent,
			Referrer:     v.Referrer,
			IsUniqueView: v.IsUniqueView,
			ViewedAt:     v.ViewedAt,
		})
	}
	return rows, nil
}

// TopArticles ranks published articles by their view counter.
func (r *Reporter) TopArticles(ctx context.Context, limit int) ([]TopArticle, error) {
	var articles []models.Article
	err := r.db.WithContext(ctx).Preload("Category").
		Where("status = ?", models.StatusPublished).
		Order("views DESC").Order("id ASC").
		Limit(clampLimit(limit)).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	top := make([]TopArticle, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		top = append(top, TopArticle{ID: a.ID, Title: a.Title, Slug: a.Slug, Views: a.Views, Category: a.CategoryName()})
	}
	return top, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
