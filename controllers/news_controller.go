package controllers

import (
	"errors"
	"fmt"
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

const newsListCachePrefix = "cache:news:list:"

// NewsController serves published articles and the admin article editor.
type NewsController struct {
	db       *gorm.DB
	cache    *utils.Cache
	recorder *analytics.Recorder
	now      func() time.Time
}

// NewNewsController creates a new NewsController instance. cache and recorder may be nil.
func NewNewsController(db *gorm.DB, cache *utils.Cache, recorder *analytics.Recorder) *NewsController {
	return &NewsController{db: db, cache: cache, recorder: recorder, now: time.Now}
}

// ListPublished returns paginated published articles, newest first.
func (n *NewsController) ListPublished(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))
	featured := ctx.Query("featured") == "true"

	// search results are not cached to keep the key space bounded
	cacheKey := ""
	if search == "" {
		cacheKey = fmt.Sprintf("%scat=%s:featured=%t:page=%d:size=%d", newsListCachePrefix, category, featured, page, pageSize)
		if b, ok := n.cache.GetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	query := n.db.WithContext(ctx.Request.Context()).Model(&models.Article{}).
		Where("status = ?", models.StatusPublished)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("(title LIKE ? OR excerpt LIKE ?)", like, like)
	}
	if category != "" {
		query = query.Where("category_id IN (?)", n.db.Model(&models.Category{}).Select("id").Where("slug = ?", category))
	}
	if featured {
		query = query.Where("featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to count news")
		return
	}
	var articles []models.Article
	if err := query.Preload("Category").
		Order("published_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list news")
		return
	}

	payload := paginated(articles, page, pageSize, total)
	if cacheKey != "" {
		n.cache.SetJSON(cacheKey, utils.JSONResponse{Success: true, Data: payload}, 5*time.Minute)
	}
	utils.Success(ctx, payload)
}

// GetPublished returns one published article and records the read in the background.
// The response never waits on or depends on the analytics write.
func (n *NewsController) GetPublished(ctx *gin.Context) {
	var article models.Article
	err := n.db.WithContext(ctx.Request.Context()).Preload("Category").
		Where("slug = ? AND status = ?", ctx.Param("slug"), models.StatusPublished).
		First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Article not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "Failed to load article")
		return
	}

	n.recorder.RecordAsync(analytics.Visit{
		Article:   analytics.RefOf(&article),
		IP:        utils.ClientIP(ctx),
		UserAgent: ctx.Request.UserAgent(),
		SessionID: uuid.NewString(),
		Referrer:  ctx.Request.Referer(),
	})
	utils.Success(ctx, article)
}

type articleRequest struct {
	Title      string `json:"title" binding:"required"`
	Slug       string `json:"slug"`
	Excerpt    string `json:"excerpt"`
	Content    string `json:"content"`
	CoverImage string `json:"coverImage"`
	CategoryID *uint  `json:"categoryId"`
	Author     string `json:"author"`
	Status     string `json:"status"`
	Featured   bool   `json:"featured"`
}

// AdminList returns articles of every status. Supports limit, page and status filters.
func (n *NewsController) AdminList(ctx *gin.Context) {
	size := ctx.Query("limit")
	if size == "" {
		size = ctx.Query("page_size")
	}
	page, pageSize := parsePagination(ctx.Query("page"), size)

	query := n.db.WithContext(ctx.Request.Context()).Model(&models.Article{})
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to count news")
		return
	}
	var articles []models.Article
	if err := query.Preload("Category").Order("updated_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list news")
		return
	}
	utils.Success(ctx, paginated(articles, page, pageSize, total))
}

// AdminGet returns one article regardless of status.
func (n *NewsController) AdminGet(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var article models.Article
	if !loadByID(ctx, n.db.Preload("Category"), id, &article, "Article not found") {
		return
	}
	utils.Success(ctx, article)
}

// Create stores a new article.
func (n *NewsController) Create(ctx *gin.Context) {
	var req articleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	var article models.Article
	if !n.apply(ctx, &article, req) {
		return
	}
	if err := n.db.WithContext(ctx.Request.Context()).Create(&article).Error; err != nil {
		utils.Sugar.Errorw("article create failed", "slug", article.Slug, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create article")
		return
	}
	n.cache.InvalidateByPrefix(newsListCachePrefix)
	utils.Respond(ctx, http.StatusCreated, true, article, "")
}

// Update replaces an article's editable fields.
func (n *NewsController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var article models.Article
	if !loadByID(ctx, n.db, id, &article, "Article not found") {
		return
	}
	var req articleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !n.apply(ctx, &article, req) {
		return
	}
	// views is owned by the recorder and never written here
	err := n.db.WithContext(ctx.Request.Context()).Model(&article).
		Select("title", "slug", "excerpt", "content", "cover_image", "category_id", "author", "status", "featured", "published_at", "updated_at").
		Updates(&article).Error
	if err != nil {
		utils.Sugar.Errorw("article update failed", "id", id, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to update article")
		return
	}
	n.cache.InvalidateByPrefix(newsListCachePrefix)
	utils.Success(ctx, article)
}

// Delete removes an article. Its view events stay until retention expires.
func (n *NewsController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	res := n.db.WithContext(ctx.Request.Context()).Delete(&models.Article{}, id)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to delete article")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "Article not found")
		return
	}
	n.cache.InvalidateByPrefix(newsListCachePrefix)
	utils.Success(ctx, gin.H{"id": id})
}

// apply validates req onto article and writes the 400/409 response itself on failure.
func (n *NewsController) apply(ctx *gin.Context, article *models.Article, req articleRequest) bool {
	title := utils.SanitizeText(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, "Title cannot be empty")
		return false
	}
	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	if status != models.StatusDraft && status != models.StatusPublished {
		utils.Error(ctx, http.StatusBadRequest, "Invalid status")
		return false
	}
	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(title)
	}
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, "Slug cannot be empty")
		return false
	}
	free, err := uniqueSlug(n.db.WithContext(ctx.Request.Context()), &models.Article{}, slug, article.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to check slug")
		return false
	}
	if !free {
		utils.Error(ctx, http.StatusConflict, "Slug already in use")
		return false
	}
	if req.CategoryID != nil {
		var category models.Category
		if err := n.db.WithContext(ctx.Request.Context()).Select("id").First(&category, *req.CategoryID).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, "Unknown category")
			return false
		}
	}

	article.Title = title
	article.Slug = slug
	article.Excerpt = utils.SanitizeText(req.Excerpt)
	article.Content = utils.SanitizeHTML(req.Content)
	article.CoverImage = strings.TrimSpace(req.CoverImage)
	article.CategoryID = req.CategoryID
	article.Author = utils.SanitizeText(req.Author)
	article.Status = status
	article.Featured = req.Featured
	if status == models.StatusPublished && article.PublishedAt == nil {
		t := n.now()
		article.PublishedAt = &t
	}
	return true
}
