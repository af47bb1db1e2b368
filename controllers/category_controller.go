package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

const categoriesCacheKey = "cache:categories"

// CategoryController manages article categories.
type CategoryController struct {
	db    *gorm.DB
	cache *utils.Cache
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(db *gorm.DB, cache *utils.Cache) *CategoryController {
	return &CategoryController{db: db, cache: cache}
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

// ListPublic returns all categories for the site navigation.
func (c *CategoryController) ListPublic(ctx *gin.Context) {
	if b, ok := c.cache.GetBytes(categoriesCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	var categories []models.Category
	if err := c.db.WithContext(ctx.Request.Context()).Order("sort_order ASC").Order("name ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	payload := gin.H{"items": categories}
	c.cache.SetJSON(categoriesCacheKey, utils.JSONResponse{Success: true, Data: payload}, 0)
	utils.Success(ctx, payload)
}

// AdminList returns all categories.
func (c *CategoryController) AdminList(ctx *gin.Context) {
	listAll[models.Category](ctx, c.db, "sort_order ASC, name ASC")
}

// AdminGet returns one category.
func (c *CategoryController) AdminGet(ctx *gin.Context) {
	getByID[models.Category](ctx, c.db, "Category not found")
}

// Create stores a new category.
func (c *CategoryController) Create(ctx *gin.Context) {
	var category models.Category
	if !c.bind(ctx, &category) {
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Create(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create category")
		return
	}
	c.invalidate()
	utils.Respond(ctx, http.StatusCreated, true, category, "")
}

// Update edits a category.
func (c *CategoryController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var category models.Category
	if !loadByID(ctx, c.db, id, &category, "Category not found") || !c.bind(ctx, &category) {
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Save(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to update category")
		return
	}
	c.invalidate()
	utils.Success(ctx, category)
}

// Delete removes a category; its articles become uncategorized.
func (c *CategoryController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	err := c.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Article{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error == nil && res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return res.Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	c.invalidate()
	utils.Success(ctx, gin.H{"id": id})
}

func (c *CategoryController) bind(ctx *gin.Context, category *models.Category) bool {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	name := utils.SanitizeText(req.Name)
	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if name == "" || slug == "" {
		utils.Error(ctx, http.StatusBadRequest, "Name cannot be empty")
		return false
	}
	free, err := uniqueSlug(c.db, &models.Category{}, slug, category.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to check slug")
		return false
	}
	if !free {
		utils.Error(ctx, http.StatusConflict, "Slug already in use")
		return false
	}
	category.Name = name
	category.Slug = slug
	category.Description = utils.SanitizeText(req.Description)
	category.SortOrder = req.SortOrder
	return true
}

func (c *CategoryController) invalidate() {
	c.cache.InvalidateByPrefix(categoriesCacheKey)
	c.cache.InvalidateByPrefix(newsListCachePrefix)
}
