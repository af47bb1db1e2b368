package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// FooterController manages the site footer blocks.
type FooterController struct {
	db *gorm.DB
}

// NewFooterController creates a new FooterController instance.
func NewFooterController(db *gorm.DB) *FooterController {
	return &FooterController{db: db}
}

type footerRequest struct {
	Key       string `json:"key" binding:"required"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	SortOrder int    `json:"sortOrder"`
}

// List returns the footer sections in display order. Served publicly and in the admin panel.
func (f *FooterController) List(ctx *gin.Context) {
	listAll[models.FooterSection](ctx, f.db, "sort_order ASC, id ASC")
}

// AdminGet returns one section.
func (f *FooterController) AdminGet(ctx *gin.Context) {
	getByID[models.FooterSection](ctx, f.db, "Footer section not found")
}

// Create stores a new section.
func (f *FooterController) Create(ctx *gin.Context) {
	var section models.FooterSection
	if !f.bind(ctx, &section) {
		return
	}
	if err := f.db.WithContext(ctx.Request.Context()).Create(&section).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create footer section")
		return
	}
	utils.Respond(ctx, http.StatusCreated, true, section, "")
}

// Update edits a section.
func (f *FooterController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var section models.FooterSection
	if !loadByID(ctx, f.db, id, &section, "Footer section not found") || !f.bind(ctx, &section) {
		return
	}
	if err := f.db.WithContext(ctx.Request.Context()).Save(&section).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to update footer section")
		return
	}
	utils.Success(ctx, section)
}

// Delete removes a section.
func (f *FooterController) Delete(ctx *gin.Context) {
	deleteByID[models.FooterSection](ctx, f.db, "Footer section not found")
}

func (f *FooterController) bind(ctx *gin.Context, section *models.FooterSection) bool {
	var req footerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	key := utils.Slugify(req.Key)
	if key == "" {
		utils.Error(ctx, http.StatusBadRequest, "Key cannot be empty")
		return false
	}
	var n int64
	if err := f.db.Model(&models.FooterSection{}).Where("`key` = ? AND id <> ?", key, section.ID).Count(&n).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to check key")
		return false
	}
	if n > 0 {
		utils.Error(ctx, http.StatusConflict, "Key already in use")
		return false
	}
	section.Key = key
	section.Title = utils.SanitizeText(req.Title)
	section.Content = utils.SanitizeHTML(strings.TrimSpace(req.Content))
	section.SortOrder = req.SortOrder
	return true
}
