package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// AdvertisementController manages banner slots.
type AdvertisementController struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAdvertisementController creates a new AdvertisementController instance.
func NewAdvertisementController(db *gorm.DB) *AdvertisementController {
	return &AdvertisementController{db: db, now: time.Now}
}

type advertisementRequest struct {
	Title     string `json:"title" binding:"required"`
	ImageURL  string `json:"imageUrl" binding:"required"`
	LinkURL   string `json:"linkUrl"`
	Placement string `json:"placement" binding:"required"`
	Active    *bool  `json:"active"`
	StartsAt  string `json:"startsAt"`
	EndsAt    string `json:"endsAt"`
	SortOrder int    `json:"sortOrder"`
}

// ListPublic returns the ads live right now, optionally for one placement.
func (a *AdvertisementController) ListPublic(ctx *gin.Context) {
	query := a.db.WithContext(ctx.Request.Context()).Where("active = ?", true)
	if placement := strings.TrimSpace(ctx.Query("placement")); placement != "" {
		query = query.Where("placement = ?", placement)
	}
	var ads []models.Advertisement
	if err := query.Order("sort_order ASC").Order("id ASC").Find(&ads).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list advertisements")
		return
	}
	now := a.now()
	live := make([]models.Advertisement, 0, len(ads))
	for i := range ads {
		if ads[i].LiveAt(now) {
			live = append(live, ads[i])
		}
	}
	utils.Success(ctx, gin.H{"items": live})
}

// AdminList returns every ad.
func (a *AdvertisementController) AdminList(ctx *gin.Context) {
	listAll[models.Advertisement](ctx, a.db, "placement ASC, sort_order ASC, id ASC")
}

// AdminGet returns one ad.
func (a *AdvertisementController) AdminGet(ctx *gin.Context) {
	getByID[models.Advertisement](ctx, a.db, "Advertisement not found")
}

// Create stores a new ad.
func (a *AdvertisementController) Create(ctx *gin.Context) {
	var ad models.Advertisement
	if !a.bind(ctx, &ad) {
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&ad).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create advertisement")
		return
	}
	utils.Respond(ctx, http.StatusCreated, true, ad, "")
}

// Update edits an ad.
func (a *AdvertisementController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var ad models.Advertisement
	if !loadByID(ctx, a.db, id, &ad, "Advertisement not found") || !a.bind(ctx, &ad) {
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Save(&ad).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to update advertisement")
		return
	}
	utils.Success(ctx, ad)
}

// Delete removes an ad.
func (a *AdvertisementController) Delete(ctx *gin.Context) {
	deleteByID[models.Advertisement](ctx, a.db, "Advertisement not found")
}

func (a *AdvertisementController) bind(ctx *gin.Context, ad *models.Advertisement) bool {
	var req advertisementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	startsAt, err := parseOptionalTime(req.StartsAt)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "startsAt must be RFC 3339")
		return false
	}
	endsAt, err := parseOptionalTime(req.EndsAt)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "endsAt must be RFC 3339")
		return false
	}
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		utils.Error(ctx, http.StatusBadRequest, "endsAt must be after startsAt")
		return false
	}
	ad.Title = utils.SanitizeText(req.Title)
	ad.ImageURL = strings.TrimSpace(req.ImageURL)
	ad.LinkURL = strings.TrimSpace(req.LinkURL)
	ad.Placement = strings.TrimSpace(req.Placement)
	ad.Active = boolOr(req.Active, true)
	ad.StartsAt = startsAt
	ad.EndsAt = endsAt
	ad.SortOrder = req.SortOrder
	return true
}
