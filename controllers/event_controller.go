package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// EventController manages the events agenda.
type EventController struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEventController creates a new EventController instance.
func NewEventController(db *gorm.DB) *EventController {
	return &EventController{db: db, now: time.Now}
}

type eventRequest struct {
	Title       string `json:"title" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartsAt    string `json:"startsAt" binding:"required"`
	EndsAt      string `json:"endsAt"`
	Status      string `json:"status"`
}

// ListPublic returns published events; upcoming=true hides those already over.
func (e *EventController) ListPublic(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := e.db.WithContext(ctx.Request.Context()).Model(&models.Event{}).Where("status = ?", models.StatusPublished)
	if ctx.Query("upcoming") == "true" {
		now := e.now()
		query = query.Where("((ends_at IS NOT NULL AND ends_at >= ?) OR (ends_at IS NULL AND starts_at >= ?))", now, now)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to count events")
		return
	}
	var events []models.Event
	if err := query.Order("starts_at ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&events).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list events")
		return
	}
	utils.Success(ctx, paginated(events, page, pageSize, total))
}

// GetPublic returns one published event by slug.
func (e *EventController) GetPublic(ctx *gin.Context) {
	var event models.Event
	err := e.db.WithContext(ctx.Request.Context()).
		Where("slug = ? AND status = ?", ctx.Param("slug"), models.StatusPublished).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to load event")
		return
	}
	utils.Success(ctx, event)
}

// AdminList returns every event, newest first.
func (e *EventController) AdminList(ctx *gin.Context) {
	listAll[models.Event](ctx, e.db, "starts_at DESC")
}

// AdminGet returns one event.
func (e *EventController) AdminGet(ctx *gin.Context) {
	getByID[models.Event](ctx, e.db, "Event not found")
}

// Create stores a new event.
func (e *EventController) Create(ctx *gin.Context) {
	var event models.Event
	if !e.bind(ctx, &event) {
		return
	}
	if err := e.db.WithContext(ctx.Request.Context()).Create(&event).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create event")
		return
	}
	utils.Respond(ctx, http.StatusCreated, true, event, "")
}

// Update edits an event.
func (e *EventController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var event models.Event
	if !loadByID(ctx, e.db, id, &event, "Event not found") || !e.bind(ctx, &event) {
		return
	}
	if err := e.db.WithContext(ctx.Request.Context()).Save(&event).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to update event")
		return
	}
	utils.Success(ctx, event)
}

// Delete removes an event.
func (e *EventController) Delete(ctx *gin.Context) {
	deleteByID[models.Event](ctx, e.db, "Event not found")
}

func (e *EventController) bind(ctx *gin.Context, event *models.Event) bool {
	var req eventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	title := utils.SanitizeText(req.Title)
	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(title)
	}
	if title == "" || slug == "" {
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
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "startsAt must be RFC 3339")
		return false
	}
	endsAt, err := parseOptionalTime(req.EndsAt)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "endsAt must be RFC 3339")
		return false
	}
	if endsAt != nil && endsAt.Before(startsAt) {
		utils.Error(ctx, http.StatusBadRequest, "endsAt is before startsAt")
		return false
	}
	free, err := uniqueSlug(e.db, &models.Event{}, slug, event.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to check slug")
		return false
	}
	if !free {
		utils.Error(ctx, http.StatusConflict, "Slug already in use")
		return false
	}
	event.Title = title
	event.Slug = slug
	event.Description = utils.SanitizeHTML(req.Description)
	event.Location = utils.SanitizeText(req.Location)
	event.StartsAt = startsAt
	event.EndsAt = endsAt
	event.Status = status
	return true
}
