package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// TeamController manages newsroom staff profiles.
type TeamController struct {
	db *gorm.DB
}

// NewTeamController creates a new TeamController instance.
func NewTeamController(db *gorm.DB) *TeamController {
	return &TeamController{db: db}
}

type teamRequest struct {
	Name      string `json:"name" binding:"required"`
	Position  string `json:"position"`
	Bio       string `json:"bio"`
	PhotoURL  string `json:"photoUrl"`
	SortOrder int    `json:"sortOrder"`
	Active    *bool  `json:"active"`
}

// ListPublic returns active members in display order.
func (t *TeamController) ListPublic(ctx *gin.Context) {
	var members []models.TeamMember
	if err := t.db.WithContext(ctx.Request.Context()).Where("active = ?", true).
		Order("sort_order ASC").Order("id ASC").Find(&members).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list team")
		return
	}
	utils.Success(ctx, gin.H{"items": members})
}

// AdminList returns every member.
func (t *TeamController) AdminList(ctx *gin.Context) {
	listAll[models.TeamMember](ctx, t.db, "sort_order ASC, id ASC")
}

// AdminGet returns one member.
func (t *TeamController) AdminGet(ctx *gin.Context) {
	getByID[models.TeamMember](ctx, t.db, "Team member not found")
}

// Create stores a new member.
func (t *TeamController) Create(ctx *gin.Context) {
	var member models.TeamMember
	if !t.bind(ctx, &member) {
		return
	}
	if err := t.db.WithContext(ctx.Request.Context()).Create(&member).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create team member")
		return
	}
	utils.Respond(ctx, http.StatusCreated, true, member, "")
}

// Update edits a member.
func (t *TeamController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var member models.TeamMember
	if !loadByID(ctx, t.db, id, &member, "Team member not found") || !t.bind(ctx, &member) {
		return
	}
	if err := t.db.WithContext(ctx.Request.Context()).Save(&member).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to update team member")
		return
	}
	utils.Success(ctx, member)
}

// Delete removes a member.
func (t *TeamController) Delete(ctx *gin.Context) {
	deleteByID[models.TeamMember](ctx, t.db, "Team member not found")
}

func (t *TeamController) bind(ctx *gin.Context, member *models.TeamMember) bool {
	var req teamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	name := utils.SanitizeText(req.Name)
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, "Name cannot be empty")
		return false
	}
	member.Name = name
	member.Position = utils.SanitizeText(req.Position)
	member.Bio = utils.SanitizeHTML(req.Bio)
	member.PhotoURL = strings.TrimSpace(req.PhotoURL)
	member.SortOrder = req.SortOrder
	member.Active = boolOr(req.Active, true)
	return true
}
