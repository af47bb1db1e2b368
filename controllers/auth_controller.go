package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/middleware"
	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// SessionCookie describes how the session cookie is written.
type SessionCookie struct {
	Name   string
	Secure bool
}

// AuthController handles admin login, logout and the current session.
type AuthController struct {
	db       *gorm.DB
	sessions *utils.SessionManager
	cookie   SessionCookie
	csrf     middleware.CSRFConfig
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, sessions *utils.SessionManager, cookie SessionCookie, csrf middleware.CSRFConfig) *AuthController {
	return &AuthController{db: db, sessions: sessions, cookie: cookie, csrf: csrf}
}

// CSRF issues the double-submit token the login form and admin panel echo back.
func (a *AuthController) CSRF(ctx *gin.Context) {
	token, err := middleware.IssueCSRFToken(ctx, a.csrf)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to issue CSRF token")
		return
	}
	utils.Success(ctx, gin.H{"csrfToken": token})
}

// Login verifies credentials and sets the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := Authenticate(ctx.Request.Context(), a.db, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			utils.Error(ctx, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		utils.Sugar.Errorw("login lookup failed", "username", req.Username, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	token, expiresAt, err := a.sessions.Issue(user.Username, user.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to create session")
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(a.cookie.Name, token, int(a.sessions.TTL().Seconds()), "/", "", a.cookie.Secure, true)

	now := time.Now()
	if err := a.db.Model(user).UpdateColumn("last_login_at", now).Error; err != nil {
		utils.Sugar.Warnw("last login update failed", "username", user.Username, "err", err)
	}
	user.LastLoginAt = &now

	utils.Success(ctx, gin.H{"user": user, "expiresAt": expiresAt})
}

// Logout clears the session cookie. Tokens are stateless and expire on their own.
func (a *AuthController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(a.cookie.Name, "", -1, "/", "", a.cookie.Secure, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the admin behind the current session.
func (a *AuthController) Me(ctx *gin.Context) {
	username, role, ok := middleware.CurrentAdmin(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "Authentication required")
		return
	}
	var user models.AdminUser
	if err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "User not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "Failed to load user")
		return
	}
	// the session role is what the guard authorized
	user.Role = role
	utils.Success(ctx, user)
}

// Authenticate returns the admin matching username and password.
func Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// EnsureBootstrapAdmin creates a super_admin account when username does not exist yet.
// Empty credentials disable bootstrapping.
func EnsureBootstrapAdmin(db *gorm.DB, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	var n int64
	if err := db.Model(&models.AdminUser{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, err
	}
	user := models.AdminUser{Username: username, FullName: "Administrator", PasswordHash: hash, Role: models.RoleSuperAdmin}
	if err := db.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}
