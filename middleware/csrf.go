package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kabarportal/portal/utils"
)

// CSRFConfig configures the double-submit cookie check.
type CSRFConfig struct {
	CookieName string
	HeaderName string
	Secure     bool
	MaxAge     time.Duration
}

// DefaultCSRFConfig returns the cookie and header names the admin frontend uses.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookieName: "XSRF-TOKEN",
		HeaderName: "X-CSRF-Token",
		MaxAge:     24 * time.Hour,
	}
}

// IssueCSRFToken returns the caller's token, minting one when absent, and refreshes the cookie.
func IssueCSRFToken(c *gin.Context, cfg CSRFConfig) (string, error) {
	token, err := c.Cookie(cfg.CookieName)
	if err != nil || token == "" {
		token, err = newCSRFToken(32)
		if err != nil {
			return "", err
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	// readable by the frontend, which echoes it in the header
	c.SetCookie(cfg.CookieName, token, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, false)
	return token, nil
}

// CSRFProtect rejects unsafe requests whose header token does not match the cookie.
func CSRFProtect(cfg CSRFConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		cookie, _ := c.Cookie(cfg.CookieName)
		provided := c.GetHeader(cfg.HeaderName)
		if cookie == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(provided)) != 1 {
			utils.Error(c, http.StatusForbidden, "Invalid CSRF token")
			c.Abort()
			return
		}
		c.Next()
	}
}

func newCSRFToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
