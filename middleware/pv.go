package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

// PageViewRecorder records public page views per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		// unmatched paths served by the NoRoute fallback are not pages
		if c.FullPath() == "" {
			return
		}
		path := c.Request.URL.Path
		if !countablePath(path) {
			return
		}

		// local midnight aligns with the DATE column
		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: localMidnight, Path: path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Warnf("page view upsert failed path=%s err=%v", path, err)
		}
	}
}

// countablePath excludes APIs, the admin area and static assets.
func countablePath(path string) bool {
	for _, p := range []string{"/api/", "/admin", "/static/"} {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return path != "/favicon.ico"
}
