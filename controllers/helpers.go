package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabarportal/portal/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginated(items interface{}, page, pageSize int, total int64) gin.H {
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

// parseID reads the :id route parameter, answering 400 when it is not a positive integer.
func parseID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// loadByID fetches dest by primary key and writes the 404/500 response itself on failure.
func loadByID(ctx *gin.Context, db *gorm.DB, id uint, dest interface{}, notFound string) bool {
	err := db.WithContext(ctx.Request.Context()).First(dest, id).Error
	if err == nil {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, notFound)
		return false
	}
	utils.Sugar.Errorw("load failed", "id", id, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, "Failed to load record")
	return false
}

// uniqueSlug reports whether slug is free in model's table, ignoring the row with id exceptID.
func uniqueSlug(db *gorm.DB, model interface{}, slug string, exceptID uint) (bool, error) {
	var n int64
	q := db.Model(model).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n == 0, nil
}

// parseOptionalTime parses an RFC 3339 timestamp; the empty string is nil.
func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// listAll answers every row of T in order.
func listAll[T any](ctx *gin.Context, db *gorm.DB, order string) {
	var rows []T
	if err := db.WithContext(ctx.Request.Context()).Order(order).Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to list records")
		return
	}
	utils.Success(ctx, gin.H{"items": rows})
}

// getByID answers the T row named by :id.
func getByID[T any](ctx *gin.Context, db *gorm.DB, notFound string) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var row T
	if !loadByID(ctx, db, id, &row, notFound) {
		return
	}
	utils.Success(ctx, row)
}

// deleteByID removes the T row named by :id and reports whether it existed.
func deleteByID[T any](ctx *gin.Context, db *gorm.DB, notFound string) bool {
	id, ok := parseID(ctx)
	if !ok {
		return false
	}
	res := db.WithContext(ctx.Request.Context()).Delete(new(T), id)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "Failed to delete record")
		return false
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, notFound)
		return false
	}
	utils.Success(ctx, gin.H{"id": id})
	return true
}
