package analytics

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
)

// Store is the persistence the recorder needs.
type Store interface {
	// HasRecentView reports whether slug was viewed from ip at or after since.
	HasRecentView(ctx context.Context, slug, ip string, since time.Time) (bool, error)
	// InsertView appends one view event.
	InsertView(ctx context.Context, view *models.ArticleView) error
	// IncrementViews adds one to the article's counter and returns the new value.
	IncrementViews(ctx context.Context, articleID uint) (int64, error)
}

// GormStore implements Store on the article and article_views tables.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) HasRecentView(ctx context.Context, slug, ip string, since time.Time) (bool, error) {
	var prior models.ArticleView
	err := s.db.WithContext(ctx).
		Select("id").
		Where("article_slug = ? AND ip_address = ? AND viewed_at >= ?", slug, ip, since).
		Take(&prior).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) InsertView(ctx context.Context, view *models.ArticleView) error {
	return s.db.WithContext(ctx).Create(view).Error
}

func (s *GormStore) IncrementViews(ctx context.Context, articleID uint) (int64, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Article{}).
		Where("id = ?", articleID).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var views int64
	if err := db.Model(&models.Article{}).Where("id = ?", articleID).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	return views, nil
}
