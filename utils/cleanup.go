package utils

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kabarportal/portal/models"
)

const cleanupBatchSize = 500

// StartRetentionCleaner launches a background goroutine that periodically deletes
// analytics rows past their retention. It is best-effort and logs failures.
func StartRetentionCleaner(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := PurgeExpired(db, time.Now())
				if err != nil {
					Sugar.Warnf("retention cleaner failed: %v", err)
					continue
				}
				if n > 0 {
					Sugar.Infof("retention cleaner removed %d expired analytics rows", n)
				}
			}
		}
	}()
}

// PurgeExpired deletes view events and visitor logs whose ExpireAt is at or before now.
// Each table is drained in bounded batches.
func PurgeExpired(db *gorm.DB, now time.Time) (int64, error) {
	var total int64
	for _, model := range []interface{}{&models.ArticleView{}, &models.VisitorLog{}} {
		for {
			var ids []uint
			if err := db.Model(model).Where("expire_at <= ?", now).Limit(cleanupBatchSize).Pluck("id", &ids).Error; err != nil {
				return total, err
			}
			if len(ids) == 0 {
				break
			}
			res := db.Where("id IN ?", ids).Delete(model)
			if res.Error != nil {
				return total, res.Error
			}
			total += res.RowsAffected
			if len(ids) < cleanupBatchSize {
				break
			}
		}
	}
	return total, nil
}
