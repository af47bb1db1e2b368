// Package analytics records article reads and answers the admin reports built on them.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

const (
	// DefaultUniqueWindow is how long a (slug, IP) pair counts as one reader.
	DefaultUniqueWindow = 24 * time.Hour
	// DefaultRetention is how long view events are kept before the retention cleaner drops them.
	DefaultRetention = 730 * 24 * time.Hour

	asyncTimeout = 10 * time.Second
)

// ArticleRef identifies the article being read.
type ArticleRef struct {
	ID       uint
	Slug     string
	Title    string
	Category string
	Author   string
	// Views is the counter as loaded with the article.
	Views int64
}

// RefOf builds an ArticleRef from a loaded article.
func RefOf(a *models.Article) ArticleRef {
	return ArticleRef{
		ID:       a.ID,
		Slug:     a.Slug,
		Title:    a.Title,
		Category: a.CategoryName(),
		Author:   a.Author,
		Views:    a.Views,
	}
}

// Visit is one read of an article.
type Visit struct {
	Article   ArticleRef
	IP        string
	UserAgent string
	SessionID string
	Referrer  string
}

// Outcome reports what Record did.
type Outcome struct {
	// Unique is true when no earlier event for the same slug and IP fell inside the window.
	Unique bool
	// Views is the article counter after recording.
	Views int64
	// Recorded is true once the event row was written.
	Recorded bool
}

// Recorder decides view uniqueness, appends view events and bumps article counters.
// Failures are logged and never returned.
type Recorder struct {
	store     Store
	window    time.Duration
	retention time.Duration
	now       func() time.Time

	wg sync.WaitGroup
}

// NewRecorder creates a recorder; non-positive durations fall back to the defaults.
func NewRecorder(store Store, window, retention time.Duration) *Recorder {
	if window <= 0 {
		window = DefaultUniqueWindow
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Recorder{store: store, window: window, retention: retention, now: time.Now}
}

// Record runs the lookup, insert and increment steps for v. The steps are not
// atomic: two concurrent first reads from one IP can both count as unique.
func (r *Recorder) Record(ctx context.Context, v Visit) Outcome {
	out := Outcome{Views: v.Article.Views}
	if r == nil || r.store == nil {
		return out
	}
	if v.IP == "" {
		v.IP = utils.UnknownIP
	}
	now := r.now()
	log := utils.Logger.With(zap.String("slug", v.Article.Slug), zap.String("ip", v.IP))

	seen, err := r.store.HasRecentView(ctx, v.Article.Slug, v.IP, now.Add(-r.window))
	if err != nil {
		log.Warn("view lookup failed", zap.Error(err))
		return out
	}
	out.Unique = !seen

	view := &models.ArticleView{
		ArticleID:    v.Article.ID,
		ArticleSlug:  v.Article.Slug,
		ArticleTitle: v.Article.Title,
		CategoryName: v.Article.Category,
		Author:       v.Article.Author,
		IPAddress:    v.IP,
		UserAgent:    utils.Truncate(v.UserAgent, 512),
		SessionID:    utils.Truncate(v.SessionID, 64),
		Referrer:     utils.Truncate(v.Referrer, 1024),
		IsUniqueView: out.Unique,
		ViewedAt:     now,
		ExpireAt:     now.Add(r.retention),
	}
	if err := r.store.InsertView(ctx, view); err != nil {
		log.Warn("view insert failed", zap.Error(err))
		return out
	}
	out.Recorded = true

	if !out.Unique {
		return out
	}
	views, err := r.store.IncrementViews(ctx, v.Article.ID)
	if err != nil {
		// the event row stays; the counter is one behind
		log.Warn("view counter increment failed", zap.Uint("article_id", v.Article.ID), zap.Error(err))
		return out
	}
	out.Views = views
	return out
}

// RecordAsync records v in the background, detached from the request's context.
func (r *Recorder) RecordAsync(v Visit) {
	if r == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				utils.Logger.Error("view recording panicked", zap.Any("panic", rec), zap.String("slug", v.Article.Slug))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()
		r.Record(ctx, v)
	}()
}

// Wait blocks until every RecordAsync call has finished.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
