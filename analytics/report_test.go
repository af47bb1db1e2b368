package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/testutil"
)

func TestReporterRecentViewsMasksIP(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]models.ArticleView{
		{ArticleID: 1, ArticleSlug: "a", IPAddress: "203.0.113.50", IsUniqueView: true, ViewedAt: now, ExpireAt: now.Add(time.Hour)},
		{ArticleID: 2, ArticleSlug: "b", IPAddress: "198.51.100.7", ViewedAt: now.Add(time.Minute), ExpireAt: now.Add(time.Hour)},
	}).Error)

	r := NewReporter(db)
	rows, err := r.RecentViews(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ArticleSlug)
	assert.Equal(t, "198.51.100.xxx", rows[0].IPAddress)

	rows, err = r.RecentViews(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "203.0.113.xxx", rows[0].IPAddress)
	assert.True(t, rows[0].IsUniqueView)
}

func TestReporterTopArticles(t *testing.T) {
	db := testutil.NewDB(t)
	cat := models.Category{Name: "Nasional", Slug: "nasional"}
	require.NoError(t, db.Create(&cat).Error)
	require.NoError(t, db.Create(&[]models.Article{
		{Title: "A", Slug: "a", Status: models.StatusPublished, Views: 5, CategoryID: &cat.ID},
		{Title: "B", Slug: "b", Status: models.StatusPublished, Views: 12},
		{Title: "C", Slug: "c", Status: models.StatusDraft, Views: 99},
	}).Error)

	top, err := NewReporter(db).TopArticles(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Slug)
	assert.Equal(t, "a", top[1].Slug)
	assert.Equal(t, "Nasional", top[1].Category)
}

func TestReporterOverview(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&[]models.Article{
		{Title: "A", Slug: "a", Status: models.StatusPublished, Views: 3},
		{Title: "B", Slug: "b", Status: models.StatusDraft, Views: 1},
	}).Error)

	o := NewReporter(db).Overview(context.Background())
	assert.Equal(t, int64(2), o.TotalArticles)
	assert.Equal(t, int64(1), o.PublishedArticles)
	assert.Equal(t, int64(4), o.TotalViews)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, 100, clampLimit(1000))
}
