package models

import "time"

// ArticleView is one observed read of a published article. Rows are never
// updated; ExpireAt drives the retention sweep.
type ArticleView struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ArticleID    uint      `gorm:"index;not null" json:"articleId"`
	ArticleSlug  string    `gorm:"size:255;index:idx_av_slug_ip_time,priority:1;not null" json:"articleSlug"`
	ArticleTitle string    `gorm:"size:255" json:"articleTitle"`
	CategoryName string    `gorm:"size:128" json:"category"`
	Author       string    `gorm:"size:128" json:"author"`
	IPAddress    string    `gorm:"size:64;index:idx_av_slug_ip_time,priority:2;not null" json:"ipAddress"`
	UserAgent    string    `gorm:"size:512" json:"userAgent"`
	SessionID    string    `gorm:"size:64" json:"sessionId"`
	Referrer     string    `gorm:"size:1024" json:"referrer"`
	IsUniqueView bool      `gorm:"index;not null" json:"isUniqueView"`
	ViewedAt     time.Time `gorm:"index:idx_av_slug_ip_time,priority:3;index;not null" json:"viewedAt"`
	ExpireAt     time.Time `gorm:"index;not null" json:"-"`
}

// VisitorLog is one access-log beacon sent by the public site.
type VisitorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IPAddress string    `gorm:"size:64;index;not null" json:"ipAddress"`
	Path      string    `gorm:"size:512;not null" json:"path"`
	UserAgent string    `gorm:"size:512" json:"userAgent"`
	Referrer  string    `gorm:"size:1024" json:"referrer"`
	VisitedAt time.Time `gorm:"index;not null" json:"visitedAt"`
	ExpireAt  time.Time `gorm:"index;not null" json:"-"`
}
