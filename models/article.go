package models

import "time"

// Article publication states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Article is a news item shown on the public portal.
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Excerpt     string     `gorm:"type:text" json:"excerpt"`
	Content     string     `gorm:"type:text" json:"content"`
	CoverImage  string     `gorm:"size:1024" json:"coverImage"`
	CategoryID  *uint      `gorm:"index" json:"categoryId"`
	Category    *Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Author      string     `gorm:"size:128" json:"author"`
	Status      string     `gorm:"size:16;index;not null;default:'draft'" json:"status"`
	Featured    bool       `gorm:"index;default:false" json:"featured"`
	Views       int64      `gorm:"not null;default:0" json:"views"`
	PublishedAt *time.Time `gorm:"index" json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsPublished reports whether the article is visible to the public.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// CategoryName returns the category name or an empty string.
func (a *Article) CategoryName() string {
	if a.Category == nil {
		return ""
	}
	return a.Category.Name
}
