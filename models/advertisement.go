package models

import "time"

// Advertisement is a banner placed in a named slot of the portal layout.
type Advertisement struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	ImageURL  string     `gorm:"size:1024;not null" json:"imageUrl"`
	LinkURL   string     `gorm:"size:1024" json:"linkUrl"`
	Placement string     `gorm:"size:64;index;not null" json:"placement"`
	Active    bool       `gorm:"index;not null" json:"active"`
	StartsAt  *time.Time `json:"startsAt"`
	EndsAt    *time.Time `json:"endsAt"`
	SortOrder int        `gorm:"default:0" json:"sortOrder"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LiveAt reports whether the ad is active and within its schedule at t.
func (a *Advertisement) LiveAt(t time.Time) bool {
	if !a.Active {
		return false
	}
	if a.StartsAt != nil && t.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && !t.Before(*a.EndsAt) {
		return false
	}
	return true
}
