package models

import "time"

// Event is an agenda entry listed on the public events page.
type Event struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	Location    string     `gorm:"size:255" json:"location"`
	StartsAt    time.Time  `gorm:"index;not null" json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Status      string     `gorm:"size:16;index;not null;default:'draft'" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
