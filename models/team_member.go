package models

import "time"

// TeamMember is a newsroom staff profile.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Position  string    `gorm:"size:128" json:"position"`
	Bio       string    `gorm:"type:text" json:"bio"`
	PhotoURL  string    `gorm:"size:1024" json:"photoUrl"`
	SortOrder int       `gorm:"default:0" json:"sortOrder"`
	Active    bool      `gorm:"index;not null" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
