package model

import "time"

// Building represents a dormitory building.
type Building struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	Code       string     `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	GenderType GenderType `gorm:"not null;default:0" json:"genderType"`
	CreatedAt  time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updatedAt"`

	// Associations
	Rooms []Room `gorm:"foreignKey:BuildingID" json:"-"`
}
