package model

import "time"

// OperationLog is one audit trail entry.
type OperationLog struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;index"`
	Module    string    `gorm:"size:32;not null"`
	Action    string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text;not null"`
	RequestID string    `gorm:"size:64"`
	IPAddress string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"not null;index"`
}
