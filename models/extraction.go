package models

import (
	"time"
)

// Extraction records one successful /extract call. Images themselves are never stored.
type Extraction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	RequestID  string    `gorm:"size:64;index" json:"request_id"`
	UserEmail  string    `gorm:"size:255;index" json:"user_email,omitempty"`
	ImageCount int       `gorm:"not null" json:"image_count"`
	FileNames  []string  `gorm:"serializer:json;type:jsonb" json:"file_names"`
	Codes      []string  `gorm:"serializer:json;type:jsonb" json:"codes"`
	CodeCount  int       `gorm:"not null;default:0" json:"code_count"`
}
