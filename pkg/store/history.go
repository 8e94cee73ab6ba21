package store

import (
	"context"

	"github.com/shnefix/Code-Extractor/models"

	"gorm.io/gorm"
)

// MaxHistoryLimit caps List.
const MaxHistoryLimit = 200

// History stores one row per successful extraction.
type History struct {
	db *gorm.DB
}

func NewHistory(db *gorm.DB) *History { return &History{db: db} }

// Record inserts e, filling its ID and CreatedAt.
func (h *History) Record(ctx context.Context, e *models.Extraction) error {
	if e.Codes == nil {
		e.Codes = []string{}
	}
	e.CodeCount = len(e.Codes)
	return h.db.WithContext(ctx).Create(e).Error
}

// List returns up to limit extractions, newest first.
func (h *History) List(ctx context.Context, limit int) ([]models.Extraction, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	var out []models.Extraction
	if err := h.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
