package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/medscribe/medscribe-api/internal/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}
