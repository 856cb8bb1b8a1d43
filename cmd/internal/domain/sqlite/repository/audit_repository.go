package repository

import (
	"context"
	"errors"
	"slotwise/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

const maxAuditPage = 500

// DefaultAuditRepository only ever inserts and reads. There is intentionally
// no way to update or remove an entry through it.
type DefaultAuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *DefaultAuditRepository {
	return &DefaultAuditRepository{db: db}
}

func (r *DefaultAuditRepository) Append(ctx context.Context, entry *entity.AuditLog) error {
	if entry.ID != 0 {
		return errors.New("audit entries are append-only")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries newest first.
func (r *DefaultAuditRepository) List(filter entity.AuditFilter) ([]*entity.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}

	query := r.db.Model(&entity.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.SubjectID != 0 {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}

	var logs []*entity.AuditLog
	err := query.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error
	return logs, err
}
