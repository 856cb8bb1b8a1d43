package repository

import (
	"context"
	"slotwise/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *DefaultReminderRepository {
	return &DefaultReminderRepository{db: db}
}

func (r *DefaultReminderRepository) SaveAll(reminders []*entity.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	return r.db.Omit(clause.Associations).Create(&reminders).Error
}

// FindDue returns unsent reminders due at or before now whose appointment is still active.
func (r *DefaultReminderRepository) FindDue(ctx context.Context, now int64, maxAttempts, limit int) ([]*entity.Reminder, error) {
	var reminders []*entity.Reminder
	err := r.db.WithContext(ctx).
		Select("reminders.*").
		Preload("Appointment").
		Preload("User").
		Joins("JOIN appointments ON appointments.id = reminders.appointment_id").
		Where("reminders.sent_at IS NULL").
		Where("reminders.send_at <= ?", now).
		Where("reminders.attempts < ?", maxAttempts).
		Where("appointments.is_deleted = ?", false).
		Order("reminders.send_at asc").
		Limit(limit).
		Find(&reminders).Error
	return reminders, err
}

func (r *DefaultReminderRepository) MarkSent(ctx context.Context, id string, at int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sent_at":  at,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (r *DefaultReminderRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error": reason,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}
