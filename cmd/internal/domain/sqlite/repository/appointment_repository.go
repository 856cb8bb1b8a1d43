package repository

import (
	"context"
	"errors"
	"slotwise/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultAppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db}
}

func (a *DefaultAppointmentRepository) FindByID(id int) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := a.db.Preload("Participants").First(&appt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &appt, err
}

// IsAvailable reports whether [begin, end) is free in the user's calendar.
func (a *DefaultAppointmentRepository) IsAvailable(userID int, begin, end int64) (bool, error) {
	if begin >= end {
		return false, errors.New("start time must be before end time")
	}

	var count int64
	err := a.db.Model(&entity.Appointment{}).
		Where("user_id = ?", userID).
		Where("is_deleted = ?", false).
		Where("begins_at < ?", end).
		Where("ends_at > ?", begin).
		Count(&count).Error

	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (a *DefaultAppointmentRepository) FindAll() ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := a.db.Preload("Participants").
		Where("is_deleted = ?", false).
		Order("begins_at asc").
		Find(&appts).Error
	return appts, err
}

// FindMonthAppointments finds the user's appointments that overlap with a given month.
// This method returns PARTIAL appointment entities, having only `BeginsAt` and `EndsAt` fields.
func (a *DefaultAppointmentRepository) FindMonthAppointments(userID int, monthStart, monthEnd int64) ([]*entity.Appointment, error) {
	var results []*entity.Appointment

	err := a.db.Model(&entity.Appointment{}).
		Select("begins_at, ends_at").
		Where("user_id = ?", userID).
		Where("is_deleted = ?", false).
		Where("begins_at < ?", monthEnd).
		Where("ends_at > ?", monthStart).
		Order("begins_at asc").
		Find(&results).Error

	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindByUserID returns appointments the user owns or takes part in.
func (a *DefaultAppointmentRepository) FindByUserID(id int) ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	participating := a.db.Model(&entity.Participant{}).Select("appointment_id").Where("user_id = ?", id)
	err := a.db.Preload("Participants").
		Where("is_deleted = ?", false).
		Where(a.db.Where("user_id = ?", id).Or("id IN (?)", participating)).
		Order("begins_at asc").
		Find(&appts).Error
	return appts, err
}

// FindUpcomingByUserID returns the user's own appointments starting at or after from,
// ordered by start time.
func (a *DefaultAppointmentRepository) FindUpcomingByUserID(ctx context.Context, userID int, from int64) ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := a.db.WithContext(ctx).
		Select("id, begins_at, ends_at").
		Where("user_id = ?", userID).
		Where("is_deleted = ?", false).
		Where("begins_at >= ?", from).
		Order("begins_at asc").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

// FindHistoryByUserID returns every appointment the user has created, deleted ones excluded.
func (a *DefaultAppointmentRepository) FindHistoryByUserID(ctx context.Context, userID int) ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := a.db.WithContext(ctx).
		Select("id, title, description, begins_at, ends_at").
		Where("user_id = ?", userID).
		Where("is_deleted = ?", false).
		Order("begins_at asc").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (a *DefaultAppointmentRepository) Save(appointment *entity.Appointment) error {
	return a.db.Save(appointment).Error
}

// Delete flags the appointment as deleted. Rows are kept for history.
func (a *DefaultAppointmentRepository) Delete(appointment *entity.Appointment) error {
	appointment.IsDeleted = true
	return a.db.Model(appointment).
		Select("is_deleted", "updated_at").
		Updates(appointment).Error
}
