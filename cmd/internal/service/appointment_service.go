package service

import (
	"bytes"
	"slices"
	"slotwise/cmd/internal/calendar"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/reminder"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type AppointmentRepository interface {
	Save(appointment *entity.Appointment) error
	FindAll() ([]*entity.Appointment, error)
	IsAvailable(userID int, begin, end int64) (bool, error)
	FindByUserID(id int) ([]*entity.Appointment, error)
	FindByID(id int) (*entity.Appointment, error)
	FindMonthAppointments(userID int, monthStart, monthEnd int64) ([]*entity.Appointment, error)
	Delete(appointment *entity.Appointment) error
}

type ReminderRepository interface {
	SaveAll(reminders []*entity.Reminder) error
}

// AuditRecorder takes audit entries without blocking the request.
type AuditRecorder interface {
	Record(action string, subjectID int, payload any)
}

type AppointmentRequest struct {
	Title          string  `json:"title" validate:"required,max=128"`
	Description    *string `json:"description" validate:"omitempty,max=5000"`
	BeginsAt       string  `json:"begins_at" validate:"required,iso8601"`
	EndsAt         string  `json:"ends_at" validate:"required,iso8601"`
	Priority       string  `json:"priority" validate:"priority"`
	IsMultiPerson  bool    `json:"is_multi_person"`
	ParticipantIDs []int   `json:"participant_ids" validate:"max=50,nodupes"`
}

type AppointmentResponse struct {
	ID             int     `json:"id"`
	UID            string  `json:"uid"`
	BeginsAt       string  `json:"begins_at"`
	EndsAt         string  `json:"ends_at"`
	UserID         int     `json:"user_id"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	Priority       string  `json:"priority"`
	IsMultiPerson  bool    `json:"is_multi_person"`
	ParticipantIDs []int   `json:"participant_ids"`
	IsDeleted      bool    `json:"is_deleted"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type ScheduledDay struct {
	BeginsAt string `json:"begins_at"`
	EndsAt   string `json:"ends_at"`
}

type CalendarResponse struct {
	ScheduledDays []*ScheduledDay `json:"scheduled_days"`
}

type DefaultAppointmentService struct {
	AppointmentRepo AppointmentRepository
	UserRepo        UserRepository
	ReminderRepo    ReminderRepository
	Audit           AuditRecorder
	Validate        *validator.Validate

	now func() int64
}

func NewAppointmentService(
	apptRepo AppointmentRepository,
	userRepo UserRepository,
	reminderRepo ReminderRepository,
	audit AuditRecorder,
	validate *validator.Validate,
) *DefaultAppointmentService {
	return &DefaultAppointmentService{
		AppointmentRepo: apptRepo,
		UserRepo:        userRepo,
		ReminderRepo:    reminderRepo,
		Audit:           audit,
		Validate:        validate,
		now:             utils.NowUTC,
	}
}

func (a *DefaultAppointmentService) GetAppointments(subId string) ([]*AppointmentResponse, apierror.ErrorResponse) {
	caller, apierr := a.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	var appts []*entity.Appointment
	var err error
	if caller.IsAdmin() {
		appts, err = a.AppointmentRepo.FindAll()
	} else {
		appts, err = a.AppointmentRepo.FindByUserID(caller.ID)
	}

	if err != nil {
		log.Errorf("failed to find appointments for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	response := make([]*AppointmentResponse, len(appts))
	for i, appt := range appts {
		response[i] = toAppointmentResponse(appt)
	}
	return response, nil
}

func (a *DefaultAppointmentService) CreateAppointment(req *AppointmentRequest, subId string) (*AppointmentResponse, apierror.ErrorResponse) {
	caller, apierr := a.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	begin, err := utils.FromEpoch(req.BeginsAt)
	if err != nil {
		return nil, apierror.MalformedBodyError
	}
	end, err := utils.FromEpoch(req.EndsAt)
	if err != nil {
		return nil, apierror.MalformedBodyError
	}

	if !utils.IsMinuteExact(begin) || !utils.IsMinuteExact(end) {
		return nil, apierror.MinuteNotExactError
	}

	if end <= begin {
		return nil, apierror.InvalidIntervalError
	}

	now := a.now()
	if begin <= now {
		return nil, apierror.AppointmentInPastError
	}

	priority := entity.Priority(req.Priority)
	if priority == "" {
		priority = entity.PriorityMedium
	}

	// The owner is always part of the appointment, listing them again is a no-op.
	participantIDs := slices.DeleteFunc(slices.Clone(req.ParticipantIDs), func(id int) bool {
		return id == caller.ID
	})
	if apierr := a.checkParticipants(participantIDs); apierr != nil {
		return nil, apierr
	}

	available, err := a.AppointmentRepo.IsAvailable(caller.ID, begin, end)
	if err != nil {
		log.Errorf("failed to check if [%d - %d] is available for user %d: %v", begin, end, caller.ID, err)
		return nil, apierror.InternalServerError
	}

	if !available {
		return nil, apierror.MomentNotAvailable
	}

	appointment := &entity.Appointment{
		UID:           uuid.NewString(),
		BeginsAt:      begin,
		EndsAt:        end,
		UserID:        caller.ID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      priority,
		IsMultiPerson: req.IsMultiPerson || len(participantIDs) > 0,
		IsDeleted:     false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, id := range participantIDs {
		appointment.Participants = append(appointment.Participants, &entity.Participant{UserID: id})
	}

	err = a.AppointmentRepo.Save(appointment)
	if err != nil {
		log.Errorf("failed to save appointment: %v", err)
		return nil, apierror.InternalServerError
	}

	// A missing reminder is not worth failing the booking over.
	reminders := reminder.Plan(appointment, append([]int{caller.ID}, participantIDs...), now)
	if len(reminders) > 0 {
		if err := a.ReminderRepo.SaveAll(reminders); err != nil {
			log.Errorf("failed to schedule reminders for appointment %d: %v", appointment.ID, err)
		}
	}

	a.Audit.Record(entity.ActionAppointmentNew, caller.ID, map[string]any{
		"appointment_id": appointment.ID,
		"begins_at":      appointment.BeginsAt,
		"ends_at":        appointment.EndsAt,
	})
	return toAppointmentResponse(appointment), nil
}

// DeleteAppointment soft-deletes an appointment. Only its owner or an admin may do so.
func (a *DefaultAppointmentService) DeleteAppointment(id int, issuerSub string) apierror.ErrorResponse {
	caller, err := a.UserRepo.FindBySub(issuerSub)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", issuerSub, err)
		return apierror.InternalServerError
	}

	appt, err := a.AppointmentRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch appointment by id %d: %v", id, err)
		return apierror.InternalServerError
	}

	if caller == nil || appt == nil || appt.IsDeleted {
		return apierror.NotFoundError
	}

	if appt.UserID != caller.ID && !caller.IsAdmin() {
		return apierror.NotFoundError
	}

	appt.UpdatedAt = a.now()
	err = a.AppointmentRepo.Delete(appt)
	if err != nil {
		log.Errorf("failed to delete appointment by id %d: %v", id, err)
		return apierror.InternalServerError
	}

	a.Audit.Record(entity.ActionAppointmentDel, caller.ID, map[string]any{
		"appointment_id": appt.ID,
		"owner_id":       appt.UserID,
	})
	return nil
}

// GetCalendar lists the busy ranges of the caller's own calendar for a month.
func (a *DefaultAppointmentService) GetCalendar(monthStart, monthEnd int64, subId string) (*CalendarResponse, apierror.ErrorResponse) {
	caller, apierr := a.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	appts, err := a.AppointmentRepo.FindMonthAppointments(caller.ID, monthStart, monthEnd)
	if err != nil {
		log.Errorf("failed to fetch appointments availability [%d - %d]: %v", monthStart, monthEnd, err)
		return nil, apierror.InternalServerError
	}

	schedDays := make([]*ScheduledDay, len(appts))
	for i, appt := range appts {
		schedDays[i] = toScheduledDay(appt)
	}

	resp := &CalendarResponse{
		ScheduledDays: schedDays,
	}
	return resp, nil
}

// ExportCalendar renders every appointment the caller owns or joins as iCalendar.
func (a *DefaultAppointmentService) ExportCalendar(subId string) ([]byte, apierror.ErrorResponse) {
	caller, apierr := a.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	appts, err := a.AppointmentRepo.FindByUserID(caller.ID)
	if err != nil {
		log.Errorf("failed to find appointments for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	var buf bytes.Buffer
	if err := calendar.Encode(&buf, appts, time.UnixMilli(a.now())); err != nil {
		log.Errorf("failed to export calendar for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}
	return buf.Bytes(), nil
}

func (a *DefaultAppointmentService) fetchCaller(subId string) (*entity.User, apierror.ErrorResponse) {
	return fetchCaller(a.UserRepo, subId)
}

// fetchCaller resolves the token subject to a local user. A valid token without
// a local user is treated as an invalid one.
func fetchCaller(users UserRepository, subId string) (*entity.User, apierror.ErrorResponse) {
	caller, err := users.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.InvalidAuthTokenError
	}
	return caller, nil
}

func (a *DefaultAppointmentService) checkParticipants(ids []int) apierror.ErrorResponse {
	if len(ids) == 0 {
		return nil
	}

	users, err := a.UserRepo.FindByIDs(ids)
	if err != nil {
		log.Errorf("failed to fetch participants %v: %v", ids, err)
		return apierror.InternalServerError
	}

	if len(users) != len(ids) {
		return apierror.ParticipantsError
	}
	return nil
}

func toScheduledDay(appt *entity.Appointment) *ScheduledDay {
	return &ScheduledDay{
		BeginsAt: utils.FormatEpoch(appt.BeginsAt),
		EndsAt:   utils.FormatEpoch(appt.EndsAt),
	}
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	participants := make([]int, len(appt.Participants))
	for i, p := range appt.Participants {
		participants[i] = p.UserID
	}

	return &AppointmentResponse{
		ID:             appt.ID,
		UID:            appt.UID,
		UserID:         appt.UserID,
		IsDeleted:      appt.IsDeleted,
		Title:          appt.Title,
		Description:    appt.Description,
		Priority:       string(appt.Priority),
		IsMultiPerson:  appt.IsMultiPerson,
		ParticipantIDs: participants,
		BeginsAt:       utils.FormatEpoch(appt.BeginsAt),
		EndsAt:         utils.FormatEpoch(appt.EndsAt),
		CreatedAt:      utils.FormatEpoch(appt.CreatedAt),
		UpdatedAt:      utils.FormatEpoch(appt.UpdatedAt),
	}
}
