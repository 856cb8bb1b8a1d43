package service

import (
	"context"
	"encoding/json"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"gorm.io/datatypes"
)

type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditLog) error
	List(filter entity.AuditFilter) ([]*entity.AuditLog, error)
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type AuditLogsRequest struct {
	Action    string `query:"action" validate:"max=64"`
	SubjectID int    `query:"subject_id" validate:"min=0"`
	Limit     int    `query:"limit" validate:"min=0,max=500"`
}

type AuditLogResponse struct {
	ID        int             `json:"id"`
	Action    string          `json:"action"`
	SubjectID int             `json:"subject_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

type RoleChangePayload struct {
	From      entity.Role `json:"from"`
	To        entity.Role `json:"to"`
	ChangedBy int         `json:"changed_by"`
}

type DefaultAdminService struct {
	UserRepo  UserRepository
	AuditRepo AuditRepository
	Validate  *validator.Validate
}

func NewAdminService(userRepo UserRepository, auditRepo AuditRepository, validate *validator.Validate) *DefaultAdminService {
	return &DefaultAdminService{UserRepo: userRepo, AuditRepo: auditRepo, Validate: validate}
}

// UpdateRole changes a user's role on behalf of an admin and records who did it.
func (s *DefaultAdminService) UpdateRole(ctx context.Context, rawId string, req *RoleRequest, subId string) (*UserResponse, apierror.ErrorResponse) {
	caller, apierr := fetchCaller(s.UserRepo, subId)
	if apierr != nil {
		return nil, apierr
	}

	if !caller.IsAdmin() {
		return nil, apierror.ForbiddenError
	}

	id, err := strconv.Atoi(rawId)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("id", "int32")
	}

	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	role := entity.Role(req.Role)
	if id == caller.ID && role != entity.RoleAdmin {
		return nil, apierror.SelfDemotionError
	}

	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to find user (%d) by id: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if user == nil {
		return nil, apierror.NotFoundError
	}

	if apierr := s.changeRole(ctx, user, role, caller.ID); apierr != nil {
		return nil, apierr
	}
	return toUserResponse(user, true), nil
}

// GrantRole is the bootstrap path used from the command line, where there is no caller.
func (s *DefaultAdminService) GrantRole(ctx context.Context, email string, role entity.Role) apierror.ErrorResponse {
	if !role.IsValid() {
		return apierror.InvalidRoleError
	}

	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		log.Errorf("failed to find user (%s) by email: %v", email, err)
		return apierror.InternalServerError
	}
	if user == nil {
		return apierror.NotFoundError
	}
	return s.changeRole(ctx, user, role, 0)
}

func (s *DefaultAdminService) ListAuditLogs(req *AuditLogsRequest) ([]*AuditLogResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	entries, err := s.AuditRepo.List(entity.AuditFilter{Action: req.Action, SubjectID: req.SubjectID, Limit: req.Limit})
	if err != nil {
		log.Errorf("failed to list audit logs: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*AuditLogResponse, len(entries))
	for i, entry := range entries {
		resp[i] = toAuditLogResponse(entry)
	}
	return resp, nil
}

// changeRole writes the audit entry synchronously. A role change without a trail is
// not acceptable, so the update is reported as failed when the entry cannot be stored.
func (s *DefaultAdminService) changeRole(ctx context.Context, user *entity.User, role entity.Role, by int) apierror.ErrorResponse {
	if user.Role == role {
		return nil
	}

	payload, err := json.Marshal(&RoleChangePayload{From: user.Role, To: role, ChangedBy: by})
	if err != nil {
		log.Errorf("failed to encode role change for user %d: %v", user.ID, err)
		return apierror.InternalServerError
	}

	previous := user.Role
	user.Role = role
	user.UpdatedAt = utils.NowUTC()
	if err := s.UserRepo.Save(user); err != nil {
		user.Role = previous
		log.Errorf("failed to update role of user %d: %v", user.ID, err)
		return apierror.InternalServerError
	}

	entry := &entity.AuditLog{Action: entity.ActionRoleChange, SubjectID: user.ID, Payload: datatypes.JSON(payload)}
	if err := s.AuditRepo.Append(ctx, entry); err != nil {
		log.Errorf("failed to audit role change of user %d (%s -> %s): %v", user.ID, previous, role, err)
		return apierror.InternalServerError
	}

	log.Infof("user %d role changed from %s to %s by %d", user.ID, previous, role, by)
	return nil
}

func toAuditLogResponse(entry *entity.AuditLog) *AuditLogResponse {
	payload := json.RawMessage(entry.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return &AuditLogResponse{
		ID:        entry.ID,
		Action:    entry.Action,
		SubjectID: entry.SubjectID,
		Payload:   payload,
		CreatedAt: utils.FormatEpoch(entry.CreatedAt),
	}
}
