package service

import (
	"context"
	"errors"
	"slotwise/cmd/internal/domain/entity"
	cognitoclient "slotwise/cmd/internal/integration/aws/cognito"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"
	"strconv"

	"github.com/aws/smithy-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

// MeID stands for the caller wherever a user id is expected.
const MeID = "@me"

type UserRepository interface {
	FindByID(id int) (*entity.User, error)
	FindBySub(sub string) (*entity.User, error)
	FindAll() ([]*entity.User, error)
	FindByEmail(email string) (*entity.User, error)
	FindByIDs(ids []int) ([]*entity.User, error)
	ExistsByEmail(email string) (bool, error)
	Save(user *entity.User) error
}

// IdentityProvider owns passwords and issues tokens. Cognito in production,
// devidp when AUTH_MODE=hmac.
type IdentityProvider interface {
	SignUp(user *cognitoclient.User) (string, error)
	SignIn(login *cognitoclient.UserLogin) (*cognitoclient.AuthCreate, error)
	ConfirmAccount(confirmation *cognitoclient.UserConfirmation) error
	AdminDeleteUser(email string) error
}

type UpcomingAppointments interface {
	FindUpcomingByUserID(ctx context.Context, userID int, from int64) ([]*entity.Appointment, error)
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64,hasspecial,hasdigit,hasupper,haslower"`
}

type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64"`
}

type ConfirmSignupRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,min=1,max=6"`
}

type UsersRequest struct {
	Role string `query:"role" validate:"omitempty,role"`
}

// UserResponse is the directory view of a user. Contact details are only
// filled in for the user themselves and for staff.
type UserResponse struct {
	ID            int              `json:"id"`
	Username      string           `json:"username"`
	Role          string           `json:"role"`
	IsAdmin       bool             `json:"is_admin"`
	Email         *string          `json:"email,omitempty"`
	EmailVerified *bool            `json:"email_verified,omitempty"`
	Upcoming      *UpcomingSummary `json:"upcoming,omitempty"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

type UpcomingSummary struct {
	Count        int     `json:"count"`
	NextBeginsAt *string `json:"next_begins_at"`
}

type UserLoginResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// Identity provider error codes per call. Anything not listed is a 500.
var (
	signupErrors = map[string]apierror.ErrorResponse{
		"InvalidPasswordException": apierror.IDPInvalidPasswordError,
		"UsernameExistsException":  apierror.IDPExistingEmailError,
	}
	signinErrors = map[string]apierror.ErrorResponse{
		"UserNotFoundException":     apierror.IDPUserNotFoundError,
		"UserNotConfirmedException": apierror.IDPUserNotConfirmedError,
		"NotAuthorizedException":    apierror.IDPCredentialsMismatchError,
	}
	confirmErrors = map[string]apierror.ErrorResponse{
		"CodeMismatchException": apierror.IDPConfirmCodeMismatchError,
		"ExpiredCodeException":  apierror.IDPConfirmCodeExpiredError,
		"UserNotFoundException": apierror.IDPUserNotFoundError,
	}
)

type DefaultUserService struct {
	UserRepo    UserRepository
	Appointment UpcomingAppointments
	Audit       AuditRecorder
	Validate    *validator.Validate
	Identity    IdentityProvider

	now func() int64
}

func NewUserService(
	userRepo UserRepository,
	apptRepo UpcomingAppointments,
	audit AuditRecorder,
	validate *validator.Validate,
	identity IdentityProvider,
) *DefaultUserService {
	return &DefaultUserService{
		UserRepo:    userRepo,
		Appointment: apptRepo,
		Audit:       audit,
		Validate:    validate,
		Identity:    identity,
		now:         utils.NowUTC,
	}
}

// GetUsers lists users, optionally only those holding one role.
func (u *DefaultUserService) GetUsers(req *UsersRequest, subId string) ([]*UserResponse, apierror.ErrorResponse) {
	caller, apierr := fetchCaller(u.UserRepo, subId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if valerr := u.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	users, err := u.UserRepo.FindAll()
	if err != nil {
		log.Errorf("failed to fetch all users: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		if req.Role != "" && user.Role != entity.Role(req.Role) {
			continue
		}
		resp = append(resp, toUserResponse(user, canSeeContact(caller, user)))
	}
	return resp, nil
}

// GetUser resolves rawId (a numeric id or MeID). Looking at yourself adds a
// summary of your upcoming appointments.
func (u *DefaultUserService) GetUser(ctx context.Context, rawId, subId string) (*UserResponse, apierror.ErrorResponse) {
	caller, apierr := fetchCaller(u.UserRepo, subId)
	if apierr != nil {
		return nil, apierr
	}

	user, apierr := resolveUser(u.UserRepo, caller, rawId, "id", true)
	if apierr != nil {
		return nil, apierr
	}

	resp := toUserResponse(user, canSeeContact(caller, user))
	if user.ID != caller.ID {
		return resp, nil
	}

	upcoming, err := u.Appointment.FindUpcomingByUserID(ctx, user.ID, u.now())
	if err != nil {
		log.Errorf("failed to fetch upcoming appointments for user %d: %v", user.ID, err)
		return nil, apierror.InternalServerError
	}
	resp.Upcoming = &UpcomingSummary{Count: len(upcoming)}
	if len(upcoming) > 0 {
		next := utils.FormatEpoch(upcoming[0].BeginsAt)
		resp.Upcoming.NextBeginsAt = &next
	}
	return resp, nil
}

// CreateUser registers the account with the identity provider first, then
// stores the local user. A failed local write removes the remote account again.
func (u *DefaultUserService) CreateUser(req *CreateUserRequest) apierror.ErrorResponse {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}

	found, err := u.UserRepo.ExistsByEmail(req.Email)
	if err != nil {
		log.Errorf("failed to check if user already exists: %v", err)
		return apierror.InternalServerError
	}

	if found {
		return apierror.UserAlreadyExistsError
	}

	sub, err := u.Identity.SignUp(&cognitoclient.User{Email: req.Email, Password: req.Password})
	if err != nil {
		return fromIdentityError("signup", req.Email, err, signupErrors)
	}

	now := u.now()
	user := &entity.User{
		SubUUID:   sub,
		Username:  req.Username,
		Email:     req.Email,
		Role:      entity.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.UserRepo.Save(user); err != nil {
		log.Errorf("failed to create user: %v", err)
		if derr := u.Identity.AdminDeleteUser(req.Email); derr != nil {
			log.Errorf("failed to remove orphaned identity %s: %v", req.Email, derr)
		}
		return apierror.InternalServerError
	}

	u.Audit.Record(entity.ActionUserSignup, user.ID, map[string]any{"role": user.Role})
	return nil
}

// Login exchanges credentials for tokens. The provider only signs in confirmed
// accounts, so a successful login also marks the local email as verified.
func (u *DefaultUserService) Login(req *UserLoginRequest) (*UserLoginResponse, apierror.ErrorResponse) {
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	user, apierr := u.fetchByEmail(req.Email)
	if apierr != nil {
		return nil, apierr
	}

	auth, err := u.Identity.SignIn(&cognitoclient.UserLogin{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, fromIdentityError("signin", req.Email, err, signinErrors)
	}

	if !user.EmailVerified {
		u.markVerified(user)
	}
	return &UserLoginResponse{AccessToken: auth.AccessToken, IDToken: auth.IDToken}, nil
}

func (u *DefaultUserService) ConfirmSignup(req *ConfirmSignupRequest) apierror.ErrorResponse {
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}

	user, apierr := u.fetchByEmail(req.Email)
	if apierr != nil {
		return apierr
	}

	if user.EmailVerified {
		return apierror.UserAlreadyConfirmedError
	}

	err := u.Identity.ConfirmAccount(&cognitoclient.UserConfirmation{Email: req.Email, Code: req.Code})
	if err != nil {
		return fromIdentityError("confirmation", req.Email, err, confirmErrors)
	}

	u.markVerified(user)
	return nil
}

func (u *DefaultUserService) fetchByEmail(email string) (*entity.User, apierror.ErrorResponse) {
	user, err := u.UserRepo.FindByEmail(email)
	if err != nil {
		log.Errorf("failed to fetch user from database: %v", err)
		return nil, apierror.InternalServerError
	}
	if user == nil {
		return nil, apierror.IDPUserNotFoundError
	}
	return user, nil
}

// markVerified is best effort. The account is confirmed upstream either way.
func (u *DefaultUserService) markVerified(user *entity.User) {
	user.EmailVerified = true
	user.UpdatedAt = u.now()
	if err := u.UserRepo.Save(user); err != nil {
		log.Errorf("failed to update user (%d) verified status: %v", user.ID, err)
	}
}

// resolveUser turns a path or query value into a user. An empty value or MeID
// is the caller. Anyone else must exist, and is only looked up when others is set.
func resolveUser(users UserRepository, caller *entity.User, rawId, param string, others bool) (*entity.User, apierror.ErrorResponse) {
	if rawId == "" || rawId == MeID {
		return caller, nil
	}

	id, err := strconv.Atoi(rawId)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError(param, "int32")
	}
	if id == caller.ID {
		return caller, nil
	}
	if !others {
		return nil, apierror.ForbiddenError
	}

	user, err := users.FindByID(id)
	if err != nil {
		log.Errorf("failed to find user (%d) by id: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if user == nil {
		return nil, apierror.NotFoundError
	}
	return user, nil
}

func isStaff(user *entity.User) bool {
	return user.HasAnyRole(entity.RoleModerator, entity.RoleAdmin)
}

func canSeeContact(caller, user *entity.User) bool {
	return caller.ID == user.ID || isStaff(caller)
}

func fromIdentityError(op, email string, err error, known map[string]apierror.ErrorResponse) apierror.ErrorResponse {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		log.Errorf("%s failed for user (%s): %v", op, email, err)
		return apierror.InternalServerError
	}

	if mapped, ok := known[apiErr.ErrorCode()]; ok {
		return mapped
	}
	log.Errorf("%s failed for user (%s): %s - %s", op, email, apiErr.ErrorCode(), apiErr.ErrorMessage())
	return apierror.InternalServerError
}

func toUserResponse(user *entity.User, withContact bool) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		IsAdmin:   user.IsAdmin(),
		CreatedAt: utils.FormatEpoch(user.CreatedAt),
		UpdatedAt: utils.FormatEpoch(user.UpdatedAt),
	}
	if withContact {
		resp.Email = &user.Email
		resp.EmailVerified = &user.EmailVerified
	}
	return resp
}
