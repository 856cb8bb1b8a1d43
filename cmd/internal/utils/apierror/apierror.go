package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is what services hand back to routes. It is rendered as the JSON body
// with Code() as the HTTP status.
type ErrorResponse interface {
	error
	Code() int
}

type SimpleError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *SimpleError) Error() string { return e.Message }
func (e *SimpleError) Code() int     { return e.Status }

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

type ValidationError struct {
	Message string        `json:"message"`
	Fields  []*FieldError `json:"fields"`
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Code() int     { return http.StatusBadRequest }

func NewSimple(status int, message string) *SimpleError {
	return &SimpleError{Status: status, Message: message}
}

func NewMissingParamError(param string) *SimpleError {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Missing required parameter '%s'", param))
}

func NewInvalidParamTypeError(param, expected string) *SimpleError {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Parameter '%s' must be of type %s", param, expected))
}

func FromValidationError(err error) ErrorResponse {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return MalformedBodyError
	}

	fields := make([]*FieldError, len(valErrs))
	for i, fe := range valErrs {
		fields[i] = &FieldError{
			Field: strings.ToLower(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		}
	}
	return &ValidationError{Message: "Request validation failed", Fields: fields}
}

var (
	InternalServerError   = NewSimple(http.StatusInternalServerError, "Something went wrong on our side")
	MalformedBodyError    = NewSimple(http.StatusBadRequest, "Could not understand the request body")
	NotFoundError         = NewSimple(http.StatusNotFound, "Resource not found")
	InvalidAuthTokenError = NewSimple(http.StatusUnauthorized, "Invalid or missing authentication token")
	ForbiddenError        = NewSimple(http.StatusForbidden, "You are not allowed to do that")

	MinuteNotExactError    = NewSimple(http.StatusBadRequest, "Appointments must start and end on an exact minute")
	InvalidIntervalError   = NewSimple(http.StatusBadRequest, "Appointment must end after it begins")
	AppointmentInPastError = NewSimple(http.StatusBadRequest, "Appointment must start in the future")
	MomentNotAvailable     = NewSimple(http.StatusConflict, "This moment is already taken")
	InvalidPriorityError   = NewSimple(http.StatusBadRequest, "Unknown priority level")
	ParticipantsError      = NewSimple(http.StatusBadRequest, "One or more participants do not exist")
	InvalidRoleError       = NewSimple(http.StatusBadRequest, "Unknown role")
	SelfDemotionError      = NewSimple(http.StatusBadRequest, "Admins cannot remove their own admin role")

	UserAlreadyExistsError    = NewSimple(http.StatusConflict, "A user with this email already exists")
	UserAlreadyConfirmedError = NewSimple(http.StatusConflict, "User already confirmed")

	IDPInvalidPasswordError     = NewSimple(http.StatusBadRequest, "Password does not meet the identity provider policy")
	IDPExistingEmailError       = NewSimple(http.StatusConflict, "Email already registered with the identity provider")
	IDPUserNotFoundError        = NewSimple(http.StatusNotFound, "User not found")
	IDPUserNotConfirmedError    = NewSimple(http.StatusForbidden, "User email is not confirmed")
	IDPCredentialsMismatchError = NewSimple(http.StatusUnauthorized, "Email or password do not match")
	IDPConfirmCodeMismatchError = NewSimple(http.StatusBadRequest, "Confirmation code does not match")
	IDPConfirmCodeExpiredError  = NewSimple(http.StatusGone, "Confirmation code expired")
)
