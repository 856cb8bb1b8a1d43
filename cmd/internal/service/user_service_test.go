package service

import (
	"context"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/domain/sqlite/repository"
	"slotwise/cmd/internal/integration/devidp"
	"slotwise/cmd/internal/utils/apierror"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var _ IdentityProvider = (*devidp.Provider)(nil)

func newUserService(t *testing.T) (*DefaultUserService, *fakeCognito, *gorm.DB) {
	t.Helper()
	svc, cognito, _, db := newUserServiceWithAudit(t)
	return svc, cognito, db
}

func newUserServiceWithAudit(t *testing.T) (*DefaultUserService, *fakeCognito, *fakeRecorder, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cognito := &fakeCognito{sub: "new-sub"}
	recorder := &fakeRecorder{}
	svc := NewUserService(
		repository.NewUserRepository(db), repository.NewAppointmentRepository(db), recorder, newValidator(), cognito,
	)
	svc.now = func() int64 { return testNow.UnixMilli() }
	return svc, cognito, recorder, db
}

func validSignup() *CreateUserRequest {
	return &CreateUserRequest{Username: "Ana", Email: "ana@example.com", Password: "Secret#123"}
}

func TestCreateUser(t *testing.T) {
	svc, _, recorder, db := newUserServiceWithAudit(t)

	require.Nil(t, svc.CreateUser(validSignup()))

	user, err := repository.NewUserRepository(db).FindBySub("new-sub")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, []string{entity.ActionUserSignup}, recorder.actions())

	assert.Equal(t, apierror.UserAlreadyExistsError, svc.CreateUser(validSignup()))
}

func TestCreateUser_WeakPassword(t *testing.T) {
	svc, _, _ := newUserService(t)

	req := validSignup()
	req.Password = "password"
	apierr := svc.CreateUser(req)
	require.NotNil(t, apierr)
	assert.IsType(t, &apierror.ValidationError{}, apierr)
}

func TestCreateUser_MapsCognitoErrors(t *testing.T) {
	tests := []struct {
		code string
		want apierror.ErrorResponse
	}{
		{"InvalidPasswordException", apierror.IDPInvalidPasswordError},
		{"UsernameExistsException", apierror.IDPExistingEmailError},
		{"TooManyRequestsException", apierror.InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc, cognito, _ := newUserService(t)
			cognito.signUpErr = &smithy.GenericAPIError{Code: tt.code}
			assert.Equal(t, tt.want, svc.CreateUser(validSignup()))
		})
	}
}

func TestLoginAndConfirm(t *testing.T) {
	svc, cognito, db := newUserService(t)

	_, apierr := svc.Login(&UserLoginRequest{Email: "ana@example.com", Password: "Secret#123"})
	assert.Equal(t, apierror.IDPUserNotFoundError, apierr)

	require.Nil(t, svc.CreateUser(validSignup()))

	cognito.signInErr = &smithy.GenericAPIError{Code: "UserNotConfirmedException"}
	_, apierr = svc.Login(&UserLoginRequest{Email: "ana@example.com", Password: "Secret#123"})
	assert.Equal(t, apierror.IDPUserNotConfirmedError, apierr)

	require.Nil(t, svc.ConfirmSignup(&ConfirmSignupRequest{Email: "ana@example.com", Code: "123456"}))
	assert.Equal(t, apierror.UserAlreadyConfirmedError, svc.ConfirmSignup(&ConfirmSignupRequest{Email: "ana@example.com", Code: "123456"}))

	user, err := repository.NewUserRepository(db).FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	cognito.signInErr = nil
	auth, apierr := svc.Login(&UserLoginRequest{Email: "ana@example.com", Password: "Secret#123"})
	require.Nil(t, apierr)
	assert.Equal(t, "access", auth.AccessToken)
}

func TestLogin_MarksConfirmedAccountsVerified(t *testing.T) {
	svc, _, db := newUserService(t)
	require.Nil(t, svc.CreateUser(validSignup()))

	// Confirmed outside of this API, e.g. through the provider's hosted UI.
	_, apierr := svc.Login(&UserLoginRequest{Email: "ana@example.com", Password: "Secret#123"})
	require.Nil(t, apierr)

	user, err := repository.NewUserRepository(db).FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, apierror.UserAlreadyConfirmedError, svc.ConfirmSignup(&ConfirmSignupRequest{Email: "ana@example.com", Code: "123456"}))
}

func TestConfirmSignup_MapsCognitoErrors(t *testing.T) {
	tests := []struct {
		code string
		want apierror.ErrorResponse
	}{
		{"CodeMismatchException", apierror.IDPConfirmCodeMismatchError},
		{"ExpiredCodeException", apierror.IDPConfirmCodeExpiredError},
		{"UserNotFoundException", apierror.IDPUserNotFoundError},
		{"LimitExceededException", apierror.InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc, cognito, _ := newUserService(t)
			require.Nil(t, svc.CreateUser(validSignup()))
			cognito.confirmErr = &smithy.GenericAPIError{Code: tt.code}
			assert.Equal(t, tt.want, svc.ConfirmSignup(&ConfirmSignupRequest{Email: "ana@example.com", Code: "123456"}))
		})
	}
}

func TestGetUser(t *testing.T) {
	svc, _, db := newUserService(t)
	admin := seedUser(t, db, "boss", entity.RoleAdmin)
	ana := seedUser(t, db, "ana", entity.RoleUser)
	bob := seedUser(t, db, "bob", entity.RoleUser)

	me, apierr := svc.GetUser(context.Background(), MeID, "boss")
	require.Nil(t, apierr)
	assert.Equal(t, admin.ID, me.ID)
	assert.Equal(t, "admin", me.Role)
	assert.True(t, me.IsAdmin)
	require.NotNil(t, me.Email)
	assert.Equal(t, "boss@example.com", *me.Email)
	require.NotNil(t, me.Upcoming)
	assert.Zero(t, me.Upcoming.Count)
	assert.Nil(t, me.Upcoming.NextBeginsAt)

	// Users see each other without contact details.
	peer, apierr := svc.GetUser(context.Background(), itoa(bob.ID), "ana")
	require.Nil(t, apierr)
	assert.Equal(t, "bob", peer.Username)
	assert.Nil(t, peer.Email)
	assert.Nil(t, peer.EmailVerified)
	assert.Nil(t, peer.Upcoming)

	staff, apierr := svc.GetUser(context.Background(), itoa(ana.ID), "boss")
	require.Nil(t, apierr)
	require.NotNil(t, staff.Email)
	assert.Equal(t, "ana@example.com", *staff.Email)
	assert.Nil(t, staff.Upcoming)

	_, apierr = svc.GetUser(context.Background(), "nope", "boss")
	assert.Equal(t, 400, apierr.Code())

	_, apierr = svc.GetUser(context.Background(), "999", "boss")
	assert.Equal(t, apierror.NotFoundError, apierr)

	_, apierr = svc.GetUser(context.Background(), MeID, "ghost")
	assert.Equal(t, apierror.InvalidAuthTokenError, apierr)
}

func TestGetUser_UpcomingSummary(t *testing.T) {
	svc, _, db := newUserService(t)
	ana := seedUser(t, db, "ana", entity.RoleUser)

	past := testNow.Add(-24 * time.Hour)
	next := testNow.Add(26 * time.Hour)
	later := testNow.Add(50 * time.Hour)
	for i, begin := range []time.Time{later, past, next} {
		require.NoError(t, db.Create(&entity.Appointment{
			UID: "a" + itoa(i), UserID: ana.ID, Title: "Review",
			BeginsAt: begin.UnixMilli(), EndsAt: begin.Add(30 * time.Minute).UnixMilli(),
			Priority: entity.PriorityMedium,
		}).Error)
	}

	me, apierr := svc.GetUser(context.Background(), itoa(ana.ID), "ana")
	require.Nil(t, apierr)
	require.NotNil(t, me.Upcoming)
	assert.Equal(t, 2, me.Upcoming.Count)
	require.NotNil(t, me.Upcoming.NextBeginsAt)
	assert.Equal(t, "2024-06-04T10:00:00Z", *me.Upcoming.NextBeginsAt)
}

func TestGetUsers(t *testing.T) {
	svc, _, db := newUserService(t)
	seedUser(t, db, "boss", entity.RoleAdmin)
	seedUser(t, db, "mod", entity.RoleModerator)
	seedUser(t, db, "ana", entity.RoleUser)

	all, apierr := svc.GetUsers(&UsersRequest{}, "ana")
	require.Nil(t, apierr)
	require.Len(t, all, 3)
	for _, u := range all {
		assert.Equal(t, u.Username == "ana", u.Email != nil, u.Username)
	}

	staff, apierr := svc.GetUsers(&UsersRequest{Role: "moderator"}, "mod")
	require.Nil(t, apierr)
	require.Len(t, staff, 1)
	assert.Equal(t, "mod", staff[0].Username)

	admins, apierr := svc.GetUsers(&UsersRequest{Role: "admin"}, "mod")
	require.Nil(t, apierr)
	require.Len(t, admins, 1)
	require.NotNil(t, admins[0].Email)

	_, apierr = svc.GetUsers(&UsersRequest{Role: "root"}, "mod")
	require.NotNil(t, apierr)
	assert.IsType(t, &apierror.ValidationError{}, apierr)
}
