package service

import (
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/domain/sqlite"
	"slotwise/cmd/internal/domain/sqlite/repository"
	cognitoclient "slotwise/cmd/internal/integration/aws/cognito"
	"slotwise/cmd/internal/utils/validators"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 2024-06-03 is a Monday.
var testNow = time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.Init(":memory:")
	require.NoError(t, err)
	return db
}

func newValidator() *validator.Validate {
	v := validator.New()
	validators.Register(v)
	return v
}

func seedUser(t *testing.T, db *gorm.DB, sub string, role entity.Role) *entity.User {
	t.Helper()
	user := &entity.User{SubUUID: sub, Username: sub, Email: sub + "@example.com", Role: role}
	require.NoError(t, repository.NewUserRepository(db).Save(user))
	return user
}

type recordedEntry struct {
	Action    string
	SubjectID int
	Payload   any
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (f *fakeRecorder) Record(action string, subjectID int, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedEntry{Action: action, SubjectID: subjectID, Payload: payload})
}

func (f *fakeRecorder) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type fakeCognito struct {
	sub        string
	signUpErr  error
	signInErr  error
	confirmErr error
	deleted    []string
}

func (f *fakeCognito) SignUp(*cognitoclient.User) (string, error) {
	return f.sub, f.signUpErr
}

func (f *fakeCognito) SignIn(*cognitoclient.UserLogin) (*cognitoclient.AuthCreate, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &cognitoclient.AuthCreate{AccessToken: "access", IDToken: "id"}, nil
}

func (f *fakeCognito) ConfirmAccount(*cognitoclient.UserConfirmation) error {
	return f.confirmErr
}

func (f *fakeCognito) AdminDeleteUser(email string) error {
	f.deleted = append(f.deleted, email)
	return nil
}
