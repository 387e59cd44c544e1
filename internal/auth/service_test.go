package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/blog/internal/models"
	"github.com/ayush/blog/internal/store"
)

func adminCred(t *testing.T) Admin {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return Admin{Identifier: "root", Hash: h}
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return NewService(mem, adminCred(t), WithBcryptCost(bcrypt.MinCost)), mem
}

func register(t *testing.T, s *Service, handle, email, pw string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), models.RegisterRequest{Name: handle, Handle: handle, Email: email, Password: pw})
	require.NoError(t, err)
	return u
}

// fakeUsers lets individual tests inject store failures.
type fakeUsers struct {
	UserStore
	getByHandle func(ctx context.Context, handle string) (*models.User, error)
}

func (f *fakeUsers) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	return f.getByHandle(ctx, handle)
}

func TestAuthenticate(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()
	ana := register(t, s, "ana", "a@x.com", "pwpw")

	p, u, err := s.Authenticate(ctx, "  ANA ", "pwpw")
	require.NoError(t, err)
	assert.Equal(t, RegisteredUser, p.Kind)
	assert.Equal(t, ana.ID, p.UserID)
	assert.Equal(t, "ana", u.Handle)

	_, _, err = s.Authenticate(ctx, "ana", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = s.Authenticate(ctx, "nobody", "pwpw")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = mem.ToggleActive(ctx, ana.ID)
	require.NoError(t, err)
	p, _, err = s.Authenticate(ctx, "ana", "pwpw")
	require.ErrorIs(t, err, models.ErrAccountBanned)
	assert.True(t, p.IsAnonymous())

	// A banned account with a wrong secret still reads as bad credentials.
	_, _, err = s.Authenticate(ctx, "ana", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthenticate_Admin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	p, u, err := s.Authenticate(ctx, " Root ", "s3cret")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.Nil(t, u)
	assert.Equal(t, "root", p.Name())

	_, _, err = s.Authenticate(ctx, "root", "S3CRET")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthenticate_AdminDisabled(t *testing.T) {
	s := NewService(store.NewMemoryStore(), Admin{}, WithBcryptCost(bcrypt.MinCost))
	_, _, err := s.Authenticate(context.Background(), "", "")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthenticate_StoreFailureIsNotACredentialFailure(t *testing.T) {
	boom := errors.Join(models.ErrStoreUnavailable, errors.New("connection refused"))
	s := NewService(&fakeUsers{getByHandle: func(context.Context, string) (*models.User, error) {
		return nil, boom
	}}, Admin{})

	_, _, err := s.Authenticate(context.Background(), "ana", "pwpw")
	require.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestRegister(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	u := register(t, s, "ana", "a@x.com", "pwpw")
	assert.True(t, u.Active)
	assert.False(t, u.MustResetPassword)
	assert.NotEqual(t, "pwpw", u.PasswordHash)

	_, err := s.Register(ctx, models.RegisterRequest{Name: "Other", Handle: "ana", Email: "b@x.com", Password: "pwpw"})
	require.ErrorIs(t, err, models.ErrDuplicateRegistration)

	_, err = s.Register(ctx, models.RegisterRequest{Name: "B", Handle: "b", Email: "", Password: "pwpw"})
	require.ErrorIs(t, err, models.ErrEmptyField)

	_, err = s.Register(ctx, models.RegisterRequest{Name: "B", Handle: "b", Email: "b@x.com", Password: "abc"})
	require.ErrorIs(t, err, models.ErrPasswordTooShort)
}

func TestChangePassword_Order(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()
	ana := register(t, s, "ana", "a@x.com", "pwpw")
	before, err := mem.GetUserByID(ctx, ana.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     models.PasswordChange
		wantErr error
	}{
		{"mismatch wins over short", models.PasswordChange{Current: "bad", New: "ab", Confirm: "cd"}, models.ErrPasswordMismatch},
		{"short wins over wrong current", models.PasswordChange{Current: "bad", New: "ab", Confirm: "ab"}, models.ErrPasswordTooShort},
		{"wrong current", models.PasswordChange{Current: "bad", New: "abcd", Confirm: "abcd"}, models.ErrWrongCurrentPassword},
		{"missing current", models.PasswordChange{New: "abcd", Confirm: "abcd"}, models.ErrWrongCurrentPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, s.ChangePassword(ctx, ana.ID, tt.req), tt.wantErr)
			after, err := mem.GetUserByID(ctx, ana.ID)
			require.NoError(t, err)
			assert.Equal(t, before.PasswordHash, after.PasswordHash)
		})
	}

	require.NoError(t, s.ChangePassword(ctx, ana.ID, models.PasswordChange{Current: "pwpw", New: "abcd", Confirm: "abcd"}))
	_, _, err = s.Authenticate(ctx, "ana", "abcd")
	require.NoError(t, err)
}

func TestAdminReset_ThenForcedChange(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()
	ana := register(t, s, "ana", "a@x.com", "pwpw")
	admin := Principal{Kind: Administrator, Handle: "root"}

	require.NoError(t, s.AdminResetPassword(ctx, admin, ana.ID))

	p, u, err := s.Authenticate(ctx, "ana", DefaultResetPassword)
	require.NoError(t, err)
	assert.True(t, u.MustResetPassword)

	// The forced reset skips the current-secret check once.
	require.NoError(t, s.ChangePassword(ctx, p.UserID, models.PasswordChange{New: "abcd", Confirm: "abcd"}))
	after, err := mem.GetUserByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, after.MustResetPassword)

	err = s.ChangePassword(ctx, p.UserID, models.PasswordChange{New: "efgh", Confirm: "efgh"})
	require.ErrorIs(t, err, models.ErrWrongCurrentPassword)
}

func TestAdminActions_RequireAdmin(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()
	ana := register(t, s, "ana", "a@x.com", "pwpw")
	bob := register(t, s, "bob", "b@x.com", "pwpw")
	asBob := UserPrincipal(bob)

	require.ErrorIs(t, s.AdminResetPassword(ctx, asBob, ana.ID), models.ErrNotAuthorized)
	_, err := s.ToggleActive(ctx, asBob, ana.ID)
	require.ErrorIs(t, err, models.ErrNotAuthorized)
	require.ErrorIs(t, s.DeleteUser(ctx, asBob, ana.ID), models.ErrNotAuthorized)

	u, err := mem.GetUserByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, u.Active)
	assert.False(t, u.MustResetPassword)
}

func TestAdminActions_MissingTarget(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	admin := Principal{Kind: Administrator, Handle: "root"}

	require.ErrorIs(t, s.AdminResetPassword(ctx, admin, 42), models.ErrNotFound)
	_, err := s.ToggleActive(ctx, admin, 42)
	require.ErrorIs(t, err, models.ErrNotFound)
	require.ErrorIs(t, s.DeleteUser(ctx, admin, 42), models.ErrNotFound)
}

func TestToggleTwiceRestores(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	ana := register(t, s, "ana", "a@x.com", "pwpw")
	admin := Principal{Kind: Administrator, Handle: "root"}

	active, err := s.ToggleActive(ctx, admin, ana.ID)
	require.NoError(t, err)
	assert.False(t, active)
	active, err = s.ToggleActive(ctx, admin, ana.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRequireNotBanned(t *testing.T) {
	s, mem := newTestService(t)
	ctx := context.Background()
	ana := register(t, s, "ana", "a@x.com", "pwpw")
	p := UserPrincipal(ana)

	_, err := s.RequireNotBanned(ctx, p)
	require.NoError(t, err)

	_, err = mem.ToggleActive(ctx, ana.ID)
	require.NoError(t, err)
	_, err = s.RequireNotBanned(ctx, p)
	require.ErrorIs(t, err, models.ErrAccountBanned)

	_, err = s.RequireNotBanned(ctx, Principal{Kind: Administrator})
	require.NoError(t, err)

	_, err = s.RequireNotBanned(ctx, Principal{})
	require.ErrorIs(t, err, models.ErrNotLoggedIn)

	require.NoError(t, mem.DeleteUser(ctx, ana.ID))
	_, err = s.RequireNotBanned(ctx, p)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestAdminFromConfig(t *testing.T) {
	a, err := AdminFromConfig("", "x", "")
	require.NoError(t, err)
	assert.Empty(t, a.Identifier)

	a, err = AdminFromConfig(" Root ", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, "root", a.Identifier)
	assert.NoError(t, bcrypt.CompareHashAndPassword(a.Hash, []byte("s3cret")))

	h, err := bcrypt.GenerateFromPassword([]byte("other"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err = AdminFromConfig("root", "ignored", string(h))
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(a.Hash, []byte("other")))

	_, err = AdminFromConfig("root", "", "not-a-hash")
	assert.Error(t, err)
}
