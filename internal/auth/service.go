package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/blog/internal/models"
)

const (
	// DefaultResetPassword is the secret an administrator reset assigns.
	DefaultResetPassword = "1234"
	// MinPasswordLen applies to registration and password changes alike.
	MinPasswordLen = 4
)

// UserStore is the slice of the credential store the account lifecycle needs.
type UserStore interface {
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string, mustReset bool) error
	ToggleActive(ctx context.Context, id int64) (bool, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Admin is the configured administrator credential. An empty Identifier
// disables administrator login.
type Admin struct {
	Identifier string
	Hash       []byte
}

// AdminFromConfig builds the administrator credential from either a plain
// secret, hashed once here, or a precomputed bcrypt hash.
func AdminFromConfig(identifier, plain, hash string) (Admin, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return Admin{}, nil
	}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return Admin{}, oops.Code("ADMIN_HASH_INVALID").Wrap(err)
		}
		return Admin{Identifier: identifier, Hash: []byte(hash)}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, oops.Code("ADMIN_HASH_FAILED").Wrap(err)
	}
	return Admin{Identifier: identifier, Hash: h}, nil
}

// Service implements authentication and the account lifecycle.
type Service struct {
	users UserStore
	admin Admin
	cost  int
}

type Option func(*Service)

// WithBcryptCost overrides the hashing cost for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(users UserStore, admin Admin, opts ...Option) *Service {
	s := &Service{users: users, admin: admin, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeIdentifier trims and lower-cases a login identifier.
func NormalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Authenticate checks a login attempt. The administrator credential is
// tried first; otherwise the identifier is a handle matched
// case-insensitively. The returned user is nil for the administrator.
func (s *Service) Authenticate(ctx context.Context, identifier, secret string) (Principal, *models.User, error) {
	identifier = NormalizeIdentifier(identifier)

	if s.admin.Identifier != "" && identifier == s.admin.Identifier {
		if bcrypt.CompareHashAndPassword(s.admin.Hash, []byte(secret)) == nil {
			return Principal{Kind: Administrator, Handle: s.admin.Identifier}, nil, nil
		}
	}

	u, err := s.users.GetUserByHandle(ctx, identifier)
	if errors.Is(err, models.ErrNotFound) {
		return Principal{}, nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(secret)) != nil {
		return Principal{}, nil, models.ErrInvalidCredentials
	}
	if !u.Active {
		return Principal{}, u, models.ErrAccountBanned
	}
	return UserPrincipal(u), u, nil
}

// UserPrincipal builds the RegisteredUser principal for u.
func UserPrincipal(u *models.User) Principal {
	return Principal{Kind: RegisteredUser, UserID: u.ID, Handle: u.Handle, Avatar: u.Avatar}
}

// Register creates an active account with no pending reset.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Handle) == "" ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, models.ErrEmptyField
	}
	if len(req.Password) < MinPasswordLen {
		return nil, models.ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return s.users.CreateUser(ctx, models.NewUser(req.Name, req.Handle, req.Email, string(hash)))
}

// ChangePassword replaces the user's own secret. Checks run in order:
// confirmation, length, then the current secret unless a forced reset is
// pending. Success clears the forced-reset flag.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req models.PasswordChange) error {
	if req.New == "" {
		return models.ErrEmptyField
	}
	if req.New != req.Confirm {
		return models.ErrPasswordMismatch
	}
	if len(req.New) < MinPasswordLen {
		return models.ErrPasswordTooShort
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.MustResetPassword {
		if req.Current == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Current)) != nil {
			return models.ErrWrongCurrentPassword
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), s.cost)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash), false)
}

// AdminResetPassword sets the target's secret to DefaultResetPassword and
// flags it for a forced change.
func (s *Service) AdminResetPassword(ctx context.Context, p Principal, targetID int64) error {
	if !CanModifyUser(p, targetID) {
		return models.ErrNotAuthorized
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultResetPassword), s.cost)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return s.users.UpdatePassword(ctx, targetID, string(hash), true)
}

// ToggleActive flips the target's standing and returns the new state.
func (s *Service) ToggleActive(ctx context.Context, p Principal, targetID int64) (bool, error) {
	if !CanModifyUser(p, targetID) {
		return false, models.ErrNotAuthorized
	}
	return s.users.ToggleActive(ctx, targetID)
}

// DeleteUser removes the target account and, by cascade, its posts.
func (s *Service) DeleteUser(ctx context.Context, p Principal, targetID int64) error {
	if !CanModifyUser(p, targetID) {
		return models.ErrNotAuthorized
	}
	return s.users.DeleteUser(ctx, targetID)
}

// RequireNotBanned re-reads a registered user's live record. Administrators
// are exempt and get a nil user back.
func (s *Service) RequireNotBanned(ctx context.Context, p Principal) (*models.User, error) {
	switch p.Kind {
	case Administrator:
		return nil, nil
	case Anonymous:
		return nil, models.ErrNotLoggedIn
	}
	u, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return u, models.ErrAccountBanned
	}
	return u, nil
}

// Lookup returns the live record behind a registered principal.
func (s *Service) Lookup(ctx context.Context, p Principal) (*models.User, error) {
	if !p.IsUser() {
		return nil, models.ErrNotLoggedIn
	}
	return s.users.GetUserByID(ctx, p.UserID)
}
