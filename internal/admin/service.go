package admin

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/logging"
	"github.com/ayush/blog/internal/models"
)

// RecentActions is how many journal entries the dashboard shows.
const RecentActions = 20

type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type PostStore interface {
	ListPosts(ctx context.Context) ([]models.PostView, error)
	CountPosts(ctx context.Context) (int, error)
}

// AvatarRemover drops a deleted user's picture.
type AvatarRemover interface {
	RemoveAvatar(ctx context.Context, name string) error
}

// Journal is the moderation audit trail.
type Journal interface {
	Record(ctx context.Context, ev *models.AuditEvent) error
	Recent(ctx context.Context, limit int64) ([]models.AuditEvent, error)
}

// DashboardView is everything the admin dashboard shows.
type DashboardView struct {
	Users   []models.User
	Posts   []models.PostView
	Stats   models.Stats
	Journal []models.AuditEvent
}

// Service runs the administrator's moderation actions and records each
// successful one in the journal.
type Service struct {
	accounts *auth.Service
	users    UserStore
	posts    PostStore
	avatars  AvatarRemover
	journal  Journal
	log      *zap.Logger
}

func NewService(accounts *auth.Service, users UserStore, posts PostStore, avatars AvatarRemover, journal Journal, log *zap.Logger) *Service {
	return &Service{accounts: accounts, users: users, posts: posts, avatars: avatars, journal: journal, log: log}
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardView, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	var stats models.Stats
	if stats.Users, err = s.users.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.Posts, err = s.posts.CountPosts(ctx); err != nil {
		return nil, err
	}

	journal, err := s.journal.Recent(ctx, RecentActions)
	if err != nil {
		s.log.Warn("journal read failed", logging.Err(err)...)
	}
	return &DashboardView{Users: users, Posts: posts, Stats: stats, Journal: journal}, nil
}

// ResetPassword forces the target onto the default password.
func (s *Service) ResetPassword(ctx context.Context, p auth.Principal, targetID int64) error {
	if err := s.accounts.AdminResetPassword(ctx, p, targetID); err != nil {
		return err
	}
	s.record(ctx, p, models.ActionResetPassword, targetID, "")
	return nil
}

// ToggleActive bans or reactivates the target and returns the new state.
func (s *Service) ToggleActive(ctx context.Context, p auth.Principal, targetID int64) (bool, error) {
	active, err := s.accounts.ToggleActive(ctx, p, targetID)
	if err != nil {
		return false, err
	}
	s.record(ctx, p, models.ActionToggleActive, targetID, "active="+strconv.FormatBool(active))
	return active, nil
}

// DeleteUser removes the target, its posts and its avatar.
func (s *Service) DeleteUser(ctx context.Context, p auth.Principal, targetID int64) error {
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if err := s.accounts.DeleteUser(ctx, p, targetID); err != nil {
		return err
	}
	if target != nil && target.Avatar != "" {
		if err := s.avatars.RemoveAvatar(ctx, target.Avatar); err != nil {
			s.log.Warn("avatar not removed", append(logging.Err(err), zap.String("avatar", target.Avatar))...)
		}
	}
	s.record(ctx, p, models.ActionDeleteUser, targetID, "")
	return nil
}

func (s *Service) record(ctx context.Context, p auth.Principal, action string, targetID int64, detail string) {
	ev := &models.AuditEvent{Action: action, Actor: p.Name(), TargetID: targetID, Detail: detail}
	if err := s.journal.Record(ctx, ev); err != nil {
		s.log.Warn("journal write failed",
			append(logging.Err(err), zap.String("action", action), zap.Int64("target_id", targetID))...)
	}
}
