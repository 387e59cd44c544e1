package blog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/logging"
	"github.com/ayush/blog/internal/models"
	"github.com/ayush/blog/internal/web"
)

// MaxAvatarBytes is the largest accepted avatar upload.
const MaxAvatarBytes = 2 << 20

var avatarExts = map[string]bool{"png": true, "jpg": true, "webp": true}

var avatarName = regexp.MustCompile(`^[0-9]+\.(png|jpg|webp)$`)

// PostStore is the post half of the credential store.
type PostStore interface {
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.PostView, error)
	CreatePost(ctx context.Context, p *models.Post) (*models.Post, error)
	UpdatePost(ctx context.Context, id, authorID int64, title, body string) error
	DeletePost(ctx context.Context, id, actorID int64, asAdmin bool) error
	MostFamousPost(ctx context.Context) (*models.PostView, error)
	TopAuthor(ctx context.Context) (*models.AuthorStat, error)
}

// ProfileStore covers the account fields a user edits on their own.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, name, handle, avatar string) error
	UpdateEmail(ctx context.Context, id int64, email string) error
}

// AvatarStore keeps avatar pictures by file name.
type AvatarStore interface {
	PutAvatar(ctx context.Context, name string, data []byte) error
	GetAvatar(ctx context.Context, name string) ([]byte, string, error)
	RemoveAvatar(ctx context.Context, name string) error
}

// Journal receives moderation events.
type Journal interface {
	Record(ctx context.Context, ev *models.AuditEvent) error
}

// Upload is an avatar picture submitted with the profile form.
type Upload struct {
	Filename string
	Data     []byte
}

// PostCard is a listing row with the viewer's permissions resolved.
type PostCard struct {
	models.PostView
	CanEdit   bool
	CanDelete bool
}

// IndexView is everything the home page shows.
type IndexView struct {
	Posts   []PostCard
	Famous  *models.PostView
	Top     *models.AuthorStat
	CanPost bool
}

// Service implements posts and the user's own profile.
type Service struct {
	posts   PostStore
	users   ProfileStore
	avatars AvatarStore
	journal Journal
	log     *zap.Logger
}

func NewService(posts PostStore, users ProfileStore, avatars AvatarStore, journal Journal, log *zap.Logger) *Service {
	return &Service{posts: posts, users: users, avatars: avatars, journal: journal, log: log}
}

// Index builds the home page: visible posts newest first plus the two cards.
func (s *Service) Index(ctx context.Context, p auth.Principal) (*IndexView, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	famous, err := s.posts.MostFamousPost(ctx)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	top, err := s.posts.TopAuthor(ctx)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	view := &IndexView{Famous: famous, Top: top, CanPost: p.IsUser()}
	view.Posts = make([]PostCard, 0, len(posts))
	for _, pv := range posts {
		view.Posts = append(view.Posts, PostCard{
			PostView:  pv,
			CanEdit:   auth.CanEditPost(p, &pv.Post),
			CanDelete: auth.CanModifyPost(p, &pv.Post),
		})
	}
	return view, nil
}

func validatePost(title, body string) (string, string, error) {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return "", "", models.ErrEmptyField
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLen {
		return "", "", models.ErrTitleTooLong
	}
	return title, body, nil
}

// CreatePost publishes a post authored by p.
func (s *Service) CreatePost(ctx context.Context, p auth.Principal, title, body string) (*models.Post, error) {
	if !p.IsUser() {
		return nil, models.ErrNotAuthorized
	}
	title, body, err := validatePost(title, body)
	if err != nil {
		return nil, err
	}
	return s.posts.CreatePost(ctx, &models.Post{AuthorID: p.UserID, Title: title, Body: body})
}

// GetPostForEdit returns the post when p is its author.
func (s *Service) GetPostForEdit(ctx context.Context, p auth.Principal, id int64) (*models.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanEditPost(p, post) {
		return nil, models.ErrNotAuthorized
	}
	return post, nil
}

// EditPost rewrites the title and body. Only the author may do so; the store
// enforces that in the same statement that writes.
func (s *Service) EditPost(ctx context.Context, p auth.Principal, id int64, title, body string) error {
	if !p.IsUser() {
		return models.ErrNotAuthorized
	}
	title, body, err := validatePost(title, body)
	if err != nil {
		return err
	}
	return s.posts.UpdatePost(ctx, id, p.UserID, title, body)
}

// DeletePost removes a post for its author or the administrator.
func (s *Service) DeletePost(ctx context.Context, p auth.Principal, id int64) error {
	if err := auth.RequireLoggedIn(p); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id, p.UserID, p.IsAdmin()); err != nil {
		return err
	}
	if p.IsAdmin() {
		ev := &models.AuditEvent{Action: models.ActionDeletePost, Actor: p.Name(), TargetID: id}
		if err := s.journal.Record(ctx, ev); err != nil {
			s.log.Warn("journal write failed", append(logging.Err(err), zap.Int64("post_id", id))...)
		}
	}
	return nil
}

// Profile returns the live record of the current user.
func (s *Service) Profile(ctx context.Context, p auth.Principal) (*models.User, error) {
	if !p.IsUser() {
		return nil, models.ErrNotLoggedIn
	}
	return s.users.GetUserByID(ctx, p.UserID)
}

// UpdateProfile changes name and handle and, when up is set, replaces the
// avatar with <user_id>.<ext>.
func (s *Service) UpdateProfile(ctx context.Context, p auth.Principal, name, handle string, up *Upload) (*models.User, error) {
	name, handle = strings.TrimSpace(name), strings.TrimSpace(handle)
	if name == "" || handle == "" {
		return nil, models.ErrEmptyField
	}
	u, err := s.Profile(ctx, p)
	if err != nil {
		return nil, err
	}

	avatar := u.Avatar
	if up != nil {
		ext, err := uploadExt(up)
		if err != nil {
			return nil, err
		}
		avatar = fmt.Sprintf("%d.%s", u.ID, ext)
	}

	// Storage is written only after the row update succeeds.
	if err := s.users.UpdateProfile(ctx, u.ID, name, handle, avatar); err != nil {
		return nil, err
	}
	if up != nil {
		if err := s.avatars.PutAvatar(ctx, avatar, up.Data); err != nil {
			if rerr := s.users.UpdateProfile(ctx, u.ID, u.Name, u.Handle, u.Avatar); rerr != nil {
				s.log.Error("profile revert failed", append(logging.Err(rerr), zap.Int64("user_id", u.ID))...)
			}
			return nil, err
		}
	}
	if u.Avatar != "" && u.Avatar != avatar {
		if err := s.avatars.RemoveAvatar(ctx, u.Avatar); err != nil {
			s.log.Warn("old avatar not removed", append(logging.Err(err), zap.String("avatar", u.Avatar))...)
		}
	}
	u.Name, u.Handle, u.Avatar = name, handle, avatar
	return u, nil
}

func uploadExt(up *Upload) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(up.Filename), "."))
	if !avatarExts[ext] {
		return "", fmt.Errorf("%w: extension %q", models.ErrUploadRejected, ext)
	}
	if len(up.Data) > MaxAvatarBytes {
		return "", fmt.Errorf("%w: %d bytes", models.ErrUploadRejected, len(up.Data))
	}
	return ext, nil
}

// UpdateEmail changes the current user's email address.
func (s *Service) UpdateEmail(ctx context.Context, p auth.Principal, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.ErrEmptyField
	}
	if !p.IsUser() {
		return models.ErrNotLoggedIn
	}
	return s.users.UpdateEmail(ctx, p.UserID, email)
}

// Avatar returns a stored picture. Names other than <digits>.<ext> and the
// placeholder are reported as not found without touching the store.
func (s *Service) Avatar(ctx context.Context, name string) ([]byte, string, error) {
	if name != models.DefaultAvatar && !avatarName.MatchString(name) {
		return nil, "", models.ErrNotFound
	}
	data, ctype, err := s.avatars.GetAvatar(ctx, name)
	if errors.Is(err, models.ErrNotFound) && name == models.DefaultAvatar {
		return web.Placeholder(), "image/png", nil
	}
	return data, ctype, err
}
