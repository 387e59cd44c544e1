package admin

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/models"
	"github.com/ayush/blog/internal/store"
)

type memJournal struct {
	events  []models.AuditEvent
	failing bool
}

func (j *memJournal) Record(_ context.Context, ev *models.AuditEvent) error {
	if j.failing {
		return errors.New("mongo down")
	}
	j.events = append([]models.AuditEvent{*ev}, j.events...)
	return nil
}

func (j *memJournal) Recent(_ context.Context, limit int64) ([]models.AuditEvent, error) {
	if j.failing {
		return nil, errors.New("mongo down")
	}
	if int64(len(j.events)) > limit {
		return j.events[:limit], nil
	}
	return j.events, nil
}

var root = auth.Principal{Kind: auth.Administrator, Handle: "root"}

func newTestService(t *testing.T, journal *memJournal, log *zap.Logger) (*Service, *store.MemoryStore, int64) {
	t.Helper()
	mem := store.NewMemoryStore()
	accounts := auth.NewService(mem, auth.Admin{}, auth.WithBcryptCost(bcrypt.MinCost))
	u, err := accounts.Register(context.Background(), models.RegisterRequest{
		Name: "Ana", Handle: "ana", Email: "a@x.com", Password: "pwpw",
	})
	require.NoError(t, err)
	_, err = mem.CreatePost(context.Background(), &models.Post{AuthorID: u.ID, Title: "t", Body: "b"})
	require.NoError(t, err)
	return NewService(accounts, mem, mem, store.NewMemoryAvatars(), journal, log), mem, u.ID
}

func TestDashboard(t *testing.T) {
	journal := &memJournal{}
	svc, _, id := newTestService(t, journal, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ToggleActive(ctx, root, id)
	require.NoError(t, err)

	view, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Posts: 1, Users: 1}, view.Stats)
	require.Len(t, view.Users, 1)
	assert.False(t, view.Users[0].Active)
	assert.Empty(t, view.Posts, "banned authors' posts are hidden")
	require.Len(t, view.Journal, 1)
	assert.Equal(t, models.ActionToggleActive, view.Journal[0].Action)
	assert.Equal(t, "active=false", view.Journal[0].Detail)
}

func TestActionsAreJournaled(t *testing.T) {
	journal := &memJournal{}
	svc, mem, id := newTestService(t, journal, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.ResetPassword(ctx, root, id))
	u, err := mem.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.MustResetPassword)

	require.NoError(t, svc.DeleteUser(ctx, root, id))
	_, err = mem.GetUserByID(ctx, id)
	require.ErrorIs(t, err, models.ErrNotFound)

	require.Len(t, journal.events, 2)
	assert.Equal(t, models.ActionDeleteUser, journal.events[0].Action)
	assert.Equal(t, models.ActionResetPassword, journal.events[1].Action)
	assert.Equal(t, id, journal.events[1].TargetID)
	assert.Equal(t, "root", journal.events[1].Actor)
}

func TestFailedActionsAreNotJournaled(t *testing.T) {
	journal := &memJournal{}
	svc, _, id := newTestService(t, journal, zap.NewNop())
	ctx := context.Background()
	asUser := auth.Principal{Kind: auth.RegisteredUser, UserID: id}

	require.ErrorIs(t, svc.ResetPassword(ctx, asUser, id), models.ErrNotAuthorized)
	require.ErrorIs(t, svc.DeleteUser(ctx, root, 999), models.ErrNotFound)
	_, err := svc.ToggleActive(ctx, root, 999)
	require.ErrorIs(t, err, models.ErrNotFound)

	assert.Empty(t, journal.events)
}

func TestJournalFailureDoesNotFailAction(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	journal := &memJournal{failing: true}
	svc, _, id := newTestService(t, journal, zap.New(core))
	ctx := context.Background()

	active, err := svc.ToggleActive(ctx, root, id)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, 1, logs.FilterMessage("journal write failed").Len())

	view, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Journal)
	assert.Equal(t, 1, logs.FilterMessage("journal read failed").Len())
}

func TestDeleteUserRemovesAvatar(t *testing.T) {
	svc, mem, id := newTestService(t, &memJournal{}, zap.NewNop())
	ctx := context.Background()
	avatars, ok := svc.avatars.(*store.MemoryAvatars)
	require.True(t, ok)

	name := strconv.FormatInt(id, 10) + ".png"
	require.NoError(t, avatars.PutAvatar(ctx, name, []byte("png")))
	require.NoError(t, mem.UpdateProfile(ctx, id, "Ana", "ana", name))

	require.NoError(t, svc.DeleteUser(ctx, root, id))
	_, _, err := avatars.GetAvatar(ctx, name)
	require.ErrorIs(t, err, models.ErrNotFound)
}

type brokenAvatars struct{}

func (brokenAvatars) RemoveAvatar(context.Context, string) error { return errors.New("minio down") }

func TestDeleteUser_AvatarFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	journal := &memJournal{}
	base, mem, id := newTestService(t, journal, zap.NewNop())
	svc := NewService(base.accounts, mem, mem, brokenAvatars{}, journal, zap.New(core))
	ctx := context.Background()
	require.NoError(t, mem.UpdateProfile(ctx, id, "Ana", "ana", "1.png"))

	require.NoError(t, svc.DeleteUser(ctx, root, id))
	assert.Equal(t, 1, logs.FilterMessage("avatar not removed").Len())
	require.Len(t, journal.events, 1)
	assert.Equal(t, models.ActionDeleteUser, journal.events[0].Action)
}
