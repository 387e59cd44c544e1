package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/models"
	"github.com/ayush/blog/internal/store"
)

type brokenUsers struct {
	auth.UserStore
}

func (brokenUsers) GetUserByID(context.Context, int64) (*models.User, error) {
	return nil, models.ErrStoreUnavailable
}

var ana = auth.Principal{Kind: auth.RegisteredUser, UserID: 1, Handle: "ana"}

func serveAs(mw func(http.Handler) http.Handler, p auth.Principal, path string) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec, reached
}

func TestRequirePasswordCurrent(t *testing.T) {
	mem := store.NewMemoryStore()
	u, err := mem.CreateUser(context.Background(), models.NewUser("Ana", "ana", "a@x.com", "hash"))
	require.NoError(t, err)
	g := NewGates(auth.NewService(mem, auth.Admin{}), zap.NewNop())
	p := auth.Principal{Kind: auth.RegisteredUser, UserID: u.ID, Handle: u.Handle}

	_, reached := serveAs(g.RequirePasswordCurrent, p, "/")
	assert.True(t, reached)

	require.NoError(t, mem.UpdatePassword(context.Background(), u.ID, "hash", true))
	rec, reached := serveAs(g.RequirePasswordCurrent, p, "/")
	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/password", rec.Header().Get("Location"))

	_, reached = serveAs(g.RequirePasswordCurrent, p, "/password")
	assert.True(t, reached)
}

func TestRequirePasswordCurrent_StoreDown(t *testing.T) {
	g := NewGates(auth.NewService(brokenUsers{}, auth.Admin{}), zap.NewNop())

	rec, reached := serveAs(g.RequirePasswordCurrent, ana, "/posts/1/delete")
	assert.False(t, reached)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.MsgTryLater)

	_, reached = serveAs(g.RequirePasswordCurrent, ana, "/logout")
	assert.True(t, reached)
	_, reached = serveAs(g.RequirePasswordCurrent, auth.Principal{}, "/")
	assert.True(t, reached)
}

func TestRequireNotBanned_StoreDown(t *testing.T) {
	g := NewGates(auth.NewService(brokenUsers{}, auth.Admin{}), zap.NewNop())

	rec, reached := serveAs(g.RequireNotBanned, ana, "/posts")
	assert.False(t, reached)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}
