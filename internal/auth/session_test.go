package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionStore(rdb, "test-secret", time.Hour), mr
}

// roundTrip copies the cookies set on rec onto a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	var last *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			last = c
		}
	}
	if last != nil && last.MaxAge >= 0 {
		req.AddCookie(last)
	}
	return req
}

func TestSession_FreshIsAnonymousAndUnsaved(t *testing.T) {
	s, mr := newSessionStore(t)
	sess, err := s.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, sess.Principal().IsAnonymous())
	assert.Empty(t, mr.Keys())

	flashes, err := sess.Flashes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flashes)
}

func TestSession_EstablishAndLoad(t *testing.T) {
	s, mr := newSessionStore(t)
	ctx := context.Background()

	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sess.Establish(ctx, rec, Principal{Kind: RegisteredUser, UserID: 7, Handle: "ana", Avatar: "7.png"}))
	assert.True(t, mr.Exists("session:"+sess.ID()))
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.ID()))

	loaded, err := s.Load(ctx, roundTrip(rec))
	require.NoError(t, err)
	p := loaded.Principal()
	assert.Equal(t, RegisteredUser, p.Kind)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, "7.png", p.Avatar)
}

func TestSession_EstablishRotatesID(t *testing.T) {
	s, mr := newSessionStore(t)
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, sess.Flash(ctx, httptest.NewRecorder(), "hello"))
	before := sess.ID()

	require.NoError(t, sess.Establish(ctx, httptest.NewRecorder(), Principal{Kind: Administrator, Handle: "root"}))
	assert.NotEqual(t, before, sess.ID())
	assert.False(t, mr.Exists("session:"+before))
	assert.True(t, sess.Principal().IsAdmin())
}

func TestSession_FlashesConsumedOnce(t *testing.T) {
	s, _ := newSessionStore(t)
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sess.Flash(ctx, rec, "one"))
	require.NoError(t, sess.Flash(ctx, rec, "two"))

	next, err := s.Load(ctx, roundTrip(rec))
	require.NoError(t, err)
	flashes, err := next.Flashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, flashes)

	flashes, err = next.Flashes(ctx)
	require.NoError(t, err)
	assert.Empty(t, flashes)
}

func TestSession_Clear(t *testing.T) {
	s, mr := newSessionStore(t)
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sess.Establish(ctx, rec, Principal{Kind: RegisteredUser, UserID: 1, Handle: "ana"}))
	old := sess.ID()

	clearRec := httptest.NewRecorder()
	require.NoError(t, sess.Clear(ctx, clearRec))
	assert.False(t, mr.Exists("session:"+old))
	assert.True(t, sess.Principal().IsAnonymous())

	cookies := clearRec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)

	// The old cookie no longer resolves to anything.
	loaded, err := s.Load(ctx, roundTrip(rec))
	require.NoError(t, err)
	assert.True(t, loaded.Principal().IsAnonymous())
}

func TestSession_TamperedCookieIgnored(t *testing.T) {
	s, _ := newSessionStore(t)
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Establish(ctx, rec, Principal{Kind: Administrator, Handle: "root"}))

	forged := NewSessionStore(s.rdb, "other-secret", time.Hour)
	loaded, err := forged.Load(ctx, roundTrip(rec))
	require.NoError(t, err)
	assert.True(t, loaded.Principal().IsAnonymous())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID()})
	loaded, err = s.Load(ctx, req)
	require.NoError(t, err)
	assert.True(t, loaded.Principal().IsAnonymous())
}

func TestSession_RedisDown(t *testing.T) {
	s, mr := newSessionStore(t)
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Establish(ctx, rec, Principal{Kind: RegisteredUser, UserID: 1}))

	mr.Close()
	loaded, err := s.Load(ctx, roundTrip(rec))
	require.Error(t, err)
	assert.True(t, loaded.Principal().IsAnonymous())
}

func TestSession_Refresh(t *testing.T) {
	s, _ := newSessionStore(t)
	ctx := context.Background()
	sess, err := s.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.Establish(ctx, httptest.NewRecorder(), Principal{Kind: RegisteredUser, UserID: 1, Handle: "ana"}))

	rec := httptest.NewRecorder()
	require.NoError(t, sess.Refresh(ctx, rec, "ana2", "1.png"))
	loaded, err := s.Load(ctx, roundTrip(rec))
	require.NoError(t, err)
	assert.Equal(t, "ana2", loaded.Principal().Handle)
	assert.Equal(t, "1.png", loaded.Principal().Avatar)
}
