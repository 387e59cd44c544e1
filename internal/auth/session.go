package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/ayush/blog/internal/logging"
)

const SessionCookie = "session_id"

// sessionData is the JSON bag kept in Redis under session:<id>.
type sessionData struct {
	Admin  bool   `json:"admin,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
	Handle string `json:"handle,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// SessionStore wraps Redis for session management.
type SessionStore struct {
	rdb    redis.Cmdable
	tokens tokens
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionStore(rdb redis.Cmdable, secret string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		rdb:    rdb,
		tokens: tokens{secret: []byte(secret), ttl: ttl},
		ttl:    ttl,
		now:    time.Now,
	}
}

func bagKey(sid string) string   { return "session:" + sid }
func flashKey(sid string) string { return "session:" + sid + ":flash" }

// Load resolves the request cookie to a session. A missing, tampered or
// expired cookie yields a fresh anonymous session that is only written to
// Redis once something is stored in it.
func (s *SessionStore) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return s.fresh(), nil
	}
	sid, err := s.tokens.parse(c.Value)
	if err != nil {
		return s.fresh(), nil
	}

	raw, err := s.rdb.Get(ctx, bagKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.fresh(), nil
	}
	if err != nil {
		return s.fresh(), oops.Code("SESSION_LOAD_FAILED").Wrap(err)
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return s.fresh(), nil
	}
	return &Session{store: s, id: sid, data: data, persisted: true}, nil
}

func (s *SessionStore) fresh() *Session {
	return &Session{store: s, id: uuid.NewString()}
}

// Session is the request-scoped handle on one browser session.
type Session struct {
	store     *SessionStore
	id        string
	data      sessionData
	persisted bool
}

// ID returns the session id. It changes on Establish and Clear.
func (s *Session) ID() string { return s.id }

// Principal derives the acting identity from the session bag.
func (s *Session) Principal() Principal {
	switch {
	case s.data.Admin:
		return Principal{Kind: Administrator, Handle: s.data.Handle}
	case s.data.UserID > 0:
		return Principal{Kind: RegisteredUser, UserID: s.data.UserID, Handle: s.data.Handle, Avatar: s.data.Avatar}
	default:
		return Principal{}
	}
}

// Establish records p as the session's identity under a new session id.
func (s *Session) Establish(ctx context.Context, w http.ResponseWriter, p Principal) error {
	if s.persisted {
		if err := s.store.rdb.Del(ctx, bagKey(s.id), flashKey(s.id)).Err(); err != nil {
			return oops.Code("SESSION_ROTATE_FAILED").Wrap(err)
		}
	}
	s.id = uuid.NewString()
	s.persisted = false
	s.data = sessionData{
		Admin:  p.IsAdmin(),
		UserID: p.UserID,
		Handle: p.Handle,
		Avatar: p.Avatar,
	}
	return s.save(ctx, w)
}

// Refresh updates the cached handle and avatar after a profile edit.
func (s *Session) Refresh(ctx context.Context, w http.ResponseWriter, handle, avatar string) error {
	s.data.Handle, s.data.Avatar = handle, avatar
	return s.save(ctx, w)
}

// Clear drops the session bag and its pending flashes and expires the cookie.
func (s *Session) Clear(ctx context.Context, w http.ResponseWriter) error {
	if s.persisted {
		if err := s.store.rdb.Del(ctx, bagKey(s.id), flashKey(s.id)).Err(); err != nil {
			return oops.Code("SESSION_CLEAR_FAILED").Wrap(err)
		}
	}
	s.id = uuid.NewString()
	s.data = sessionData{}
	s.persisted = false

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return nil
}

// Flash queues a message shown on the next rendered page.
func (s *Session) Flash(ctx context.Context, w http.ResponseWriter, msg string) error {
	if !s.persisted {
		if err := s.save(ctx, w); err != nil {
			return err
		}
	}
	key := flashKey(s.id)
	_, err := s.store.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, msg)
		pipe.Expire(ctx, key, s.store.ttl)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_FLASH_FAILED").Wrap(err)
	}
	return nil
}

// Flashes returns and consumes the queued messages.
func (s *Session) Flashes(ctx context.Context) ([]string, error) {
	if !s.persisted {
		return nil, nil
	}
	key := flashKey(s.id)
	var lr *redis.StringSliceCmd
	_, err := s.store.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lr = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, oops.Code("SESSION_FLASH_READ_FAILED").Wrap(err)
	}
	return lr.Val(), nil
}

func (s *Session) save(ctx context.Context, w http.ResponseWriter) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	if err := s.store.rdb.Set(ctx, bagKey(s.id), raw, s.store.ttl).Err(); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").Wrap(err)
	}

	now := s.store.now()
	token, err := s.store.tokens.sign(s.id, now)
	if err != nil {
		return oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	s.persisted = true

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.store.ttl / time.Second),
	})
	return nil
}

// WithSession returns a copy of ctx carrying the request's session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session installed by the session middleware, or
// nil when the middleware did not run.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// FlashRedirect queues msg, when non-empty, on the request's session and
// redirects to url. A flash that cannot be stored is logged and the redirect
// still happens.
func FlashRedirect(w http.ResponseWriter, r *http.Request, log *zap.Logger, msg, url string) {
	if sess := SessionFrom(r.Context()); sess != nil && msg != "" {
		if err := sess.Flash(r.Context(), w, msg); err != nil {
			log.Warn("flash failed", logging.Err(err)...)
		}
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
