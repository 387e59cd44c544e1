package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/logging"
	"github.com/ayush/blog/internal/models"
)

// Gates applies the authorization gates as route middleware.
type Gates struct {
	svc *auth.Service
	log *zap.Logger
}

func NewGates(svc *auth.Service, log *zap.Logger) *Gates {
	return &Gates{svc: svc, log: log}
}

// RequireLogin sends anonymous visitors to the login page.
func (g *Gates) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireLoggedIn(auth.PrincipalFrom(r.Context())); err != nil {
			auth.FlashRedirect(w, r, g.log, auth.MsgLoginFirst, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser admits registered users only. The administrator has no
// profile or password of its own.
func (g *Gates) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		switch {
		case p.IsAnonymous():
			auth.FlashRedirect(w, r, g.log, auth.MsgLoginFirst, "/login")
		case !p.IsUser():
			auth.FlashRedirect(w, r, g.log, auth.MsgNotAuthorized, "/")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequireNotBanned re-checks a registered user's live standing.
func (g *Gates) RequireNotBanned(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		if p.IsAnonymous() {
			next.ServeHTTP(w, r)
			return
		}
		_, err := g.svc.RequireNotBanned(r.Context(), p)
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, models.ErrAccountBanned):
			auth.FlashRedirect(w, r, g.log, auth.MsgBanned, "/")
		case errors.Is(err, models.ErrNotFound):
			g.dropSession(w, r)
		default:
			g.log.Error("standing check failed", logging.Err(err)...)
			auth.FlashRedirect(w, r, g.log, auth.MsgTryLater, "/")
		}
	})
}

// RequirePasswordCurrent keeps a user with a pending forced reset on the
// password page. Logout and the status probe stay reachable. When the user
// record cannot be read the request is refused.
func (g *Gates) RequirePasswordCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		if !p.IsUser() || resetExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		u, err := g.svc.Lookup(r.Context(), p)
		switch {
		case errors.Is(err, models.ErrNotFound):
			g.dropSession(w, r)
		case err != nil:
			// Every target page sits behind this gate; redirecting would loop.
			g.log.Error("reset check failed", logging.Err(err)...)
			http.Error(w, auth.MsgTryLater, http.StatusServiceUnavailable)
		case u.MustResetPassword:
			auth.FlashRedirect(w, r, g.log, auth.MsgMustReset, "/password")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func resetExempt(path string) bool {
	switch path {
	case "/password", "/logout", "/status", "/health", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/avatars/")
}

// RequireAdmin turns away everyone but the administrator.
func (g *Gates) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.PrincipalFrom(r.Context()).IsAdmin() {
			auth.FlashRedirect(w, r, g.log, auth.MsgNotAuthorized, "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// dropSession handles a session whose account no longer exists.
func (g *Gates) dropSession(w http.ResponseWriter, r *http.Request) {
	if sess := auth.SessionFrom(r.Context()); sess != nil {
		if err := sess.Clear(r.Context(), w); err != nil {
			g.log.Warn("session clear failed", logging.Err(err)...)
		}
	}
	auth.FlashRedirect(w, r, g.log, auth.MsgLoginFirst, "/login")
}
