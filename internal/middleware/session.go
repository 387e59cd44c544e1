package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/logging"
)

// Sessions resolves the session cookie and injects the session and its
// principal into the request context. A Redis failure degrades the request
// to anonymous.
func Sessions(store *auth.SessionStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Load(r.Context(), r)
			if err != nil {
				log.Warn("session load failed", logging.Err(err)...)
			}
			ctx := auth.WithSession(r.Context(), sess)
			ctx = auth.WithPrincipal(ctx, sess.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
