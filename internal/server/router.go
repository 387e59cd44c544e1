package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ayush/blog/internal/admin"
	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/blog"
	"github.com/ayush/blog/internal/metrics"
	"github.com/ayush/blog/internal/middleware"
	"github.com/ayush/blog/internal/web"
)

// Deps are the process-wide services the router dispatches to.
type Deps struct {
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Sessions    *auth.SessionStore
	Accounts    *auth.Service
	Blog        *blog.Service
	Admin       *admin.Service
	CORSOrigins []string
}

// NewRouter wires every route with its gates.
func NewRouter(d Deps) (http.Handler, error) {
	render, err := web.New(auth.Chrome(d.Log), d.Log)
	if err != nil {
		return nil, err
	}
	gates := middleware.NewGates(d.Accounts, d.Log)
	authHandler := auth.NewHandler(d.Accounts, render, d.Metrics, d.Log)
	blogHandler := blog.NewHandler(d.Blog, render, d.Metrics, d.Log)
	adminHandler := admin.NewHandler(d.Admin, render, d.Metrics, d.Log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", d.Metrics.Handler())
	r.Get("/avatars/{name}", blogHandler.Avatar)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(d.Sessions, d.Log))
		r.Use(gates.RequirePasswordCurrent)

		r.Get("/", blogHandler.Index)
		r.Get("/status", authHandler.Status)

		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
		r.Post("/logout", authHandler.Logout)
		r.Get("/register", authHandler.RegisterPage)
		r.Post("/register", authHandler.Register)

		// Posts
		r.Route("/posts", func(r chi.Router) {
			r.Use(gates.RequireLogin)
			r.With(gates.RequireUser, gates.RequireNotBanned).Post("/", blogHandler.CreatePost)
			r.With(gates.RequireUser, gates.RequireNotBanned).Get("/{id}/edit", blogHandler.EditPage)
			r.With(gates.RequireUser, gates.RequireNotBanned).Post("/{id}/edit", blogHandler.EditPost)
			r.Post("/{id}/delete", blogHandler.DeletePost)
		})

		// Own account
		r.Group(func(r chi.Router) {
			r.Use(gates.RequireUser)
			r.Get("/password", authHandler.PasswordPage)
			r.Post("/password", authHandler.ChangePassword)
			r.Get("/profile", blogHandler.ProfilePage)
			r.With(gates.RequireNotBanned).Post("/profile", blogHandler.UpdateProfile)
			r.With(gates.RequireNotBanned).Get("/profile/email", blogHandler.EmailPage)
			r.With(gates.RequireNotBanned).Post("/profile/email", blogHandler.UpdateEmail)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(gates.RequireAdmin)
			r.Get("/", adminHandler.Dashboard)
			r.Post("/users/{id}/reset", adminHandler.ResetPassword)
			r.Post("/users/{id}/toggle", adminHandler.ToggleActive)
			r.Post("/users/{id}/delete", adminHandler.DeleteUser)
		})

		r.NotFound(render.NotFound)
	})

	return r, nil
}
