package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/logging"
	"github.com/ayush/blog/internal/metrics"
	"github.com/ayush/blog/internal/models"
	"github.com/ayush/blog/internal/web"
)

const (
	msgUserNotFound = "Usuário não encontrado."
	msgSelfTarget   = "Você não pode alterar seu próprio usuário."
	msgResetDone    = "Senha redefinida com sucesso para '1234'. O usuário deve alterar na próxima vez que fizer login."
	msgBanned       = "Usuário banido com sucesso!"
	msgReactivated  = "Usuário reativado com sucesso!"
	msgDeleted      = "Usuário excluído permanentemente com sucesso!"
)

// Handler serves the admin dashboard and moderation actions.
type Handler struct {
	svc     *Service
	render  *web.Renderer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHandler(svc *Service, render *web.Renderer, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{svc: svc, render: render, metrics: m, log: log}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.log.Error("dashboard failed", logging.Err(err)...)
		h.render.Render(w, r, http.StatusServiceUnavailable, "dashboard.html", "Painel", &DashboardView{})
		return
	}
	h.render.Render(w, r, http.StatusOK, "dashboard.html", "Painel", view)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, models.ActionResetPassword, func(p auth.Principal, id int64) (string, error) {
		return msgResetDone, h.svc.ResetPassword(r.Context(), p, id)
	})
}

func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, models.ActionToggleActive, func(p auth.Principal, id int64) (string, error) {
		active, err := h.svc.ToggleActive(r.Context(), p, id)
		if active {
			return msgReactivated, err
		}
		return msgBanned, err
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, models.ActionDeleteUser, func(p auth.Principal, id int64) (string, error) {
		return msgDeleted, h.svc.DeleteUser(r.Context(), p, id)
	})
}

// act parses the target id, runs fn and reports the outcome on the dashboard.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, action string, fn func(auth.Principal, int64) (string, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		auth.FlashRedirect(w, r, h.log, msgUserNotFound, "/admin")
		return
	}

	p := auth.PrincipalFrom(r.Context())
	msg, err := fn(p, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		auth.FlashRedirect(w, r, h.log, msgUserNotFound, "/admin")
	case errors.Is(err, models.ErrNotAuthorized):
		auth.FlashRedirect(w, r, h.log, msgSelfTarget, "/admin")
	case err != nil:
		h.log.Error("moderation failed", append(logging.Err(err), zap.String("action", action), zap.Int64("target_id", id))...)
		auth.FlashRedirect(w, r, h.log, auth.MsgTryLater, "/admin")
	default:
		h.metrics.Moderation.WithLabelValues(action).Inc()
		h.log.Info("moderation", zap.String("action", action), zap.Int64("target_id", id), zap.String("by", p.Name()))
		auth.FlashRedirect(w, r, h.log, msg, "/admin")
	}
}
