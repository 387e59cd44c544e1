package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayush/blog/internal/logging"
	"github.com/ayush/blog/internal/metrics"
	"github.com/ayush/blog/internal/models"
	"github.com/ayush/blog/internal/web"
)

// Flash messages shared by every handler package.
const (
	MsgLoginFirst    = "Você precisa estar logado para acessar esta página."
	MsgBanned        = "Você está banido e não pode postar ou editar informações."
	MsgNotAuthorized = "Acesso não autorizado."
	MsgMustReset     = "Por motivos de segurança, altere sua senha que está como padrão '1234'."
	MsgTryLater      = "Houve um erro! Tente mais tarde!"
)

const (
	msgBadLogin      = "Usuário ou senha incorretos!"
	msgBannedLogin   = "Sua conta está banida. Você pode visualizar o conteúdo mas não pode postar ou editar informações."
	msgFillAll       = "Preencha todos os campos!"
	msgShortPassword = "A senha deve ter no mínimo 4 caracteres."
	msgDuplicate     = "Usuário ou email existente! Tente outro."
	msgRegistered    = "Usuário cadastrado com sucesso!"
	msgFillPassword  = "Por favor, preencha a nova senha e a confirmação."
	msgMismatch      = "A nova senha e a confirmação não coincidem."
	msgWrongCurrent  = "A senha atual fornecida está incorreta."
	msgPasswordSaved = "Senha alterada com sucesso!"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc     *Service
	render  *web.Renderer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHandler(svc *Service, render *web.Renderer, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{svc: svc, render: render, metrics: m, log: log}
}

// Chrome resolves the viewer and pending flashes for page rendering.
func Chrome(log *zap.Logger) web.ChromeFunc {
	return func(_ http.ResponseWriter, r *http.Request) web.Chrome {
		p := PrincipalFrom(r.Context())
		c := web.Chrome{
			LoggedIn: !p.IsAnonymous(),
			Admin:    p.IsAdmin(),
			Handle:   p.Handle,
			Avatar:   p.Avatar,
		}
		if sess := SessionFrom(r.Context()); sess != nil {
			flashes, err := sess.Flashes(r.Context())
			if err != nil {
				log.Warn("flash read failed", logging.Err(err)...)
			}
			c.Flashes = flashes
		}
		return c
	}
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "login.html", "Entrar", nil)
}

// Login authenticates the form credentials and establishes the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	p, u, err := h.svc.Authenticate(r.Context(), r.PostFormValue("user"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		h.metrics.Logins.WithLabelValues(metrics.LoginInvalid).Inc()
		FlashRedirect(w, r, h.log, msgBadLogin, "/login")
		return
	case errors.Is(err, models.ErrAccountBanned):
		h.metrics.Logins.WithLabelValues(metrics.LoginBanned).Inc()
		FlashRedirect(w, r, h.log, msgBannedLogin, "/login")
		return
	case err != nil:
		h.metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		h.log.Error("login failed", logging.Err(err)...)
		FlashRedirect(w, r, h.log, MsgTryLater, "/login")
		return
	}

	if err := SessionFrom(r.Context()).Establish(r.Context(), w, p); err != nil {
		h.metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		h.log.Error("session establish failed", logging.Err(err)...)
		FlashRedirect(w, r, h.log, MsgTryLater, "/login")
		return
	}

	if p.IsAdmin() {
		h.metrics.Logins.WithLabelValues(metrics.LoginAdmin).Inc()
		h.log.Info("admin logged in", zap.String("admin", p.Handle))
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	h.metrics.Logins.WithLabelValues(metrics.LoginUser).Inc()
	if u.MustResetPassword {
		FlashRedirect(w, r, h.log, MsgMustReset, "/password")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := SessionFrom(r.Context()).Clear(r.Context(), w); err != nil {
		h.log.Warn("session clear failed", logging.Err(err)...)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "register.html", "Cadastro", nil)
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req := models.RegisterRequest{
		Name:     r.PostFormValue("name"),
		Handle:   r.PostFormValue("user"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	u, err := h.svc.Register(r.Context(), req)
	switch {
	case errors.Is(err, models.ErrEmptyField):
		FlashRedirect(w, r, h.log, msgFillAll, "/register")
	case errors.Is(err, models.ErrPasswordTooShort):
		FlashRedirect(w, r, h.log, msgShortPassword, "/register")
	case errors.Is(err, models.ErrDuplicateRegistration):
		FlashRedirect(w, r, h.log, msgDuplicate, "/register")
	case err != nil:
		h.log.Error("register failed", logging.Err(err)...)
		FlashRedirect(w, r, h.log, MsgTryLater, "/register")
	default:
		h.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("handle", u.Handle))
		FlashRedirect(w, r, h.log, msgRegistered, "/login")
	}
}

type passwordView struct {
	MustReset bool
}

func (h *Handler) PasswordPage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Lookup(r.Context(), PrincipalFrom(r.Context()))
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "password.html", "Alterar senha", passwordView{MustReset: u.MustResetPassword})
}

// ChangePassword replaces the current user's own password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	err := h.svc.ChangePassword(r.Context(), p.UserID, models.PasswordChange{
		Current: r.PostFormValue("current"),
		New:     r.PostFormValue("new"),
		Confirm: r.PostFormValue("confirm"),
	})
	switch {
	case errors.Is(err, models.ErrEmptyField):
		FlashRedirect(w, r, h.log, msgFillPassword, "/password")
	case errors.Is(err, models.ErrPasswordMismatch):
		FlashRedirect(w, r, h.log, msgMismatch, "/password")
	case errors.Is(err, models.ErrPasswordTooShort):
		FlashRedirect(w, r, h.log, msgShortPassword, "/password")
	case errors.Is(err, models.ErrWrongCurrentPassword):
		FlashRedirect(w, r, h.log, msgWrongCurrent, "/password")
	case err != nil:
		h.lookupFailed(w, r, err)
	default:
		h.log.Info("password changed", zap.Int64("user_id", p.UserID))
		FlashRedirect(w, r, h.log, msgPasswordSaved, "/profile")
	}
}

// lookupFailed answers a failed read of the current user's record. A
// vanished account ends the session.
func (h *Handler) lookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrNotFound) {
		if cerr := SessionFrom(r.Context()).Clear(r.Context(), w); cerr != nil {
			h.log.Warn("session clear failed", logging.Err(cerr)...)
		}
		FlashRedirect(w, r, h.log, MsgLoginFirst, "/login")
		return
	}
	h.log.Error("user lookup failed", logging.Err(err)...)
	FlashRedirect(w, r, h.log, MsgTryLater, "/")
}

type statusResponse struct {
	Status   string `json:"status"`
	Mensagem string `json:"mensagem,omitempty"`
}

// Status reports the caller's standing as JSON.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	resp := statusResponse{Status: "nao_logado"}

	switch p.Kind {
	case Administrator:
		resp.Status = "ativo"
	case RegisteredUser:
		u, err := h.svc.Lookup(r.Context(), p)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			h.log.Error("status lookup failed", logging.Err(err)...)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"store unavailable"}`))
			return
		case !u.Active:
			resp = statusResponse{Status: "banido", Mensagem: MsgBanned}
		default:
			resp.Status = "ativo"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
