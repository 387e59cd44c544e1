package blog

import (
	"errors"
	"io"
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
	msgFillPost     = "Por favor, preencha título e conteúdo antes de publicar."
	msgTitleTooLong = "O título deve ter no máximo 60 caracteres."
	msgPosted       = "Post realizado com sucesso!"
	msgEdited       = "Post editado com sucesso!"
	msgDeleted      = "Post excluído com sucesso!"
	msgNoPermission = "Você não tem permissão para editar esta postagem."
	msgBadDelete    = "Tentativa de exclusão inválida!"
	msgPostNotFound = "Post não encontrado."
	msgFillProfile  = "Os campos Nome e User não podem estar vazios!"
	msgBadUpload    = "Extensão inválida ou arquivo acima de 2MB! Use png, jpg ou webp."
	msgHandleTaken  = "Usuário já existe! Tente outro."
	msgProfileSaved = "Dados atualizados com sucesso!"
	msgEmptyEmail   = "Email não pode estar vazio!"
	msgEmailTaken   = "Email já cadastrado! Tente outro."
	msgEmailSaved   = "Email atualizado com sucesso!"
)

// Handler serves the post and profile pages.
type Handler struct {
	svc     *Service
	render  *web.Renderer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHandler(svc *Service, render *web.Renderer, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{svc: svc, render: render, metrics: m, log: log}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, to string) {
	h.log.Error(msg, logging.Err(err)...)
	auth.FlashRedirect(w, r, h.log, auth.MsgTryLater, to)
}

func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// Index lists the visible posts.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Index(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		h.log.Error("index failed", logging.Err(err)...)
		h.render.Render(w, r, http.StatusServiceUnavailable, "index.html", "", &IndexView{})
		return
	}
	h.render.Render(w, r, http.StatusOK, "index.html", "", view)
}

// CreatePost publishes the submitted post.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	post, err := h.svc.CreatePost(r.Context(), p, r.PostFormValue("title"), r.PostFormValue("body"))
	switch {
	case errors.Is(err, models.ErrEmptyField):
		auth.FlashRedirect(w, r, h.log, msgFillPost, "/")
	case errors.Is(err, models.ErrTitleTooLong):
		auth.FlashRedirect(w, r, h.log, msgTitleTooLong, "/")
	case errors.Is(err, models.ErrNotAuthorized):
		auth.FlashRedirect(w, r, h.log, auth.MsgNotAuthorized, "/")
	case err != nil:
		h.fail(w, r, "create post failed", err, "/")
	default:
		h.metrics.PostsWritten.WithLabelValues(metrics.PostCreate).Inc()
		h.log.Info("post created", zap.Int64("post_id", post.ID), zap.Int64("author_id", p.UserID))
		auth.FlashRedirect(w, r, h.log, msgPosted, "/")
	}
}

// EditPage shows the edit form to the post's author.
func (h *Handler) EditPage(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	post, err := h.svc.GetPostForEdit(r.Context(), auth.PrincipalFrom(r.Context()), id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.render.NotFound(w, r)
	case errors.Is(err, models.ErrNotAuthorized):
		auth.FlashRedirect(w, r, h.log, msgNoPermission, "/")
	case err != nil:
		h.fail(w, r, "load post failed", err, "/")
	default:
		h.render.Render(w, r, http.StatusOK, "edit.html", "Editar post", post)
	}
}

// EditPost saves the author's changes.
func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	back := "/posts/" + strconv.FormatInt(id, 10) + "/edit"
	err := h.svc.EditPost(r.Context(), auth.PrincipalFrom(r.Context()), id, r.PostFormValue("title"), r.PostFormValue("body"))
	switch {
	case errors.Is(err, models.ErrEmptyField):
		auth.FlashRedirect(w, r, h.log, msgFillPost, back)
	case errors.Is(err, models.ErrTitleTooLong):
		auth.FlashRedirect(w, r, h.log, msgTitleTooLong, back)
	case errors.Is(err, models.ErrNotAuthorized):
		auth.FlashRedirect(w, r, h.log, msgNoPermission, "/")
	case errors.Is(err, models.ErrNotFound):
		auth.FlashRedirect(w, r, h.log, msgPostNotFound, "/")
	case err != nil:
		h.fail(w, r, "edit post failed", err, back)
	default:
		h.metrics.PostsWritten.WithLabelValues(metrics.PostEdit).Inc()
		auth.FlashRedirect(w, r, h.log, msgEdited, "/")
	}
}

// DeletePost removes a post for its author or the administrator.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	back := "/"
	if p.IsAdmin() {
		back = "/admin"
	}
	id, ok := postID(r)
	if !ok {
		auth.FlashRedirect(w, r, h.log, msgBadDelete, back)
		return
	}
	err := h.svc.DeletePost(r.Context(), p, id)
	switch {
	case errors.Is(err, models.ErrNotAuthorized), errors.Is(err, models.ErrNotFound):
		auth.FlashRedirect(w, r, h.log, msgBadDelete, back)
	case errors.Is(err, models.ErrNotLoggedIn):
		auth.FlashRedirect(w, r, h.log, auth.MsgLoginFirst, "/login")
	case err != nil:
		h.fail(w, r, "delete post failed", err, back)
	default:
		h.metrics.PostsWritten.WithLabelValues(metrics.PostDelete).Inc()
		if p.IsAdmin() {
			h.metrics.Moderation.WithLabelValues(models.ActionDeletePost).Inc()
		}
		h.log.Info("post deleted", zap.Int64("post_id", id), zap.String("by", p.Name()))
		auth.FlashRedirect(w, r, h.log, msgDeleted, back)
	}
}

// ProfilePage shows the current user's profile form.
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "load profile failed", err, "/")
		return
	}
	h.render.Render(w, r, http.StatusOK, "profile.html", "Meu perfil", u)
}

// UpdateProfile saves name, handle and an optional avatar upload.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarBytes+1<<20)
	if err := r.ParseMultipartForm(MaxAvatarBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		auth.FlashRedirect(w, r, h.log, msgBadUpload, "/profile")
		return
	}

	up, err := formUpload(r)
	if err != nil {
		auth.FlashRedirect(w, r, h.log, msgBadUpload, "/profile")
		return
	}

	p := auth.PrincipalFrom(r.Context())
	u, err := h.svc.UpdateProfile(r.Context(), p, r.FormValue("name"), r.FormValue("user"), up)
	switch {
	case errors.Is(err, models.ErrEmptyField):
		auth.FlashRedirect(w, r, h.log, msgFillProfile, "/profile")
	case errors.Is(err, models.ErrUploadRejected):
		auth.FlashRedirect(w, r, h.log, msgBadUpload, "/profile")
	case errors.Is(err, models.ErrDuplicateRegistration):
		auth.FlashRedirect(w, r, h.log, msgHandleTaken, "/profile")
	case err != nil:
		h.fail(w, r, "update profile failed", err, "/profile")
	default:
		if err := auth.SessionFrom(r.Context()).Refresh(r.Context(), w, u.Handle, u.Avatar); err != nil {
			h.log.Warn("session refresh failed", logging.Err(err)...)
		}
		auth.FlashRedirect(w, r, h.log, msgProfileSaved, "/profile")
	}
}

// formUpload reads the optional avatar file. A missing or empty file means
// no upload.
func formUpload(r *http.Request) (*Upload, error) {
	f, hdr, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if hdr.Filename == "" || hdr.Size == 0 {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxAvatarBytes+1))
	if err != nil {
		return nil, err
	}
	return &Upload{Filename: hdr.Filename, Data: data}, nil
}

// EmailPage shows the email form.
func (h *Handler) EmailPage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "load profile failed", err, "/")
		return
	}
	h.render.Render(w, r, http.StatusOK, "email.html", "Alterar email", u)
}

// UpdateEmail saves the current user's new email.
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	err := h.svc.UpdateEmail(r.Context(), auth.PrincipalFrom(r.Context()), r.PostFormValue("email"))
	switch {
	case errors.Is(err, models.ErrEmptyField):
		auth.FlashRedirect(w, r, h.log, msgEmptyEmail, "/profile/email")
	case errors.Is(err, models.ErrDuplicateRegistration):
		auth.FlashRedirect(w, r, h.log, msgEmailTaken, "/profile/email")
	case err != nil:
		h.fail(w, r, "update email failed", err, "/profile/email")
	default:
		auth.FlashRedirect(w, r, h.log, msgEmailSaved, "/profile")
	}
}

// Avatar streams a stored avatar picture.
func (h *Handler) Avatar(w http.ResponseWriter, r *http.Request) {
	data, ctype, err := h.svc.Avatar(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, models.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error("avatar read failed", logging.Err(err)...)
		http.Error(w, "avatar unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}
