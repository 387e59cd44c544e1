package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/blog/internal/models"
)

//go:embed templates/*.html
var files embed.FS

// Chrome is the per-request data every page shows around its content.
type Chrome struct {
	LoggedIn bool
	Admin    bool
	Handle   string
	Avatar   string
	Flashes  []string
}

// ChromeFunc resolves the chrome for a request. It consumes pending flashes.
type ChromeFunc func(w http.ResponseWriter, r *http.Request) Chrome

// Page is what templates receive as their dot.
type Page struct {
	Chrome
	Title string
	Data  any
}

// Renderer executes the embedded HTML templates.
type Renderer struct {
	pages  map[string]*template.Template
	chrome ChromeFunc
	log    *zap.Logger
}

var funcs = template.FuncMap{
	"avatarURL": func(name string) string {
		if name == "" {
			name = models.DefaultAvatar
		}
		return "/avatars/" + name
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	},
}

// New parses every page against the shared layout.
func New(chrome ChromeFunc, log *zap.Logger) (*Renderer, error) {
	entries, err := files.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template)
	for _, e := range entries {
		if e.Name() == "layout.html" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(files, "templates/layout.html", path.Join("templates", e.Name()))
		if err != nil {
			return nil, err
		}
		pages[e.Name()] = t
	}
	return &Renderer{pages: pages, chrome: chrome, log: log}, nil
}

// Render writes page name with the given status. Template failures are
// logged and answered with a bare 500.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	t, ok := rd.pages[name]
	if !ok {
		rd.log.Error("unknown template", zap.String("template", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var chrome Chrome
	if rd.chrome != nil {
		chrome = rd.chrome(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", Page{Chrome: chrome, Title: title, Data: data}); err != nil {
		rd.log.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusNotFound, "notfound.html", "Página não encontrada", nil)
}
