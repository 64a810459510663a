// Package view renders the server-side HTML pages. Every page receives its
// data explicitly through PageData.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/ellarises/web/internal/flash"
	"github.com/ellarises/web/internal/identity/entity"
	"github.com/ellarises/web/internal/session"
)

//go:embed templates/*.html
var templates embed.FS

// Page names accepted by Render.
const (
	PageHome        = "home"
	PageAbout       = "about"
	PagePrograms    = "programs"
	PageGetInvolved = "get_involved"
	PageDonate      = "donate"
	PageImpact      = "impact"
	PageLogin       = "login"
	PageSignup      = "signup"
	PageJourney     = "journey"
	PageDashboard   = "dashboard"
	PageNotFound    = "not_found"
)

var pages = []string{
	PageHome, PageAbout, PagePrograms, PageGetInvolved, PageDonate, PageImpact,
	PageLogin, PageSignup, PageJourney, PageDashboard, PageNotFound,
}

// PageData is everything a template may read.
type PageData struct {
	Title    string
	Nav      string
	Flash    *flash.Notice
	Identity *entity.SessionIdentity
	// Email pre-fills the login and signup forms after a failed attempt.
	Email string
}

// NewPageData consumes the pending flash notice and picks up the identity
// resolved by the session middleware.
func NewPageData(w http.ResponseWriter, r *http.Request, title, nav string) PageData {
	d := PageData{Title: title, Nav: nav}
	if n, ok := flash.ReadAndClear(w, r); ok {
		d.Flash = &n
	}
	if id, ok := session.IdentityFromContext(r.Context()); ok {
		d.Identity = &id
	}
	return d
}

type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		t, err := template.New("layout.html").ParseFS(templates, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page with status. The page is rendered to a buffer first so a
// template error never produces a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	t, ok := r.pages[page]
	if !ok {
		r.logger.Errorw("unknown page", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		r.logger.Errorw("render page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
