package router

import (
	"net/http"

	"github.com/ellarises/web/internal/view"
)

// pages serves the landing areas that only render a template.
type pages struct {
	views *view.Renderer
}

func (p *pages) home(w http.ResponseWriter, r *http.Request) {
	p.views.Render(w, http.StatusOK, view.PageHome, view.NewPageData(w, r, "Ella Rises", "home"))
}

// static renders a public page that needs nothing beyond the shared page data.
func (p *pages) static(page, title, nav string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.views.Render(w, http.StatusOK, page, view.NewPageData(w, r, title, nav))
	}
}

func (p *pages) journey(w http.ResponseWriter, r *http.Request) {
	p.views.Render(w, http.StatusOK, view.PageJourney, view.NewPageData(w, r, "My Journey | Ella Rises", "my-journey"))
}

func (p *pages) dashboard(w http.ResponseWriter, r *http.Request) {
	p.views.Render(w, http.StatusOK, view.PageDashboard, view.NewPageData(w, r, "Manage | Ella Rises", "manage"))
}

func (p *pages) notFound(w http.ResponseWriter, r *http.Request) {
	p.views.Render(w, http.StatusNotFound, view.PageNotFound, view.NewPageData(w, r, "Not Found | Ella Rises", ""))
}
