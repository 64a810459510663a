package identity

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ellarises/web/internal/flash"
	"github.com/ellarises/web/internal/session"
	"github.com/ellarises/web/internal/view"
)

const (
	msgLoginSuccess  = "Welcome back to Ella Rises."
	msgSignupSuccess = "Your account was created. Welcome to Ella Rises."
	msgLoggedOut     = "You have been logged out."
)

// Handler exposes the login, signup and logout form endpoints.
type Handler struct {
	svc      *Service
	sessions *session.Manager
	views    *view.Renderer
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *session.Manager, views *view.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, views: views, logger: logger}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /signup", h.SignupForm)
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /logout", h.Logout)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if id, ok := session.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, LandingPath(id), http.StatusSeeOther)
		return
	}
	data := view.NewPageData(w, r, "Login | Ella Rises", "login")
	data.Email = r.URL.Query().Get("email")
	h.views.Render(w, http.StatusOK, view.PageLogin, data)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "/login", "", &Error{Kind: KindValidation, Msg: msgLoginFieldsRequired})
		return
	}
	email := r.PostForm.Get("email")
	id, err := h.svc.LogIn(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		h.fail(w, r, "/login", email, err)
		return
	}
	if err := h.sessions.Start(w, r, id); err != nil {
		h.logger.Errorw("start session", "account_id", id.AccountID, "error", err)
		h.fail(w, r, "/login", email, newError(KindStoreUnavailable, err))
		return
	}
	flash.Write(w, r, flash.Success(msgLoginSuccess))
	http.Redirect(w, r, LandingPath(id), http.StatusSeeOther)
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	if id, ok := session.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, LandingPath(id), http.StatusSeeOther)
		return
	}
	data := view.NewPageData(w, r, "Create Account | Ella Rises", "signup")
	data.Email = r.URL.Query().Get("email")
	h.views.Render(w, http.StatusOK, view.PageSignup, data)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "/signup", "", newError(KindValidation, err))
		return
	}
	f := r.PostForm
	in := SignUpInput{
		FirstName:       f.Get("firstName"),
		LastName:        f.Get("lastName"),
		Email:           f.Get("email"),
		Password:        f.Get("password"),
		ConfirmPassword: f.Get("confirmPassword"),
	}
	id, err := h.svc.SignUp(r.Context(), in)
	if err != nil {
		target := "/signup"
		if KindOf(err) == KindDuplicateAccount {
			target = "/login"
		}
		h.fail(w, r, target, in.Email, err)
		return
	}
	if err := h.sessions.Start(w, r, id); err != nil {
		// the account exists; send the caller to log in rather than retry signup
		h.logger.Errorw("start session", "account_id", id.AccountID, "error", err)
		h.fail(w, r, "/login", in.Email, newError(KindStoreUnavailable, err))
		return
	}
	flash.Write(w, r, flash.Success(msgSignupSuccess))
	http.Redirect(w, r, LandingPath(id), http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.LogOut(r.Context(), h.sessions.Store(), session.IDFromRequest(r))
	h.sessions.Clear(w)
	flash.Write(w, r, flash.Info(msgLoggedOut))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail flashes the caller-facing message for err and redirects to target,
// carrying the submitted email so the form can be pre-filled.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, target, email string, err error) {
	h.logger.Debugw("auth form rejected", "path", r.URL.Path, "kind", KindOf(err).String())
	flash.Write(w, r, flash.Error(MessageOf(err)))
	if email != "" {
		target += "?" + url.Values{"email": {email}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
