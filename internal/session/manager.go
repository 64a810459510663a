package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ellarises/web/internal/flash"
	"github.com/ellarises/web/internal/identity/entity"
)

const (
	msgLoginRequired = "Please log in to access My Journey."
	msgForbidden     = "You do not have access to that page."
)

type ctxKey struct{}

// IdentityFromContext returns the identity resolved by Manager.Middleware.
func IdentityFromContext(ctx context.Context) (entity.SessionIdentity, bool) {
	id, ok := ctx.Value(ctxKey{}).(entity.SessionIdentity)
	return id, ok
}

// WithIdentity attaches id to ctx the same way Middleware does.
func WithIdentity(ctx context.Context, id entity.SessionIdentity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Manager ties a Store to the session cookie and exposes the HTTP gates.
type Manager struct {
	store  Store
	secure bool
	logger *zap.SugaredLogger

	LoginPath       string
	ParticipantPath string
}

func NewManager(store Store, secure bool, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		store:           store,
		secure:          secure,
		logger:          logger,
		LoginPath:       "/login",
		ParticipantPath: "/my-journey",
	}
}

func (m *Manager) Store() Store { return m.store }

// Start issues a fresh session for identity. Any session the request already
// carried is destroyed first so an old id never becomes authenticated.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, identity entity.SessionIdentity) error {
	if old := IDFromRequest(r); old != "" {
		if err := m.store.Destroy(r.Context(), old); err != nil {
			m.logger.Warnw("destroy previous session", "error", err)
		}
	}
	s, err := m.store.Create(r.Context(), identity)
	if err != nil {
		return err
	}
	setCookie(w, s, m.secure)
	return nil
}

// Clear expires the session cookie on the client.
func (m *Manager) Clear(w http.ResponseWriter) { clearCookie(w, m.secure) }

// Middleware resolves the session cookie into the request context. Unknown or
// expired sessions are treated as anonymous and their cookie is cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IDFromRequest(r)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		s, err := m.store.Get(r.Context(), id)
		switch {
		case errors.Is(err, ErrNotFound):
			clearCookie(w, m.secure)
			next.ServeHTTP(w, r)
			return
		case err != nil:
			m.logger.Errorw("load session", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), s.Identity)))
	})
}

// RequireAuth sends anonymous callers to the login page.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			flash.Write(w, r, flash.Error(msgLoginRequired))
			http.Redirect(w, r, m.LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin is RequireAuth plus the admin role; other roles go to the
// participant area.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		if !id.IsAdmin() {
			flash.Write(w, r, flash.Error(msgForbidden))
			http.Redirect(w, r, m.ParticipantPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
