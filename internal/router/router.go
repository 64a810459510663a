package router

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ellarises/web/internal/identity"
	"github.com/ellarises/web/internal/session"
	"github.com/ellarises/web/internal/view"
	"github.com/ellarises/web/pkg/utilities"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware tags every request with a snowflake id, echoed back in
// the X-Request-ID response header.
func RequestIDMiddleware(gen *utilities.SnowflakeGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := gen.Next()
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// LoggingMiddleware logs each request once it has been served.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Infow("http request",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets a conservative set of security headers. The
// CSP admits the jsDelivr CDN the pages load their stylesheet from.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer-when-downgrade")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if h.Get("Content-Security-Policy") == "" {
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://cdn.jsdelivr.net; style-src 'self' https://cdn.jsdelivr.net; img-src 'self' data:; object-src 'none'; base-uri 'self'; form-action 'self';")
			}
			// HSTS only over TLS, 30 days
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Logger     *zap.SugaredLogger
	Identity   *identity.Handler
	Sessions   *session.Manager
	Views      *view.Renderer
	RequestIDs *utilities.SnowflakeGenerator
}

// RegisterRoutes mounts every route on a ServeMux and wraps it with the
// middleware chain.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	p := &pages{views: d.Views}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /{$}", p.home)
	mux.HandleFunc("GET /about", p.static(view.PageAbout, "About | Ella Rises", "about"))
	mux.HandleFunc("GET /programs", p.static(view.PagePrograms, "Programs | Ella Rises", "programs"))
	mux.HandleFunc("GET /get-involved", p.static(view.PageGetInvolved, "Get Involved | Ella Rises", "get-involved"))
	mux.HandleFunc("GET /donate", p.static(view.PageDonate, "Donate | Ella Rises", ""))
	mux.HandleFunc("GET /impact", p.static(view.PageImpact, "Impact | Ella Rises", ""))
	d.Identity.Register(mux)

	mux.Handle("GET /my-journey", d.Sessions.RequireAuth(http.HandlerFunc(p.journey)))
	mux.Handle("GET /manage", d.Sessions.RequireAdmin(http.RedirectHandler("/manage/dashboard", http.StatusSeeOther)))
	mux.Handle("GET /manage/dashboard", d.Sessions.RequireAdmin(http.HandlerFunc(p.dashboard)))

	mux.HandleFunc("/", p.notFound)

	var h http.Handler = d.Sessions.Middleware(mux)
	h = SecurityHeadersMiddleware()(h)
	h = LoggingMiddleware(d.Logger)(h)
	h = RequestIDMiddleware(d.RequestIDs)(h)
	return h
}
