// Package flash carries one-time notices across a redirect in a short-lived cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const CookieName = "er_flash"

// Kind selects how a notice is styled.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// Notice is a single message shown on the next rendered page.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func Success(msg string) Notice { return Notice{Kind: KindSuccess, Message: msg} }
func Info(msg string) Notice    { return Notice{Kind: KindInfo, Message: msg} }
func Error(msg string) Notice   { return Notice{Kind: KindError, Message: msg} }

// Write stores n for the next page render. Invalid notices are dropped.
func Write(w http.ResponseWriter, r *http.Request, n Notice) {
	n, ok := normalize(n)
	if !ok {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadAndClear returns the pending notice, if any, and expires the cookie.
// A malformed cookie is still cleared.
func ReadAndClear(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Notice{}, false
	}
	Clear(w, r)
	return decode(c.Value)
}

func Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func decode(raw string) (Notice, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Notice{}, false
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Notice{}, false
	}
	var n Notice
	if err := json.Unmarshal(b, &n); err != nil {
		return Notice{}, false
	}
	return normalize(n)
}

func normalize(n Notice) (Notice, bool) {
	n.Message = strings.TrimSpace(n.Message)
	if n.Message == "" {
		return Notice{}, false
	}
	switch n.Kind {
	case KindSuccess, KindInfo, KindError:
		return n, true
	default:
		return Notice{}, false
	}
}

func isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
