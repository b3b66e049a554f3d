package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	errx "github.com/talksphere/server/internal/core/error"
)

type ctxKey int

const userIDKey ctxKey = iota

// userID returns the authenticated user ID or "" for anonymous requests.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func (s *Server) tokenFrom(r *http.Request) string {
	c, err := r.Cookie(s.cfg.Auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) withUser(r *http.Request, id string) *http.Request {
	hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("user_id", id)
	})
	return r.WithContext(context.WithValue(r.Context(), userIDKey, id))
}

// requireUser rejects requests without a valid session cookie.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.Authenticate(r.Context(), s.tokenFrom(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, s.withUser(r, id))
	})
}

// optionalUser attaches the user when the cookie is valid and otherwise
// continues anonymously. Only backend failures are reported.
func (s *Server) optionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := s.tokenFrom(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := s.auth.Authenticate(r.Context(), raw)
		switch {
		case err == nil:
			next.ServeHTTP(w, s.withUser(r, id))
		case errx.HasStatus(err, http.StatusUnauthorized):
			next.ServeHTTP(w, r)
		default:
			writeError(w, r, err)
		}
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.cfg.Auth.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Environment.SecureCookies(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Environment.SecureCookies(),
		SameSite: http.SameSiteStrictMode,
	})
}
