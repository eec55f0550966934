package account

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/starter/pkg/flash"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/session"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

// LoadUser resolves the session's user into the request context.
// A session whose user no longer exists is destroyed.
func (m *Module) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := session.UserIDFromContext(ctx)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		u, err := m.svc.GetUser(ctx, userID)
		switch {
		case err == nil:
			r = r.WithContext(accountsvc.WithUser(ctx, u))
		case errors.Is(err, accountsvc.ErrUserNotFound):
			if derr := m.sessions.Destroy(ctx, w, r); derr != nil {
				m.log.WarnContext(ctx, "failed to destroy orphaned session", logger.Error(derr))
			}
			r = r.WithContext(session.WithSession(ctx, nil))
		default:
			m.log.ErrorContext(ctx, "failed to load session user", logger.UserID(userID), logger.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth sends anonymous visitors to /login and remembers where they
// were going.
func (m *Module) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := accountsvc.UserFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodGet {
			if err := m.sessions.Set(r.Context(), w, r, returnToKey, r.URL.RequestURI()); err != nil {
				m.log.WarnContext(r.Context(), "failed to remember return path", logger.Error(err))
			}
		}
		if err := m.flash.Set(w, flash.Error(msgLoginRequired)); err != nil {
			m.log.WarnContext(r.Context(), "failed to set flash notices", logger.Error(err))
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// RedirectIfAuthenticated keeps signed-in users away from the login,
// signup and password recovery pages.
func (m *Module) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := accountsvc.UserFromContext(r.Context()); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
