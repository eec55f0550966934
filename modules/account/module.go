package account

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/starter/handler"
	"github.com/dmitrymomot/starter/pkg/binder"
	"github.com/dmitrymomot/starter/pkg/flash"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/session"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

const (
	minPasswordLength = accountsvc.MinPasswordLength
	maxPasswordBytes  = accountsvc.MaxPasswordBytes

	// returnToKey holds the page an anonymous visitor asked for before login.
	returnToKey = "return_to"
)

// Module serves the account workflows: signup, login, logout, password
// reset, profile and password updates, account deletion.
type Module struct {
	svc          *accountsvc.Service
	sessions     *session.Manager
	flash        *flash.Store
	views        Views
	errorHandler handler.ErrorHandler[handler.Context]
	log          *slog.Logger
	baseURL      string
	uniformReset bool
	throttle     func(http.Handler) http.Handler
}

type Option func(*Module)

func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(m *Module) {
		if h != nil {
			m.errorHandler = h
		}
	}
}

// WithBaseURL sets the absolute origin used in emailed reset links.
// Without it the origin is taken from the request.
func WithBaseURL(u string) Option {
	return func(m *Module) {
		m.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUniformResetResponse answers forgot-password requests identically
// whether or not the account exists. By default an unknown address gets a
// "no such account" notice.
func WithUniformResetResponse() Option {
	return func(m *Module) {
		m.uniformReset = true
	}
}

// WithThrottle wraps the credential-accepting POST routes (login, signup,
// forgot and reset) with mw, typically a rate limiter.
func WithThrottle(mw func(http.Handler) http.Handler) Option {
	return func(m *Module) {
		if mw != nil {
			m.throttle = mw
		}
	}
}

func New(svc *accountsvc.Service, sessions *session.Manager, notices *flash.Store, views Views, opts ...Option) *Module {
	m := &Module{
		svc:          svc,
		sessions:     sessions,
		flash:        notices,
		views:        views,
		errorHandler: handler.NewErrorHandler(nil, handler.ErrorHandlerConfig{}),
		log:          logger.Discard(),
		throttle:     func(next http.Handler) http.Handler { return next },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("account_module"))
	return m
}

// Routes registers the account routes on r. LoadUser must run earlier in the
// middleware chain, after the session middleware.
func (m *Module) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(m.RedirectIfAuthenticated)
		r.Get("/login", wrap(m, m.login))
		r.With(m.throttle).Post("/login", wrap(m, m.login, binder.Form()))
		r.Get("/signup", wrap(m, m.signup))
		r.With(m.throttle).Post("/signup", wrap(m, m.signup, binder.Form()))
		r.Get("/forgot", wrap(m, m.forgot))
		r.With(m.throttle).Post("/forgot", wrap(m, m.forgot, binder.Form()))
		r.Get("/reset/{token}", wrap(m, m.reset, binder.Path(chi.URLParam)))
		r.With(m.throttle).Post("/reset/{token}", wrap(m, m.reset, binder.Path(chi.URLParam), binder.Form()))
	})

	r.With(m.RequireAuth).Get("/logout", wrap(m, m.logout))

	r.Route("/account", func(r chi.Router) {
		r.Use(m.RequireAuth)
		r.Get("/", wrap(m, m.accountPage))
		r.Post("/profile", wrap(m, m.updateProfile, binder.Form()))
		r.Post("/password", wrap(m, m.updatePassword, binder.Form()))
		r.Post("/delete", wrap(m, m.deleteAccount))
	})
}

func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

// redirect flashes msgs and redirects to the given path.
func (m *Module) redirect(ctx handler.Context, to string, msgs ...flash.Message) handler.Response {
	if err := m.flash.Set(ctx.ResponseWriter(), msgs...); err != nil {
		m.log.WarnContext(ctx, "failed to set flash notices", logger.Error(err))
	}
	return handler.Redirect(to)
}

func (m *Module) resetLink(r *http.Request) func(token string) string {
	origin := m.baseURL
	if origin == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		origin = scheme + "://" + r.Host
	}
	return func(token string) string {
		return origin + "/reset/" + token
	}
}
