package contact

import (
	"context"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/starter/handler"
	"github.com/dmitrymomot/starter/pkg/binder"
	"github.com/dmitrymomot/starter/pkg/email"
	"github.com/dmitrymomot/starter/pkg/email/templates"
	"github.com/dmitrymomot/starter/pkg/flash"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/sanitizer"
	"github.com/dmitrymomot/starter/pkg/validator"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

const (
	msgSent   = "Email has been sent successfully!"
	msgFailed = "Your message could not be sent. Please try again later."

	maxMessageLength = 5000
)

// Views renders the contact page.
type Views struct {
	ContactPage func(PageParams) templ.Component
}

// PageParams carries the submitted input. Anonymous visitors are asked for
// their name and email; signed-in users are not.
type PageParams struct {
	Anonymous bool
	Name      string
	Email     string
	Message   string
	Errors    validator.ValidationErrors
}

// Module serves the contact form and forwards messages by email.
type Module struct {
	mailer       email.EmailSender
	flash        *flash.Store
	views        Views
	to           string
	errorHandler handler.ErrorHandler[handler.Context]
	throttle     func(http.Handler) http.Handler
	log          *slog.Logger
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

// WithThrottle wraps POST /contact with mw.
func WithThrottle(mw func(http.Handler) http.Handler) Option {
	return func(m *Module) {
		if mw != nil {
			m.throttle = mw
		}
	}
}

// New creates the module. Messages are delivered to the address to.
func New(mailer email.EmailSender, notices *flash.Store, views Views, to string, opts ...Option) *Module {
	m := &Module{
		mailer:       mailer,
		flash:        notices,
		views:        views,
		to:           to,
		errorHandler: handler.NewErrorHandler(nil, handler.ErrorHandlerConfig{}),
		throttle:     func(next http.Handler) http.Handler { return next },
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("contact"))
	return m
}

func (m *Module) Routes(r chi.Router) {
	r.Get("/contact", m.wrap())
	r.With(m.throttle).Post("/contact", m.wrap(binder.Form()))
}

func (m *Module) wrap(binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(m.contact,
		handler.WithBinders[handler.Context, contactForm](binders...),
		handler.WithErrorHandler[handler.Context, contactForm](m.errorHandler),
	)
}

type contactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Message string `form:"message"`
}

func (m *Module) contact(ctx handler.Context, req contactForm) handler.Response {
	u, signedIn := accountsvc.UserFromContext(ctx)
	if signedIn {
		req.Name = u.DisplayName()
		req.Email = u.Email
	}
	req.Name = sanitizer.Apply(req.Name, sanitizer.Trim, sanitizer.SingleLine, sanitizer.RemoveControlChars)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Message = sanitizer.Apply(req.Message, sanitizer.Trim)

	page := func(status int, errs validator.ValidationErrors) handler.Response {
		return handler.TemplStatus(status, m.views.ContactPage(PageParams{
			Anonymous: !signedIn,
			Name:      req.Name,
			Email:     req.Email,
			Message:   req.Message,
			Errors:    errs,
		}))
	}
	if ctx.Request().Method != http.MethodPost {
		return page(http.StatusOK, nil)
	}

	if err := validator.Apply(
		validator.Required("name", req.Name),
		validator.MaxLen("name", req.Name, 100),
		validator.ValidEmail("email", req.Email),
		validator.Required("message", req.Message),
		validator.MaxLen("message", req.Message, maxMessageLength),
	); err != nil {
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	}

	if err := m.send(ctx, req); err != nil {
		m.log.ErrorContext(ctx, "failed to deliver contact message", logger.Email(req.Email), logger.Error(err))
		return m.redirect(ctx, flash.Error(msgFailed))
	}
	return m.redirect(ctx, flash.Success(msgSent))
}

func (m *Module) redirect(ctx handler.Context, msg flash.Message) handler.Response {
	if err := m.flash.Set(ctx.ResponseWriter(), msg); err != nil {
		m.log.WarnContext(ctx, "failed to set flash notices", logger.Error(err))
	}
	return handler.RedirectBack("/contact")
}

var messageTpl = template.Must(template.New("contact").Parse(
	`<p><strong>{{.Name}}</strong> &lt;{{.Email}}&gt; wrote:</p><p style="white-space: pre-wrap">{{.Message}}</p>`))

func (m *Module) send(ctx context.Context, req contactForm) error {
	body, err := templates.Render(ctx, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return messageTpl.Execute(w, req)
	}))
	if err != nil {
		return err
	}
	return m.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   m.to,
		Subject:  "Contact Form | " + req.Name,
		BodyHTML: body,
		ReplyTo:  req.Email,
		Tag:      "contact",
	})
}
