package home

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/starter/handler"
)

// Views renders the landing page.
type Views struct {
	HomePage func() templ.Component
}

type Module struct {
	views        Views
	errorHandler handler.ErrorHandler[handler.Context]
}

func New(views Views, errorHandler handler.ErrorHandler[handler.Context]) *Module {
	if errorHandler == nil {
		errorHandler = handler.NewErrorHandler(nil, handler.ErrorHandlerConfig{})
	}
	return &Module{views: views, errorHandler: errorHandler}
}

func (m *Module) Routes(r chi.Router) {
	r.Get("/", m.index())
}

func (m *Module) index() http.HandlerFunc {
	return handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		return handler.Templ(m.views.HomePage())
	}, handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler))
}
