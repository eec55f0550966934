package account

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/starter/handler"
	"github.com/dmitrymomot/starter/pkg/flash"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/validator"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

func (m *Module) login(ctx handler.Context, req loginForm) handler.Response {
	page := func(status int, errs validator.ValidationErrors) handler.Response {
		return handler.TemplStatus(status, m.views.LoginPage(LoginPageParams{Email: req.Email, Errors: errs}))
	}
	if ctx.Request().Method != http.MethodPost {
		return page(http.StatusOK, nil)
	}
	if err := req.validate(); err != nil {
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	}

	u, err := m.svc.Authenticate(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, accountsvc.ErrUserNotFound), errors.Is(err, accountsvc.ErrInvalidCredentials):
		m.log.InfoContext(ctx, "login failed", logger.Email(req.Email), logger.Error(err))
		return m.redirect(ctx, "/login", flash.Error(msgLoginFailed))
	case err != nil:
		return handler.Error(err)
	}

	returnTo, _ := m.sessions.Pop(ctx, ctx.Request(), returnToKey)
	if _, err := m.sessions.Authenticate(ctx, ctx.ResponseWriter(), ctx.Request(), u.ID); err != nil {
		return handler.Error(err)
	}
	if !handler.IsLocalPath(returnTo) {
		returnTo = "/"
	}
	return m.redirect(ctx, returnTo, flash.Success(msgLoggedIn))
}

func (m *Module) signup(ctx handler.Context, req signupForm) handler.Response {
	page := func(status int, errs validator.ValidationErrors) handler.Response {
		return handler.TemplStatus(status, m.views.SignupPage(SignupPageParams{Email: req.Email, Errors: errs}))
	}
	if ctx.Request().Method != http.MethodPost {
		return page(http.StatusOK, nil)
	}
	if err := req.validate(); err != nil {
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	}

	u, err := m.svc.Register(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, accountsvc.ErrEmailAlreadyExists):
		return m.redirect(ctx, "/signup", flash.Error(msgSignupConflict))
	case validator.IsValidationError(err):
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	case err != nil:
		return handler.Error(err)
	}

	if _, err := m.sessions.Authenticate(ctx, ctx.ResponseWriter(), ctx.Request(), u.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Redirect("/")
}

func (m *Module) logout(ctx handler.Context, _ struct{}) handler.Response {
	if err := m.sessions.Destroy(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		m.log.WarnContext(ctx, "failed to destroy session on logout", logger.Error(err))
	}
	return handler.Redirect("/")
}
