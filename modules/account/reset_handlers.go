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

func (m *Module) forgot(ctx handler.Context, req forgotForm) handler.Response {
	page := func(status int, errs validator.ValidationErrors) handler.Response {
		return handler.TemplStatus(status, m.views.ForgotPage(ForgotPageParams{Email: req.Email, Errors: errs}))
	}
	if ctx.Request().Method != http.MethodPost {
		return page(http.StatusOK, nil)
	}
	if err := req.validate(); err != nil {
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	}

	sent := flash.Info(msgResetSent(req.Email))
	if m.uniformReset {
		sent = flash.Info(msgResetUniform)
	}

	_, err := m.svc.RequestPasswordReset(ctx, req.Email, m.resetLink(ctx.Request()))
	switch {
	case err == nil:
		return m.redirect(ctx, "/forgot", sent)
	case errors.Is(err, accountsvc.ErrUserNotFound):
		if m.uniformReset {
			return m.redirect(ctx, "/forgot", sent)
		}
		return m.redirect(ctx, "/forgot", flash.Error(msgNoSuchAccount))
	case errors.Is(err, accountsvc.ErrMailDelivery):
		return m.redirect(ctx, "/forgot", flash.Error(msgResetMailFailed))
	case validator.IsValidationError(err):
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	default:
		return handler.Error(err)
	}
}

func (m *Module) reset(ctx handler.Context, req resetForm) handler.Response {
	page := func(status int, errs validator.ValidationErrors) handler.Response {
		return handler.TemplStatus(status, m.views.ResetPage(ResetPageParams{Token: req.Token, Errors: errs}))
	}

	if ctx.Request().Method != http.MethodPost {
		if _, err := m.svc.ValidateResetToken(ctx, req.Token); err != nil {
			return m.tokenError(ctx, err)
		}
		return page(http.StatusOK, nil)
	}

	if err := req.validate(); err != nil {
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	}

	u, err := m.svc.ResetPassword(ctx, req.Token, req.Password)
	switch {
	case validator.IsValidationError(err):
		return page(http.StatusUnprocessableEntity, validator.ExtractValidationErrors(err))
	case err != nil:
		return m.tokenError(ctx, err)
	}

	if _, err := m.sessions.Authenticate(ctx, ctx.ResponseWriter(), ctx.Request(), u.ID); err != nil {
		m.log.WarnContext(ctx, "failed to sign in after password reset", logger.UserID(u.ID), logger.Error(err))
	}
	return m.redirect(ctx, "/", flash.Success(msgResetSuccess))
}

func (m *Module) tokenError(ctx handler.Context, err error) handler.Response {
	if errors.Is(err, accountsvc.ErrTokenInvalid) {
		return m.redirect(ctx, "/forgot", flash.Error(msgTokenInvalid))
	}
	return handler.Error(err)
}
