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

func currentUser(ctx handler.Context) (*accountsvc.User, handler.Response) {
	u, ok := accountsvc.UserFromContext(ctx)
	if !ok {
		return nil, handler.Redirect("/login")
	}
	return u, nil
}

func (m *Module) accountPage(ctx handler.Context, _ struct{}) handler.Response {
	u, resp := currentUser(ctx)
	if resp != nil {
		return resp
	}
	return handler.Templ(m.views.AccountPage(AccountPageParams{User: u, Profile: profileFieldsOf(u)}))
}

func (m *Module) updateProfile(ctx handler.Context, req profileForm) handler.Response {
	u, resp := currentUser(ctx)
	if resp != nil {
		return resp
	}

	_, err := m.svc.UpdateProfile(ctx, u.ID, accountsvc.ProfileUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Gender:   req.Gender,
		Location: req.Location,
		Website:  req.Website,
	})
	switch {
	case err == nil:
		return m.redirect(ctx, "/account", flash.Success(msgProfileUpdated))
	case validator.IsValidationError(err):
		return handler.TemplStatus(http.StatusUnprocessableEntity, m.views.AccountPage(AccountPageParams{
			User:          u,
			Profile:       ProfileFields(req),
			ProfileErrors: validator.ExtractValidationErrors(err),
		}))
	case errors.Is(err, accountsvc.ErrEmailAlreadyExists):
		return m.redirect(ctx, "/account", flash.Error(msgProfileConflict))
	default:
		return handler.Error(err)
	}
}

func (m *Module) updatePassword(ctx handler.Context, req passwordForm) handler.Response {
	u, resp := currentUser(ctx)
	if resp != nil {
		return resp
	}

	err := req.validate()
	if err == nil {
		err = m.svc.UpdatePassword(ctx, u.ID, req.Password)
	}
	switch {
	case err == nil:
		return m.redirect(ctx, "/account", flash.Success(msgPasswordChanged))
	case validator.IsValidationError(err):
		return handler.TemplStatus(http.StatusUnprocessableEntity, m.views.AccountPage(AccountPageParams{
			User:           u,
			Profile:        profileFieldsOf(u),
			PasswordErrors: validator.ExtractValidationErrors(err),
		}))
	default:
		return handler.Error(err)
	}
}

// deleteAccount removes the record and every session bound to it.
func (m *Module) deleteAccount(ctx handler.Context, _ struct{}) handler.Response {
	u, resp := currentUser(ctx)
	if resp != nil {
		return resp
	}

	if err := m.svc.DeleteAccount(ctx, u.ID); err != nil && !errors.Is(err, accountsvc.ErrUserNotFound) {
		return handler.Error(err)
	}
	if err := m.sessions.DestroyUserSessions(ctx, u.ID); err != nil {
		m.log.WarnContext(ctx, "failed to drop user sessions", logger.UserID(u.ID), logger.Error(err))
	}
	if err := m.sessions.Destroy(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		m.log.WarnContext(ctx, "failed to destroy session", logger.UserID(u.ID), logger.Error(err))
	}
	return m.redirect(ctx, "/", flash.Info(msgAccountDeleted))
}
