package account

import (
	"github.com/a-h/templ"

	"github.com/dmitrymomot/starter/pkg/validator"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

// Views renders the account pages. Every page receives the submitted input
// and the validation errors to show inline.
type Views struct {
	LoginPage   func(LoginPageParams) templ.Component
	SignupPage  func(SignupPageParams) templ.Component
	ForgotPage  func(ForgotPageParams) templ.Component
	ResetPage   func(ResetPageParams) templ.Component
	AccountPage func(AccountPageParams) templ.Component
}

type LoginPageParams struct {
	Email  string
	Errors validator.ValidationErrors
}

type SignupPageParams struct {
	Email  string
	Errors validator.ValidationErrors
}

type ForgotPageParams struct {
	Email  string
	Errors validator.ValidationErrors
}

type ResetPageParams struct {
	Token  string
	Errors validator.ValidationErrors
}

// ProfileFields mirrors the profile form.
type ProfileFields struct {
	Email    string
	Name     string
	Gender   string
	Location string
	Website  string
}

type AccountPageParams struct {
	User           *accountsvc.User
	Profile        ProfileFields
	ProfileErrors  validator.ValidationErrors
	PasswordErrors validator.ValidationErrors
}

func profileFieldsOf(u *accountsvc.User) ProfileFields {
	return ProfileFields{
		Email:    u.Email,
		Name:     u.Profile.Name,
		Gender:   u.Profile.Gender,
		Location: u.Profile.Location,
		Website:  u.Profile.Website,
	}
}
