package account

import "github.com/dmitrymomot/starter/pkg/validator"

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (f loginForm) validate() error {
	return validator.Apply(
		validator.ValidEmail("email", f.Email),
		validator.Required("password", f.Password),
	)
}

type signupForm struct {
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (f signupForm) validate() error {
	return validator.Apply(
		validator.ValidEmail("email", f.Email),
		validator.MinLen("password", f.Password, minPasswordLength),
		validator.MaxBytes("password", f.Password, maxPasswordBytes),
		validator.Equal("confirm_password", f.ConfirmPassword, f.Password, msgPasswordsMismatch),
	)
}

type forgotForm struct {
	Email string `form:"email"`
}

func (f forgotForm) validate() error {
	return validator.Apply(validator.ValidEmail("email", f.Email))
}

type resetForm struct {
	Token           string `path:"token"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (f resetForm) validate() error {
	return validator.Apply(
		validator.MinLen("password", f.Password, minPasswordLength),
		validator.MaxBytes("password", f.Password, maxPasswordBytes),
		validator.Equal("confirm_password", f.ConfirmPassword, f.Password, msgPasswordsMismatch),
	)
}

type profileForm struct {
	Email    string `form:"email"`
	Name     string `form:"name"`
	Gender   string `form:"gender"`
	Location string `form:"location"`
	Website  string `form:"website"`
}

type passwordForm struct {
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (f passwordForm) validate() error {
	return validator.Apply(
		validator.MinLen("password", f.Password, minPasswordLength),
		validator.MaxBytes("password", f.Password, maxPasswordBytes),
		validator.Equal("confirm_password", f.ConfirmPassword, f.Password, msgPasswordsMismatch),
	)
}
