package account

import "fmt"

const (
	msgLoggedIn          = "Success! You are logged in."
	msgLoginFailed       = "Invalid email or password."
	msgSignupConflict    = "Account with that email address already exists."
	msgProfileConflict   = "The email address you have entered is already associated with an account."
	msgProfileUpdated    = "Profile information has been updated."
	msgPasswordChanged   = "Password has been changed."
	msgAccountDeleted    = "Your account has been deleted."
	msgNoSuchAccount     = "Account with that email address does not exist."
	msgResetUniform      = "If an account with that email address exists, an email has been sent with further instructions."
	msgResetMailFailed   = "Error sending the password reset message. Please try again shortly."
	msgTokenInvalid      = "Password reset token is invalid or has expired."
	msgResetSuccess      = "Success! Your password has been changed."
	msgLoginRequired     = "Please log in to continue."
	msgPasswordsMismatch = "Passwords do not match"
)

func msgResetSent(email string) string {
	return fmt.Sprintf("An email has been sent to %s with further instructions.", email)
}
