package account

import "errors"

var (
	ErrUserNotFound       = errors.New("account.user_not_found")
	ErrEmailAlreadyExists = errors.New("account.email_already_exists")
	ErrInvalidCredentials = errors.New("account.invalid_credentials")
	ErrTokenInvalid       = errors.New("account.reset_token_invalid")

	// ErrMailDelivery marks a mail failure after the state change was saved.
	ErrMailDelivery = errors.New("account.mail_delivery_failed")

	ErrHashFailed   = errors.New("account.hash_failed")
	ErrTokenFailed  = errors.New("account.token_generation_failed")
	ErrStoreFailure = errors.New("account.store_failure")
)
