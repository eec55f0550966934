package account

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// resetTokenBytes is the entropy of an emailed reset token.
const resetTokenBytes = 32

// newResetToken returns the plaintext token for the email link and the
// digest that is stored.
func newResetToken() (token, digest string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", errors.Join(ErrTokenFailed, err)
	}
	token = hex.EncodeToString(b)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
