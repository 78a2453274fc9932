package account

import "errors"

var (
	ErrNotFound           = errors.New("account: not found")
	ErrConflict           = errors.New("account: username or email already taken")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrInvalidToken       = errors.New("account: invalid token")
	ErrInvalidInput       = errors.New("account: invalid input")

	ErrPasswordTooShort   = errors.New("account: password must be at least 8 characters")
	ErrPasswordComplexity = errors.New("account: password must mix upper case, lower case and digits")
)

// IsPolicyViolation reports whether err is a password policy failure.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordComplexity)
}
