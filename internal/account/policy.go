package account

import "unicode"

const minPasswordLength = 8

// ValidatePassword checks password strength. Rules apply in order and
// the first failure wins: minimum length, then character classes
// (at least one upper case letter, one lower case letter and one
// digit). Special characters are tracked but not required.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	// Special characters stay optional; the class is still detected so
	// tightening the rule later is a one line change.
	_ = hasSpecial

	if !hasUpper || !hasLower || !hasDigit {
		return ErrPasswordComplexity
	}
	return nil
}
