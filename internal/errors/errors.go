package errors

import (
	"errors"
	"fmt"
)

// Common error types for the FoodBook server and client
var (
	// Credential errors (token verification)
	ErrCredentialMissing   = errors.New("credential missing")
	ErrCredentialInvalid   = errors.New("credential invalid")
	ErrCredentialExpired   = errors.New("credential expired")
	ErrCredentialWrongType = errors.New("credential has wrong type")
	ErrRefreshReused       = errors.New("refresh credential already used")

	// Authorization gate errors
	ErrIdentityNotFound = errors.New("identity not found")
	ErrAccountBlocked   = errors.New("account has been blocked")
	ErrAccountDeleted   = errors.New("account has been deleted")
	ErrInsufficientRole = errors.New("insufficient role")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrOwnAccount         = errors.New("administrators cannot change their own account state")

	// Client errors
	ErrNetworkFailure = errors.New("network failure")

	// General errors
	ErrInternal    = errors.New("internal error")
	ErrInvalidConf = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
