package auth

import "errors"

// Token service errors.
var (
	// ErrInvalidToken indicates a malformed token or a bad signature.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token's nbf or iat is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrWeakSecret is returned for signing secrets shorter than MinSecretLength.
	ErrWeakSecret = errors.New("auth secret is too short")
)
