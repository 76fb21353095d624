package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken marks a structurally valid token past its expiry.
	ErrExpiredToken = errors.New("token expired")

	// ErrTokenNotFound means no record exists for the presented refresh token.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenRevoked means the refresh token was already rotated or revoked.
	// Seeing it on a rotation attempt is a potential compromise signal.
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrMissingCredential means no token was presented at all.
	ErrMissingCredential = errors.New("missing credential")
)
