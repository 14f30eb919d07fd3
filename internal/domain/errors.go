package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrIdempotencyMismatch = errors.New("idempotency key mismatch")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrCapExceeded         = errors.New("monthly spend cap exceeded")
	ErrInviteExpired       = errors.New("invite expired")
	ErrInviteRedeemed      = errors.New("invite already redeemed")
)
