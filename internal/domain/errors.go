package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrUnsafeURL         = errors.New("url targets a forbidden destination")
	ErrTransientDelivery = errors.New("delivery failed")
	ErrDeliveryExhausted = errors.New("delivery retries exhausted")
	ErrConfiguration     = errors.New("invalid configuration")
)
