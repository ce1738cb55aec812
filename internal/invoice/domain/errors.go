package domain

import "errors"

var (
	ErrNotFound          = errors.New("invoice_not_found")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrDuplicateNumber   = errors.New("duplicate_invoice_number")
)
