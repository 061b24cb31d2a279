package storage

import "errors"

var (
	// ErrProviderNotFound is returned when no provider matches a lookup
	ErrProviderNotFound = errors.New("provider not found")

	// ErrTaskNotFound is returned when a generation task is not found
	ErrTaskNotFound = errors.New("generation task not found")

	// ErrAccountNotFound is returned when a credit account is not found
	ErrAccountNotFound = errors.New("credit account not found")

	// ErrInsufficientBalance is returned when a reserve would overdraw the account
	ErrInsufficientBalance = errors.New("insufficient balance")
)
