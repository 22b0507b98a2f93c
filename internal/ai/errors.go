package ai

import "errors"

var (
	// ErrQuotaExceeded signals the local usage counter refused the call.
	ErrQuotaExceeded = errors.New("rate limit exceeded: wait before retry")

	// ErrEmptyCompletion signals the provider returned no choices.
	ErrEmptyCompletion = errors.New("completion returned no choices")
)
