package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrURLRequired         = fmt.Errorf("%w: url is required", ErrInvalidURL)
	ErrGenerationExhausted = errors.New("short code generation exhausted")
	ErrNotFound            = errors.New("link not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrInvalidReport       = errors.New("invalid report")

	// ErrCodeTaken is returned by a LinkRepository when the short code already exists.
	ErrCodeTaken = errors.New("short code already exists")
)

// StoreError marks err as a persistence failure while keeping the cause.
func StoreError(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
