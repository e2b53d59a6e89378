package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("image not found")
	ErrContentMissing = errors.New("image content not found")
)

// ValidationError reports client input that cannot be turned into an image.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// StoreError wraps a failed call against the blob or metadata store.
type StoreError struct {
	Op      string
	ImageID string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ImageID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ImageID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
