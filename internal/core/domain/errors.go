package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingCredential = errors.New("missing credential")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentNotReady  = errors.New("document not ready")
	ErrReadFailure       = errors.New("read failure")
	ErrServiceFailure    = errors.New("answering service failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
