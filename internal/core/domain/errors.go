package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentTooLarge    = errors.New("document too large")
	ErrUnsupportedDocument = errors.New("unsupported document")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrOracleUnavailable   = errors.New("oracle unavailable")
	ErrTemporary           = errors.New("temporary failure")
)

func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
