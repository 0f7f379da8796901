package common

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Each processing failure wraps exactly one of
// these sentinels so callers can classify with errors.Is without parsing
// messages.
var (
	ErrNotFound      = errors.New("report not found")
	ErrRetrieval     = errors.New("audio retrieval failed")
	ErrTranscription = errors.New("transcription failed")
	ErrExtraction    = errors.New("structured extraction failed")
	ErrValidation    = errors.New("extraction validation failed")
	ErrPersistence   = errors.New("report store unavailable")
	ErrInvalidInput  = errors.New("invalid input")
)

// Tag wraps err under the given sentinel, keeping both in the unwrap chain.
func Tag(sentinel error, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Tagf wraps a formatted message under the given sentinel.
func Tagf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
