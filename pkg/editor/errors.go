package editor

import (
	"errors"
	"fmt"

	"rich-edit/pkg/imagestore"
)

var (
	ErrEmptySelection  = errors.New("select some text first")
	ErrEmptyLinkText   = errors.New("link text is empty")
	ErrInvalidURL      = errors.New("invalid url")
	ErrUnsupportedType = imagestore.ErrUnsupportedType
	ErrFileTooLarge    = imagestore.ErrFileTooLarge

	ErrNoLinkDraft     = errors.New("no link in progress")
	ErrNoImageStore    = errors.New("no image store configured")
	ErrNoImage         = errors.New("no image at position")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrUnknownPosition = errors.New("position does not resolve")
)

// ValidationError is raised before any mutation, the document is untouched.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func invalid(field string, reason error) error {
	return &ValidationError{Field: field, Reason: reason}
}
