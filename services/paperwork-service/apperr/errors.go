// Package apperr defines the structured error kinds surfaced by the paperwork service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transport layers can branch without parsing messages.
type Kind string

const (
	KindNotAuthorized          Kind = "NotAuthorized"
	KindForbidden              Kind = "Forbidden"
	KindNotFound               Kind = "NotFound"
	KindVersionNotFound        Kind = "VersionNotFound"
	KindEntryNotFound          Kind = "EntryNotFound"
	KindNothingToReview        Kind = "NothingToReview"
	KindNoArtifacts            Kind = "NoArtifacts"
	KindMissingPrimaryArtifact Kind = "MissingPrimaryArtifact"
	KindStaleVersion           Kind = "StaleVersion"
	KindInvalidArtifact        Kind = "InvalidArtifact"
	KindInvalidInput           Kind = "InvalidInput"
	KindUnsupportedMediaKind   Kind = "UnsupportedMediaKind"
	KindCorruptArchive         Kind = "CorruptArchive"
	KindEntryTooLarge          Kind = "EntryTooLarge"
	KindKeyAlreadyExists       Kind = "KeyAlreadyExists"
	KindStorageFailure         Kind = "StorageFailure"
	KindInternal               Kind = "Internal"
)

// Sentinels for errors.Is checks. Matching is by kind only.
var (
	ErrNotAuthorized          = &Error{Kind: KindNotAuthorized}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrVersionNotFound        = &Error{Kind: KindVersionNotFound}
	ErrEntryNotFound          = &Error{Kind: KindEntryNotFound}
	ErrNothingToReview        = &Error{Kind: KindNothingToReview}
	ErrNoArtifacts            = &Error{Kind: KindNoArtifacts}
	ErrMissingPrimaryArtifact = &Error{Kind: KindMissingPrimaryArtifact}
	ErrStaleVersion           = &Error{Kind: KindStaleVersion}
	ErrInvalidArtifact        = &Error{Kind: KindInvalidArtifact}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput}
	ErrUnsupportedMediaKind   = &Error{Kind: KindUnsupportedMediaKind}
	ErrCorruptArchive         = &Error{Kind: KindCorruptArchive}
	ErrEntryTooLarge          = &Error{Kind: KindEntryTooLarge}
	ErrKeyAlreadyExists       = &Error{Kind: KindKeyAlreadyExists}
	ErrStorageFailure         = &Error{Kind: KindStorageFailure}
)

// Error is a kind plus a human readable message, optionally wrapping a cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human message of err without the wrapped cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
