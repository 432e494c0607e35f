package reaction

import "errors"

// Sentinel errors shared across the library.
var (
	// Configuration errors, reported before any network action.
	ErrEmptyEmojiSet      = errors.New("reaction: emoji set is empty")
	ErrDuplicateEmoji     = errors.New("reaction: emoji set contains duplicates")
	ErrNonPositiveTimeout = errors.New("reaction: timeout must be positive")
	ErrNoPages            = errors.New("reaction: page list is empty")
	ErrPageOutOfRange     = errors.New("reaction: page index out of range")
	ErrNoMessageStream    = errors.New("reaction: message stream not configured")

	// Transient action errors, classified by the platform adapters.
	ErrPermissionDenied = errors.New("reaction: missing permissions")
	ErrUnknownMessage   = errors.New("reaction: unknown message")

	// ErrStreamClosed is returned when subscribing after the event stream
	// has shut down.
	ErrStreamClosed = errors.New("reaction: event stream closed")
)

// IsTransient reports whether err is an action failure that cleanup paths
// swallow rather than surface.
func IsTransient(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUnknownMessage)
}
