package resolver

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution failures.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrUnsupportedScheme indicates no resolver is registered for the scheme.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrDownload indicates a transport failure, a non-success HTTP status,
	// a local write failure or an extraction failure.
	ErrDownload = errors.New("download failed")

	// ErrArtifactNotFound indicates a local path does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidIdentifier indicates an identifier that cannot be parsed.
	ErrInvalidIdentifier = errors.New("invalid artifact identifier")

	// ErrDuplicateScheme indicates two resolvers claim the same scheme.
	ErrDuplicateScheme = errors.New("duplicate scheme registration")
)

// Error is a classified resolution failure. It carries the artifact path
// and preserves the underlying cause for errors.As inspection.
type Error struct {
	// Kind is the sentinel error for classification (e.g., ErrDownload).
	Kind error
	// Scheme is the identifier scheme, if known.
	Scheme string
	// Path is the original artifact path (or, for ErrArtifactNotFound,
	// the resolved absolute path).
	Path string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	cause := e.Err
	if cause == nil {
		cause = e.Kind
	}
	switch e.Kind {
	case ErrDownload:
		return fmt.Sprintf("Failed to download %s due to: %v", e.Path, cause)
	case ErrArtifactNotFound:
		return fmt.Sprintf("artifact not found: %s", e.Path)
	case ErrUnsupportedScheme:
		return fmt.Sprintf("unsupported scheme %q in %s", e.Scheme, e.Path)
	default:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, cause)
	}
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func downloadError(scheme, path string, err error) *Error {
	return &Error{Kind: ErrDownload, Scheme: scheme, Path: path, Err: err}
}

// KindName returns a short label for the resolution failure kind,
// suitable for log fields and metric labels.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDownload):
		return "download"
	case errors.Is(err, ErrArtifactNotFound):
		return "not_found"
	case errors.Is(err, ErrUnsupportedScheme):
		return "unsupported_scheme"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	default:
		return "other"
	}
}
