package ocr

import "errors"

var (
	// ErrUnavailable means the recognition feature is not configured or
	// the upstream API is disabled. Terminal for the scan session: the
	// user must be told to contact an administrator.
	ErrUnavailable = errors.New("text recognition is not available: ask an administrator to configure and enable the vision API")

	// ErrNoText means the provider found no recognizable text in the
	// image. Recoverable: the user may retry with a clearer photo.
	ErrNoText = errors.New("no text recognized in image")
)
