package services

import "errors"

var (
	// ErrUnsupportedFormat is returned for media types other than text, pdf and docx.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrSizeExceeded is returned when a document is larger than the configured maximum.
	ErrSizeExceeded = errors.New("document size exceeded")
	// ErrExtractionFailure wraps malformed-document and decode errors.
	ErrExtractionFailure = errors.New("text extraction failed")
	// ErrProviderUnavailable covers unreachable providers, timeouts and malformed replies.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrDimensionMismatch is a programming error returned from CosineSimilarity and Score.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrZeroVector marks a zero-norm embedding; Score degrades it to a zero score.
	ErrZeroVector = errors.New("zero-norm embedding")
)
