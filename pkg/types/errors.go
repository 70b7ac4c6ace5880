// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared by the codec adapters, the batch engines and the query
// service. Callers wrap them with context and test with errors.Is.
var (
	// ErrNotFound: the path does not exist or is not a regular file.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat: the bytes do not match the expected binary format.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidBase64: the text is not well-formed Base64.
	ErrInvalidBase64 = errors.New("invalid base64")
	// ErrSheetNotFound: a named worksheet does not exist in the workbook.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrSchemaMismatch: an aggregate artifact has the wrong type tag or shape.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrUnsupported: the format or operation is recognised but not available.
	ErrUnsupported = errors.New("unsupported")

	ErrNotInitialized    = errors.New("query service not initialized")
	ErrMissingCredential = errors.New("api key is required")
	ErrEmptyInput        = errors.New("empty input")

	// ErrAuthentication, ErrRateLimited and ErrUpstream classify failures of
	// the completion API.
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrUpstream       = errors.New("upstream service error")
)
