// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/textbridge/pkg/types"
)

// base64Pattern is the standard alphabet with at most two padding characters.
var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// DataURL wraps a Base64 payload as data:<mime>;base64,<payload>.
func DataURL(mimeType, payload string) string {
	return "data:" + mimeType + ";base64," + payload
}

// EncodeText returns the Base64 encoding of data, wrapped in a data URL when
// includeMIME is set.
func EncodeText(data []byte, includeMIME bool, mimeType string) string {
	b64 := base64.StdEncoding.EncodeToString(data)
	if includeMIME {
		return DataURL(mimeType, b64)
	}
	return b64
}

// StripDataURL removes a leading "data:...," prefix. It returns the remaining
// payload and the MIME type declared in the prefix, if any.
func StripDataURL(text string) (payload, mimeType string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(strings.ToLower(trimmed), "data:") {
		return trimmed, ""
	}
	header, rest, ok := strings.Cut(trimmed, ",")
	if !ok {
		return trimmed, ""
	}
	mimeType, _, _ = strings.Cut(header[len("data:"):], ";")
	return rest, mimeType
}

// CleanBase64 strips a data-URL prefix and removes all whitespace.
func CleanBase64(text string) string {
	payload, _ := StripDataURL(text)
	return strings.Join(strings.Fields(payload), "")
}

// ValidateBase64 checks that s uses only the standard alphabet with at most
// two trailing '=' and that its length is a non-zero multiple of 4.
func ValidateBase64(s string) error {
	if s == "" {
		return fmt.Errorf("empty string: %w", types.ErrInvalidBase64)
	}
	if !base64Pattern.MatchString(s) {
		return fmt.Errorf("characters outside the base64 alphabet: %w", types.ErrInvalidBase64)
	}
	if len(s)%4 != 0 {
		return fmt.Errorf("length %d is not a multiple of 4: %w", len(s), types.ErrInvalidBase64)
	}
	return nil
}

// DecodeText cleans, validates, and decodes Base64 text (optionally a data
// URL). Validation runs before decoding is attempted.
func DecodeText(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("input is empty: %w", types.ErrInvalidBase64)
	}
	clean := CleanBase64(text)
	if err := ValidateBase64(clean); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, types.ErrInvalidBase64)
	}
	return data, nil
}
