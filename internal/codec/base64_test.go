// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/pkg/types"
)

func TestValidateBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid no padding", "QUJD", false},
		{"valid single pad", "QUI=", false},
		{"valid double pad", "QQ==", false},
		{"empty", "", true},
		{"length not multiple of 4", "QUJDR", true},
		{"url-safe alphabet", "QU-_", true},
		{"inner whitespace", "QU JD", true},
		{"triple pad", "Q===", true},
		{"padding in the middle", "QQ==QUJD", true},
		{"non-ascii", "QUJé", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBase64(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidBase64)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStripDataURL(t *testing.T) {
	tests := []struct {
		in          string
		wantPayload string
		wantMIME    string
	}{
		{"data:image/png;base64,QUJD", "QUJD", "image/png"},
		{"  data:application/pdf;base64,JVBERi0=\n", "JVBERi0=", "application/pdf"},
		{"QUJD", "QUJD", ""},
		{"data:broken", "data:broken", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			payload, mime := StripDataURL(tt.in)
			assert.Equal(t, tt.wantPayload, payload)
			assert.Equal(t, tt.wantMIME, mime)
		})
	}
}

func TestEncodeText(t *testing.T) {
	assert.Equal(t, "QUJD", EncodeText([]byte("ABC"), false, "text/plain"))
	assert.Equal(t, "data:text/plain;base64,QUJD", EncodeText([]byte("ABC"), true, "text/plain"))
}

func TestDecodeText(t *testing.T) {
	got, err := DecodeText("data:text/plain;base64,QU\nJD\tREVG")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", string(got))

	_, err = DecodeText("   ")
	assert.ErrorIs(t, err, types.ErrInvalidBase64)

	_, err = DecodeText("QUJDR")
	assert.ErrorIs(t, err, types.ErrInvalidBase64)
}
