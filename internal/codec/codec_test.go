// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/pkg/types"
)

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		path string
		want types.Domain
	}{
		{"photo.JPG", types.DomainImage},
		{"icon.ico", types.DomainImage},
		{"report.pdf", types.DomainPDF},
		{"book.xlsx", types.DomainSheet},
		{"table.csv", types.DomainSheet},
		{"legacy.xls", types.DomainSheet},
		{"calc.ods", types.DomainSheet},
		{"photo.avif", types.DomainImage},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			a, err := r.ForPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Domain())
		})
	}

	_, err := r.ForPath("notes.txt")
	assert.ErrorIs(t, err, types.ErrUnsupported)

	_, err = NewRegistry(NewImageAdapter()).Lookup(types.DomainPDF)
	assert.ErrorIs(t, err, types.ErrUnsupported)
}

func TestQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, quality(0))
	assert.Equal(t, DefaultQuality, quality(101))
	assert.Equal(t, 40, quality(40))
}
