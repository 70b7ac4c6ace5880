// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codec wraps the image, PDF, and spreadsheet libraries behind one
// encode/decode contract. Each adapter turns a binary file into a
// TextArtifact and turns text back into a file on disk.
package codec

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/textbridge/pkg/types"
)

// DefaultQuality is the lossy-encoder quality used when none is given.
const DefaultQuality = 95

// Resize describes a bounding box an image is fitted into before encoding.
// A zero Width or Height leaves that dimension unconstrained.
type Resize struct {
	Width        int
	Height       int
	AllowUpscale bool
}

// EncodeOptions tunes Adapter.Encode. Fields that do not apply to a domain
// are ignored.
type EncodeOptions struct {
	// IncludeMIME wraps Base64 output in a data URL.
	IncludeMIME bool

	// Resize is applied to images before they are re-encoded.
	Resize *Resize

	// Quality is the JPEG quality (1-100) used when an image is re-encoded.
	Quality int

	// Optimize selects maximum compression for lossless re-encodes.
	Optimize bool

	// Strict runs full PDF structural validation.
	Strict bool

	// SheetName selects the worksheet to read; empty means the first sheet.
	SheetName string
}

// DecodeOptions tunes Adapter.Decode.
type DecodeOptions struct {
	// Quality is the JPEG quality (1-100) used when an image is re-encoded.
	Quality int

	// Optimize selects maximum compression for lossless re-encodes.
	Optimize bool

	// Reencode forces an image to be decoded and re-encoded even when the
	// target format matches the source bytes.
	Reencode bool

	// SheetName names the worksheet written from records.
	SheetName string

	// Columns fixes the column order written from records. When empty the
	// order is derived from the records.
	Columns []string
}

// Adapter is the per-domain codec contract.
type Adapter interface {
	// Domain reports which files the adapter handles.
	Domain() types.Domain

	// Extensions lists the lower-case file extensions (with dot) the adapter reads.
	Extensions() []string

	// Encode reads the file at path and returns its text representation.
	Encode(ctx context.Context, path string, opts EncodeOptions) (types.TextArtifact, error)

	// Decode validates text, converts it back to bytes, and writes them to
	// outputPath, creating parent directories as needed.
	Decode(ctx context.Context, text, outputPath string, opts DecodeOptions) (types.BinaryArtifact, error)
}

// Registry maps domains to adapters.
type Registry struct {
	adapters map[types.Domain]Adapter
}

// NewRegistry returns a registry holding the given adapters. A later adapter
// for the same domain replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.Domain]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Domain()] = a
	}
	return r
}

// DefaultRegistry returns a registry with the image, PDF, and spreadsheet adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(NewImageAdapter(), NewPDFAdapter(), NewSheetAdapter())
}

// Lookup returns the adapter for d.
func (r *Registry) Lookup(d types.Domain) (Adapter, error) {
	a, ok := r.adapters[d]
	if !ok {
		return nil, fmt.Errorf("no codec registered for domain %q: %w", d, types.ErrUnsupported)
	}
	return a, nil
}

// ForPath returns the adapter whose extensions include the extension of path.
func (r *Registry) ForPath(path string) (Adapter, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, d := range []types.Domain{types.DomainImage, types.DomainPDF, types.DomainSheet} {
		if a, ok := r.adapters[d]; ok && slices.Contains(a.Extensions(), ext) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no codec handles %q files: %w", ext, types.ErrUnsupported)
}

func quality(q int) int {
	if q < 1 || q > 100 {
		return DefaultQuality
	}
	return q
}
