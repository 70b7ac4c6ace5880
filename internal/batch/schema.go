// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/textbridge/pkg/types"
)

// Header is the part of an aggregate shared by every variant.
type Header struct {
	Type            types.FormatTag   `json:"type" yaml:"type"`
	BatchID         string            `json:"batchId" yaml:"batch_id"`
	Created         time.Time         `json:"created" yaml:"created"`
	TotalFiles      int               `json:"totalFiles" yaml:"total_files"`
	Successful      int               `json:"successful" yaml:"successful"`
	Failed          int               `json:"failed" yaml:"failed"`
	IncludeMimeType bool              `json:"includeMimeType" yaml:"include_mime_type"`
	Errors          []types.ItemError `json:"errors" yaml:"errors"`
}

// ImageItem is one encoded image in an image-base64-batch.
type ImageItem struct {
	Index        int    `json:"index" yaml:"index" xml:"index,attr"`
	Filename     string `json:"filename" yaml:"filename" xml:"filename"`
	OriginalPath string `json:"originalPath,omitempty" yaml:"original_path,omitempty" xml:"originalPath,omitempty"`
	Format       string `json:"format" yaml:"format" xml:"format"`
	Width        int    `json:"width" yaml:"width" xml:"width"`
	Height       int    `json:"height" yaml:"height" xml:"height"`
	Channels     int    `json:"channels" yaml:"channels" xml:"channels"`
	Size         int64  `json:"size" yaml:"size" xml:"size"`
	SizeKB       string `json:"sizeKB" yaml:"size_kb" xml:"sizeKB"`
	SizeMB       string `json:"sizeMB" yaml:"size_mb" xml:"sizeMB"`
	Base64       string `json:"base64" yaml:"base64" xml:"base64"`
}

// SheetItem is one workbook read as records in an excel-json-batch.
type SheetItem struct {
	Index           int            `json:"index" yaml:"index"`
	Filename        string         `json:"filename" yaml:"filename"`
	OriginalPath    string         `json:"originalPath,omitempty" yaml:"original_path,omitempty"`
	SheetName       string         `json:"sheetName" yaml:"sheet_name"`
	AvailableSheets []string       `json:"availableSheets" yaml:"available_sheets"`
	Columns         []string       `json:"columns" yaml:"columns"`
	Data            []types.Record `json:"data" yaml:"data"`
	RowCount        int            `json:"rowCount" yaml:"row_count"`
	ColumnCount     int            `json:"columnCount" yaml:"column_count"`
	Size            int64          `json:"size" yaml:"size"`
	SizeKB          string         `json:"sizeKB" yaml:"size_kb"`
	SizeMB          string         `json:"sizeMB" yaml:"size_mb"`
}

// DocumentItem is one encoded PDF in a pdf-base64-batch.
type DocumentItem struct {
	Index        int    `json:"index" yaml:"index" xml:"index,attr"`
	Filename     string `json:"filename" yaml:"filename" xml:"filename"`
	OriginalPath string `json:"originalPath,omitempty" yaml:"original_path,omitempty" xml:"originalPath,omitempty"`
	Format       string `json:"format" yaml:"format" xml:"format"`
	MimeType     string `json:"mimeType" yaml:"mime_type" xml:"mimeType"`
	Size         int64  `json:"size" yaml:"size" xml:"size"`
	SizeKB       string `json:"sizeKB" yaml:"size_kb" xml:"sizeKB"`
	SizeMB       string `json:"sizeMB" yaml:"size_mb" xml:"sizeMB"`
	Base64       string `json:"base64" yaml:"base64" xml:"base64"`
}

// Aggregate is one of ImageBatch, SheetBatch, or DocumentBatch.
type Aggregate interface {
	Meta() Header
	Domain() types.Domain
	// Len is the number of entries in the variant's item array.
	Len() int
}

// ImageBatch is the image-base64-batch variant. Items live under "images".
type ImageBatch struct {
	Header `yaml:",inline"`
	Images []ImageItem `json:"images" yaml:"images"`
}

// SheetBatch is the excel-json-batch variant. Items live under "files".
type SheetBatch struct {
	Header `yaml:",inline"`
	Files  []SheetItem `json:"files" yaml:"files"`
}

// DocumentBatch is the pdf-base64-batch variant. Items live under "items".
type DocumentBatch struct {
	Header `yaml:",inline"`
	Items  []DocumentItem `json:"items" yaml:"items"`
}

func (b *ImageBatch) Meta() Header         { return b.Header }
func (b *ImageBatch) Domain() types.Domain { return types.DomainImage }
func (b *ImageBatch) Len() int             { return len(b.Images) }

func (b *SheetBatch) Meta() Header         { return b.Header }
func (b *SheetBatch) Domain() types.Domain { return types.DomainSheet }
func (b *SheetBatch) Len() int             { return len(b.Files) }

func (b *DocumentBatch) Meta() Header         { return b.Header }
func (b *DocumentBatch) Domain() types.Domain { return types.DomainPDF }
func (b *DocumentBatch) Len() int             { return len(b.Items) }

// itemsKey returns the JSON key holding a domain's item array.
func itemsKey(d types.Domain) string {
	switch d {
	case types.DomainImage:
		return "images"
	case types.DomainSheet:
		return "files"
	default:
		return "items"
	}
}

// DecodeAggregate parses data as the aggregate variant for want. The type
// tag and the shape of the item array are checked on the raw envelope
// before any item field is decoded; a missing or foreign tag, or an item
// array that is absent or not an array, yields types.ErrSchemaMismatch.
func DecodeAggregate(data []byte, want types.Domain) (Aggregate, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("aggregate is not a JSON object: %v: %w", err, types.ErrSchemaMismatch)
	}

	expected := want.Tag()
	rawTag, ok := envelope["type"]
	if !ok {
		return nil, fmt.Errorf("missing type tag, expected %q: %w", expected, types.ErrSchemaMismatch)
	}
	var tag string
	if err := json.Unmarshal(rawTag, &tag); err != nil || types.FormatTag(tag) != expected {
		return nil, fmt.Errorf("type tag %s, expected %q: %w", bytes.TrimSpace(rawTag), expected, types.ErrSchemaMismatch)
	}

	key := itemsKey(want)
	rawItems, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("missing %q array: %w", key, types.ErrSchemaMismatch)
	}
	if trimmed := bytes.TrimSpace(rawItems); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%q is not an array: %w", key, types.ErrSchemaMismatch)
	}

	var agg Aggregate
	switch want {
	case types.DomainImage:
		agg = &ImageBatch{}
	case types.DomainSheet:
		agg = &SheetBatch{}
	default:
		agg = &DocumentBatch{}
	}
	if err := json.Unmarshal(data, agg); err != nil {
		return nil, fmt.Errorf("decoding %s: %v: %w", expected, err, types.ErrSchemaMismatch)
	}
	return agg, nil
}

// PeekDomain reads only the type tag of an aggregate and returns the domain
// it belongs to.
func PeekDomain(data []byte) (types.Domain, error) {
	var envelope struct {
		Type types.FormatTag `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("aggregate is not a JSON object: %v: %w", err, types.ErrSchemaMismatch)
	}
	for _, d := range []types.Domain{types.DomainImage, types.DomainPDF, types.DomainSheet} {
		if d.Tag() == envelope.Type {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown aggregate type %q: %w", envelope.Type, types.ErrSchemaMismatch)
}
