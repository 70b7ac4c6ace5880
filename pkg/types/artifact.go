// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Domain identifies which codec adapter handles a file.
type Domain string

const (
	DomainImage Domain = "image"
	DomainPDF   Domain = "pdf"
	DomainSheet Domain = "sheet"
)

// ParseDomain maps a user-supplied name to a Domain. It accepts a few
// aliases ("excel", "spreadsheet", "document").
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "image", "images", "img":
		return DomainImage, nil
	case "pdf", "document", "doc":
		return DomainPDF, nil
	case "sheet", "excel", "spreadsheet", "xlsx":
		return DomainSheet, nil
	}
	return "", fmt.Errorf("unknown domain %q: use image, pdf, or sheet", s)
}

// FormatTag is the discriminator stored in the "type" field of an aggregate
// artifact. Each domain has exactly one tag.
type FormatTag string

const (
	TagImageBatch    FormatTag = "image-base64-batch"
	TagSheetBatch    FormatTag = "excel-json-batch"
	TagDocumentBatch FormatTag = "pdf-base64-batch"
)

// Tag returns the aggregate discriminator for the domain.
func (d Domain) Tag() FormatTag {
	switch d {
	case DomainImage:
		return TagImageBatch
	case DomainSheet:
		return TagSheetBatch
	default:
		return TagDocumentBatch
	}
}

// ImageInfo carries pixel metadata reported by the image adapter. Width and
// Height are zero for formats that are passed through without decoding.
type ImageInfo struct {
	Format   string `json:"format" yaml:"format"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
	Channels int    `json:"channels" yaml:"channels"`
}

// Record is one spreadsheet row keyed by column header.
type Record map[string]any

// SheetInfo describes the sheet a TextArtifact was read from.
type SheetInfo struct {
	SheetName   string   `json:"sheetName" yaml:"sheet_name"`
	SheetNames  []string `json:"availableSheets" yaml:"available_sheets"`
	Columns     []string `json:"columns" yaml:"columns"`
	Records     []Record `json:"data" yaml:"data"`
	RowCount    int      `json:"rowCount" yaml:"row_count"`
	ColumnCount int      `json:"columnCount" yaml:"column_count"`
}

// TextArtifact is the result of encoding one binary file to text.
type TextArtifact struct {
	// Payload is Base64 (optionally wrapped in a data URL) for images and
	// PDFs, or a JSON array of records for spreadsheets.
	Payload string

	// MIMEHint is the MIME type of the source bytes, when known.
	MIMEHint string

	// SourceFilename is the base name of the input file.
	SourceFilename string

	// SourcePath is the path the file was read from.
	SourcePath string

	// Format is the upper-case format name (PNG, PDF, XLSX, ...).
	Format string

	// Size is the number of bytes of the encoded binary content.
	Size int64

	Image *ImageInfo
	Sheet *SheetInfo
}

// BinaryArtifact is the result of decoding text back to a file.
type BinaryArtifact struct {
	Bytes          []byte
	DeclaredFormat string
	SourceFilename string
	Path           string
	Size           int64
	Image          *ImageInfo
}

// ItemError records one failed input of a batch run.
type ItemError struct {
	Index    int    `json:"index" yaml:"index" xml:"index,attr"`
	Filename string `json:"filename" yaml:"filename" xml:"filename"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty" xml:"path,omitempty"`
	Message  string `json:"message" yaml:"message" xml:"message"`
}

// SizeKB formats a byte count as kilobytes with two decimals.
func SizeKB(n int64) string {
	return fmt.Sprintf("%.2f", float64(n)/1024)
}

// SizeMB formats a byte count as megabytes with two decimals.
func SizeMB(n int64) string {
	return fmt.Sprintf("%.2f", float64(n)/(1024*1024))
}
