// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/pkg/types"
)

const (
	pdfMagic = "%PDF-"
	pdfMIME  = "application/pdf"
)

var pdfVersion = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

var disablePDFConfigDir sync.Once

// PDFInfo is basic metadata about a PDF held in memory.
type PDFInfo struct {
	Version   string `json:"version" yaml:"version"`
	PageCount int    `json:"pageCount" yaml:"page_count"`
	Size      int64  `json:"size" yaml:"size"`
	SizeKB    string `json:"sizeKB" yaml:"size_kb"`
	SizeMB    string `json:"sizeMB" yaml:"size_mb"`
	IsValid   bool   `json:"isValid" yaml:"is_valid"`
}

// PDFAdapter converts PDF documents to and from Base64.
type PDFAdapter struct{}

// NewPDFAdapter returns the PDF codec adapter. pdfcpu is kept from creating
// its user configuration directory.
func NewPDFAdapter() *PDFAdapter {
	disablePDFConfigDir.Do(api.DisableConfigDir)
	return &PDFAdapter{}
}

func (a *PDFAdapter) Domain() types.Domain { return types.DomainPDF }

func (a *PDFAdapter) Extensions() []string { return []string{".pdf"} }

// IsPDF reports whether data starts with the %PDF- signature.
func IsPDF(data []byte) bool {
	return len(data) >= len(pdfMagic) && string(data[:len(pdfMagic)]) == pdfMagic
}

// Encode reads a PDF and returns it as Base64.
func (a *PDFAdapter) Encode(ctx context.Context, path string, opts EncodeOptions) (types.TextArtifact, error) {
	if err := ctx.Err(); err != nil {
		return types.TextArtifact{}, err
	}
	data, _, err := fsutil.ReadFile(path)
	if err != nil {
		return types.TextArtifact{}, err
	}
	name := filepath.Base(path)
	if err := a.validate(data, opts.Strict); err != nil {
		return types.TextArtifact{}, fmt.Errorf("%s: %w", name, err)
	}

	return types.TextArtifact{
		Payload:        EncodeText(data, opts.IncludeMIME, pdfMIME),
		MIMEHint:       pdfMIME,
		SourceFilename: name,
		SourcePath:     path,
		Format:         "PDF",
		Size:           int64(len(data)),
	}, nil
}

// Decode validates Base64 text, checks the PDF signature of the decoded
// bytes, and writes them to outputPath.
func (a *PDFAdapter) Decode(ctx context.Context, text, outputPath string, _ DecodeOptions) (types.BinaryArtifact, error) {
	if err := ctx.Err(); err != nil {
		return types.BinaryArtifact{}, err
	}
	data, err := DecodeText(text)
	if err != nil {
		return types.BinaryArtifact{}, err
	}
	if !IsPDF(data) {
		return types.BinaryArtifact{}, fmt.Errorf("decoded data is not a valid PDF: %w", types.ErrInvalidFormat)
	}
	if err := fsutil.WriteFileAtomic(outputPath, data); err != nil {
		return types.BinaryArtifact{}, err
	}
	return types.BinaryArtifact{
		Bytes:          data,
		DeclaredFormat: "PDF",
		SourceFilename: filepath.Base(outputPath),
		Path:           outputPath,
		Size:           int64(len(data)),
	}, nil
}

// Info reports the header version and, when pdfcpu can parse the document,
// the page count. An unparseable body leaves PageCount at zero.
func (a *PDFAdapter) Info(data []byte) PDFInfo {
	info := PDFInfo{
		Version: "Unknown",
		Size:    int64(len(data)),
		SizeKB:  types.SizeKB(int64(len(data))),
		SizeMB:  types.SizeMB(int64(len(data))),
		IsValid: IsPDF(data),
	}
	head := data[:min(len(data), 1024)]
	if m := pdfVersion.FindSubmatch(head); m != nil {
		info.Version = string(m[1])
	}
	if info.IsValid {
		if n, err := api.PageCount(bytes.NewReader(data), relaxedConfig()); err == nil {
			info.PageCount = n
		}
	}
	return info
}

func (a *PDFAdapter) validate(data []byte, strict bool) error {
	if !IsPDF(data) {
		return fmt.Errorf("file is not a valid PDF: %w", types.ErrInvalidFormat)
	}
	if !strict {
		return nil
	}
	if err := api.Validate(bytes.NewReader(data), relaxedConfig()); err != nil {
		msg := strings.TrimSpace(err.Error())
		return fmt.Errorf("PDF failed validation (%s): %w", msg, types.ErrInvalidFormat)
	}
	return nil
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
