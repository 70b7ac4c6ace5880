// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/textbridge/pkg/types"
)

const (
	odsMIME    = "application/vnd.oasis.opendocument.spreadsheet"
	nsOffice   = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsTable    = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsText     = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsManifest = "urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"

	// odsMaxCells bounds how many cells a document may expand to.
	odsMaxCells = 1 << 22
)

// readODS returns every table in content.xml. Repeated empty rows and cells
// are only materialised when something non-empty follows them, so the
// trailing filler office suites emit costs nothing.
func readODS(data []byte) ([]sheetRows, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ods: %v: %w", err, types.ErrInvalidFormat)
	}
	var content *zip.File
	for _, f := range zr.File {
		if f.Name == "content.xml" {
			content = f
			break
		}
	}
	if content == nil {
		return nil, fmt.Errorf("ods has no content.xml: %w", types.ErrInvalidFormat)
	}
	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("opening content.xml: %v: %w", err, types.ErrInvalidFormat)
	}
	defer rc.Close()

	p := odsParser{dec: xml.NewDecoder(rc)}
	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("parsing content.xml: %v: %w", err, types.ErrInvalidFormat)
	}
	return p.sheets, nil
}

type odsParser struct {
	dec    *xml.Decoder
	sheets []sheetRows
	cur    *sheetRows
	cells  int

	row         []string
	rowRepeat   int
	pendingRows int
	pendingCols int

	inCell     bool
	cellRepeat int
	cellValue  string
	paras      int
	inPara     bool
	skipDepth  int
	text       strings.Builder
}

func (p *odsParser) parse() error {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if p.skipDepth > 0 {
				p.skipDepth++
				continue
			}
			p.start(t)
		case xml.EndElement:
			if p.skipDepth > 0 {
				p.skipDepth--
				continue
			}
			if err := p.end(t); err != nil {
				return err
			}
		case xml.CharData:
			if p.inCell && p.inPara {
				p.text.Write(t)
			}
		}
	}
}

func (p *odsParser) start(t xml.StartElement) {
	table := t.Name.Space == nsTable
	switch {
	case table && t.Name.Local == "table":
		p.sheets = append(p.sheets, sheetRows{name: attr(t, nsTable, "name"), rows: [][]string{}})
		p.cur = &p.sheets[len(p.sheets)-1]
		p.pendingRows = 0
	case p.cur == nil:
	case table && t.Name.Local == "table-row":
		p.row = nil
		p.rowRepeat = repeat(attr(t, nsTable, "number-rows-repeated"))
		p.pendingCols = 0
	case table && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell"):
		p.inCell = true
		p.cellRepeat = repeat(attr(t, nsTable, "number-columns-repeated"))
		p.cellValue = attr(t, nsOffice, "value")
		if p.cellValue == "" {
			p.cellValue = attr(t, nsOffice, "boolean-value")
		}
		p.paras = 0
		p.inPara = false
		p.text.Reset()
	case !p.inCell:
	case t.Name.Space == nsOffice && t.Name.Local == "annotation":
		p.skipDepth = 1
	case t.Name.Space == nsText && t.Name.Local == "p":
		if p.paras > 0 {
			p.text.WriteByte('\n')
		}
		p.paras++
		p.inPara = true
	case t.Name.Space == nsText && t.Name.Local == "s":
		p.text.WriteString(strings.Repeat(" ", repeat(attr(t, nsText, "c"))))
	case t.Name.Space == nsText && t.Name.Local == "tab":
		p.text.WriteByte('\t')
	case t.Name.Space == nsText && t.Name.Local == "line-break":
		p.text.WriteByte('\n')
	}
}

func (p *odsParser) end(t xml.EndElement) error {
	if t.Name.Space == nsText && t.Name.Local == "p" {
		p.inPara = false
		return nil
	}
	if t.Name.Space != nsTable || p.cur == nil {
		return nil
	}
	switch t.Name.Local {
	case "table-cell", "covered-table-cell":
		p.inCell = false
		value := p.text.String()
		if value == "" {
			value = p.cellValue
		}
		if value == "" {
			p.pendingCols += p.cellRepeat
			return nil
		}
		p.cells += p.pendingCols + p.cellRepeat
		if p.cells > odsMaxCells {
			return fmt.Errorf("more than %d cells", odsMaxCells)
		}
		for range p.pendingCols {
			p.row = append(p.row, "")
		}
		p.pendingCols = 0
		for range p.cellRepeat {
			p.row = append(p.row, value)
		}
	case "table-row":
		if len(p.row) == 0 {
			p.pendingRows += p.rowRepeat
			return nil
		}
		p.cells += len(p.row) * (p.rowRepeat - 1)
		if p.cells > odsMaxCells {
			return fmt.Errorf("more than %d cells", odsMaxCells)
		}
		for range p.pendingRows {
			p.cur.rows = append(p.cur.rows, []string{})
		}
		p.pendingRows = 0
		for range p.rowRepeat {
			p.cur.rows = append(p.cur.rows, p.row)
		}
	case "table":
		p.cur = nil
	}
	return nil
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func repeat(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// renderODS writes records as a single-table OpenDocument spreadsheet. The
// mimetype entry comes first and is stored uncompressed, as the format
// requires.
func renderODS(records []types.Record, columns []string, sheetName string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	io.WriteString(mt, odsMIME)

	manifest, err := zw.Create("META-INF/manifest.xml")
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(manifest, `%s<manifest:manifest xmlns:manifest="%s" manifest:version="1.2">`+
		`<manifest:file-entry manifest:full-path="/" manifest:version="1.2" manifest:media-type="%s"/>`+
		`<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>`+
		`</manifest:manifest>`, xml.Header, nsManifest, odsMIME)

	content, err := zw.Create("content.xml")
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<office:document-content xmlns:office="%s" xmlns:table="%s" xmlns:text="%s" office:version="1.2">`,
		nsOffice, nsTable, nsText)
	b.WriteString(`<office:body><office:spreadsheet><table:table table:name="`)
	xml.EscapeText(&b, []byte(sheetName))
	b.WriteString(`">`)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	writeODSRow(&b, header)
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		writeODSRow(&b, row)
	}
	b.WriteString(`</table:table></office:spreadsheet></office:body></office:document-content>`)
	if _, err := io.WriteString(content, b.String()); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("serializing ods: %w", err)
	}
	return buf.Bytes(), nil
}

func writeODSRow(b *strings.Builder, values []any) {
	b.WriteString("<table:table-row>")
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			b.WriteString("<table:table-cell/>")
			continue
		case float64, json.Number:
			fmt.Fprintf(b, `<table:table-cell office:value-type="float" office:value="%s">`, cellString(x))
		case bool:
			fmt.Fprintf(b, `<table:table-cell office:value-type="boolean" office:boolean-value="%t">`, x)
		default:
			b.WriteString(`<table:table-cell office:value-type="string">`)
		}
		b.WriteString("<text:p>")
		xml.EscapeText(b, []byte(cellString(v)))
		b.WriteString("</text:p></table:table-cell>")
	}
	b.WriteString("</table:table-row>")
}
