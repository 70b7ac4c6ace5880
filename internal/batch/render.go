// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/textbridge/pkg/types"
)

// Render serializes agg in one of the aggregate modes. JSON is the
// round-trip format read back by Expand; the others are one-way exports.
func Render(agg Aggregate, mode Mode) ([]byte, error) {
	switch mode {
	case ModeJSON:
		data, err := json.MarshalIndent(agg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling aggregate: %w", err)
		}
		return append(data, '\n'), nil
	case ModeYAML:
		data, err := yaml.Marshal(agg)
		if err != nil {
			return nil, fmt.Errorf("marshaling aggregate: %w", err)
		}
		return data, nil
	case ModeCSV:
		return renderCSV(agg)
	case ModeXML:
		return renderXML(agg)
	case ModeTXT:
		return renderTXT(agg), nil
	}
	return nil, fmt.Errorf("mode %q has no aggregate rendering: %w", mode, types.ErrUnsupported)
}

// renderCSV writes a summary section (header and one row), a blank line,
// then one row per input in index order. Failed inputs carry their message
// in the error column.
func renderCSV(agg Aggregate) ([]byte, error) {
	h := agg.Meta()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"type", "batchId", "created", "totalFiles", "successful", "failed", "includeMimeType"})
	_ = w.Write([]string{
		string(h.Type), h.BatchID, h.Created.Format(time.RFC3339),
		strconv.Itoa(h.TotalFiles), strconv.Itoa(h.Successful), strconv.Itoa(h.Failed),
		strconv.FormatBool(h.IncludeMimeType),
	})
	w.Flush()
	buf.WriteString("\n")

	columns, rows := itemRows(agg)
	_ = w.Write(append(append([]string{"index", "status", "filename"}, columns...), "error"))

	byIndex := make(map[int][]string, len(rows))
	for _, r := range rows {
		byIndex[r.index] = append(append([]string{strconv.Itoa(r.index), "ok", r.filename}, r.cells...), "")
	}
	blank := make([]string, len(columns))
	for _, e := range h.Errors {
		byIndex[e.Index] = append(append([]string{strconv.Itoa(e.Index), "error", e.Filename}, blank...), e.Message)
	}
	for _, idx := range sortedKeys(byIndex) {
		if err := w.Write(byIndex[idx]); err != nil {
			return nil, fmt.Errorf("writing csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}

type itemRow struct {
	index    int
	filename string
	cells    []string
}

func itemRows(agg Aggregate) ([]string, []itemRow) {
	var rows []itemRow
	switch b := agg.(type) {
	case *ImageBatch:
		for _, it := range b.Images {
			rows = append(rows, itemRow{it.Index, it.Filename, []string{
				it.Format, strconv.Itoa(it.Width), strconv.Itoa(it.Height), strconv.Itoa(it.Channels),
				strconv.FormatInt(it.Size, 10), it.SizeKB, it.SizeMB, it.Base64,
			}})
		}
		return []string{"format", "width", "height", "channels", "size", "sizeKB", "sizeMB", "base64"}, rows
	case *SheetBatch:
		for _, it := range b.Files {
			data, _ := json.Marshal(it.Data)
			rows = append(rows, itemRow{it.Index, it.Filename, []string{
				it.SheetName, strconv.Itoa(it.RowCount), strconv.Itoa(it.ColumnCount),
				strconv.FormatInt(it.Size, 10), it.SizeKB, it.SizeMB, string(data),
			}})
		}
		return []string{"sheetName", "rowCount", "columnCount", "size", "sizeKB", "sizeMB", "data"}, rows
	case *DocumentBatch:
		for _, it := range b.Items {
			rows = append(rows, itemRow{it.Index, it.Filename, []string{
				it.Format, strconv.FormatInt(it.Size, 10), it.SizeKB, it.SizeMB, it.Base64,
			}})
		}
		return []string{"format", "size", "sizeKB", "sizeMB", "base64"}, rows
	}
	return nil, nil
}

type xmlBatch struct {
	XMLName         xml.Name
	Type            string            `xml:"type,attr"`
	BatchID         string            `xml:"batchId,attr"`
	Created         string            `xml:"created,attr"`
	TotalFiles      int               `xml:"totalFiles,attr"`
	Successful      int               `xml:"successful,attr"`
	Failed          int               `xml:"failed,attr"`
	IncludeMimeType bool              `xml:"includeMimeType,attr"`
	Images          []ImageItem       `xml:"image,omitempty"`
	Files           []xmlSheet        `xml:"file,omitempty"`
	Items           []DocumentItem    `xml:"item,omitempty"`
	Errors          []types.ItemError `xml:"errors>error,omitempty"`
}

type xmlSheet struct {
	Index       int      `xml:"index,attr"`
	Filename    string   `xml:"filename"`
	SheetName   string   `xml:"sheetName"`
	RowCount    int      `xml:"rowCount"`
	ColumnCount int      `xml:"columnCount"`
	Size        int64    `xml:"size"`
	Rows        []xmlRow `xml:"rows>row"`
}

type xmlRow struct {
	Cells []xmlCell `xml:"cell"`
}

type xmlCell struct {
	Column string `xml:"column,attr"`
	Value  string `xml:",chardata"`
}

func renderXML(agg Aggregate) ([]byte, error) {
	h := agg.Meta()
	doc := xmlBatch{
		XMLName:         xml.Name{Local: itemsKey(agg.Domain())},
		Type:            string(h.Type),
		BatchID:         h.BatchID,
		Created:         h.Created.Format(time.RFC3339),
		TotalFiles:      h.TotalFiles,
		Successful:      h.Successful,
		Failed:          h.Failed,
		IncludeMimeType: h.IncludeMimeType,
		Errors:          h.Errors,
	}
	switch b := agg.(type) {
	case *ImageBatch:
		doc.Images = b.Images
	case *DocumentBatch:
		doc.Items = b.Items
	case *SheetBatch:
		for _, it := range b.Files {
			s := xmlSheet{
				Index: it.Index, Filename: it.Filename, SheetName: it.SheetName,
				RowCount: it.RowCount, ColumnCount: it.ColumnCount, Size: it.Size,
			}
			for _, rec := range it.Data {
				var row xmlRow
				for _, col := range it.Columns {
					if v, ok := rec[col]; ok {
						row.Cells = append(row.Cells, xmlCell{Column: col, Value: fmt.Sprint(v)})
					}
				}
				s.Rows = append(s.Rows, row)
			}
			doc.Files = append(doc.Files, s)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshaling xml: %w", err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// renderTXT writes "# filename" followed by the payload for every success,
// preceded by a comment header and followed by the errors.
func renderTXT(agg Aggregate) []byte {
	h := agg.Meta()
	var b strings.Builder
	fmt.Fprintf(&b, "# type: %s\n# batch: %s\n# created: %s\n# files: %d total, %d successful, %d failed\n\n",
		h.Type, h.BatchID, h.Created.Format(time.RFC3339), h.TotalFiles, h.Successful, h.Failed)

	emit := func(name, payload string) {
		fmt.Fprintf(&b, "# %s\n%s\n\n", name, payload)
	}
	switch x := agg.(type) {
	case *ImageBatch:
		for _, it := range x.Images {
			emit(it.Filename, it.Base64)
		}
	case *DocumentBatch:
		for _, it := range x.Items {
			emit(it.Filename, it.Base64)
		}
	case *SheetBatch:
		for _, it := range x.Files {
			data, _ := json.Marshal(it.Data)
			emit(it.Filename, string(data))
		}
	}
	for _, e := range h.Errors {
		fmt.Fprintf(&b, "# error: %s: %s\n", e.Filename, e.Message)
	}
	return []byte(b.String())
}

func sortedKeys(m map[int][]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
