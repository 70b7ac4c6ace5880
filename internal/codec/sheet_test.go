// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textbridge/pkg/types"
)

var people = []types.Record{
	{"name": "Ada", "age": float64(36), "city": "London"},
	{"name": "Grace", "age": float64(85)},
}

func TestSheetWriteAndRead(t *testing.T) {
	tests := []struct {
		file      string
		sheet     string
		wantSheet string
		wantFmt   string
	}{
		{"people.xlsx", "People", "People", "XLSX"},
		{"people.xlsx", "", "Sheet1", "XLSX"},
		{"people.csv", "", "Sheet1", "CSV"},
		{"people.ods", "People", "People", "ODS"},
		{"people.ods", "", "Sheet1", "ODS"},
	}
	a := NewSheetAdapter()
	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.wantSheet, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", tt.file)
			columns := []string{"name", "age", "city"}

			res, err := a.WriteRecords(people, columns, path, tt.sheet)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFmt, res.Format)
			assert.Equal(t, 2, res.RowCount)
			assert.Equal(t, 3, res.ColumnCount)
			assert.FileExists(t, path)

			info, err := a.ReadRecords(path, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSheet, info.SheetName)
			assert.Equal(t, []string{tt.wantSheet}, info.SheetNames)
			assert.Equal(t, columns, info.Columns)
			assert.Equal(t, 2, info.RowCount)
			assert.Equal(t, 3, info.ColumnCount)
			assert.Equal(t, []types.Record{
				{"name": "Ada", "age": "36", "city": "London"},
				{"name": "Grace", "age": "85"},
			}, info.Records)
		})
	}
}

func TestSheetRead_SheetNotFound(t *testing.T) {
	a := NewSheetAdapter()
	dir := t.TempDir()

	xlsx := filepath.Join(dir, "a.xlsx")
	_, err := a.WriteRecords(people, nil, xlsx, "")
	require.NoError(t, err)
	_, err = a.ReadRecords(xlsx, "Missing")
	assert.ErrorIs(t, err, types.ErrSheetNotFound)

	csvPath := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("x\n1\n"), 0o644))
	_, err = a.ReadRecords(csvPath, "Other")
	assert.ErrorIs(t, err, types.ErrSheetNotFound)
}

func TestSheetErrors(t *testing.T) {
	a := NewSheetAdapter()
	dir := t.TempDir()

	_, err := a.WriteRecords(nil, nil, filepath.Join(dir, "empty.xlsx"), "")
	assert.ErrorIs(t, err, types.ErrEmptyInput)

	for _, ext := range []string{".xls", ".xlsb"} {
		path := filepath.Join(dir, "legacy"+ext)
		_, err = a.WriteRecords(people, nil, path, "")
		assert.ErrorIs(t, err, types.ErrUnsupported, ext)
		assert.NoFileExists(t, path)
	}

	xlsb := filepath.Join(dir, "binary.xlsb")
	require.NoError(t, os.WriteFile(xlsb, []byte("PK"), 0o644))
	_, err = a.ReadRecords(xlsb, "")
	assert.ErrorIs(t, err, types.ErrUnsupported)

	for _, name := range []string{"corrupt.xls", "corrupt.ods"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("definitely not a workbook"), 0o644))
		_, err = a.ReadRecords(path, "")
		assert.ErrorIs(t, err, types.ErrInvalidFormat, name)
		_, err = a.WorkbookInfo(path)
		assert.ErrorIs(t, err, types.ErrInvalidFormat, name)
	}

	_, err = a.ReadRecords(filepath.Join(dir, "missing.xlsx"), "")
	assert.ErrorIs(t, err, types.ErrNotFound)

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o644))
	_, err = a.ReadRecords(corrupt, "")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
}

func TestSheetWorkbookInfo(t *testing.T) {
	a := NewSheetAdapter()
	path := filepath.Join(t.TempDir(), "info.xlsx")
	_, err := a.WriteRecords(people, []string{"name", "age", "city"}, path, "Data")
	require.NoError(t, err)

	info, err := a.WorkbookInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "info.xlsx", info.FileName)
	require.Equal(t, 1, info.SheetCount)
	assert.Equal(t, SheetSummary{Name: "Data", RowCount: 3, ColumnCount: 3, CellCount: 9}, info.Sheets[0])
}

func TestSheetEncodeDecode(t *testing.T) {
	a := NewSheetAdapter()
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "src.csv")
	require.NoError(t, os.WriteFile(src, []byte("id,label\n1,one\n2,two\n"), 0o644))

	art, err := a.Encode(ctx, src, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "CSV", art.Format)
	require.NotNil(t, art.Sheet)
	assert.Equal(t, []string{"id", "label"}, art.Sheet.Columns)

	var records []types.Record
	require.NoError(t, json.Unmarshal([]byte(art.Payload), &records))
	assert.Len(t, records, 2)

	out := filepath.Join(dir, "copy.csv")
	bin, err := a.Decode(ctx, art.Payload, out, DecodeOptions{Columns: art.Sheet.Columns})
	require.NoError(t, err)
	assert.Equal(t, "CSV", bin.DeclaredFormat)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "id,label\n1,one\n2,two\n", string(written))

	_, err = a.Decode(ctx, "not json", filepath.Join(dir, "bad.csv"), DecodeOptions{})
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	doc := `{"sheetName":"Named","columns":["b","a"],"data":[{"a":"1","b":"2"}]}`
	named := filepath.Join(dir, "named.xlsx")
	_, err = a.Decode(ctx, doc, named, DecodeOptions{})
	require.NoError(t, err)
	info, err := a.ReadRecords(named, "Named")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, info.Columns)
}

func TestSheetFormats(t *testing.T) {
	tests := []struct {
		path      string
		want      string
		writable  bool
		supported bool
	}{
		{"a.xlsx", "XLSX", true, true},
		{"a.XLSM", "XLSM", true, true},
		{"a.csv", "CSV", true, true},
		{"a.ods", "ODS", true, true},
		{"a.xls", "XLS", false, true},
		{"a.xlsb", "", false, false},
		{"a.txt", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := SheetFormat(tt.path)
			if !tt.supported {
				assert.ErrorIs(t, err, types.ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, err = SheetWriteFormat(tt.path)
			if tt.writable {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, types.ErrUnsupported)
			}
		})
	}
}

// writeODS zips content into a minimal OpenDocument spreadsheet.
func writeODS(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("content.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestSheetRead_ODS(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content
  xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
 <office:body><office:spreadsheet>
  <table:table table:name="Inventory">
   <table:table-row>
    <table:table-cell office:value-type="string"><text:p>item</text:p></table:table-cell>
    <table:table-cell office:value-type="string"><text:p>qty</text:p></table:table-cell>
    <table:table-cell office:value-type="string"><text:p>note</text:p></table:table-cell>
    <table:table-cell table:number-columns-repeated="16381"/>
   </table:table-row>
   <table:table-row>
    <table:table-cell office:value-type="string"><text:p>two<text:s text:c="2"/>words</text:p></table:table-cell>
    <table:table-cell office:value-type="float" office:value="3"><text:p>3</text:p></table:table-cell>
    <table:table-cell office:value-type="string"><office:annotation><text:p>hidden</text:p></office:annotation><text:p>line one</text:p><text:p>line two</text:p></table:table-cell>
   </table:table-row>
   <table:table-row table:number-rows-repeated="2">
    <table:table-cell table:number-columns-repeated="2"/>
    <table:table-cell office:value-type="float" office:value="7"/>
   </table:table-row>
   <table:table-row table:number-rows-repeated="1048570"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
  </table:table>
  <table:table table:name="Empty"/>
 </office:spreadsheet></office:body>
</office:document-content>`
	path := filepath.Join(t.TempDir(), "stock.ods")
	writeODS(t, path, content)
	a := NewSheetAdapter()

	info, err := a.ReadRecords(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Inventory", info.SheetName)
	assert.Equal(t, []string{"Inventory", "Empty"}, info.SheetNames)
	assert.Equal(t, []string{"item", "qty", "note"}, info.Columns)
	assert.Equal(t, []types.Record{
		{"item": "two  words", "qty": "3", "note": "line one\nline two"},
		{"note": "7"},
		{"note": "7"},
	}, info.Records)

	wb, err := a.WorkbookInfo(path)
	require.NoError(t, err)
	assert.Equal(t, []SheetSummary{
		{Name: "Inventory", RowCount: 4, ColumnCount: 3, CellCount: 12},
		{Name: "Empty"},
	}, wb.Sheets)

	_, err = a.ReadRecords(path, "Missing")
	assert.ErrorIs(t, err, types.ErrSheetNotFound)
}

func TestSheetODS_TypedCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typed.ods")
	records := []types.Record{{"n": float64(2.5), "ok": true, "s": "<a & b>"}}
	_, err := NewSheetAdapter().WriteRecords(records, []string{"n", "ok", "s"}, path, "Typed")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sheets, err := readODS(data)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Typed", sheets[0].name)
	assert.Equal(t, [][]string{{"n", "ok", "s"}, {"2.5", "true", "<a & b>"}}, sheets[0].rows)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.NotEmpty(t, zr.File)
	assert.Equal(t, "mimetype", zr.File[0].Name)
	assert.Equal(t, zip.Store, zr.File[0].Method)
}

func TestRecordsFromRows(t *testing.T) {
	rows := [][]string{
		{"name", "", "name", ""},
		{"a", "b", "c", "d"},
		{},
		{"", "", "only"},
	}
	columns, records := recordsFromRows(rows)
	assert.Equal(t, []string{"name", "__EMPTY", "name_1", "__EMPTY_1"}, columns)
	assert.Equal(t, []types.Record{
		{"name": "a", "__EMPTY": "b", "name_1": "c", "__EMPTY_1": "d"},
		{"name_1": "only"},
	}, records)
}

func TestDeriveColumns(t *testing.T) {
	cols := deriveColumns([]types.Record{{"b": 1, "a": 2}, {"c": 3, "a": 4}})
	assert.Equal(t, "a,b,c", strings.Join(cols, ","))
}
