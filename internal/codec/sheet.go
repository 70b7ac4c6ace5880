// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/pkg/types"
)

// DefaultSheetName is the worksheet name used when writing records without
// an explicit name, and the name reported for CSV files.
const DefaultSheetName = "Sheet1"

const emptyHeader = "__EMPTY"

type sheetFormat struct {
	name     string
	writable bool
}

// sheetFormats maps extensions to the formats ReadRecords understands.
// Legacy XLS is read-only.
var sheetFormats = map[string]sheetFormat{
	".xlsx": {"XLSX", true},
	".xlsm": {"XLSM", true},
	".xltx": {"XLTX", true},
	".xltm": {"XLTM", true},
	".csv":  {"CSV", true},
	".ods":  {"ODS", true},
	".xls":  {"XLS", false},
}

// SheetWriteResult is the metadata of a file produced by WriteRecords.
type SheetWriteResult struct {
	Path        string `json:"path" yaml:"path"`
	FileName    string `json:"fileName" yaml:"file_name"`
	SheetName   string `json:"sheetName" yaml:"sheet_name"`
	RowCount    int    `json:"rowCount" yaml:"row_count"`
	ColumnCount int    `json:"columnCount" yaml:"column_count"`
	Format      string `json:"format" yaml:"format"`
	Size        int64  `json:"size" yaml:"size"`
	SizeKB      string `json:"sizeKB" yaml:"size_kb"`
	SizeMB      string `json:"sizeMB" yaml:"size_mb"`

	data []byte
}

// SheetSummary describes the used range of one worksheet.
type SheetSummary struct {
	Name        string `json:"name" yaml:"name"`
	RowCount    int    `json:"rowCount" yaml:"row_count"`
	ColumnCount int    `json:"columnCount" yaml:"column_count"`
	CellCount   int    `json:"cellCount" yaml:"cell_count"`
}

// WorkbookInfo lists the worksheets of a workbook.
type WorkbookInfo struct {
	FileName   string         `json:"fileName" yaml:"file_name"`
	SheetCount int            `json:"sheetCount" yaml:"sheet_count"`
	Sheets     []SheetSummary `json:"sheets" yaml:"sheets"`
}

// SheetAdapter converts workbooks and CSV files to and from JSON records.
type SheetAdapter struct{}

// NewSheetAdapter returns the spreadsheet codec adapter.
func NewSheetAdapter() *SheetAdapter { return &SheetAdapter{} }

func (a *SheetAdapter) Domain() types.Domain { return types.DomainSheet }

func (a *SheetAdapter) Extensions() []string {
	return []string{".xlsx", ".xlsm", ".xltx", ".xltm", ".csv", ".ods", ".xls"}
}

// SheetFormat returns the upper-case format name for path's extension.
// Binary XLSB workbooks are recognised but not supported.
func SheetFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := sheetFormats[ext]; ok {
		return f.name, nil
	}
	if ext == ".xlsb" {
		return "", fmt.Errorf("XLSB workbooks: %w", types.ErrUnsupported)
	}
	return "", fmt.Errorf("%q is not a spreadsheet extension: %w", ext, types.ErrUnsupported)
}

// SheetWriteFormat is SheetFormat restricted to formats WriteRecords can
// produce.
func SheetWriteFormat(path string) (string, error) {
	name, err := SheetFormat(path)
	if err != nil {
		return "", err
	}
	if !sheetFormats[strings.ToLower(filepath.Ext(path))].writable {
		return "", fmt.Errorf("writing %s workbooks: %w", name, types.ErrUnsupported)
	}
	return name, nil
}

// ReadRecords reads one sheet as records keyed by the header row. An empty
// sheetName selects the first sheet.
func (a *SheetAdapter) ReadRecords(path, sheetName string) (types.SheetInfo, error) {
	if _, err := fsutil.StatFile(path); err != nil {
		return types.SheetInfo{}, err
	}
	format, err := SheetFormat(path)
	if err != nil {
		return types.SheetInfo{}, err
	}

	src, err := openSheets(path, format)
	if err != nil {
		return types.SheetInfo{}, err
	}
	defer src.Close()

	names := src.Names()
	if sheetName == "" && len(names) > 0 {
		sheetName = names[0]
	}
	if !slices.Contains(names, sheetName) {
		return types.SheetInfo{}, fmt.Errorf("sheet %q: %w", sheetName, types.ErrSheetNotFound)
	}
	rows, err := src.Rows(sheetName)
	if err != nil {
		return types.SheetInfo{}, err
	}

	columns, records := recordsFromRows(rows)
	return types.SheetInfo{
		SheetName:   sheetName,
		SheetNames:  names,
		Columns:     columns,
		Records:     records,
		RowCount:    len(records),
		ColumnCount: width(rows),
	}, nil
}

// WriteRecords writes records to path as a single-sheet workbook, an
// OpenDocument spreadsheet or a CSV file, chosen by extension. Columns fixes the column order; when empty it is
// derived from the records.
func (a *SheetAdapter) WriteRecords(records []types.Record, columns []string, path, sheetName string) (SheetWriteResult, error) {
	if len(records) == 0 {
		return SheetWriteResult{}, fmt.Errorf("records must be a non-empty array: %w", types.ErrEmptyInput)
	}
	format, err := SheetWriteFormat(path)
	if err != nil {
		return SheetWriteResult{}, err
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if len(columns) == 0 {
		columns = deriveColumns(records)
	}

	var data []byte
	switch format {
	case "CSV":
		data, err = renderCSV(records, columns)
	case "ODS":
		data, err = renderODS(records, columns, sheetName)
	default:
		data, err = renderWorkbook(records, columns, path, sheetName)
	}
	if err != nil {
		return SheetWriteResult{}, err
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return SheetWriteResult{}, err
	}

	size := int64(len(data))
	return SheetWriteResult{
		Path:        path,
		FileName:    filepath.Base(path),
		SheetName:   sheetName,
		RowCount:    len(records),
		ColumnCount: len(columns),
		Format:      format,
		Size:        size,
		SizeKB:      types.SizeKB(size),
		SizeMB:      types.SizeMB(size),
		data:        data,
	}, nil
}

// WorkbookInfo reports the used range of every sheet in the file.
func (a *SheetAdapter) WorkbookInfo(path string) (WorkbookInfo, error) {
	if _, err := fsutil.StatFile(path); err != nil {
		return WorkbookInfo{}, err
	}
	format, err := SheetFormat(path)
	if err != nil {
		return WorkbookInfo{}, err
	}
	src, err := openSheets(path, format)
	if err != nil {
		return WorkbookInfo{}, err
	}
	defer src.Close()

	info := WorkbookInfo{FileName: filepath.Base(path), Sheets: []SheetSummary{}}
	for _, name := range src.Names() {
		rows, err := src.Rows(name)
		if err != nil {
			return WorkbookInfo{}, err
		}
		info.Sheets = append(info.Sheets, summarize(name, rows))
	}
	info.SheetCount = len(info.Sheets)
	return info, nil
}

// Encode reads a sheet and returns its records as a JSON array.
func (a *SheetAdapter) Encode(ctx context.Context, path string, opts EncodeOptions) (types.TextArtifact, error) {
	if err := ctx.Err(); err != nil {
		return types.TextArtifact{}, err
	}
	sheet, err := a.ReadRecords(path, opts.SheetName)
	if err != nil {
		return types.TextArtifact{}, err
	}
	payload, err := json.Marshal(sheet.Records)
	if err != nil {
		return types.TextArtifact{}, fmt.Errorf("marshaling records: %w", err)
	}
	format, _ := SheetFormat(path)
	st, err := os.Stat(path)
	if err != nil {
		return types.TextArtifact{}, fmt.Errorf("stat %s: %w", path, err)
	}

	return types.TextArtifact{
		Payload:        string(payload),
		MIMEHint:       "application/json",
		SourceFilename: filepath.Base(path),
		SourcePath:     path,
		Format:         format,
		Size:           st.Size(),
		Sheet:          &sheet,
	}, nil
}

// Decode parses text as JSON records and writes them with WriteRecords. The
// text is either an array of records or an object holding them under "data",
// optionally with "columns" and "sheetName".
func (a *SheetAdapter) Decode(ctx context.Context, text, outputPath string, opts DecodeOptions) (types.BinaryArtifact, error) {
	if err := ctx.Err(); err != nil {
		return types.BinaryArtifact{}, err
	}
	doc, err := parseRecords(text)
	if err != nil {
		return types.BinaryArtifact{}, err
	}
	columns := opts.Columns
	if len(columns) == 0 {
		columns = doc.Columns
	}
	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = doc.SheetName
	}

	res, err := a.WriteRecords(doc.Data, columns, outputPath, sheetName)
	if err != nil {
		return types.BinaryArtifact{}, err
	}
	return types.BinaryArtifact{
		Bytes:          res.data,
		DeclaredFormat: res.Format,
		SourceFilename: res.FileName,
		Path:           res.Path,
		Size:           res.Size,
	}, nil
}

type recordsDoc struct {
	Data      []types.Record `json:"data"`
	Columns   []string       `json:"columns"`
	SheetName string         `json:"sheetName"`
}

func parseRecords(text string) (recordsDoc, error) {
	trimmed := strings.TrimSpace(text)
	var doc recordsDoc
	switch {
	case trimmed == "":
		return doc, fmt.Errorf("no records: %w", types.ErrEmptyInput)
	case trimmed[0] == '[':
		if err := json.Unmarshal([]byte(trimmed), &doc.Data); err != nil {
			return doc, fmt.Errorf("parsing records: %v: %w", err, types.ErrInvalidFormat)
		}
	case trimmed[0] == '{':
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return doc, fmt.Errorf("parsing records: %v: %w", err, types.ErrInvalidFormat)
		}
	default:
		return doc, fmt.Errorf("records must be a JSON array: %w", types.ErrInvalidFormat)
	}
	return doc, nil
}

// sheetSource gives uniform access to the sheets of any readable format.
type sheetSource interface {
	Names() []string
	Rows(name string) ([][]string, error)
	Close() error
}

// sheetRows is one fully loaded sheet.
type sheetRows struct {
	name string
	rows [][]string
}

// memSource serves sheets that were parsed into memory up front.
type memSource []sheetRows

func (m memSource) Names() []string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.name
	}
	return names
}

func (m memSource) Rows(name string) ([][]string, error) {
	for _, s := range m {
		if s.name == name {
			return s.rows, nil
		}
	}
	return nil, fmt.Errorf("sheet %q: %w", name, types.ErrSheetNotFound)
}

func (m memSource) Close() error { return nil }

// excelSource reads sheets lazily through excelize.
type excelSource struct{ f *excelize.File }

func (e excelSource) Names() []string { return e.f.GetSheetList() }

func (e excelSource) Rows(name string) ([][]string, error) {
	rows, err := e.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return rows, nil
}

func (e excelSource) Close() error { return e.f.Close() }

func openSheets(path, format string) (sheetSource, error) {
	switch format {
	case "CSV":
		rows, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		return memSource{{name: DefaultSheetName, rows: rows}}, nil
	case "ODS", "XLS":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var sheets []sheetRows
		if format == "ODS" {
			sheets, err = readODS(data)
		} else {
			sheets, err = readXLS(data)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		return memSource(sheets), nil
	default:
		f, err := openWorkbook(path)
		if err != nil {
			return nil, err
		}
		return excelSource{f}, nil
	}
}

func openWorkbook(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %v: %w", filepath.Base(path), err, types.ErrInvalidFormat)
	}
	return f, nil
}

func readCSV(path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %v: %w", filepath.Base(path), err, types.ErrInvalidFormat)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// recordsFromRows treats the first row as the header. Blank headers become
// __EMPTY, __EMPTY_1, ...; repeated headers get a _N suffix. Blank rows are
// dropped and empty cells are left out of their record.
func recordsFromRows(rows [][]string) ([]string, []types.Record) {
	if len(rows) == 0 {
		return []string{}, []types.Record{}
	}
	header := rows[0]
	w := width(rows)
	columns := make([]string, w)
	seen := make(map[string]int, w)
	for i := range w {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = emptyHeader
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 0
		}
		columns[i] = name
	}

	records := []types.Record{}
	for _, row := range rows[1:] {
		rec := types.Record{}
		for i, cell := range row {
			if cell == "" {
				continue
			}
			rec[columns[i]] = cell
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return columns, records
}

// deriveColumns orders keys by first appearance across records; keys new to a
// record are sorted so the result is stable.
func deriveColumns(records []types.Record) []string {
	var columns []string
	seen := make(map[string]bool)
	for _, rec := range records {
		var fresh []string
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		columns = append(columns, fresh...)
	}
	return columns
}

func renderCSV(records []types.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = cellString(rec[col])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderWorkbook(records []types.Record, columns []string, path, sheetName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName != DefaultSheetName {
		if err := f.SetSheetName(DefaultSheetName, sheetName); err != nil {
			return nil, fmt.Errorf("naming sheet %q: %w", sheetName, err)
		}
	}
	if err := setRow(f, sheetName, 1, toAny(columns)); err != nil {
		return nil, err
	}
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = rec[col]
		}
		if err := setRow(f, sheetName, i+2, row); err != nil {
			return nil, err
		}
	}

	// WriteTo picks the package content type from the path extension.
	f.Path = path
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		w = max(w, len(r))
	}
	return w
}

func summarize(name string, rows [][]string) SheetSummary {
	r, c := len(rows), width(rows)
	return SheetSummary{Name: name, RowCount: r, ColumnCount: c, CellCount: r * c}
}
