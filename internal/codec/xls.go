// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"

	"github.com/pdiddy/textbridge/pkg/types"
)

// xlsMaxColumns is the BIFF8 column limit. Row records do not always carry
// their last column, so every row is scanned up to this bound.
const xlsMaxColumns = 256

// readXLS returns every worksheet of a legacy BIFF workbook. The reader
// panics on some malformed files; that is reported as ErrInvalidFormat.
func readXLS(data []byte) (sheets []sheetRows, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sheets, err = nil, fmt.Errorf("reading xls: %v: %w", rec, types.ErrInvalidFormat)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening xls: %v: %w", err, types.ErrInvalidFormat)
	}
	if wb == nil {
		return nil, fmt.Errorf("xls has no workbook stream: %w", types.ErrInvalidFormat)
	}

	for i := range wb.NumSheets() {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := sheetRows{name: ws.Name, rows: [][]string{}}
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := xlsRow(ws, r)
			if row == nil {
				sheet.rows = append(sheet.rows, []string{})
				continue
			}
			cells := make([]string, 0, 8)
			last := -1
			for c := range xlsMaxColumns {
				v := row.Col(c)
				cells = append(cells, v)
				if v != "" {
					last = c
				}
			}
			sheet.rows = append(sheet.rows, cells[:last+1])
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// xlsRow returns row r, or nil when the sheet has no record for it.
func xlsRow(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}
