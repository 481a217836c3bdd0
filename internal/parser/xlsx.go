package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first sheet. The first row is the header row; date
// cells are rendered as YYYY-MM-DD and fully blank rows are dropped.
func parseXLSX(data []byte) ([]string, []ParsedRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}
	sheet := sheets[0]

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyFile
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	dates := &dateCells{file: f, sheet: sheet, date1904: date1904, styles: map[int]bool{}}

	var rows []ParsedRow
	for r, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		for c := range record {
			if record[c] == "" {
				continue
			}
			// records[1:] starts at sheet row 2
			if iso, ok := dates.format(c+1, r+2, record[c]); ok {
				record[c] = iso
			}
		}
		rows = append(rows, rowFromRecord(headers, record))
	}

	return headers, rows, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// dateCells converts serial date values to ISO strings, caching the
// date-ness of each style index.
type dateCells struct {
	file     *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func (d *dateCells) format(col, row int, raw string) (string, bool) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}

	if cellType, err := d.file.GetCellType(d.sheet, cell); err == nil && cellType == excelize.CellTypeDate {
		if len(raw) >= 10 {
			return raw[:10], true
		}
		return "", false
	}

	styleID, err := d.file.GetCellStyle(d.sheet, cell)
	if err != nil || !d.isDateStyle(styleID) {
		return "", false
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func (d *dateCells) isDateStyle(styleID int) bool {
	if cached, ok := d.styles[styleID]; ok {
		return cached
	}

	isDate := false
	if style, err := d.file.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	d.styles[styleID] = isDate
	return isDate
}

// isDateNumFmt recognises the built-in date formats (14-22, 45-47) and
// custom formats containing a day or year token.
func isDateNumFmt(numFmt int, custom *string) bool {
	if (numFmt >= 14 && numFmt <= 22) || (numFmt >= 45 && numFmt <= 47) {
		return true
	}
	if custom == nil {
		return false
	}

	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(*custom) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '[' && !inQuote:
			inBracket = true
		case r == ']' && !inQuote:
			inBracket = false
		case !inQuote && !inBracket:
			b.WriteRune(r)
		}
	}
	f := b.String()
	return strings.ContainsAny(f, "yd")
}
