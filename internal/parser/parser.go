// Package parser turns uploaded bank exports into rows of named string fields
// and provides the column-mapping heuristics and row validation used by imports.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeOFX  FileType = "ofx"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file is empty")
)

// ParsedRow maps a source column name to its raw string value.
type ParsedRow map[string]string

type ParseResult struct {
	Headers   []string    `json:"headers"`
	Rows      []ParsedRow `json:"rows"`
	TotalRows int         `json:"total_rows"`
}

// ParseError is returned when a file has no rows or cannot be decoded.
type ParseError struct {
	FileType FileType
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s file: %v", e.FileType, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes data according to fileType. Values are never coerced:
// amounts stay strings so no precision is lost before validation.
func Parse(data []byte, fileType FileType) (*ParseResult, error) {
	var (
		headers []string
		rows    []ParsedRow
		err     error
	)

	switch fileType {
	case FileTypeCSV:
		headers, rows, err = parseCSV(data)
	case FileTypeXLSX:
		headers, rows, err = parseXLSX(data)
	case FileTypeOFX:
		headers, rows, err = parseOFX(data)
	default:
		return nil, &ParseError{FileType: fileType, Err: ErrUnsupportedFileType}
	}
	if err != nil {
		return nil, &ParseError{FileType: fileType, Err: err}
	}

	return &ParseResult{
		Headers:   headers,
		Rows:      rows,
		TotalRows: len(rows),
	}, nil
}

// FileTypeFromName picks a FileType from the upload's extension.
func FileTypeFromName(filename string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FileTypeCSV, nil
	case ".xlsx", ".xlsm":
		return FileTypeXLSX, nil
	case ".ofx", ".qfx":
		return FileTypeOFX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(filename))
	}
}

// rowFromRecord zips a record with the header row, padding short records.
func rowFromRecord(headers, record []string) ParsedRow {
	row := make(ParsedRow, len(headers))
	for i, h := range headers {
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
