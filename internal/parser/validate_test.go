package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var basicMapping = ColumnMapping{
	FieldDate:        "date",
	FieldDescription: "description",
	FieldAmount:      "amount",
}

func TestValidateRowValid(t *testing.T) {
	rows := []ParsedRow{
		{"date": "2025-01-01", "description": "Coffee", "amount": "4.50"},
		{"date": "01/31/2025", "description": "Rent", "amount": "$1,200.00"},
		{"date": "31/01/2025", "description": "Rent", "amount": "-1200"},
		{"date": "Jan 5, 2025", "description": "Gym", "amount": "€ 30"},
	}

	for _, row := range rows {
		result := ValidateRow(row, basicMapping)
		assert.True(t, result.IsValid, "row %v: %v", row, result.Errors)
		assert.Empty(t, result.Errors)
	}
}

func TestValidateRowErrors(t *testing.T) {
	tests := []struct {
		name     string
		row      ParsedRow
		mapping  ColumnMapping
		errors   []string
		warnings []string
	}{
		{
			name:    "nothing mapped",
			row:     ParsedRow{},
			mapping: ColumnMapping{},
			errors:  []string{"Date column not mapped", "Description column not mapped", "Amount column not mapped"},
		},
		{
			name:    "all empty",
			row:     ParsedRow{"date": "", "description": "   ", "amount": ""},
			mapping: basicMapping,
			errors:  []string{"Date is required", "Description is required", "Amount is required"},
		},
		{
			name:    "impossible date in both orderings",
			row:     ParsedRow{"date": "13/25/2025", "description": "x", "amount": "5"},
			mapping: basicMapping,
			errors:  []string{`Invalid date format: "13/25/2025"`},
		},
		{
			name:    "three decimals",
			row:     ParsedRow{"date": "2025-01-01", "description": "x", "amount": "1.234"},
			mapping: basicMapping,
			errors:  []string{`Invalid amount format: "1.234"`},
		},
		{
			name:    "text amount",
			row:     ParsedRow{"date": "2025-01-01", "description": "x", "amount": "ten"},
			mapping: basicMapping,
			errors:  []string{`Invalid amount format: "ten"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRow(tt.row, tt.mapping)
			assert.False(t, result.IsValid)
			assert.Equal(t, tt.errors, result.Errors)
		})
	}
}

func TestValidateRowWarnings(t *testing.T) {
	mapping := ColumnMapping{
		FieldDate:        "date",
		FieldDescription: "description",
		FieldAmount:      "amount",
		FieldCurrency:    "currency",
	}

	result := ValidateRow(ParsedRow{"date": "2025-01-01", "description": "x", "amount": "0.00", "currency": "Dollars"}, mapping)
	assert.True(t, result.IsValid, "warnings never block")
	assert.Equal(t, []string{"Amount is zero", `Non-standard currency code: "Dollars"`}, result.Warnings)

	result = ValidateRow(ParsedRow{"date": "2025-01-01", "description": "x", "amount": "1", "currency": "usd"}, mapping)
	assert.Empty(t, result.Warnings)

	result = ValidateRow(ParsedRow{"date": "2025-01-01", "description": "x", "amount": "1", "currency": ""}, mapping)
	assert.Empty(t, result.Warnings)
}

func TestValidateRowStaticValues(t *testing.T) {
	mapping := ColumnMapping{
		FieldDate:        "date",
		FieldDescription: StaticValue("Cash withdrawal"),
		FieldAmount:      "amount",
		FieldCurrency:    StaticValue("XBT1"),
	}

	result := ValidateRow(ParsedRow{"date": "2025-01-01", "amount": "20"}, mapping)
	assert.True(t, result.IsValid)
	assert.Equal(t, []string{`Non-standard currency code: "XBT1"`}, result.Warnings)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"$1,234.56", 1234.56},
		{"-50.00", -50},
		{"£ 12", 12},
		{"¥1,000", 1000},
		{"  7.5 ", 7.5},
		{"12.34abc", 12.34},
		{"", 0},
		{"abc", 0},
		{"--", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.input), 1e-9)
		})
	}
}

func TestParseAmountDecimal(t *testing.T) {
	assert.Equal(t, "1234.56", ParseAmountDecimal("$1,234.56").String())
	assert.True(t, ParseAmountDecimal("n/a").IsZero())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"01/15/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15-01-2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2025/1/5", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"Jan 2, 2025", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2025-03-04T10:00:00Z", time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"garbage",
		"13/25/2025",
		"02/30/2025",
		"2025-02-30",
		"45678",
		"01/01/1900",
		"01/01/2100",
		"1/2/25",
		"1/2/3/4",
	} {
		t.Run(input, func(t *testing.T) {
			_, ok := ParseDate(input)
			assert.False(t, ok)
		})
	}
}

func TestParseDateISOFields(t *testing.T) {
	d, ok := ParseDate("2025-01-01")
	require.True(t, ok)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 1, d.Day())
}
