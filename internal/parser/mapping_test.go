package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestColumnMapping(t *testing.T) {
	suggestions := SuggestColumnMapping([]string{"Transaction Date", "Description", "Amount"})
	require.Len(t, suggestions, 3)

	byColumn := map[string]ColumnSuggestion{}
	for _, s := range suggestions {
		byColumn[s.SourceColumn] = s
	}

	assert.Equal(t, FieldDate, byColumn["Transaction Date"].TargetField)
	assert.GreaterOrEqual(t, byColumn["Transaction Date"].Confidence, 0.85)
	assert.Equal(t, FieldAmount, byColumn["Amount"].TargetField)
	assert.GreaterOrEqual(t, byColumn["Amount"].Confidence, 0.85)
	assert.Equal(t, FieldDescription, byColumn["Description"].TargetField)
	assert.Equal(t, `Column name "Amount" matches amount pattern`, byColumn["Amount"].Reasoning)
}

func TestSuggestColumnMappingGroups(t *testing.T) {
	tests := []struct {
		header     string
		field      TargetField
		confidence float64
	}{
		{"Posted", FieldDate, 0.9},
		{"DATETIME", FieldDate, 0.9},
		{"Merchant", FieldDescription, 0.85},
		{"Memo", FieldDescription, 0.85},
		{"Payee Name", FieldDescription, 0.85},
		{"Total", FieldAmount, 0.9},
		{"Value", FieldAmount, 0.9},
		{"CCY", FieldCurrency, 0.95},
		{"Transaction Type", FieldTransactionType, 0.8},
		{"Dr/Cr", FieldTransactionType, 0.8},
		{"Ref #", FieldReference, 0.7},
		{"Confirmation", FieldReference, 0.7},
		// first matching group wins
		{"Transaction ID", FieldReference, 0.7},
		{"Posted Amount", FieldDate, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			s := SuggestColumnMapping([]string{tt.header})
			require.Len(t, s, 1)
			assert.Equal(t, tt.field, s[0].TargetField)
			assert.Equal(t, tt.confidence, s[0].Confidence)
		})
	}
}

func TestSuggestColumnMappingSkipsUnknownHeaders(t *testing.T) {
	s := SuggestColumnMapping([]string{"Balance", "", "Category"})
	assert.Empty(t, s)
}

func TestBestMappingKeepsFirstPerField(t *testing.T) {
	mapping := BestMapping(SuggestColumnMapping([]string{"Date", "Posted", "Description", "Memo", "Amount"}))

	assert.Equal(t, ColumnMapping{
		FieldDate:        "Date",
		FieldDescription: "Description",
		FieldAmount:      "Amount",
	}, mapping)
}

func TestResolveValue(t *testing.T) {
	row := ParsedRow{"Amt": "12.00"}
	mapping := ColumnMapping{
		FieldAmount:   "Amt",
		FieldCurrency: StaticValue("EUR"),
		FieldDate:     "Missing",
	}

	v, ok := ResolveValue(row, mapping, FieldAmount)
	assert.True(t, ok)
	assert.Equal(t, "12.00", v)

	v, ok = ResolveValue(row, mapping, FieldCurrency)
	assert.True(t, ok)
	assert.Equal(t, "EUR", v)

	v, ok = ResolveValue(row, mapping, FieldDate)
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = ResolveValue(row, mapping, FieldReference)
	assert.False(t, ok)
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping(map[string]string{"date": "Date", "amount": "Amt", "reference": ""})
	require.NoError(t, err)
	assert.Equal(t, ColumnMapping{FieldDate: "Date", FieldAmount: "Amt"}, m)
	assert.Equal(t, map[string]string{"date": "Date", "amount": "Amt"}, m.Strings())

	_, err = ParseMapping(map[string]string{"category": "Cat"})
	assert.Error(t, err)
}
