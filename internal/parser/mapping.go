package parser

import (
	"fmt"
	"regexp"
	"strings"
)

type TargetField string

const (
	FieldDate            TargetField = "date"
	FieldDescription     TargetField = "description"
	FieldAmount          TargetField = "amount"
	FieldCurrency        TargetField = "currency"
	FieldTransactionType TargetField = "transaction_type"
	FieldReference       TargetField = "reference"
)

// StaticPrefix marks a mapping value as a literal rather than a column name,
// e.g. "__STATIC__EUR" for a fixed currency.
const StaticPrefix = "__STATIC__"

// ColumnMapping maps a target field to a source column or a static literal.
type ColumnMapping map[TargetField]string

type ColumnSuggestion struct {
	SourceColumn string      `json:"source_column"`
	TargetField  TargetField `json:"target_field"`
	Confidence   float64     `json:"confidence"`
	Reasoning    string      `json:"reasoning"`
}

type fieldPattern struct {
	field      TargetField
	patterns   []*regexp.Regexp
	confidence float64
}

// Order matters: a header is claimed by the first group it matches.
var fieldPatterns = []fieldPattern{
	{
		field:      FieldDate,
		patterns:   compileAll(`date`, `posted`, `transaction.*date`, `trans.*date`, `datetime`),
		confidence: 0.9,
	},
	{
		field:      FieldDescription,
		patterns:   compileAll(`desc`, `description`, `merchant`, `memo`, `detail`, `name`),
		confidence: 0.85,
	},
	{
		field:      FieldAmount,
		patterns:   compileAll(`amount`, `value`, `total`, `sum`, `price`),
		confidence: 0.9,
	},
	{
		field:      FieldCurrency,
		patterns:   compileAll(`currency`, `curr`, `ccy`),
		confidence: 0.95,
	},
	{
		field:      FieldTransactionType,
		patterns:   compileAll(`type`, `debit.*credit`, `transaction.*type`, `dr.*cr`),
		confidence: 0.8,
	},
	{
		field:      FieldReference,
		patterns:   compileAll(`ref`, `reference`, `transaction.*id`, `confirmation`, `receipt`),
		confidence: 0.7,
	},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// SuggestColumnMapping proposes at most one target field per header, in header order.
func SuggestColumnMapping(headers []string) []ColumnSuggestion {
	var suggestions []ColumnSuggestion
	for _, header := range headers {
		if s, ok := suggestForHeader(header); ok {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}

func suggestForHeader(header string) (ColumnSuggestion, bool) {
	name := strings.ToLower(strings.TrimSpace(header))
	if name == "" {
		return ColumnSuggestion{}, false
	}

	for _, group := range fieldPatterns {
		for _, re := range group.patterns {
			if re.MatchString(name) {
				return ColumnSuggestion{
					SourceColumn: header,
					TargetField:  group.field,
					Confidence:   group.confidence,
					Reasoning:    fmt.Sprintf("Column name %q matches %s pattern", header, group.field),
				}, true
			}
		}
	}
	return ColumnSuggestion{}, false
}

// BestMapping keeps the first suggestion for each target field.
func BestMapping(suggestions []ColumnSuggestion) ColumnMapping {
	mapping := make(ColumnMapping)
	for _, s := range suggestions {
		if _, taken := mapping[s.TargetField]; !taken {
			mapping[s.TargetField] = s.SourceColumn
		}
	}
	return mapping
}

// StaticValue builds a mapping value holding a literal.
func StaticValue(v string) string {
	return StaticPrefix + v
}

// ResolveValue returns the value for field in row. ok is false when the
// field is not mapped at all.
func ResolveValue(row ParsedRow, mapping ColumnMapping, field TargetField) (value string, ok bool) {
	source, ok := mapping[field]
	if !ok || source == "" {
		return "", false
	}
	if literal, isStatic := strings.CutPrefix(source, StaticPrefix); isStatic {
		return literal, true
	}
	return row[source], true
}

// ParseMapping converts a loosely typed mapping (request bodies, stored JSON).
// Unknown fields are rejected.
func ParseMapping(raw map[string]string) (ColumnMapping, error) {
	mapping := make(ColumnMapping, len(raw))
	for k, v := range raw {
		field := TargetField(k)
		switch field {
		case FieldDate, FieldDescription, FieldAmount, FieldCurrency, FieldTransactionType, FieldReference:
			if v != "" {
				mapping[field] = v
			}
		default:
			return nil, fmt.Errorf("unknown mapping field %q", k)
		}
	}
	return mapping, nil
}

// Strings is the inverse of ParseMapping.
func (m ColumnMapping) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
