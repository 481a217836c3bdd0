package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

var knownCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CHF": {}, "CAD": {}, "AUD": {}, "NZD": {},
	"CNY": {}, "HKD": {}, "SGD": {}, "INR": {}, "MXN": {}, "BRL": {}, "ZAR": {}, "RUB": {},
}

var (
	amountNoiseRe   = regexp.MustCompile(`[$€£¥,\s]`)
	amountFormatRe  = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
	amountPrefixRe  = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
	currencyCodeRe  = regexp.MustCompile(`^[A-Z]{3}$`)
	isoDateRe       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateSeparatorRe = regexp.MustCompile(`[/-]`)
)

// ValidateRow checks one row against a mapping. Every rule runs, so a row
// reports all of its problems at once. Warnings never affect IsValid.
func ValidateRow(row ParsedRow, mapping ColumnMapping) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if value, ok := ResolveValue(row, mapping, FieldDate); !ok {
		result.Errors = append(result.Errors, "Date column not mapped")
	} else if value = strings.TrimSpace(value); value == "" {
		result.Errors = append(result.Errors, "Date is required")
	} else if _, ok := ParseDate(value); !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid date format: %q", value))
	}

	if value, ok := ResolveValue(row, mapping, FieldDescription); !ok {
		result.Errors = append(result.Errors, "Description column not mapped")
	} else if strings.TrimSpace(value) == "" {
		result.Errors = append(result.Errors, "Description is required")
	}

	if value, ok := ResolveValue(row, mapping, FieldAmount); !ok {
		result.Errors = append(result.Errors, "Amount column not mapped")
	} else if strings.TrimSpace(value) == "" {
		result.Errors = append(result.Errors, "Amount is required")
	} else {
		cleaned := amountNoiseRe.ReplaceAllString(value, "")
		if !amountFormatRe.MatchString(cleaned) {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid amount format: %q", value))
		} else if d, err := decimal.NewFromString(cleaned); err == nil && d.IsZero() {
			result.Warnings = append(result.Warnings, "Amount is zero")
		}
	}

	if value, ok := ResolveValue(row, mapping, FieldCurrency); ok {
		if code := strings.TrimSpace(value); code != "" && !IsKnownCurrency(code) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Non-standard currency code: %q", code))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// IsKnownCurrency accepts the allow-list plus anything shaped like an ISO 4217 code.
func IsKnownCurrency(code string) bool {
	code = strings.ToUpper(code)
	if _, ok := knownCurrencies[code]; ok {
		return true
	}
	return currencyCodeRe.MatchString(code)
}

// ParseAmount strips currency symbols, thousands separators and whitespace
// and reads the leading number. It returns 0 when nothing numeric is left.
func ParseAmount(value string) float64 {
	cleaned := amountNoiseRe.ReplaceAllString(value, "")
	num := amountPrefixRe.FindString(cleaned)
	if num == "" {
		return 0
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseAmountDecimal is ParseAmount without the float rounding.
func ParseAmountDecimal(value string) decimal.Decimal {
	cleaned := amountNoiseRe.ReplaceAllString(value, "")
	num := amountPrefixRe.FindString(cleaned)
	if num == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.NewFromFloat(ParseAmount(value))
	}
	return d
}

var genericDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006.01.02",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate reads a date from an arbitrary export. It tries ISO, then a set
// of common layouts, then numeric M/D/Y and D/M/Y. Years outside
// (1900, 2100) are rejected so spreadsheet serials and junk don't slip in.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if isoDateRe.MatchString(value) {
		if t, err := time.ParseInLocation("2006-01-02", value, time.UTC); err == nil {
			return inRange(t)
		}
		return time.Time{}, false
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return inRange(t)
		}
	}

	parts := dateSeparatorRe.Split(value, -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}

	if len(strings.TrimSpace(parts[0])) == 4 {
		if t, ok := calendarDate(nums[0], nums[1], nums[2]); ok {
			return inRange(t)
		}
		return time.Time{}, false
	}
	if t, ok := calendarDate(nums[2], nums[0], nums[1]); ok {
		return inRange(t)
	}
	if t, ok := calendarDate(nums[2], nums[1], nums[0]); ok {
		return inRange(t)
	}
	return time.Time{}, false
}

// calendarDate builds a date only when it exists; time.Date would normalise
// month 13 into the next year.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func inRange(t time.Time) (time.Time, bool) {
	if t.Year() <= 1900 || t.Year() >= 2100 {
		return time.Time{}, false
	}
	return t, true
}
