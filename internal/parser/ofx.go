package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
)

// OFX statements have no header row of their own; rows are exposed under
// these fixed column names so the normal mapping flow applies.
var ofxHeaders = []string{"Date", "Description", "Amount", "Currency", "Type", "Reference"}

var (
	ofxSeverityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	ofxOpenTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

func parseOFX(data []byte) ([]string, []ParsedRow, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(normalizeOFX(string(data))))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode OFX: %w", err)
	}

	var rows []ParsedRow
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			rows = appendOFXRows(rows, stmt.BankTranList.Transactions, stmt.CurDef.String())
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			rows = appendOFXRows(rows, stmt.BankTranList.Transactions, stmt.CurDef.String())
		}
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmptyFile
	}
	return ofxHeaders, rows, nil
}

func appendOFXRows(rows []ParsedRow, txs []ofxgo.Transaction, currency string) []ParsedRow {
	for _, tx := range txs {
		rows = append(rows, ParsedRow{
			"Date":        tx.DtPosted.Time.UTC().Format("2006-01-02"),
			"Description": ofxDescription(tx),
			"Amount":      tx.TrnAmt.FloatString(2),
			"Currency":    currency,
			"Type":        ofxDirection(tx.TrnAmt.Sign()),
			"Reference":   string(tx.FiTID),
		})
	}
	return rows
}

// ofxDescription prefers the payee, then NAME, then MEMO.
func ofxDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	if name := strings.TrimSpace(string(tx.Name)); name != "" {
		return name
	}
	return strings.TrimSpace(string(tx.Memo))
}

func ofxDirection(sign int) string {
	if sign < 0 {
		return "debit"
	}
	return "credit"
}

// normalizeOFX repairs the SGML quirks banks commonly emit.
func normalizeOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = ofxSeverityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return ofxOpenTagRe.ReplaceAllString(content, "$1>")
}
