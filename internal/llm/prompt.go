package llm

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"fintrack/internal/models"
)

func buildSystemPrompt(categories []models.CategoryInfo) string {
	var b strings.Builder

	b.WriteString("You categorize personal finance transactions.\n\n")
	b.WriteString("Allowed categories (use the id exactly as written):\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s", c.ID, c.Name)
		if c.ParentName != nil && *c.ParentName != "" {
			fmt.Fprintf(&b, " (%s)", *c.ParentName)
		}
		fmt.Fprintf(&b, " [%s]\n", c.CategoryType)
	}

	b.WriteString(`
Rules:
1. Pick the most specific category that fits; prefer a subcategory over its parent.
2. Credits are normally income and debits normally expenses.
3. Judge from the merchant name first and the description second.
4. confidence_score is a number between 0 and 1.
5. Return one entry for every transaction and nothing else.

Answer with a JSON array only:
[
  {
    "transaction_id": "<id from the input>",
    "category_id": "<id from the list above>",
    "confidence_score": 0.9,
    "reasoning": "<one short sentence>"
  }
]`)

	return b.String()
}

func buildUserPrompt(txs []TransactionToClassify) string {
	var b strings.Builder
	b.WriteString("Categorize these transactions:\n\n")

	for i, tx := range txs {
		merchant := "N/A"
		if tx.MerchantName != nil && *tx.MerchantName != "" {
			merchant = *tx.MerchantName
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. ID: %s\n   Description: %s\n   Merchant: %s\n   Amount: %.2f %s\n   Type: %s",
			i+1, tx.ID, tx.Description, merchant, tx.Amount, tx.Currency, tx.TransactionType)
	}

	return b.String()
}

// promptHash identifies a prompt for audit and dedup.
func promptHash(prompt string) string {
	sum := md5.Sum([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
