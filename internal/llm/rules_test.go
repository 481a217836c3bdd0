package llm

import (
	"context"
	"testing"

	"fintrack/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleProvider(t *testing.T) {
	tests := []struct {
		name        string
		txType      models.TransactionType
		description string
		merchant    string
		category    uuid.UUID
		confidence  float64
	}{
		{"payroll credit", models.TransactionTypeCredit, "ACME PAYROLL DEP", "", CategorySalary, 0.7},
		{"salary credit", models.TransactionTypeCredit, "Monthly Salary", "", CategorySalary, 0.7},
		{"other credit", models.TransactionTypeCredit, "Refund from store", "Uber", CategoryOtherIncome, 0.5},
		{"restaurant merchant", models.TransactionTypeDebit, "Dinner", "Joe's Restaurant", CategoryFoodDining, 0.6},
		{"dining description", models.TransactionTypeDebit, "Fine dining night", "Le Bistro", CategoryFoodDining, 0.6},
		{"fuel", models.TransactionTypeDebit, "Fill up", "Chevron 123", CategoryGasFuel, 0.7},
		{"groceries", models.TransactionTypeDebit, "Weekly shop", "Walmart Supercenter", CategoryGroceries, 0.6},
		{"subscription merchant", models.TransactionTypeDebit, "Monthly", "Spotify", CategorySubscriptions, 0.7},
		{"subscription description", models.TransactionTypeDebit, "Annual subscription", "Acme", CategorySubscriptions, 0.7},
		{"ride share", models.TransactionTypeDebit, "Airport", "Lyft", CategoryRideShare, 0.8},
		{"electricity", models.TransactionTypeDebit, "PG&E Electric bill", "PG&E", CategoryElectricity, 0.7},
		{"internet description", models.TransactionTypeDebit, "Internet service", "Sonic", CategoryInternet, 0.7},
		{"internet merchant", models.TransactionTypeDebit, "Monthly bill", "Comcast", CategoryInternet, 0.7},
		{"merchant falls back to description", models.TransactionTypeDebit, "UBER *TRIP", "", CategoryRideShare, 0.8},
		{"unmatched debit", models.TransactionTypeDebit, "Hardware store", "Ace", CategoryOtherExpenses, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := TransactionToClassify{ID: uuid.New(), Description: tt.description, TransactionType: tt.txType}
			if tt.merchant != "" {
				tx.MerchantName = &tt.merchant
			}

			result, err := ruleProvider{promptHash: "abc"}.Classify(context.Background(), tx)
			require.NoError(t, err)

			assert.Equal(t, tx.ID, result.TransactionID)
			assert.Equal(t, tt.category, result.CategoryID)
			assert.Equal(t, tt.confidence, result.ConfidenceScore)
			assert.Equal(t, "Rule-based fallback classification", result.Reasoning)
			assert.Equal(t, Metadata{PromptHash: "abc", Provider: "rules", Model: "keyword-matching"}, result.Metadata)
		})
	}
}

func TestRuleProviderBatchKeepsOrder(t *testing.T) {
	txs := []TransactionToClassify{
		{ID: uuid.New(), Description: "Netflix", TransactionType: models.TransactionTypeDebit},
		{ID: uuid.New(), Description: "Salary", TransactionType: models.TransactionTypeCredit},
	}

	results, err := ruleProvider{}.ClassifyBatch(context.Background(), txs)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, CategorySubscriptions, results[0].CategoryID)
	assert.Equal(t, CategorySalary, results[1].CategoryID)
}

func TestClampConfidence(t *testing.T) {
	nan := 0.0
	nan = nan / nan

	assert.Equal(t, 0.0, clampConfidence(-0.5))
	assert.Equal(t, 1.0, clampConfidence(42))
	assert.Equal(t, 0.42, clampConfidence(0.42))
	assert.Equal(t, 0.0, clampConfidence(nan))
}
