package llm

import (
	"context"
	"strings"

	"fintrack/internal/models"

	"github.com/google/uuid"
)

// System category IDs the keyword rules resolve to. They must match the
// taxonomy installed by cmd/seed.
var (
	CategoryFoodDining    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	CategorySubscriptions = uuid.MustParse("00000000-0000-0000-0000-000000000012")
	CategoryOtherExpenses = uuid.MustParse("00000000-0000-0000-0000-000000000015")
	CategoryGroceries     = uuid.MustParse("00000000-0000-0000-0000-000000000022")
	CategoryGasFuel       = uuid.MustParse("00000000-0000-0000-0000-000000000031")
	CategoryRideShare     = uuid.MustParse("00000000-0000-0000-0000-000000000034")
	CategoryElectricity   = uuid.MustParse("00000000-0000-0000-0000-000000000051")
	CategoryInternet      = uuid.MustParse("00000000-0000-0000-0000-000000000053")
	CategorySalary        = uuid.MustParse("00000000-0000-0000-0000-000000000101")
	CategoryOtherIncome   = uuid.MustParse("00000000-0000-0000-0000-000000000106")
)

const (
	rulesProviderName = "rules"
	rulesModelName    = "keyword-matching"
	rulesReasoning    = "Rule-based fallback classification"
)

type keywordRule struct {
	category    uuid.UUID
	confidence  float64
	merchant    []string
	description []string
}

// Checked in order; the first hit wins.
var debitRules = []keywordRule{
	{category: CategoryFoodDining, confidence: 0.6, merchant: []string{"restaurant", "food"}, description: []string{"dining"}},
	{category: CategoryGasFuel, confidence: 0.7, merchant: []string{"gas", "fuel", "shell", "chevron"}},
	{category: CategoryGroceries, confidence: 0.6, merchant: []string{"grocery", "walmart", "target"}},
	{category: CategorySubscriptions, confidence: 0.7, merchant: []string{"netflix", "spotify"}, description: []string{"subscription"}},
	{category: CategoryRideShare, confidence: 0.8, merchant: []string{"uber", "lyft"}},
	{category: CategoryElectricity, confidence: 0.7, description: []string{"electricity", "electric"}},
	{category: CategoryInternet, confidence: 0.7, merchant: []string{"comcast"}, description: []string{"internet"}},
}

// ruleProvider is the deterministic keyword classifier used when the model
// is unreachable or its answer is unusable. It never fails.
type ruleProvider struct {
	promptHash string
}

func (ruleProvider) Name() string  { return rulesProviderName }
func (ruleProvider) Model() string { return rulesModelName }

func (r ruleProvider) Classify(_ context.Context, tx TransactionToClassify) (ClassificationResult, error) {
	return r.classify(tx), nil
}

func (r ruleProvider) ClassifyBatch(_ context.Context, txs []TransactionToClassify) ([]ClassificationResult, error) {
	results := make([]ClassificationResult, len(txs))
	for i, tx := range txs {
		results[i] = r.classify(tx)
	}
	return results, nil
}

func (r ruleProvider) classify(tx TransactionToClassify) ClassificationResult {
	category, confidence := matchRules(tx)
	return ClassificationResult{
		TransactionID:   tx.ID,
		CategoryID:      category,
		ConfidenceScore: confidence,
		Reasoning:       rulesReasoning,
		Metadata: Metadata{
			PromptHash: r.promptHash,
			Provider:   rulesProviderName,
			Model:      rulesModelName,
		},
	}
}

func matchRules(tx TransactionToClassify) (uuid.UUID, float64) {
	description := strings.ToLower(tx.Description)
	merchant := description
	if tx.MerchantName != nil && strings.TrimSpace(*tx.MerchantName) != "" {
		merchant = strings.ToLower(*tx.MerchantName)
	}

	if tx.TransactionType == models.TransactionTypeCredit {
		if containsAny(description, "salary", "payroll") {
			return CategorySalary, 0.7
		}
		return CategoryOtherIncome, 0.5
	}

	for _, rule := range debitRules {
		if containsAny(merchant, rule.merchant...) || containsAny(description, rule.description...) {
			return rule.category, rule.confidence
		}
	}
	return CategoryOtherExpenses, 0.3
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
