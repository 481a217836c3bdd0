package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("CLASSIFIER_BATCH_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.LLM.RetryDelay)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.Classifier.BatchSize)
	assert.Equal(t, time.Second, cfg.Classifier.BatchDelay)
	assert.InDelta(t, 0.8, cfg.Classifier.AutoApplyConfidence, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gigachat")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("CLASSIFIER_BATCH_SIZE", "25")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("AUTO_APPLY_MIN_CONFIDENCE", "0.9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "GigaChat", cfg.LLM.Model)
	assert.Equal(t, 25, cfg.Classifier.BatchSize)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.InDelta(t, 0.9, cfg.Classifier.AutoApplyConfidence, 1e-9)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CLASSIFY_WORKERS", "many")
	assert.Equal(t, 2, getEnvInt("CLASSIFY_WORKERS", 2))
}
