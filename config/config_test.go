package config

import (
	"testing"

	"github.com/etnz/folio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"FOLIO_DB", "FOLIO_MARKET", "FOLIO_CURRENCY", "FOLIO_LOOKBACK_DAYS", "FOLIO_BASELINE_WINDOW", "FOLIO_MISSING_PRICE", "EODHD_API_KEY", "LOG_LEVEL", "FOLIO_ADDR"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "folio.db", cfg.DatabasePath)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, folio.DefaultLookback, cfg.Lookback)
	assert.Equal(t, folio.DefaultBaselineWindow, cfg.BaselineWindow)
	assert.Equal(t, folio.SkipMissingPrice, cfg.MissingPrice)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FOLIO_DB", "/tmp/test.db")
	t.Setenv("FOLIO_CURRENCY", "EUR")
	t.Setenv("FOLIO_LOOKBACK_DAYS", "3")
	t.Setenv("FOLIO_BASELINE_WINDOW", "20")
	t.Setenv("FOLIO_MISSING_PRICE", "fail")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 3, cfg.Lookback)
	assert.Equal(t, 20, cfg.BaselineWindow)
	assert.Equal(t, folio.FailOnMissingPrice, cfg.MissingPrice)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("FOLIO_MISSING_PRICE", "retry")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FOLIO_MISSING_PRICE", "")
	t.Setenv("FOLIO_BASELINE_WINDOW", "0")
	_, err = Load()
	assert.Error(t, err)
}
