package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/stockqa/internal/config"
	"github.com/ajjensen13/stockqa/internal/embed"
	"github.com/ajjensen13/stockqa/internal/index"
	"github.com/ajjensen13/stockqa/internal/prices"
	"github.com/ajjensen13/stockqa/internal/symbols"
)

func TestProvideSymbolSourceOrder(t *testing.T) {
	cfg := config.Default()
	client := provideApiServiceClient()
	bo := provideBackoff()

	assert.IsType(t, symbols.Remote{}, provideSymbolSource(&cfg, overrides{}, client, bo, nil))

	cfg.Symbols.Exchange = "US"
	assert.IsType(t, symbols.Exchange{}, provideSymbolSource(&cfg, overrides{}, client, bo, nil))

	cfg.Symbols.File = "symbols.csv"
	assert.IsType(t, symbols.File{}, provideSymbolSource(&cfg, overrides{}, client, bo, nil))

	cfg.Symbols.Static = []string{"AAPL"}
	assert.Equal(t, symbols.Static{"AAPL"}, provideSymbolSource(&cfg, overrides{}, client, bo, nil))

	assert.Equal(t, symbols.Static{"MSFT"}, provideSymbolSource(&cfg, overrides{Symbols: []string{"MSFT"}}, client, bo, nil))
}

func TestProvideFetcher(t *testing.T) {
	cfg := config.Default()
	client := provideApiServiceClient()

	f, err := provideFetcher(&cfg, time.UTC, client, provideBackoff(), nil, provideLimiter(&cfg))
	require.NoError(t, err)
	assert.IsType(t, &prices.Yahoo{}, f)

	cfg.PriceProvider = "finnhub"
	f, err = provideFetcher(&cfg, time.UTC, client, provideBackoff(), nil, provideLimiter(&cfg))
	require.NoError(t, err)
	assert.IsType(t, &prices.Finnhub{}, f)

	cfg.PriceProvider = "bloomberg"
	_, err = provideFetcher(&cfg, time.UTC, client, provideBackoff(), nil, provideLimiter(&cfg))
	assert.Error(t, err)
}

func TestProvideBuilderRejectsUnknownPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.IndexPolicy = "sometimes"
	_, err := provideBuilder(&index.MemoryStore{}, embed.Hash{}, &cfg)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("start", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("start", "")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDate("end", "01/03/2024")
	assert.Error(t, err)
}
