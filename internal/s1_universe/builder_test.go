package s1_universe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
)

func record(code, market string, turnover, mcap *float64) contracts.SecurityRecord {
	metrics := map[string]contracts.RawMetric{}
	if turnover != nil {
		metrics[contracts.MetricAvgTurnover20D] = contracts.RawMetric{Value: contracts.Present(*turnover), Source: contracts.SourcePrice}
	}
	if mcap != nil {
		metrics[contracts.MetricMarketCapJPY] = contracts.RawMetric{Value: contracts.Present(*mcap), Source: contracts.SourcePrice}
	}
	return contracts.SecurityRecord{Code: code, Market: market, Metrics: metrics}
}

func f(v float64) *float64 { return &v }

func TestBuilder_Build(t *testing.T) {
	cfg := strategyconfig.Default().Universe
	builder := NewBuilder(cfg, logger.Nop())
	asOf := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	records := []contracts.SecurityRecord{
		record("1001", "東証P", f(5e8), f(5e10)),
		record("1002", "東証S", f(5e8), f(5e10)),
		record("1003", "東P", nil, f(5e10)),
		record("1004", "プライム", f(1e7), f(5e10)),
		record("1005", "Prime", f(5e8), f(1e9)),
		record("1006", "東証P", f(5e8), nil),
		record("1001", "東証P", f(5e8), f(5e10)),
	}

	universe, kept, rejected := builder.Build(asOf, records)

	assert.Equal(t, asOf, universe.Date)
	assert.Equal(t, 7, universe.TotalCount)
	assert.Equal(t, []string{"1001", "1003", "1006"}, universe.Stocks, "turnover and market cap may be missing")
	require.Len(t, kept, 3)
	assert.Equal(t, "1006", kept[2].Code)

	_, reason := universe.IsExcluded("1002")
	assert.Equal(t, ReasonMarket, reason)
	excluded, _ := universe.IsExcluded("1003")
	assert.False(t, excluded)
	_, reason = universe.IsExcluded("1004")
	assert.True(t, strings.HasPrefix(reason, ReasonLowTurnover))
	_, reason = universe.IsExcluded("1005")
	assert.True(t, strings.HasPrefix(reason, ReasonLowMarketCap))

	assert.True(t, universe.Contains("1001"))
	assert.Equal(t, 3, universe.Count())

	// every input row is either kept or rejected
	assert.Equal(t, len(records), len(kept)+len(rejected))
	codes := make([]string, 0, len(rejected))
	for _, r := range rejected {
		codes = append(codes, r.Record.Code)
	}
	assert.Equal(t, []string{"1002", "1004", "1005", "1001"}, codes)
	assert.Equal(t, ReasonDuplicate, rejected[3].Reason)
	assert.Len(t, universe.Excluded, 3, "duplicates are not keyed by code")
}

func TestBuilder_MissingTurnoverPasses(t *testing.T) {
	builder := NewBuilder(strategyconfig.Default().Universe, logger.Nop())

	universe, kept, rejected := builder.Build(time.Now(), []contracts.SecurityRecord{
		record("3001", "東証P", nil, nil),
	})

	require.Len(t, kept, 1)
	assert.Empty(t, rejected)
	assert.True(t, universe.Contains("3001"))
}

func TestBuilder_NonPrimeMarketSkipsMarketFilter(t *testing.T) {
	cfg := strategyconfig.Universe{Market: "ALL", MinAvgTurnover20DJPY: 0}
	builder := NewBuilder(cfg, logger.Nop())

	universe, kept, _ := builder.Build(time.Now(), []contracts.SecurityRecord{
		record("2001", "名証M", f(1), nil),
	})

	assert.Len(t, kept, 1)
	assert.Empty(t, universe.Excluded)
}
