package s0_data

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/internal/contracts"
)

func TestLoadScreeningCSVFile(t *testing.T) {
	asOf := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	records, err := LoadScreeningCSVFile("testdata/sbi_screening_20261016.csv", asOf)
	require.NoError(t, err)
	require.Len(t, records, 3, "row without code is skipped")

	toyota := records[0]
	assert.Equal(t, "7203", toyota.Code, "BOM must not leak into the first header")
	assert.Equal(t, "トヨタ自動車", toyota.Name)
	assert.Equal(t, "東証P", toyota.Market)

	last, ok := toyota.Metric(contracts.MetricLatestClose).Value()
	require.True(t, ok)
	assert.Equal(t, 2850.0, last)

	yield, _ := toyota.Metric(contracts.MetricDividendYield).Value()
	assert.Equal(t, 3.2, yield)

	mcap, _ := toyota.Metric(contracts.MetricMarketCapJPY).Value()
	assert.Equal(t, 46_000_000*1e6, mcap, "market cap is in million yen")

	turnover, _ := toyota.Metric(contracts.MetricAvgTurnover20D).Value()
	assert.Equal(t, 150_000_000*1e3, turnover, "turnover is in thousand yen")

	assert.Equal(t, contracts.SourcePrice, toyota.Metrics[contracts.MetricPBR].Source)
	assert.Equal(t, contracts.SourceFundamentals, toyota.Metrics[contracts.MetricROE].Source)
	assert.Equal(t, asOf, toyota.SourceUpdatedAt[contracts.SourcePrice])

	sony := records[1]
	assert.True(t, sony.Metric(contracts.MetricOpIncomeCAGR3Y).IsMissing())

	test := records[2]
	assert.True(t, test.Metric(contracts.MetricPER).IsMissing())
	assert.True(t, test.Metric(contracts.MetricPBR).IsMissing())
	assert.True(t, test.Metric(contracts.MetricROE).IsInvalid(), "unparseable cell is invalid, not missing")
	assert.True(t, test.Metric(contracts.MetricEquityRatio).IsMissing())
}

func TestLoadScreeningCSV_NoCodeColumn(t *testing.T) {
	_, err := LoadScreeningCSV(strings.NewReader("銘柄名,市場\nA,東証P\n"), time.Now())
	assert.True(t, errors.Is(err, ErrNoCodeColumn))
}

func TestLoadScreeningCSV_Empty(t *testing.T) {
	records, err := LoadScreeningCSV(strings.NewReader(""), time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw   string
		scale float64
		state contracts.ValueState
		want  float64
	}{
		{"1,234.5", 1, contracts.ValuePresent, 1234.5},
		{"3.2%", 1, contracts.ValuePresent, 3.2},
		{"-12", 1, contracts.ValuePresent, -12},
		{"2", 1000, contracts.ValuePresent, 2000},
		{"-", 1, contracts.ValueMissing, 0},
		{"---", 1, contracts.ValueMissing, 0},
		{"n/a", 1, contracts.ValueMissing, 0},
		{"  ", 1, contracts.ValueMissing, 0},
		{"１２", 1, contracts.ValueInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseCell(tt.raw, tt.scale)
			assert.Equal(t, tt.state, got.State())
			if tt.state == contracts.ValuePresent {
				v, _ := got.Value()
				assert.InDelta(t, tt.want, v, 1e-9)
			}
		})
	}
}
