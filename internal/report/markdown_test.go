package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/pkg/logger"
)

func sampleResult() *contracts.RunResult {
	asOf := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	rule := "going_concern"

	axes := make([]contracts.QualitativeAxisScore, 0, 5)
	for i, axis := range contracts.QualitativeAxes() {
		axes = append(axes, contracts.QualitativeAxisScore{Axis: axis, Score: []int{4, 3, 3, 4, 2}[i]})
	}

	return &contracts.RunResult{
		AsOf:       asOf,
		StrategyID: "tse_prime_laggard",
		ConfigHash: "0123456789abcdef0123",
		Records: []contracts.CompositeRecord{
			{
				Code: "7203",
				Name: "Toyota | Motor",
				Quantitative: contracts.QuantitativeScore{
					Value: contracts.Present(70),
					Tracks: map[contracts.Track]contracts.MetricValue{
						contracts.TrackPriceNow:     contracts.Present(80),
						contracts.TrackFundamentals: contracts.Present(60),
					},
				},
				Qualitative: &contracts.QualitativeScore{Code: "7203", Value: 64, Axes: axes},
				Provisional: contracts.Present(134),
				Status:      contracts.StatusComplete,
				Rank:        1,
				Candidate:   true,
				DeepReview:  true,
				Disposition: contracts.Recommend,
				Reasons:     []string{"rank 1 within top 3"},
				Freshness: contracts.FreshnessReport{Verdicts: []contracts.FreshnessVerdict{
					{Category: contracts.SourcePrice, State: contracts.Fresh},
				}},
			},
			{
				Code:         "9999",
				Name:         "Broken Co",
				Quantitative: contracts.QuantitativeScore{Value: contracts.Present(90)},
				Exclusion:    contracts.ExclusionVerdict{Code: "9999", Excluded: true, MatchedRule: &rule},
				Disposition:  contracts.Skip,
				Reasons:      []string{"excluded by rule going_concern"},
			},
		},
		Audit: []contracts.AuditEntry{
			{Seq: 1, Code: "1111", Stage: contracts.StageUniverse, ScoreType: contracts.ScoreUniverseFilter, Rationale: "outside universe: market"},
			{Seq: 2, Code: "7203", Stage: contracts.StageIngestion, ScoreType: contracts.ScoreFreshnessIngest,
				Evidence: []contracts.Evidence{{Source: "timely_disclosure", Reference: "https://example.com/7203.pdf", RetrievedAt: asOf}}},
			{Seq: 3, Code: "7203", Stage: contracts.StageScoring, ScoreType: contracts.ScoreQualitative,
				Evidence: []contracts.Evidence{
					{Source: "timely_disclosure", Reference: "https://example.com/7203.pdf", RetrievedAt: asOf},
					{Source: "analyst_note", Reference: "https://example.com/note", RetrievedAt: asOf, Summary: "margin recovery"},
				}},
		},
		Summary: contracts.RunSummary{Total: 2, Excluded: 1, Ranked: 1, Candidates: 1, DeepReview: 1, Recommend: 1, Skip: 1},
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "# Laggard Screening Report (2026-10-16)")
	assert.Contains(t, out, "`0123456789ab`")
	assert.Contains(t, out, "|Q-Temp|Q-Growth|Q-Mgmt|Q-Edge|Q-Risk|")
	assert.Contains(t, out, "|1|7203|Toyota \\| Motor|70.00|80.00|60.00|64.00|134.00|no|Recommend|rank 1 within top 3|4|3|3|4|2|")
	assert.Contains(t, out, "|-|9999|Broken Co|90.00|-|-|-|-|yes (going_concern)|Skip|")
	assert.Contains(t, out, "### 1. 7203 Toyota \\| Motor - Recommend")
	assert.Contains(t, out, "[analyst_note](https://example.com/note) retrieved 2026-10-16: margin recovery")
	assert.Equal(t, 1, strings.Count(out, "https://example.com/7203.pdf"), "evidence is listed once")
	assert.Contains(t, out, "## Outside Universe")
	assert.Contains(t, out, "|1111|outside universe: market|")
}

func TestWriteMarkdown_NoDeepReview(t *testing.T) {
	result := sampleResult()
	result.Records = result.Records[1:]

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, result))
	assert.Contains(t, buf.String(), "No recommendations generated.")
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(dir, logger.Nop())

	path, err := w.Write(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261016_report.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Laggard Screening Report"))
}
