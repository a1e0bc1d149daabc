package s1_universe

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/logger"
)

// Exclusion reasons recorded in Universe.Excluded
const (
	ReasonMarket       = "market"
	ReasonLowTurnover  = "avg_turnover_below_floor"
	ReasonLowMarketCap = "market_cap_below_floor"
	ReasonDuplicate    = "duplicate_code"
)

// Rejected is an input row that did not enter the universe
type Rejected struct {
	Record contracts.SecurityRecord
	Reason string
}

// Builder constructs the screening universe from ingested records
type Builder struct {
	config strategyconfig.Universe
	logger *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(config strategyconfig.Universe, log *logger.Logger) *Builder {
	return &Builder{
		config: config,
		logger: log.WithField("module", "s1_universe"),
	}
}

// Build filters records by market, liquidity and size
// ⭐ SSOT: S1 → S2 유니버스 생성
//
// Returns the universe, the surviving records and the rejected rows, both in input order.
// Duplicate rows are rejected but not keyed in Universe.Excluded.
func (b *Builder) Build(asOf time.Time, records []contracts.SecurityRecord) (*contracts.Universe, []contracts.SecurityRecord, []Rejected) {
	universe := &contracts.Universe{
		Date:       asOf,
		Stocks:     make([]string, 0, len(records)),
		Excluded:   make(map[string]string),
		TotalCount: len(records),
	}
	kept := make([]contracts.SecurityRecord, 0, len(records))
	rejected := make([]Rejected, 0)
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		// 중복 코드는 첫 행만 사용
		if seen[rec.Code] {
			b.logger.WithField("code", rec.Code).Warn("Duplicate code ignored")
			rejected = append(rejected, Rejected{Record: rec, Reason: ReasonDuplicate})
			continue
		}
		seen[rec.Code] = true

		if reason := b.checkExclusion(&rec); reason != "" {
			universe.Excluded[rec.Code] = reason
			rejected = append(rejected, Rejected{Record: rec, Reason: reason})
			continue
		}
		universe.Stocks = append(universe.Stocks, rec.Code)
		kept = append(kept, rec)
	}

	b.logger.WithFields(map[string]interface{}{
		"as_of":    asOf.Format("2006-01-02"),
		"input":    len(records),
		"eligible": len(universe.Stocks),
		"excluded": len(universe.Excluded),
		"rejected": len(rejected),
	}).Info("Universe built")

	return universe, kept, rejected
}

// checkExclusion returns the first failing filter, "" when the record passes
func (b *Builder) checkExclusion(rec *contracts.SecurityRecord) string {
	// 1. 시장
	if !b.passesMarket(rec.Market) {
		return ReasonMarket
	}

	// 2. 평균 거래대금 (값이 없으면 통과, S3 low_liquidity가 gap 기록)
	if turnover, ok := rec.Metric(contracts.MetricAvgTurnover20D).Value(); ok && turnover < b.config.MinAvgTurnover20DJPY {
		return fmt.Sprintf("%s (%.0f)", ReasonLowTurnover, turnover)
	}

	// 3. 시가총액 (값이 있을 때만)
	if mcap, ok := rec.Metric(contracts.MetricMarketCapJPY).Value(); ok && mcap < b.config.MinMarketCapJPY {
		return fmt.Sprintf("%s (%.0f)", ReasonLowMarketCap, mcap)
	}

	return "" // 통과
}

// passesMarket: TSE_PRIME이 아니면 시장 필터 없음
func (b *Builder) passesMarket(market string) bool {
	if b.config.Market != "TSE_PRIME" || len(b.config.MarketMarkers) == 0 {
		return true
	}
	for _, marker := range b.config.MarketMarkers {
		if strings.Contains(market, marker) {
			return true
		}
	}
	return false
}
