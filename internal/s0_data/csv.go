package s0_data

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// 증권사 스크리닝 CSV 컬럼 (UTF-8, BOM 허용)
const (
	colCode   = "コード"
	colName   = "銘柄名"
	colMarket = "市場"
)

// csvColumn maps a broker column to a metric id with a unit multiplier
type csvColumn struct {
	header string
	metric string
	scale  float64
}

// screeningColumns 헤더 → 지표 매핑
// 時価総額는 백만엔, 平均売買代金은 천엔 단위
var screeningColumns = []csvColumn{
	{"現在値", contracts.MetricLatestClose, 1},
	{"PER(株価収益率)(倍)", contracts.MetricPER, 1},
	{"PBR(株価純資産倍率)(倍)", contracts.MetricPBR, 1},
	{"配当利回り(%)", contracts.MetricDividendYield, 1},
	{"ROE(自己資本利益率)(%)", contracts.MetricROE, 1},
	{"自己資本比率(%)", contracts.MetricEquityRatio, 1},
	{"有利子負債自己資本比率(%)", contracts.MetricNetDERatio, 1},
	{"売上高変化率(%)", contracts.MetricRevenueCAGR3Y, 1},
	{"経常利益変化率(%)", contracts.MetricOpIncomeCAGR3Y, 1},
	{"時価総額(百万円)", contracts.MetricMarketCapJPY, 1_000_000},
	{"平均売買代金(千円)", contracts.MetricAvgTurnover20D, 1_000},
}

// missingMarkers 결측 표기
var missingMarkers = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"---": true,
	"N/A": true,
	"n/a": true,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoCodeColumn is returned when the CSV header lacks the code column
var ErrNoCodeColumn = errors.New("screening csv: missing コード column")

// LoadScreeningCSVFile opens path and calls LoadScreeningCSV
func LoadScreeningCSVFile(path string, asOf time.Time) ([]contracts.SecurityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screening csv: %w", err)
	}
	defer f.Close()

	records, err := LoadScreeningCSV(f, asOf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// LoadScreeningCSV parses a broker screening export.
// Price-side and fundamentals timestamps are set to asOf (the snapshot date).
// Unparseable cells become invalid metrics; blank or dash cells become missing.
func LoadScreeningCSV(r io.Reader, asOf time.Time) ([]contracts.SecurityRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []contracts.SecurityRecord{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[colCode]; !ok {
		return nil, ErrNoCodeColumn
	}

	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]contracts.SecurityRecord, 0)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		code := cell(row, colCode)
		if code == "" {
			continue
		}

		name := cell(row, colName)
		if name == "" {
			name = code
		}
		market := cell(row, colMarket)
		if market == "" {
			market = "UNKNOWN"
		}

		metrics := make(map[string]contracts.RawMetric, len(screeningColumns))
		for _, col := range screeningColumns {
			if _, ok := index[col.header]; !ok {
				continue
			}
			metrics[col.metric] = contracts.RawMetric{
				Value:  parseCell(cell(row, col.header), col.scale),
				Source: contracts.MetricCatalog[col.metric],
			}
		}

		records = append(records, contracts.SecurityRecord{
			Code:    code,
			Name:    name,
			Market:  market,
			AsOf:    asOf,
			Metrics: metrics,
			SourceUpdatedAt: map[contracts.SourceCategory]time.Time{
				contracts.SourcePrice:        asOf,
				contracts.SourceFundamentals: asOf,
			},
		})
	}

	return records, nil
}

// parseCell converts one CSV cell ("1,234.5", "3.2%", "-") into a MetricValue
func parseCell(raw string, scale float64) contracts.MetricValue {
	text := strings.TrimSpace(raw)
	if missingMarkers[text] {
		return contracts.Missing()
	}

	text = strings.ReplaceAll(text, ",", "")
	text = strings.ReplaceAll(text, "%", "")

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return contracts.Invalid()
	}
	return contracts.Present(v * scale)
}
