package s0_data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// LoadSnapshotFile opens path and calls LoadSnapshot
func LoadSnapshotFile(path string) ([]contracts.SecurityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	records, err := LoadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// LoadSnapshot decodes a JSON array of SecurityRecord.
// Codes must be unique; the result is sorted by code.
func LoadSnapshot(r io.Reader) ([]contracts.SecurityRecord, error) {
	var records []contracts.SecurityRecord
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		if rec.Code == "" {
			return nil, fmt.Errorf("snapshot record %d: code is required", i)
		}
		if seen[rec.Code] {
			return nil, fmt.Errorf("snapshot record %d: duplicate code %s", i, rec.Code)
		}
		seen[rec.Code] = true

		for id, m := range rec.Metrics {
			if m.Source == "" {
				m.Source = contracts.MetricCatalog[id]
				records[i].Metrics[id] = m
			}
		}
	}

	sortByCode(records)
	return records, nil
}

// MergeRecords overlays snapshots onto base by code.
// Later overlays win for metrics, flags, name and market; cash flows are
// replaced when the overlay has any; timestamps keep the newest; disclosures
// are appended. Inputs are not modified.
func MergeRecords(base []contracts.SecurityRecord, overlays ...[]contracts.SecurityRecord) []contracts.SecurityRecord {
	merged := make(map[string]*contracts.SecurityRecord, len(base))
	order := make([]string, 0, len(base))

	add := func(rec contracts.SecurityRecord) {
		cur, ok := merged[rec.Code]
		if !ok {
			c := cloneRecord(rec)
			merged[rec.Code] = &c
			order = append(order, rec.Code)
			return
		}
		overlayRecord(cur, rec)
	}

	for _, rec := range base {
		add(rec)
	}
	for _, overlay := range overlays {
		for _, rec := range overlay {
			add(rec)
		}
	}

	out := make([]contracts.SecurityRecord, 0, len(order))
	for _, code := range order {
		out = append(out, *merged[code])
	}
	sortByCode(out)
	return out
}

func overlayRecord(dst *contracts.SecurityRecord, src contracts.SecurityRecord) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Market != "" {
		dst.Market = src.Market
	}
	if src.AsOf.After(dst.AsOf) {
		dst.AsOf = src.AsOf
	}

	for id, m := range src.Metrics {
		if dst.Metrics == nil {
			dst.Metrics = make(map[string]contracts.RawMetric)
		}
		dst.Metrics[id] = m
	}
	for name, v := range src.Flags {
		if dst.Flags == nil {
			dst.Flags = make(map[string]bool)
		}
		dst.Flags[name] = v
	}
	if len(src.OperatingCashFlows) > 0 {
		dst.OperatingCashFlows = append([]contracts.MetricValue(nil), src.OperatingCashFlows...)
	}
	for cat, t := range src.SourceUpdatedAt {
		if dst.SourceUpdatedAt == nil {
			dst.SourceUpdatedAt = make(map[contracts.SourceCategory]time.Time)
		}
		if cur, ok := dst.SourceUpdatedAt[cat]; !ok || t.After(cur) {
			dst.SourceUpdatedAt[cat] = t
		}
	}
	dst.Disclosures = append(dst.Disclosures, src.Disclosures...)
}

// cloneRecord deep-copies maps and slices so merges never alias caller data
func cloneRecord(rec contracts.SecurityRecord) contracts.SecurityRecord {
	out := rec

	if rec.Metrics != nil {
		out.Metrics = make(map[string]contracts.RawMetric, len(rec.Metrics))
		for k, v := range rec.Metrics {
			out.Metrics[k] = v
		}
	}
	if rec.Flags != nil {
		out.Flags = make(map[string]bool, len(rec.Flags))
		for k, v := range rec.Flags {
			out.Flags[k] = v
		}
	}
	if rec.SourceUpdatedAt != nil {
		out.SourceUpdatedAt = make(map[contracts.SourceCategory]time.Time, len(rec.SourceUpdatedAt))
		for k, v := range rec.SourceUpdatedAt {
			out.SourceUpdatedAt[k] = v
		}
	}
	out.OperatingCashFlows = append([]contracts.MetricValue(nil), rec.OperatingCashFlows...)
	out.Disclosures = append([]contracts.Evidence(nil), rec.Disclosures...)

	return out
}

func sortByCode(records []contracts.SecurityRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Code < records[j].Code
	})
}
