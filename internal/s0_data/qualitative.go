package s0_data

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// QualitativeSheet is the YAML file of analyst axis scores.
//
//	as_of: 2026-10-16
//	securities:
//	  "7203":
//	    - axis: temporary_lag_factor
//	      score: 4
//	      evidence:
//	        source: tdnet
//	        reference: https://example.com/doc.pdf
//	        retrieved_at: 2026-10-15T09:00:00+09:00
type QualitativeSheet struct {
	AsOf       string                      `yaml:"as_of" validate:"omitempty,datetime=2006-01-02"`
	Securities map[string][]QualitativeRow `yaml:"securities" validate:"required,dive,keys,required,endkeys"`
}

// QualitativeRow is one axis judgement as written in the sheet
type QualitativeRow struct {
	Axis     string        `yaml:"axis"`
	Score    int           `yaml:"score"`
	Evidence EvidenceInput `yaml:"evidence"`
}

// EvidenceInput mirrors contracts.Evidence with YAML tags
type EvidenceInput struct {
	Source      string    `yaml:"source"`
	Reference   string    `yaml:"reference"`
	RetrievedAt time.Time `yaml:"retrieved_at"`
	Summary     string    `yaml:"summary"`
	Category    string    `yaml:"category" validate:"omitempty,oneof=price fundamentals disclosure news"`
}

// Evidence converts to the contract type
func (e EvidenceInput) Evidence() contracts.Evidence {
	return contracts.Evidence{
		Source:      e.Source,
		Reference:   e.Reference,
		RetrievedAt: e.RetrievedAt,
		Summary:     e.Summary,
		Category:    contracts.SourceCategory(e.Category),
	}
}

var sheetValidate = validator.New()

// LoadQualitativeFile opens path and calls LoadQualitative
func LoadQualitativeFile(path string) (map[string][]contracts.QualitativeAxisScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read qualitative sheet: %w", err)
	}

	out, err := LoadQualitative(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// LoadQualitative decodes a sheet into axis inputs per code.
// Only the sheet shape is checked here. Axis completeness, score range and
// evidence are judged per security by the qualitative scorer.
func LoadQualitative(r io.Reader) (map[string][]contracts.QualitativeAxisScore, error) {
	var sheet QualitativeSheet

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sheet); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string][]contracts.QualitativeAxisScore{}, nil
		}
		return nil, fmt.Errorf("decode qualitative sheet: %w", err)
	}

	if err := sheetValidate.Struct(sheet); err != nil {
		return nil, fmt.Errorf("invalid qualitative sheet: %w", err)
	}

	out := make(map[string][]contracts.QualitativeAxisScore, len(sheet.Securities))
	for code, rows := range sheet.Securities {
		axes := make([]contracts.QualitativeAxisScore, 0, len(rows))
		for i, row := range rows {
			if err := sheetValidate.Struct(row.Evidence); err != nil {
				return nil, fmt.Errorf("%s axis %d: %w", code, i, err)
			}
			axes = append(axes, contracts.QualitativeAxisScore{
				Axis:     row.Axis,
				Score:    row.Score,
				Evidence: row.Evidence.Evidence(),
			})
		}
		out[code] = axes
	}

	return out, nil
}
