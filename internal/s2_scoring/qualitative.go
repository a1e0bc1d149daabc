package s2_scoring

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/laggard/backend/internal/contracts"
)

// QualitativeScorer validates the five axis judgements and sums them
type QualitativeScorer struct {
	validate *validator.Validate
}

// NewQualitativeScorer creates a QualitativeScorer
func NewQualitativeScorer() *QualitativeScorer {
	return &QualitativeScorer{validate: validator.New()}
}

// Score returns Σaxis × 4 in 0..100.
// Any violation returns a typed error and no score; nothing is overwritten
// or defaulted. Axes in the result follow contracts.QualitativeAxes order.
func (s *QualitativeScorer) Score(code string, axes []contracts.QualitativeAxisScore) (*contracts.QualitativeScore, error) {
	want := contracts.QualitativeAxes()
	if len(axes) > len(want) {
		return nil, &ExcessAxesError{Code: code, Count: len(axes)}
	}

	byAxis := make(map[string]contracts.QualitativeAxisScore, len(axes))
	for _, a := range axes {
		if !contracts.IsQualitativeAxis(a.Axis) {
			return nil, &UnknownAxisError{Code: code, Axis: a.Axis}
		}
		if _, dup := byAxis[a.Axis]; dup {
			return nil, &DuplicateAxisError{Code: code, Axis: a.Axis}
		}
		if a.Score < contracts.AxisScoreMin || a.Score > contracts.AxisScoreMax {
			return nil, &AxisScoreRangeError{Code: code, Axis: a.Axis, Score: a.Score}
		}
		if err := s.checkEvidence(code, a); err != nil {
			return nil, err
		}
		byAxis[a.Axis] = a
	}

	var missing []string
	for _, axis := range want {
		if _, ok := byAxis[axis]; !ok {
			missing = append(missing, axis)
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteAxesError{Code: code, Missing: missing}
	}

	result := &contracts.QualitativeScore{
		Code: code,
		Axes: make([]contracts.QualitativeAxisScore, 0, len(want)),
	}
	sum := 0
	for _, axis := range want {
		a := byAxis[axis]
		sum += a.Score
		result.Axes = append(result.Axes, a)
	}
	result.Value = sum * contracts.QualitativeMultiplier

	return result, nil
}

// checkEvidence maps validator failures on Evidence to MissingEvidenceError
func (s *QualitativeScorer) checkEvidence(code string, a contracts.QualitativeAxisScore) error {
	err := s.validate.Struct(a.Evidence)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &MissingEvidenceError{Code: code, Axis: a.Axis, Field: verrs[0].Field()}
	}
	return &MissingEvidenceError{Code: code, Axis: a.Axis, Field: "evidence"}
}
