package s2_scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/laggard/backend/internal/contracts"
)

func fullAxes(scores ...int) []contracts.QualitativeAxisScore {
	axes := contracts.QualitativeAxes()
	out := make([]contracts.QualitativeAxisScore, len(axes))
	for i, axis := range axes {
		out[i] = contracts.QualitativeAxisScore{
			Axis:  axis,
			Score: scores[i],
			Evidence: contracts.Evidence{
				Source:      "analyst",
				Reference:   "https://example.com/" + axis,
				RetrievedAt: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
			},
		}
	}
	return out
}

func TestQualitativeScorer_Score(t *testing.T) {
	s := NewQualitativeScorer()

	// 역순 입력도 고정 축 순서로 정렬
	axes := fullAxes(4, 3, 3, 3, 3)
	reversed := []contracts.QualitativeAxisScore{axes[4], axes[3], axes[2], axes[1], axes[0]}

	score, err := s.Score("7203", reversed)
	require.NoError(t, err)
	assert.Equal(t, 64, score.Value, "(4+3+3+3+3) × 4")
	assert.Equal(t, contracts.AxisTemporaryLag, score.Axes[0].Axis)

	v, ok := score.AxisScore(contracts.AxisTemporaryLag)
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	top, err := s.Score("1", fullAxes(5, 5, 5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, 100, top.Value)

	bottom, err := s.Score("2", fullAxes(0, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, bottom.Value)
}

func TestQualitativeScorer_Errors(t *testing.T) {
	s := NewQualitativeScorer()

	tests := []struct {
		name   string
		axes   func() []contracts.QualitativeAxisScore
		target interface{}
		kind   string
	}{
		{
			name:   "four axes",
			axes:   func() []contracts.QualitativeAxisScore { return fullAxes(3, 3, 3, 3, 3)[:4] },
			target: new(*IncompleteAxesError),
			kind:   "incomplete_axes",
		},
		{
			name:   "no axes",
			axes:   func() []contracts.QualitativeAxisScore { return nil },
			target: new(*IncompleteAxesError),
			kind:   "incomplete_axes",
		},
		{
			name: "duplicate axis",
			axes: func() []contracts.QualitativeAxisScore {
				a := fullAxes(3, 3, 3, 3, 3)
				a[4] = a[0]
				return a
			},
			target: new(*DuplicateAxisError),
			kind:   "duplicate_axis",
		},
		{
			name: "six axes",
			axes: func() []contracts.QualitativeAxisScore {
				a := fullAxes(3, 3, 3, 3, 3)
				return append(a, a[0])
			},
			target: new(*ExcessAxesError),
			kind:   "excess_axes",
		},
		{
			name: "unknown axis",
			axes: func() []contracts.QualitativeAxisScore {
				a := fullAxes(3, 3, 3, 3, 3)
				a[2].Axis = "momentum"
				return a
			},
			target: new(*UnknownAxisError),
			kind:   "unknown_axis",
		},
		{
			name: "score above range",
			axes: func() []contracts.QualitativeAxisScore {
				return fullAxes(3, 6, 3, 3, 3)
			},
			target: new(*AxisScoreRangeError),
			kind:   "axis_score_range",
		},
		{
			name: "negative score",
			axes: func() []contracts.QualitativeAxisScore {
				return fullAxes(3, 3, -1, 3, 3)
			},
			target: new(*AxisScoreRangeError),
			kind:   "axis_score_range",
		},
		{
			name: "missing reference",
			axes: func() []contracts.QualitativeAxisScore {
				a := fullAxes(3, 3, 3, 3, 3)
				a[1].Evidence.Reference = ""
				return a
			},
			target: new(*MissingEvidenceError),
			kind:   "missing_evidence",
		},
		{
			name: "missing timestamp",
			axes: func() []contracts.QualitativeAxisScore {
				a := fullAxes(3, 3, 3, 3, 3)
				a[3].Evidence.RetrievedAt = time.Time{}
				return a
			},
			target: new(*MissingEvidenceError),
			kind:   "missing_evidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := s.Score("7203", tt.axes())
			assert.Nil(t, score, "no score on error")
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target), "got %T: %v", err, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Contains(t, err.Error(), "7203")
		})
	}
}

func TestMissingEvidenceField(t *testing.T) {
	s := NewQualitativeScorer()
	a := fullAxes(3, 3, 3, 3, 3)
	a[0].Evidence.RetrievedAt = time.Time{}

	_, err := s.Score("1", a)

	var me *MissingEvidenceError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "RetrievedAt", me.Field)
	assert.Equal(t, contracts.AxisTemporaryLag, me.Axis)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "other", ErrorKind(errors.New("boom")))
}
