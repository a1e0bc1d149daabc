package s2_scoring

import (
	"errors"
	"fmt"
	"strings"
)

// IncompleteAxesError fewer than five axes supplied
type IncompleteAxesError struct {
	Code    string
	Missing []string
}

func (e *IncompleteAxesError) Error() string {
	return fmt.Sprintf("%s: incomplete qualitative axes, missing %s", e.Code, strings.Join(e.Missing, ", "))
}

// DuplicateAxisError the same axis supplied twice
type DuplicateAxisError struct {
	Code string
	Axis string
}

func (e *DuplicateAxisError) Error() string {
	return fmt.Sprintf("%s: duplicate qualitative axis %s", e.Code, e.Axis)
}

// ExcessAxesError more than five axes supplied
type ExcessAxesError struct {
	Code  string
	Count int
}

func (e *ExcessAxesError) Error() string {
	return fmt.Sprintf("%s: %d qualitative axes supplied, expected 5", e.Code, e.Count)
}

// UnknownAxisError axis name outside the fixed set
type UnknownAxisError struct {
	Code string
	Axis string
}

func (e *UnknownAxisError) Error() string {
	return fmt.Sprintf("%s: unknown qualitative axis %q", e.Code, e.Axis)
}

// AxisScoreRangeError axis score outside 0..5
type AxisScoreRangeError struct {
	Code  string
	Axis  string
	Score int
}

func (e *AxisScoreRangeError) Error() string {
	return fmt.Sprintf("%s: axis %s score %d outside 0..5", e.Code, e.Axis, e.Score)
}

// MissingEvidenceError evidence without reference or retrieval time
type MissingEvidenceError struct {
	Code  string
	Axis  string
	Field string
}

func (e *MissingEvidenceError) Error() string {
	return fmt.Sprintf("%s: axis %s evidence missing %s", e.Code, e.Axis, e.Field)
}

// ErrorKind returns a short label for metrics and reports
func ErrorKind(err error) string {
	var (
		incomplete *IncompleteAxesError
		duplicate  *DuplicateAxisError
		excess     *ExcessAxesError
		unknown    *UnknownAxisError
		outOfRange *AxisScoreRangeError
		evidence   *MissingEvidenceError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &incomplete):
		return "incomplete_axes"
	case errors.As(err, &duplicate):
		return "duplicate_axis"
	case errors.As(err, &excess):
		return "excess_axes"
	case errors.As(err, &unknown):
		return "unknown_axis"
	case errors.As(err, &outOfRange):
		return "axis_score_range"
	case errors.As(err, &evidence):
		return "missing_evidence"
	default:
		return "other"
	}
}
