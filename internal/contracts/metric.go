package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueState is the tri-state of a metric value
type ValueState uint8

const (
	// ValueMissing 값 없음 (zero value)
	ValueMissing ValueState = iota
	// ValuePresent 유효한 숫자
	ValuePresent
	// ValueInvalid 값은 있었지만 사용할 수 없음 (NaN, Inf, 파싱 실패)
	ValueInvalid
)

// String returns the state name
func (s ValueState) String() string {
	switch s {
	case ValuePresent:
		return "present"
	case ValueInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// MetricValue is a number that may be missing or invalid.
// ⭐ SSOT: 결측값은 0이나 50으로 대체하지 않고 이 타입으로만 전달
//
// JSON: number when present, null when missing, "invalid" when invalid.
type MetricValue struct {
	state ValueState
	v     float64
}

// Present wraps a number. NaN and ±Inf become Invalid.
func Present(v float64) MetricValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid()
	}
	return MetricValue{state: ValuePresent, v: v}
}

// Missing returns a missing value
func Missing() MetricValue {
	return MetricValue{}
}

// Invalid returns an invalid value
func Invalid() MetricValue {
	return MetricValue{state: ValueInvalid}
}

// State returns the tri-state
func (m MetricValue) State() ValueState {
	return m.state
}

// Value returns the number and whether it is present
func (m MetricValue) Value() (float64, bool) {
	return m.v, m.state == ValuePresent
}

// IsPresent reports whether the value is usable
func (m MetricValue) IsPresent() bool { return m.state == ValuePresent }

// IsMissing reports whether the value is absent
func (m MetricValue) IsMissing() bool { return m.state == ValueMissing }

// IsInvalid reports whether the value was supplied but unusable
func (m MetricValue) IsInvalid() bool { return m.state == ValueInvalid }

// String formats the value for logs and reports
func (m MetricValue) String() string {
	switch m.state {
	case ValuePresent:
		return strconv.FormatFloat(m.v, 'f', 2, 64)
	case ValueInvalid:
		return "invalid"
	default:
		return "-"
	}
}

// MarshalJSON implements json.Marshaler
func (m MetricValue) MarshalJSON() ([]byte, error) {
	switch m.state {
	case ValuePresent:
		return json.Marshal(m.v)
	case ValueInvalid:
		return []byte(`"invalid"`), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (m *MetricValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Missing()
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "invalid" {
			*m = Invalid()
			return nil
		}
		return fmt.Errorf("metric value: unexpected string %q", s)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("metric value: %w", err)
	}
	*m = Present(v)
	return nil
}
