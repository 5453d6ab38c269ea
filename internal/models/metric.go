package models

import (
	"encoding/json"
	"math"
)

// Metric is a float64 whose undefined state is NaN. It marshals NaN (and
// infinities) as JSON null so an undefined ratio is never reported as zero.
type Metric float64

// Undefined returns the undefined metric sentinel.
func Undefined() Metric { return Metric(math.NaN()) }

// IsDefined reports whether the metric carries a real value.
func (m Metric) IsDefined() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Round2 returns the metric rounded to 2 decimal places. Undefined stays
// undefined.
func (m Metric) Round2() Metric {
	if !m.IsDefined() {
		return m
	}
	return Metric(Round2(float64(m)))
}

// MarshalJSON encodes undefined metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.IsDefined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// UnmarshalJSON decodes null as undefined.
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// Round2 rounds a currency value to 2 decimal places. Values are carried at
// full precision internally and rounded only at the point they are reported.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
