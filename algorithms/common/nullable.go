package common

import (
	"encoding/json"
	"fmt"
)

// NullFloat is a float64 that may be absent.
// It separates "the value is 0" from "there is no value" without NaN markers.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps a present value
func Some(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// None returns an absent value
func None() NullFloat {
	return NullFloat{}
}

// SomeIfFinite wraps v, or returns None when v is NaN or infinite
func SomeIfFinite(v float64) NullFloat {
	if !IsFinite(v) {
		return None()
	}
	return Some(v)
}

// Get returns the value and whether it is present
func (n NullFloat) Get() (float64, bool) {
	return n.Float64, n.Valid
}

// Or returns the value, or fallback when absent
func (n NullFloat) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Float64
}

// Ptr returns a pointer to a copy of the value, nil when absent
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (n NullFloat) String() string {
	if !n.Valid {
		return "none"
	}
	return fmt.Sprintf("%g", n.Float64)
}

// MarshalJSON encodes an absent value as null
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON accepts a number or null
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// MarshalYAML encodes an absent value as null
func (n NullFloat) MarshalYAML() (any, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Float64, nil
}

// ValidValues returns the present values of a series, in order
func ValidValues(series []NullFloat) []float64 {
	values := make([]float64, 0, len(series))
	for _, v := range series {
		if v.Valid {
			values = append(values, v.Float64)
		}
	}
	return values
}
