package evidence

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Kind discriminates the typed payload of a Value.
type Kind string

// Value kinds.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
	KindList   Kind = "list"
)

// Value is a typed field value. Exactly one payload field is meaningful,
// selected by Kind. List values carry multi-signal results (e.g. one entry
// per detected signature) that summary fields are derived from.
type Value struct {
	Kind Kind      `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Num  float64   `json:"num,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	Date time.Time `json:"date,omitempty"`
	List []string  `json:"list,omitempty"`
}

// String creates a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number creates a numeric Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Date creates a date Value.
func Date(t time.Time) Value { return Value{Kind: KindDate, Date: t} }

// List creates a list Value.
func List(items []string) Value { return Value{Kind: KindList, List: items} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindDate:
		return v.Date.Equal(other.Date)
	case KindList:
		return slices.Equal(v.List, other.List)
	}
	return false
}

// Display renders the payload for log and finding messages.
func (v Value) Display() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindList:
		data, _ := json.Marshal(v.List)
		return string(data)
	}
	return ""
}
