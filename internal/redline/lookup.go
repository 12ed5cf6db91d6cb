package redline

import (
	"encoding/json"
	"math"

	"github.com/ludo-technologies/tcagate/domain"
)

// Lookup follows keys through nested JSON objects starting at doc. It stops
// at the first missing key, null value, or non-object parent and reports
// false instead of failing.
func Lookup(doc interface{}, keys ...string) (interface{}, bool) {
	cur := doc
	for _, key := range keys {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return nil, false
		}
		cur = next
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// LookupAs is Lookup with a type assertion on the final value
func LookupAs[T any](doc interface{}, keys ...string) (T, bool) {
	var zero T
	v, ok := Lookup(doc, keys...)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// LookupNumber resolves keys to a number of the requested kind. Values that
// are not numeric, or fractional values requested as integers, are absent.
func LookupNumber(doc interface{}, kind domain.NumberKind, keys ...string) *domain.Number {
	v, ok := Lookup(doc, keys...)
	if !ok {
		return nil
	}
	return toNumber(v, kind)
}

// truthyObject reports whether v is a non-empty JSON object
func truthyObject(v interface{}) bool {
	obj, ok := v.(map[string]interface{})
	return ok && len(obj) > 0
}

func toNumber(v interface{}, kind domain.NumberKind) *domain.Number {
	var f float64
	switch t := v.(type) {
	case json.Number:
		if kind == domain.KindInt {
			if i, err := t.Int64(); err == nil {
				n := domain.IntNumber(i)
				return &n
			}
		}
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		return intOrFloat(int64(t), kind)
	case int64:
		return intOrFloat(t, kind)
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if kind == domain.KindInt {
		if f != math.Trunc(f) {
			return nil
		}
		n := domain.IntNumber(int64(f))
		return &n
	}
	n := domain.FloatNumber(f)
	return &n
}

func intOrFloat(v int64, kind domain.NumberKind) *domain.Number {
	n := domain.IntNumber(v)
	if kind == domain.KindFloat {
		n = domain.FloatNumber(float64(v))
	}
	return &n
}
