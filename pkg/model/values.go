package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Model errors.
var (
	ErrUnexpectedShape = errors.New("unexpected resource representation")
	ErrOutOfRange      = errors.New("value out of range")
)

// attrs is one JSON object from the gateway.
type attrs map[string]any

func asAttrs(raw any) (attrs, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: want object, got %T", ErrUnexpectedShape, raw)
	}
	return attrs(m), nil
}

func (a attrs) str(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a attrs) num(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (a attrs) integer(key string) int {
	f, _ := a.num(key)
	return int(f)
}

func (a attrs) flag(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	default:
		return a.integer(key) != 0
	}
}

func (a attrs) unix(key string) time.Time {
	f, ok := a.num(key)
	if !ok || f <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(f), 0)
}

func (a attrs) object(key string) attrs {
	m, _ := a[key].(map[string]any)
	return attrs(m)
}

// list returns the objects of a control block list.
func (a attrs) list(key string) []attrs {
	items, _ := a[key].([]any)
	out := make([]attrs, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, attrs(m))
		}
	}
	return out
}

func (a attrs) ints(key string) []int {
	items, _ := a[key].([]any)
	out := make([]int, 0, len(items))
	for _, it := range items {
		if f, ok := it.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}

// ids converts a list response into resource IDs.
func ids(raw any) ([]int, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: want list of ids, got %T", ErrUnexpectedShape, raw)
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		f, ok := it.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: id %v", ErrUnexpectedShape, it)
		}
		out = append(out, int(f))
	}
	return out, nil
}

// As returns result as T. Processors in this package never fail; a
// representation they could not parse is passed through, and As reports it.
func As[T any](result any) (T, error) {
	v, ok := result.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: got %T", ErrUnexpectedShape, result)
	}
	return v, nil
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %d not in [%d, %d]", ErrOutOfRange, name, v, lo, hi)
	}
	return nil
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
