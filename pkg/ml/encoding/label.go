// Package encoding maps categorical string values to integer codes.
package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownLabel = errors.New("encoding: unknown label")

// LabelEncoder assigns codes 0..n-1 to the sorted distinct classes seen at
// fit time.
type LabelEncoder struct {
	Classes []string `json:"classes"`
	index   map[string]int
}

func Fit(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return FromClasses(classes)
}

// FromClasses rebuilds an encoder from a persisted class list.
func FromClasses(classes []string) *LabelEncoder {
	e := &LabelEncoder{Classes: classes}
	e.reindex()
	return e
}

func (e *LabelEncoder) reindex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

func (e *LabelEncoder) UnmarshalJSON(b []byte) error {
	var raw struct {
		Classes []string `json:"classes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Classes = raw.Classes
	e.reindex()
	return nil
}

func (e *LabelEncoder) Len() int { return len(e.Classes) }

func (e *LabelEncoder) Transform(v string) (int, error) {
	code, ok := e.index[v]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, v)
	}
	return code, nil
}

func (e *LabelEncoder) TransformAll(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		code, err := e.Transform(v)
		if err != nil {
			return nil, err
		}
		out[i] = code
	}
	return out, nil
}

func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("%w: code %d", ErrUnknownLabel, code)
	}
	return e.Classes[code], nil
}

// Set is the persisted collection of per-column encoders.
type Set map[string]*LabelEncoder

// Columns returns the encoded column names in sorted order.
func (s Set) Columns() []string {
	cols := make([]string, 0, len(s))
	for c := range s {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
