// Package ml trains and serves the collision severity classifiers.
package ml

import (
	"sort"

	"github.com/rotisserie/eris"
)

// LabelEncoder maps class names to 0..k-1 in sorted order.
type LabelEncoder struct {
	Classes []string
}

// FitLabelEncoder collects the distinct labels and sorts them.
func FitLabelEncoder(labels []string) *LabelEncoder {
	seen := make(map[string]struct{})
	var classes []string
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Transform encodes labels. An unseen label is an error.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	index := make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		index[c] = i
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		v, ok := index[l]
		if !ok {
			return nil, eris.Errorf("ml: unseen label %q", l)
		}
		out[i] = v
	}
	return out, nil
}

// Inverse decodes one class index.
func (e *LabelEncoder) Inverse(v int) (string, error) {
	if v < 0 || v >= len(e.Classes) {
		return "", eris.Errorf("ml: class index %d out of range", v)
	}
	return e.Classes[v], nil
}
