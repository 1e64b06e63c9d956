package ml

import (
	"sort"
	"strconv"
	"strings"
)

// Aligned is an input mapped onto the model's feature order. Values are raw:
// num__ entries are not yet standardized.
type Aligned struct {
	Values  []float64
	Missing []string // features the input did not determine
}

// AlignInput builds a zero-initialized vector in featureNames order.
//
// A num__<col> feature reads input[<feature name>] or input[col]. A
// cat__<col>_<value> feature reads input[<feature name>] when present, otherwise
// it is 1 when input[col] equals value, where col is the longest input key that
// prefixes the feature. Unparseable or absent features stay 0 and are reported in
// Missing. Aligning the Input() of a result yields the same result.
func AlignInput(input map[string]string, featureNames []string) Aligned {
	keys := make([]string, 0, len(input))
	for k := range input {
		if !strings.HasPrefix(k, numPrefix) && !strings.HasPrefix(k, catPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(a, b int) bool {
		if len(keys[a]) != len(keys[b]) {
			return len(keys[a]) > len(keys[b])
		}
		return keys[a] < keys[b]
	})

	out := Aligned{Values: make([]float64, len(featureNames))}
	for i, name := range featureNames {
		if raw, ok := input[name]; ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				out.Missing = append(out.Missing, name)
				continue
			}
			out.Values[i] = v
			continue
		}

		switch {
		case strings.HasPrefix(name, numPrefix):
			raw, ok := input[strings.TrimPrefix(name, numPrefix)]
			if !ok {
				out.Missing = append(out.Missing, name)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				out.Missing = append(out.Missing, name)
				continue
			}
			out.Values[i] = v
		case strings.HasPrefix(name, catPrefix):
			rest := strings.TrimPrefix(name, catPrefix)
			matched := false
			for _, k := range keys {
				if strings.HasPrefix(rest, k+"_") {
					matched = true
					if input[k] == rest[len(k)+1:] {
						out.Values[i] = 1
					}
					break
				}
			}
			if !matched {
				out.Missing = append(out.Missing, name)
			}
		default:
			out.Missing = append(out.Missing, name)
		}
	}
	return out
}

// Input renders the aligned vector keyed by feature name.
func (a Aligned) Input(featureNames []string) map[string]string {
	out := make(map[string]string, len(featureNames))
	for i, name := range featureNames {
		out[name] = strconv.FormatFloat(a.Values[i], 'g', -1, 64)
	}
	return out
}
