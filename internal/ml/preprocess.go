package ml

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/collision-cli/internal/model"
)

// Feature name prefixes of the transformed matrix.
const (
	numPrefix = "num__"
	catPrefix = "cat__"
)

// NumericColumns are standardized; CategoricalColumns are one-hot encoded.
var (
	NumericColumns     = []string{"latitude", "longitude", "crash_rate"}
	CategoricalColumns = []string{"day_of_week", "time_of_day", "month", "vehicle_category", "contributing_factor_category", "borough"}
)

// Preprocessor standardizes numeric columns and one-hot encodes categorical ones.
type Preprocessor struct {
	NumCols    []string
	Means      []float64
	Scales     []float64
	CatCols    []string
	Categories [][]string // sorted per categorical column
}

// Row returns the raw model input columns of a collision as strings.
func Row(c model.Collision) map[string]string {
	month := ""
	if c.Month != nil {
		month = strconv.Itoa(*c.Month)
	}
	return map[string]string{
		"latitude":                     strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		"longitude":                    strconv.FormatFloat(c.Longitude, 'f', -1, 64),
		"crash_rate":                   strconv.FormatFloat(c.CrashRate, 'f', -1, 64),
		"day_of_week":                  c.DayOfWeek,
		"time_of_day":                  string(c.TimeOfDay),
		"month":                        month,
		"vehicle_category":             c.VehicleCategory,
		"contributing_factor_category": c.ContributingFactorCategory,
		"borough":                      c.Borough,
	}
}

// FitPreprocessor learns means, population standard deviations and category sets.
// A zero standard deviation scales by 1.
func FitPreprocessor(rows []map[string]string) (*Preprocessor, error) {
	if len(rows) == 0 {
		return nil, eris.New("ml: fit preprocessor on empty input")
	}
	p := &Preprocessor{
		NumCols: append([]string(nil), NumericColumns...),
		CatCols: append([]string(nil), CategoricalColumns...),
	}

	col := make([]float64, len(rows))
	for _, name := range p.NumCols {
		for i, r := range rows {
			v, err := strconv.ParseFloat(r[name], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "ml: row %d column %s", i, name)
			}
			col[i] = v
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		scale := math.Sqrt(variance)
		if scale == 0 || math.IsNaN(scale) {
			scale = 1
		}
		p.Means = append(p.Means, mean)
		p.Scales = append(p.Scales, scale)
	}

	for _, name := range p.CatCols {
		seen := make(map[string]struct{})
		for _, r := range rows {
			seen[r[name]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		p.Categories = append(p.Categories, cats)
	}
	return p, nil
}

// FeatureNames lists the transformed columns: num__<col> then cat__<col>_<value>.
func (p *Preprocessor) FeatureNames() []string {
	var names []string
	for _, c := range p.NumCols {
		names = append(names, numPrefix+c)
	}
	for i, c := range p.CatCols {
		for _, v := range p.Categories[i] {
			names = append(names, catPrefix+c+"_"+v)
		}
	}
	return names
}

// Transform maps one row onto the feature vector. Unknown categories encode as all zeros.
func (p *Preprocessor) Transform(row map[string]string) ([]float64, error) {
	out := make([]float64, 0, len(p.NumCols)+len(p.Categories)*4)
	for i, c := range p.NumCols {
		v, err := strconv.ParseFloat(row[c], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "ml: column %s", c)
		}
		out = append(out, (v-p.Means[i])/p.Scales[i])
	}
	for i, c := range p.CatCols {
		val := row[c]
		for _, cat := range p.Categories[i] {
			if cat == val {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}

// TransformAll transforms every row.
func (p *Preprocessor) TransformAll(rows []map[string]string) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		v, err := p.Transform(r)
		if err != nil {
			return nil, eris.Wrapf(err, "ml: transform row %d", i)
		}
		out[i] = v
	}
	return out, nil
}

// ScaleAligned standardizes the num__ entries of a raw aligned vector in place of a copy.
func (p *Preprocessor) ScaleAligned(vec []float64, featureNames []string) []float64 {
	out := append([]float64(nil), vec...)
	for j, name := range featureNames {
		if !strings.HasPrefix(name, numPrefix) {
			continue
		}
		col := strings.TrimPrefix(name, numPrefix)
		for i, c := range p.NumCols {
			if c == col {
				out[j] = (out[j] - p.Means[i]) / p.Scales[i]
				break
			}
		}
	}
	return out
}
