package ml

// ClassMetrics holds the per-class scores of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1_score" yaml:"f1_score"`
	Support   int     `json:"support" yaml:"support"`
}

// Report is a classification report plus confusion matrix. Confusion[i][j]
// counts rows of true class i predicted as j.
type Report struct {
	Classes     []string       `json:"classes" yaml:"classes"`
	PerClass    []ClassMetrics `json:"per_class" yaml:"per_class"`
	Accuracy    float64        `json:"accuracy" yaml:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg" yaml:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg" yaml:"weighted_avg"`
	Confusion   [][]int        `json:"confusion_matrix" yaml:"confusion_matrix"`
}

// Evaluate scores predictions against true labels. A zero denominator scores 1.
func Evaluate(yTrue, yPred []int, classes []string) Report {
	k := len(classes)
	conf := make([][]int, k)
	for i := range conf {
		conf[i] = make([]int, k)
	}
	correct := 0
	for i := range yTrue {
		conf[yTrue[i]][yPred[i]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	r := Report{Classes: classes, Confusion: conf, PerClass: make([]ClassMetrics, k)}
	if len(yTrue) > 0 {
		r.Accuracy = float64(correct) / float64(len(yTrue))
	}
	total := 0
	for c := 0; c < k; c++ {
		tp := conf[c][c]
		predicted, actual := 0, 0
		for j := 0; j < k; j++ {
			predicted += conf[j][c]
			actual += conf[c][j]
		}
		m := ClassMetrics{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if m.Precision+m.Recall == 0 {
			m.F1 = 0
		} else {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.PerClass[c] = m
		total += actual

		r.MacroAvg.Precision += m.Precision / float64(k)
		r.MacroAvg.Recall += m.Recall / float64(k)
		r.MacroAvg.F1 += m.F1 / float64(k)
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	if total > 0 {
		for _, m := range r.PerClass {
			w := float64(m.Support) / float64(total)
			r.WeightedAvg.Precision += w * m.Precision
			r.WeightedAvg.Recall += w * m.Recall
			r.WeightedAvg.F1 += w * m.F1
		}
	}
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 1
	}
	return float64(num) / float64(den)
}
