package training

// Metrics are binary classification scores with class 1 as positive.
// Undefined ratios (no predicted or no actual positives) are 0.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	TestRows  int
}

func Evaluate(yTrue, yPred []int) Metrics {
	var tp, fp, fn, correct int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
	}

	m := Metrics{TestRows: len(yTrue)}
	if len(yTrue) > 0 {
		m.Accuracy = float64(correct) / float64(len(yTrue))
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Map is the form stored in the artifact envelope.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1,
		"test_rows": float64(m.TestRows),
	}
}
