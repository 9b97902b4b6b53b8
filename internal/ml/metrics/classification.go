package metrics

// ClassScores are the per-class entries of a classification report
type ClassScores struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
	Support   int     `json:"support"`
}

// Classification is a full classification report
type Classification struct {
	Accuracy          float64       `json:"accuracy"`
	Classes           []ClassScores `json:"classes"`
	MacroPrecision    float64       `json:"macro_precision"`
	MacroRecall       float64       `json:"macro_recall"`
	MacroF1           float64       `json:"macro_f1"`
	WeightedPrecision float64       `json:"weighted_precision"`
	WeightedRecall    float64       `json:"weighted_recall"`
	WeightedF1        float64       `json:"weighted_f1"`
	Confusion         [][]int       `json:"confusion"`
}

// ConfusionMatrix counts true class (row) against predicted class (column)
func ConfusionMatrix(yTrue, yPred []int, k int) [][]int {
	cm := make([][]int, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	for i := range yTrue {
		cm[yTrue[i]][yPred[i]]++
	}
	return cm
}

// Classify builds the report for labels indexed 0..len(labels)-1. Undefined
// ratios (no predictions or no support for a class) score zero.
func Classify(yTrue, yPred []int, labels []string) Classification {
	k := len(labels)
	cm := ConfusionMatrix(yTrue, yPred, k)
	report := Classification{Confusion: cm, Classes: make([]ClassScores, k)}

	correct := 0
	total := len(yTrue)
	for c := 0; c < k; c++ {
		tp := cm[c][c]
		correct += tp
		var predicted, support int
		for j := 0; j < k; j++ {
			predicted += cm[j][c]
			support += cm[c][j]
		}

		s := ClassScores{Label: labels[c], Support: support}
		s.Precision = ratio(tp, predicted)
		s.Recall = ratio(tp, support)
		s.Accuracy = s.Recall
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		report.Classes[c] = s

		report.MacroPrecision += s.Precision / float64(k)
		report.MacroRecall += s.Recall / float64(k)
		report.MacroF1 += s.F1 / float64(k)
		if total > 0 {
			w := float64(support) / float64(total)
			report.WeightedPrecision += s.Precision * w
			report.WeightedRecall += s.Recall * w
			report.WeightedF1 += s.F1 * w
		}
	}
	report.Accuracy = ratio(correct, total)
	return report
}

// MacroF1 is the unweighted mean of per-class F1
func MacroF1(yTrue, yPred []int, k int) float64 {
	labels := make([]string, k)
	return Classify(yTrue, yPred, labels).MacroF1
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
