package training

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"thermal-backend/internal/comfort"
	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/metrics"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// WriteRegressionReport prints the ensemble evaluation
func WriteRegressionReport(w io.Writer, set features.Set, r *RegressionResult) {
	fmt.Fprintf(w, "== Temperature ensemble (%s) ==\n", set.Name)
	fmt.Fprintf(w, "rows: %s loaded, %s kept, %s train, %s test\n",
		humanize.Comma(int64(r.Stats.Total)), humanize.Comma(int64(r.Stats.Kept)),
		humanize.Comma(int64(r.TrainRows)), humanize.Comma(int64(r.TestRows)))

	tw := newTable(w)
	fmt.Fprintln(tw, "metric\tvalue")
	fmt.Fprintf(tw, "R2\t%.4f\n", r.Test.R2)
	fmt.Fprintf(tw, "MSE\t%.4f\n", r.Test.MSE)
	fmt.Fprintf(tw, "RMSE\t%.4f\n", r.Test.RMSE)
	fmt.Fprintf(tw, "MAE\t%.4f\n", r.Test.MAE)
	fmt.Fprintf(tw, "CV R2\t%.4f (± %.4f)\n", r.CV.Mean, r.CV.Std*2)
	for _, m := range r.Members {
		fmt.Fprintf(tw, "R2 %s\t%.4f\n", m.Name, m.R2)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n-- Comfort categories (%s preset, %.1f / %.1f) --\n",
		comfort.Analysis.Name, comfort.Analysis.Cold, comfort.Analysis.Hot)
	writeClassification(w, r.Classification)

	if len(r.AgeGroups) > 0 {
		fmt.Fprintln(w, "\n-- Error by age group --")
		tw = newTable(w)
		fmt.Fprintln(tw, "age\tcount\tmean |err|\tstd |err|\tmean actual\tmean predicted")
		for _, g := range r.AgeGroups {
			if g.Count == 0 {
				fmt.Fprintf(tw, "%s\t0\t-\t-\t-\t-\n", g.Name)
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.2f\t%.2f\n",
				g.Name, g.Count, g.MeanError, g.StdError, g.MeanActual, g.MeanPredicted)
		}
		tw.Flush()
	}

	if len(r.Importances) > 0 {
		fmt.Fprintln(w, "\n-- Feature importance (random forest) --")
		tw = newTable(w)
		for _, imp := range r.Importances {
			fmt.Fprintf(tw, "%s\t%.4f\n", imp.Feature, imp.Value)
		}
		tw.Flush()
	}

	if r.ArtifactPath != "" {
		fmt.Fprintf(w, "\nsaved to %s\n", r.ArtifactPath)
	}
}

// WriteComparisonReport prints the classifier ranking
func WriteComparisonReport(w io.Writer, set features.Set, r *CompareResult) {
	fmt.Fprintf(w, "== Comfort classifiers (%s) ==\n", set.Name)
	fmt.Fprintf(w, "rows: %s kept, %s train, %s test\n",
		humanize.Comma(int64(r.Stats.Kept)), humanize.Comma(int64(r.TrainRows)), humanize.Comma(int64(r.TestRows)))

	tw := newTable(w)
	fmt.Fprintln(tw, "rank\tclassifier\taccuracy\tmacro F1\tweighted F1\tCV macro F1")
	for i, res := range r.Results {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\t%.4f ± %.4f\n",
			i+1, res.Name, res.Test.Accuracy, res.Test.MacroF1, res.Test.WeightedF1, res.CV.Mean, res.CV.Std)
	}
	tw.Flush()

	if len(r.Results) > 0 {
		best := r.Best()
		fmt.Fprintf(w, "\n-- Best: %s --\n", best.Name)
		writeClassification(w, best.Test)
	}
}

func writeClassification(w io.Writer, c metrics.Classification) {
	tw := newTable(w)
	fmt.Fprintln(tw, "class\tprecision\trecall\tf1\tsupport")
	for _, s := range c.Classes {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%.2f%%\t%d\n", s.Label, s.Precision*100, s.Recall*100, s.F1*100, s.Support)
	}
	fmt.Fprintf(tw, "macro avg\t%.2f%%\t%.2f%%\t%.2f%%\t\n", c.MacroPrecision*100, c.MacroRecall*100, c.MacroF1*100)
	fmt.Fprintf(tw, "weighted avg\t%.2f%%\t%.2f%%\t%.2f%%\t\n", c.WeightedPrecision*100, c.WeightedRecall*100, c.WeightedF1*100)
	tw.Flush()

	fmt.Fprintf(w, "accuracy: %.2f%%\n", c.Accuracy*100)
	fmt.Fprintln(w, "confusion (rows actual, columns predicted):")
	tw = newTable(w)
	header := make([]string, 0, len(c.Classes)+1)
	header = append(header, "")
	for _, s := range c.Classes {
		header = append(header, s.Label)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range c.Confusion {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, c.Classes[i].Label)
		for _, v := range row {
			cells = append(cells, fmt.Sprint(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}
