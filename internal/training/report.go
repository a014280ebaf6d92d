package training

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxLabelWidth truncates long recommendation texts in tables
const maxLabelWidth = 50

// Markdown renders the selection table and evaluation of a training run
func Markdown(r *Result) string {
	var b strings.Builder

	b.WriteString("# Model Training Report\n\n")
	fmt.Fprintf(&b, "- Model ID: `%s`\n", r.Model.ID)
	fmt.Fprintf(&b, "- Trained at: %s\n", r.Model.TrainedAt)
	fmt.Fprintf(&b, "- Dataset fingerprint: `%s`\n", r.Model.Fingerprint)
	fmt.Fprintf(&b, "- Rows: %d train / %d test\n", r.TrainRows, r.TestRows)
	fmt.Fprintf(&b, "- Best k: **%d** with subset accuracy **%.2f%%**\n\n", r.BestK, r.BestAccuracy*100)

	b.WriteString("## Candidates\n\n")
	b.WriteString("| k | Accuracy |\n|---|---|\n")
	for _, c := range r.Candidates {
		if c.Skipped {
			fmt.Fprintf(&b, "| %d | skipped |\n", c.K)
			continue
		}
		fmt.Fprintf(&b, "| %d | %.2f%% |\n", c.K, c.Accuracy*100)
	}

	ev := r.Evaluation
	b.WriteString("\n## Classification Report\n\n")
	b.WriteString("| Recommendation | Precision | Recall | F1 | Accuracy | Support |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, l := range ev.Labels {
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %d |\n",
			shorten(l.Label), l.Precision, l.Recall, l.F1, l.Accuracy, l.Support)
	}
	fmt.Fprintf(&b, "| micro avg | %.2f | %.2f | %.2f | | |\n", ev.MicroPrecision, ev.MicroRecall, ev.MicroF1)
	fmt.Fprintf(&b, "| macro avg | %.2f | %.2f | %.2f | | |\n", ev.MacroPrecision, ev.MacroRecall, ev.MacroF1)

	b.WriteString("\n## Confusion Matrices\n\n")
	b.WriteString("| Recommendation | TN | FP | FN | TP |\n|---|---|---|---|---|\n")
	for _, l := range ev.Labels {
		c := l.Confusion
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n", shorten(l.Label), c.TN, c.FP, c.FN, c.TP)
	}
	return b.String()
}

// WriteReport stores the markdown report at path
func WriteReport(path string, r *Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(Markdown(r)), 0o644)
}

func shorten(label string) string {
	label = strings.ReplaceAll(label, "|", "/")
	runes := []rune(label)
	if len(runes) <= maxLabelWidth {
		return label
	}
	return string(runes[:maxLabelWidth]) + "..."
}
