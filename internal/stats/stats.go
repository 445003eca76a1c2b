// Package stats renders result history and aggregates.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/term"

	"github.com/verte-zerg/newstype/internal/model"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
	minTrendWidth       = 10
	trendLabelWidth     = 10
)

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := lo.Min(values), lo.Max(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Resample squeezes or stretches values to width points by averaging buckets.
func Resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	if len(values) <= width {
		return slices.Clone(values)
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		out[i] = lo.Sum(values[start:end]) / float64(end-start)
	}
	return out
}

// Chronological returns records oldest first.
func Chronological(records []model.TestRecord) []model.TestRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b model.TestRecord) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})
	return out
}

// WPMSeries returns the WPM of each record, oldest first.
func WPMSeries(records []model.TestRecord) []float64 {
	return lo.Map(Chronological(records), func(r model.TestRecord, _ int) float64 {
		return float64(r.WPM)
	})
}

// AccuracySeries returns the accuracy of each record, oldest first.
func AccuracySeries(records []model.TestRecord) []float64 {
	return lo.Map(Chronological(records), func(r model.TestRecord, _ int) float64 {
		return float64(r.Accuracy)
	})
}

// BestWPM returns the highest WPM among records.
func BestWPM(records []model.TestRecord) int {
	if len(records) == 0 {
		return 0
	}
	return lo.MaxBy(records, func(a, b model.TestRecord) bool { return a.WPM > b.WPM }).WPM
}

// FormatDuration renders seconds as "1h02m03s", "2m05s" or "9s".
func FormatDuration(seconds int) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// RenderSummary prints aggregate statistics.
func RenderSummary(w io.Writer, st model.Stats, records []model.TestRecord) error {
	if st.Count == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Tests: %d", st.Count),
		fmt.Sprintf("Avg WPM: %d", st.MeanWPM),
		fmt.Sprintf("Best WPM: %d", BestWPM(records)),
		fmt.Sprintf("Avg Accuracy: %d%%", st.MeanAccuracy),
		fmt.Sprintf("Total Time: %s", FormatDuration(st.TotalTime)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints WPM and accuracy sparklines sized to totalWidth.
// totalWidth <= 0 uses the terminal width of w.
func RenderTrend(w io.Writer, records []model.TestRecord, window, totalWidth int) error {
	if len(records) < 2 {
		return nil
	}
	if totalWidth <= 0 {
		totalWidth = TerminalWidth(w)
	}
	width := max(totalWidth-trendLabelWidth, minTrendWidth)
	wpm := Resample(MovingAverage(WPMSeries(records), window), width)
	acc := Resample(MovingAverage(AccuracySeries(records), window), width)
	lines := []string{
		"Trend",
		fmt.Sprintf("%-*s%s", trendLabelWidth, "WPM", Sparkline(wpm)),
		fmt.Sprintf("%-*s%s", trendLabelWidth, "Accuracy", Sparkline(acc)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints records as a table, newest first as given.
func RenderHistory(w io.Writer, records []model.TestRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}
	lines := formatTable(HistoryHeaders(), HistoryRows(records), map[int]bool{2: true, 3: true, 4: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryHeaders names the history columns.
func HistoryHeaders() []string {
	return []string{"Date", "Article", "WPM", "Accuracy", "Time", "Mode", "Source"}
}

// HistoryRows formats records for a history table.
func HistoryRows(records []model.TestRecord) [][]string {
	return lo.Map(records, func(r model.TestRecord, _ int) []string {
		return []string{
			r.CompletedAt.Local().Format("2006-01-02 15:04"),
			Truncate(r.ArticleTitle, 40),
			fmt.Sprintf("%d", r.WPM),
			fmt.Sprintf("%d%%", r.Accuracy),
			FormatDuration(r.TimeSpentSeconds),
			string(r.Mode),
			r.Topic,
		}
	})
}

// TerminalWidth returns the width of w when it is a terminal.
func TerminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
