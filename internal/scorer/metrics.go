package scorer

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/newstype/internal/model"
)

// MatchResult computes the metrics of a session that typed the full target.
// A session that took less than half a second reports 0 WPM.
func MatchResult(typed, target []rune, wordCount int, elapsed time.Duration) model.Result {
	seconds := roundInt(elapsed.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	wpm := 0
	if seconds > 0 {
		wpm = roundInt(float64(wordCount) / float64(seconds) * 60)
	}
	accuracy := 0
	if len(target) > 0 {
		accuracy = clampPercent(roundInt(float64(correctChars(typed, target)) / float64(len(target)) * 100))
	}
	return model.Result{
		WPM:              wpm,
		Accuracy:         accuracy,
		TimeSpentSeconds: seconds,
	}
}

// CountdownResult computes the metrics of a fixed-duration session. Word
// throughput is normalized to a per-minute rate of the full duration.
func CountdownResult(typed, target []rune, durationSeconds int) model.Result {
	words := len(strings.Fields(string(typed)))
	wpm := 0
	if durationSeconds > 0 {
		wpm = roundInt(float64(words) / (float64(durationSeconds) / 60))
	}
	nonSpace := 0
	for _, r := range typed {
		if !unicode.IsSpace(r) {
			nonSpace++
		}
	}
	accuracy := 100
	if nonSpace > 0 {
		accuracy = clampPercent(roundInt(float64(correctChars(typed, target)) / float64(nonSpace) * 100))
	}
	return model.Result{
		WPM:              wpm,
		Accuracy:         accuracy,
		TimeSpentSeconds: durationSeconds,
	}
}

func correctChars(typed, target []rune) int {
	n := len(typed)
	if len(target) < n {
		n = len(target)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if typed[i] == target[i] {
			correct++
		}
	}
	return correct
}

func roundInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
