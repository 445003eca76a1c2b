// Package scorer implements the typing session state machine and its metrics.
package scorer

import (
	"errors"
	"strings"
	"time"

	"github.com/verte-zerg/newstype/internal/model"
)

// DefaultDurationSeconds is the countdown budget used when none is configured.
const DefaultDurationSeconds = 30

// ErrInvalidPrompt is returned by Start for a prompt without a typeable word.
var ErrInvalidPrompt = errors.New("prompt has no content")

// State is the lifecycle phase of a session.
type State int

const (
	// Idle sessions have not received a character yet.
	Idle State = iota
	// Running sessions have a start timestamp and accept input.
	Running
	// Complete sessions carry a result and ignore input.
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Options configures a session.
type Options struct {
	Mode            model.Mode
	DurationSeconds int
	Clock           func() time.Time
}

// Session is one practice attempt. It is owned by a single goroutine.
type Session struct {
	prompt    model.Prompt
	target    []rune
	wordCount int
	mode      model.Mode
	duration  int
	remaining int
	clock     func() time.Time

	typed       []rune
	state       State
	startedAt   time.Time
	completedAt time.Time
	result      model.Result
	claimed     bool
}

// Start creates an idle session for prompt.
func Start(prompt model.Prompt, opts Options) (*Session, error) {
	text := prompt.Target()
	words := len(strings.Fields(text))
	if words == 0 {
		return nil, ErrInvalidPrompt
	}
	mode := opts.Mode
	if !mode.Valid() {
		mode = model.ModeMatch
	}
	duration := opts.DurationSeconds
	if duration <= 0 {
		duration = DefaultDurationSeconds
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		prompt:    prompt,
		target:    []rune(text),
		wordCount: words,
		mode:      mode,
		duration:  duration,
		remaining: duration,
		clock:     clock,
	}, nil
}

// Apply feeds one keystroke into the session.
func (s *Session) Apply(k Keystroke) {
	if s.state == Complete {
		return
	}
	if k.IsBackspace() {
		if len(s.typed) > 0 {
			s.typed = s.typed[:len(s.typed)-1]
		}
		return
	}
	r, ok := k.Printable()
	if !ok {
		return
	}
	if s.mode == model.ModeMatch && len(s.typed) >= len(s.target) {
		return
	}
	s.typed = append(s.typed, r)
	if s.startedAt.IsZero() {
		s.startedAt = s.clock()
		s.state = Running
	}
	if s.mode == model.ModeMatch {
		s.CheckCompletion()
	}
}

// Type applies every rune of text as plain keystrokes.
func (s *Session) Type(text string) {
	for _, r := range text {
		s.Apply(Char(r))
	}
}

// CheckCompletion completes a match-mode session whose input equals the target.
func (s *Session) CheckCompletion() {
	if s.state == Complete || s.mode != model.ModeMatch {
		return
	}
	if len(s.typed) != len(s.target) {
		return
	}
	for i, r := range s.target {
		if s.typed[i] != r {
			return
		}
	}
	s.complete(s.clock())
}

// Tick consumes one second of a countdown budget and completes the session
// once the budget is spent, whatever has been typed so far.
func (s *Session) Tick(now time.Time) {
	if s.state == Complete || s.mode != model.ModeCountdown {
		return
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.complete(now)
	}
}

func (s *Session) complete(now time.Time) {
	s.completedAt = now
	switch s.mode {
	case model.ModeCountdown:
		s.result = CountdownResult(s.typed, s.target, s.duration)
	default:
		s.result = MatchResult(s.typed, s.target, s.wordCount, now.Sub(s.startedAt))
	}
	s.state = Complete
}

// ClaimResult hands out the final result exactly once per session.
func (s *Session) ClaimResult() (model.Result, bool) {
	if s.state != Complete || s.claimed {
		return model.Result{}, false
	}
	s.claimed = true
	return s.result, true
}

// Preview computes metrics for the input so far without completing.
func (s *Session) Preview(now time.Time) model.Result {
	if s.state == Complete {
		return s.result
	}
	if s.mode == model.ModeCountdown {
		res := CountdownResult(s.typed, s.target, s.duration)
		res.TimeSpentSeconds = s.duration - s.remaining
		return res
	}
	if s.startedAt.IsZero() {
		return model.Result{Accuracy: 100}
	}
	// Only words closed by a matching space count towards live WPM.
	words := 0
	for i, r := range s.typed {
		if r == ' ' && s.target[i] == ' ' {
			words++
		}
	}
	seconds := now.Sub(s.startedAt).Seconds()
	res := model.Result{Accuracy: 100, TimeSpentSeconds: roundInt(seconds)}
	if seconds >= 1 {
		res.WPM = roundInt(float64(words) / seconds * 60)
	}
	if len(s.typed) > 0 {
		res.Accuracy = clampPercent(roundInt(float64(correctChars(s.typed, s.target)) / float64(len(s.typed)) * 100))
	}
	return res
}

// Prompt returns the prompt the session was started with.
func (s *Session) Prompt() model.Prompt { return s.prompt }

// Mode returns the completion mode.
func (s *Session) Mode() model.Mode { return s.mode }

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Target returns the canonical match target.
func (s *Session) Target() []rune { return s.target }

// Typed returns the text typed so far.
func (s *Session) Typed() string { return string(s.typed) }

// TypedRunes returns a copy of the typed runes.
func (s *Session) TypedRunes() []rune { return append([]rune(nil), s.typed...) }

// StartedAt returns the first keystroke time, if any.
func (s *Session) StartedAt() (time.Time, bool) { return s.startedAt, !s.startedAt.IsZero() }

// CompletedAt returns the completion instant, if any.
func (s *Session) CompletedAt() (time.Time, bool) {
	return s.completedAt, s.state == Complete
}

// Remaining returns the seconds left in a countdown budget.
func (s *Session) Remaining() int { return s.remaining }

// Duration returns the configured countdown budget in seconds.
func (s *Session) Duration() int { return s.duration }

// Result returns the final metrics once the session is complete.
func (s *Session) Result() (model.Result, bool) {
	return s.result, s.state == Complete
}

// Progress returns the typed fraction of the target in [0, 1].
func (s *Session) Progress() float64 {
	if len(s.target) == 0 {
		return 0
	}
	p := float64(len(s.typed)) / float64(len(s.target))
	if p > 1 {
		return 1
	}
	return p
}
