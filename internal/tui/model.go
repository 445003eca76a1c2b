// Package tui provides the Bubble Tea practice screen.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/newstype/internal/article"
	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/scorer"
	"github.com/verte-zerg/newstype/internal/submit"
)

const (
	fetchTimeout = 20 * time.Second
	signInNote   = "Sign in to keep your results"
)

type phase int

const (
	phaseLoading phase = iota
	phaseTyping
	phaseResult
	phaseError
)

// StatsSource reports aggregate statistics for the footer.
type StatsSource interface {
	GetStats(ctx context.Context, userID string) (model.Stats, error)
}

// Account reports sign-in changes and drops a credential the backend rejected.
type Account interface {
	Subscribe(fn func(id model.Identity, signedIn bool)) func()
	Clear() error
}

// Options configures the practice screen.
type Options struct {
	Provider        article.Provider
	Submitter       *submit.Submitter
	Identity        submit.IdentitySource
	Account         Account
	Stats           StatsSource
	Mode            model.Mode
	DurationSeconds int
	Logger          *slog.Logger
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	provider  article.Provider
	submitter *submit.Submitter
	identity  submit.IdentitySource
	account   Account
	stats     StatsSource
	mode      model.Mode
	duration  int
	logger    *slog.Logger
	now       func() time.Time

	phase   phase
	gen     int
	seen    []string
	prompt  model.Prompt
	session *scorer.Session
	ticking bool
	err     error

	saveNote    string
	saveFailed  bool
	outcomes    chan submit.Outcome
	identities  chan identityMsg
	unsubscribe func()
	footer      model.Stats
	hasFooter   bool
	lastResult  model.Result
	hasLastTest bool

	spinner  spinner.Model
	progress progress.Model
	width    int
	height   int
}

type promptMsg struct {
	gen    int
	prompt model.Prompt
	err    error
}

type tickMsg struct {
	gen int
	at  time.Time
}

type savedMsg submit.Outcome

type identityMsg struct {
	id       model.Identity
	signedIn bool
}

type statsMsg struct {
	stats model.Stats
	err   error
}

// NewModel constructs the practice screen. It installs its own observer on
// the submitter so save outcomes reach the UI.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		provider:   opts.Provider,
		submitter:  opts.Submitter,
		identity:   opts.Identity,
		account:    opts.Account,
		stats:      opts.Stats,
		mode:       opts.Mode,
		duration:   opts.DurationSeconds,
		logger:     logger,
		now:        time.Now,
		outcomes:   make(chan submit.Outcome, 8),
		identities: make(chan identityMsg, 4),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(currentWordStyle)),
		progress:   progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage()),
	}
	if !m.mode.Valid() {
		m.mode = model.ModeMatch
	}
	if m.duration <= 0 {
		m.duration = scorer.DefaultDurationSeconds
	}
	if m.submitter != nil {
		outcomes := m.outcomes
		m.submitter.Observer = func(o submit.Outcome) {
			select {
			case outcomes <- o:
			default:
				// The UI is gone or backed up; the outcome is already logged.
			}
		}
	}
	if m.account != nil {
		identities := m.identities
		m.unsubscribe = m.account.Subscribe(func(id model.Identity, signedIn bool) {
			select {
			case identities <- identityMsg{id: id, signedIn: signedIn}:
			default:
			}
		})
	}
	return m
}

// Close stops listening for sign-in changes. Calling it again is a no-op.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.spinner.Tick, m.waitForSave(), m.waitForIdentity(), m.loadStats())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, m.contentWidth())
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case promptMsg:
		return m, m.handlePrompt(msg)
	case tickMsg:
		return m, m.handleTick(msg)
	case savedMsg:
		cmd := m.handleSaved(submit.Outcome(msg))
		return m, tea.Batch(m.waitForSave(), m.loadStats(), cmd)
	case identityMsg:
		return m, tea.Batch(m.waitForIdentity(), m.handleIdentity(msg))
	case statsMsg:
		if !m.signedIn() {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("failed to load stats", "error", msg.err)
			return m, nil
		}
		m.footer = msg.stats
		m.hasFooter = true
		return m, nil
	case spinner.TickMsg:
		if m.phase != phaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.Close()
		return tea.Quit
	case tea.KeyCtrlN:
		return m.next()
	case tea.KeyCtrlR:
		if m.phase == phaseTyping || m.phase == phaseResult {
			m.restart()
		}
		return nil
	case tea.KeyEnter:
		if m.phase == phaseResult || m.phase == phaseError {
			return m.next()
		}
		return nil
	}
	if m.phase != phaseTyping || m.session == nil {
		return nil
	}
	for _, k := range keystrokes(msg) {
		m.session.Apply(k)
	}
	if m.session.State() == scorer.Complete {
		m.finish()
		return nil
	}
	if m.session.State() == scorer.Running && !m.ticking {
		m.ticking = true
		return m.tick()
	}
	return nil
}

func (m *Model) handlePrompt(msg promptMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	if msg.err != nil {
		m.logger.Error("failed to load article", "error", msg.err)
		m.phase = phaseError
		m.err = msg.err
		return nil
	}
	session, err := scorer.Start(msg.prompt, scorer.Options{Mode: m.mode, DurationSeconds: m.duration, Clock: m.now})
	if err != nil {
		m.logger.Warn("skipping unusable article", "id", msg.prompt.ID, "error", err)
		m.remember(msg.prompt.ID)
		return m.next()
	}
	m.remember(msg.prompt.ID)
	m.prompt = msg.prompt
	m.session = session
	m.phase = phaseTyping
	m.err = nil
	m.logger.Debug("article loaded", "id", msg.prompt.ID, "words", len(msg.prompt.Content), "offline", msg.prompt.Offline)
	return nil
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if msg.gen != m.gen || m.session == nil || m.phase != phaseTyping {
		return nil
	}
	m.session.Tick(msg.at)
	if m.session.State() == scorer.Complete {
		m.finish()
		return nil
	}
	return m.tick()
}

func (m *Model) handleSaved(o submit.Outcome) tea.Cmd {
	if o.Err != nil {
		m.saveFailed = true
		m.saveNote = "Result not saved: " + saveReason(o.Err)
		if errors.Is(o.Err, auth.ErrUnauthenticated) && m.account != nil {
			return m.dropCredential()
		}
		return nil
	}
	m.saveFailed = false
	m.saveNote = "Result saved"
	return nil
}

func (m *Model) handleIdentity(msg identityMsg) tea.Cmd {
	if !msg.signedIn {
		m.footer = model.Stats{}
		m.hasFooter = false
		m.logger.Info("signed out")
		return nil
	}
	m.logger.Info("signed in", "user", msg.id.UserID)
	if m.saveNote == signInNote {
		m.saveNote = ""
	}
	return m.loadStats()
}

func (m *Model) finish() {
	m.phase = phaseResult
	m.ticking = false
	m.gen++
	if res, ok := m.session.Result(); ok {
		m.lastResult = res
		m.hasLastTest = true
	}
	m.saveFailed = false
	switch {
	case m.submitter == nil:
		m.saveNote = ""
	case m.submitter.Submit(m.session):
		m.saveNote = "Saving result…"
	default:
		m.saveNote = signInNote
	}
}

// next discards the current attempt and fetches a different article.
func (m *Model) next() tea.Cmd {
	m.gen++
	m.phase = phaseLoading
	m.session = nil
	m.ticking = false
	m.saveNote = ""
	return tea.Batch(m.fetch(), m.spinner.Tick)
}

func (m *Model) restart() {
	session, err := scorer.Start(m.prompt, scorer.Options{Mode: m.mode, DurationSeconds: m.duration, Clock: m.now})
	if err != nil {
		return
	}
	m.gen++
	m.session = session
	m.phase = phaseTyping
	m.ticking = false
	m.saveNote = ""
}

func (m *Model) remember(id string) {
	if id == "" {
		return
	}
	for _, seen := range m.seen {
		if seen == id {
			return
		}
	}
	m.seen = append(m.seen, id)
}

func (m *Model) fetch() tea.Cmd {
	if m.provider == nil {
		return nil
	}
	gen := m.gen
	provider := m.provider
	exclude := append([]string(nil), m.seen...)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p, err := provider.GetPrompt(ctx, exclude)
		return promptMsg{gen: gen, prompt: p, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(time.Second, func(at time.Time) tea.Msg {
		return tickMsg{gen: gen, at: at}
	})
}

func (m *Model) waitForSave() tea.Cmd {
	if m.submitter == nil {
		return nil
	}
	outcomes := m.outcomes
	return func() tea.Msg {
		return savedMsg(<-outcomes)
	}
}

func (m *Model) waitForIdentity() tea.Cmd {
	if m.account == nil {
		return nil
	}
	identities := m.identities
	return func() tea.Msg {
		return <-identities
	}
}

// dropCredential signs out after the backend rejected the stored credential.
// Subscribers, this model included, see the change.
func (m *Model) dropCredential() tea.Cmd {
	account, logger := m.account, m.logger
	return func() tea.Msg {
		if err := account.Clear(); err != nil {
			logger.Warn("failed to clear rejected session", "error", err)
		}
		return nil
	}
}

func (m *Model) signedIn() bool {
	if m.identity == nil {
		return false
	}
	_, ok := m.identity.Current()
	return ok
}

func (m *Model) loadStats() tea.Cmd {
	if m.stats == nil || m.identity == nil {
		return nil
	}
	id, ok := m.identity.Current()
	if !ok {
		return nil
	}
	stats := m.stats
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		s, err := stats.GetStats(ctx, id.UserID)
		return statsMsg{stats: s, err: err}
	}
}

func saveReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the server took too long"
	case errors.Is(err, auth.ErrUnauthenticated):
		return "sign in again"
	default:
		return err.Error()
	}
}
