package watch

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xucongyong/duet/internal/constants"
	"github.com/xucongyong/duet/internal/web"
)

// Source is the control panel as seen by the watch TUI. *web.Client
// satisfies it.
type Source interface {
	Logs(ctx context.Context) ([]string, error)
	Status(ctx context.Context) (*web.StatusResponse, error)
	Start(ctx context.Context, overrides web.WorkerPayload) (*web.ActionResponse, error)
	Stop(ctx context.Context) (*web.ActionResponse, error)
	Restart(ctx context.Context, overrides web.WorkerPayload) (*web.ActionResponse, error)
}

// Model is the bubbletea model for the watch TUI.
type Model struct {
	// Dimensions
	width  int
	height int

	logViewport viewport.Model

	// Data
	source   Source
	lines    []string
	status   *web.StatusResponse
	err      error
	flash    string
	lastPoll time.Time

	// UI state
	keys     KeyMap
	help     help.Model
	showHelp bool
	follow   bool
	interval time.Duration
	timeout  time.Duration
}

// NewModel creates a watch model polling source.
func NewModel(source Source) *Model {
	h := help.New()
	h.ShowAll = false

	return &Model{
		logViewport: viewport.New(0, 0),
		source:      source,
		keys:        DefaultKeyMap(),
		help:        h,
		follow:      true,
		interval:    constants.WatchPollInterval,
		timeout:     constants.ClientTimeout,
	}
}

// SetInterval overrides the poll interval.
func (m *Model) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.poll(),
		tea.SetWindowTitle("duet watch"),
	)
}

// snapshotMsg carries one poll result.
type snapshotMsg struct {
	lines  []string
	status *web.StatusResponse
	err    error
	at     time.Time
}

// actionMsg carries the result of a start, stop or restart request.
type actionMsg struct {
	resp *web.ActionResponse
	err  error
}

// tickMsg schedules the next poll.
type tickMsg time.Time

// poll fetches the status and the log snapshot.
func (m *Model) poll() tea.Cmd {
	source := m.source
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		status, err := source.Status(ctx)
		if err != nil {
			return snapshotMsg{err: err, at: time.Now()}
		}
		lines, err := source.Logs(ctx)
		return snapshotMsg{lines: lines, status: status, err: err, at: time.Now()}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// act runs a control request against the panel.
func (m *Model) act(fn func(ctx context.Context) (*web.ActionResponse, error)) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := fn(ctx)
		return actionMsg{resp: resp, err: err}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()

	case snapshotMsg:
		m.lastPoll = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.lines = msg.lines
			m.updateViewContent()
		}
		cmds = append(cmds, m.tick())

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else if msg.resp != nil {
			m.flash = msg.resp.Message
		}
		// Refresh right away so the new state shows without waiting a tick.
		cmds = append(cmds, m.poll())

	case tickMsg:
		cmds = append(cmds, m.poll())
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes key presses
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.updateViewportSize()
		return m, nil

	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
		if m.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.poll()

	case key.Matches(msg, m.keys.Start):
		return m, m.act(func(ctx context.Context) (*web.ActionResponse, error) {
			return m.source.Start(ctx, web.WorkerPayload{})
		})

	case key.Matches(msg, m.keys.Stop):
		return m, m.act(m.source.Stop)

	case key.Matches(msg, m.keys.Restart):
		return m, m.act(func(ctx context.Context) (*web.ActionResponse, error) {
			return m.source.Restart(ctx, web.WorkerPayload{})
		})

	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.logViewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.logViewport.GotoBottom()
		return m, nil
	}

	// Manual scrolling leaves follow mode.
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	if key.Matches(msg, m.keys.Up, m.keys.PageUp) {
		m.follow = false
	}
	return m, cmd
}

// updateViewportSize recalculates the log viewport dimensions.
func (m *Model) updateViewportSize() {
	// Reserve space: header (1) + flash (1) + borders (2) + status bar (1) + help
	helpHeight := 1
	if m.showHelp {
		helpHeight = 5
	}
	height := m.height - 1 - 1 - 2 - 1 - helpHeight
	if height < 3 {
		height = 3
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.updateViewContent()
}

// updateViewContent refreshes the log viewport.
func (m *Model) updateViewContent() {
	m.logViewport.SetContent(m.renderLines())
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

// View renders the TUI
func (m *Model) View() string {
	return m.render()
}
