package live

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docwatch/internal/run"
)

const (
	defaultWidth = 100
	logHeight    = 8
	tableHeight  = 8
)

// Model renders a live console UI using Bubble Tea.
type Model struct {
	state           State
	issues          table.Model
	logs            viewport.Model
	bar             progress.Model
	spinner         spinner.Model
	events          <-chan Event
	tickInterval    time.Duration
	now             time.Time
	noColor         bool
	keepOpen        bool
	width           int
	cancelRequested bool
	closed          bool
	onCancel        func()
	onView          func(run.View)
	onSelect        func(int)
}

// Options configures the live UI model.
type Options struct {
	NoColor      bool
	TickInterval time.Duration
	// KeepOpen leaves the final screen up until the user quits.
	KeepOpen bool
	// OnCancel runs when the user asks to cancel an active run.
	OnCancel func()
	// OnView runs when the user switches result tabs.
	OnView func(run.View)
	// OnSelectIssue runs when the issue cursor moves.
	OnSelectIssue func(int)
}

// NewModel constructs a live UI model for an event stream.
func NewModel(events <-chan Event, opts Options) Model {
	tickInterval := opts.TickInterval
	if tickInterval <= 0 {
		tickInterval = 200 * time.Millisecond
	}
	t := table.New(
		table.WithColumns(defaultColumns()),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
		table.WithWidth(defaultWidth),
	)
	t.SetStyles(tableStyles(opts.NoColor))

	barOpts := []progress.Option{progress.WithWidth(40)}
	if opts.NoColor {
		barOpts = append(barOpts, progress.WithFillCharacters('#', '.'), progress.WithSolidFill(""))
	} else {
		barOpts = append(barOpts, progress.WithDefaultGradient())
	}

	return Model{
		state:        State{Phase: run.PhaseIdle, View: run.ViewIssues},
		issues:       t,
		logs:         viewport.New(defaultWidth, logHeight),
		bar:          progress.New(barOpts...),
		spinner:      spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		events:       events,
		tickInterval: tickInterval,
		now:          time.Now(),
		noColor:      opts.NoColor,
		keepOpen:     opts.KeepOpen,
		width:        defaultWidth,
		onCancel:     opts.OnCancel,
		onView:       opts.OnView,
		onSelect:     opts.OnSelectIssue,
	}
}

// Init starts ticking and waits for the first event.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tick(m.tickInterval), m.spinner.Tick)
}

// Update consumes UI events, key presses and timer ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.logs.Width = typed.Width
		m.bar.Width = min(max(typed.Width-10, 10), 80)
		m.issues.SetWidth(typed.Width)
		m.issues.SetColumns(columnsForWidth(typed.Width))
		m.issues.SetRows(issueRows(m.state.Issues, m.width))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case EventMsg:
		m = applyEvent(m, typed.Event)
		return m, waitForEvent(m.events)
	case closedMsg:
		return m.finish()
	case tickMsg:
		m.now = time.Time(typed)
		return m, tick(m.tickInterval)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}
	return m, nil
}

// finish quits, or waits for the user when the screen stays open.
func (m Model) finish() (tea.Model, tea.Cmd) {
	m.closed = true
	if !m.keepOpen {
		return m, tea.Quit
	}
	return m, nil
}

// handleKey maps key presses to cancel, navigation and quit.
func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := !m.state.Phase.Terminal() && !m.closed
	switch key.String() {
	case "ctrl+c", "esc":
		if active {
			if !m.cancelRequested && m.onCancel != nil {
				m.onCancel()
			}
			m.cancelRequested = true
			return m, nil
		}
		return m, tea.Quit
	case "q", "enter":
		if active {
			return m, nil
		}
		return m, tea.Quit
	}
	if m.state.Phase != run.PhaseDone {
		return m, nil
	}
	switch key.String() {
	case "tab":
		return m.selectView(nextView(m.state.View)), nil
	case "1", "2", "3", "4":
		return m.selectView(viewOrder[int(key.String()[0]-'1')]), nil
	}
	if m.state.View == run.ViewIssues {
		before := m.issues.Cursor()
		var cmd tea.Cmd
		m.issues, cmd = m.issues.Update(key)
		if after := m.issues.Cursor(); after != before && m.onSelect != nil {
			m.onSelect(after)
		}
		return m, cmd
	}
	return m, nil
}

// selectView switches the result tab locally and reports it.
func (m Model) selectView(view run.View) Model {
	m.state.View = view
	if m.onView != nil {
		m.onView(view)
	}
	return m
}

// nextView cycles through the result tabs.
func nextView(current run.View) run.View {
	for i, view := range viewOrder {
		if view == current {
			return viewOrder[(i+1)%len(viewOrder)]
		}
	}
	return viewOrder[0]
}

// View renders the live UI.
func (m Model) View() string {
	sections := []string{
		renderHeader(m.state, m.now, m.noColor),
		renderStepper(m.state, m.spinner.View(), m.noColor),
		m.bar.ViewAs(m.state.Progress),
	}
	switch m.state.Phase {
	case run.PhaseDone:
		sections = append(sections, renderDecision(m.state, m.noColor), renderTabs(m.state.View, m.noColor))
		if m.state.View == run.ViewIssues {
			sections = append(sections, m.issues.View())
		} else {
			sections = append(sections, renderViewBody(m.state, m.width))
		}
	case run.PhaseError:
		sections = append(sections, renderErrorCard(m.state.Error, m.width, m.noColor), m.logs.View())
	default:
		sections = append(sections, m.logs.View())
	}
	sections = append(sections, renderFooter(m.state, m.cancelRequested, m.closed, m.noColor))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// EventMsg wraps a UI event for Bubble Tea.
type EventMsg struct {
	Event Event
}

// closedMsg reports that the event channel was closed.
type closedMsg struct{}

// tickMsg carries a clock tick for updates.
type tickMsg time.Time

// waitForEvent blocks until a UI event is available.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		event, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return EventMsg{Event: event}
	}
}

// tick emits a periodic tick message.
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// applyEvent mutates model state based on a UI event.
func applyEvent(model Model, event Event) Model {
	if event.Kind != EventState {
		return model
	}
	prevGeneration := model.state.Generation
	model.state = Reduce(model.state, event.State)
	if model.state.Generation != prevGeneration {
		model.cancelRequested = false
	}
	model.logs.SetContent(strings.Join(model.state.Logs, "\n"))
	model.logs.GotoBottom()
	model.issues.SetRows(issueRows(model.state.Issues, model.width))
	if selected := event.State.SelectedIssue; selected >= 0 && selected < len(model.state.Issues) {
		model.issues.SetCursor(selected)
	}
	return model
}
