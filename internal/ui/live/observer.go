package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"docwatch/internal/run"
)

// Controller runs the live UI and implements run.Observer.
type Controller struct {
	mu      sync.Mutex
	events  chan Event
	closed  bool
	program *tea.Program
	done    chan struct{}
	err     error
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		events:  events,
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		_, err := program.Run()
		controller.mu.Lock()
		controller.err = err
		controller.mu.Unlock()
		close(controller.done)
	}()
	return controller
}

// Close signals that no more snapshots will arrive.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

// Wait blocks until the UI has exited and returns its error.
func (c *Controller) Wait() error {
	if c == nil {
		return nil
	}
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OnState forwards run snapshots to the UI.
func (c *Controller) OnState(state run.State) {
	c.send(Event{Kind: EventState, State: state})
}

// send enqueues an event without blocking the caller. Snapshots are whole
// states, so when the buffer is full the oldest one is dropped.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
		return
	default:
	}
	select {
	case <-c.events:
	default:
	}
	select {
	case c.events <- event:
	default:
	}
}

var _ run.Observer = (*Controller)(nil)
