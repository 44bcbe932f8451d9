package display

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Display runs the terminal program. Messages can be posted before and while
// it runs; callers never block on a busy renderer.
type Display struct {
	program *tea.Program
	msgs    chan tea.Msg
}

func New(controller Controller, outputEnabled bool) *Display {
	return &Display{
		program: tea.NewProgram(NewModel(controller, outputEnabled), tea.WithAltScreen()),
		msgs:    make(chan tea.Msg, 256),
	}
}

// Post queues msg for the display. Messages are dropped when the display
// falls too far behind.
func (d *Display) Post(msg tea.Msg) {
	select {
	case d.msgs <- msg:
	default:
	}
}

// Run blocks until the user quits or ctx is cancelled.
func (d *Display) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				d.program.Quit()
				return
			case msg := <-d.msgs:
				d.program.Send(msg)
			}
		}
	}()

	if _, err := d.program.Run(); err != nil {
		return fmt.Errorf("failed to run display: %w", err)
	}
	return nil
}
