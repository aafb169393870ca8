// Package tui renders stage progress as an interactive terminal view built
// on BubbleTea. Stages report through a Bridge, which implements ui.UI by
// sending messages to the running program.
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/wzpatch/internal/ui"
)

// Work is the function a program renders progress for.
type Work func(ctx context.Context, sink ui.UI) error

// Run executes fn while a program renders its progress, and returns fn's
// error. The first ctrl+c cancels the context passed to fn; a second one
// leaves the view at once.
func Run(ctx context.Context, title string, fn Work, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(Options{Title: title, Cancel: cancel, AutoQuit: true}), opts...)
	bridge := NewBridge(p)

	errc := make(chan error, 1)
	go func() {
		err := fn(ctx, bridge)
		errc <- err
		p.Send(MsgFinished{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return fmt.Errorf("TUI error: %w", err)
	}
	// The view may close before the work returns when the user quits twice.
	cancel()
	return <-errc
}

// WithOutput returns a program option that directs TUI output to the given writer.
func WithOutput(w io.Writer) tea.ProgramOption {
	return tea.WithOutput(w)
}
