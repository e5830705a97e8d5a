// Package tui provides the Bubble Tea terminal interface for ragchat.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/ragchat"
)

// Turn is the model's view of an in-flight turn: it can wait for the
// terminal outcome and request cancellation.
type Turn interface {
	Done() <-chan struct{}
	Err() error
	Cancel()
}

// StartTurn submits user text to a conversation and returns a handle for
// the resulting turn. It blocks until the turn is accepted or rejected.
type StartTurn func(ctx context.Context, conversationID, text string) (Turn, error)

// HealthCheck probes the remote service.
type HealthCheck func(ctx context.Context) error

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling the context quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// NotificationMsg wraps a store notification for delivery to the model.
type NotificationMsg struct {
	Notification ragchat.Notification
}

// TurnStartedMsg reports the result of submitting user input.
type TurnStartedMsg struct {
	ConversationID string
	Turn           Turn
	Err            error
}

// TurnDoneMsg signals that a turn reached a terminal state.
type TurnDoneMsg struct {
	ConversationID string
	Err            error
}

// HealthMsg carries the result of a service health probe.
type HealthMsg struct {
	Err error
}
