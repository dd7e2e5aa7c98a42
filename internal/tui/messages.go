package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type (
	// SubmittedMsg reports the outcome of a question submission
	SubmittedMsg struct {
		Question string
		Error    error
	}

	// CancelledMsg follows a cancel-all request
	CancelledMsg struct {
		Error error
	}

	// UpdateMsg signals that the coordinator published new state
	UpdateMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// submitCmd creates the conversation and starts the streams off the UI goroutine
func submitCmd(ctx context.Context, submit SubmitFunc, question string) tea.Cmd {
	return func() tea.Msg {
		return SubmittedMsg{Question: question, Error: submit(ctx, question)}
	}
}

func cancelCmd(c Coordinator) tea.Cmd {
	return func() tea.Msg {
		return CancelledMsg{Error: c.CancelAll()}
	}
}

// waitForUpdates blocks until the coordinator publishes; it yields nothing once
// the update channel is closed
func waitForUpdates(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return UpdateMsg{}
	}
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
