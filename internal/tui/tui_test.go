package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/team-kosa-skynet/morningstar/internal/stream"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

type fakeCoordinator struct {
	mu      sync.Mutex
	views   []stream.SessionView
	updates chan struct{}
	cancels int
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{updates: make(chan struct{}, 1)}
}

func (f *fakeCoordinator) CancelAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeCoordinator) Snapshot() []stream.SessionView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stream.SessionView(nil), f.views...)
}

func (f *fakeCoordinator) Updates() <-chan struct{} { return f.updates }

var testModels = []models.ModelInfo{
	{ID: "gpt", Brand: "gpt", Name: "GPT"},
	{ID: "claude", Brand: "claude", Name: "Claude"},
}

func newTestModel(coord *fakeCoordinator, submit SubmitFunc) model {
	if submit == nil {
		submit = func(context.Context, string) error { return nil }
	}
	m := initialModel(context.Background(), Options{
		Coordinator: coord,
		Submit:      submit,
		Models:      testModels,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 81, Height: 20})
	return updated.(model)
}

// TestModelInitialization tests the initial model setup
func TestModelInitialization(t *testing.T) {
	m := newTestModel(newFakeCoordinator(), nil)

	if len(m.panes) != 2 {
		t.Fatalf("Expected 2 panes, got %d", len(m.panes))
	}
	if m.panes[0].viewport.Width != 40 || m.panes[1].viewport.Width != 40 {
		t.Errorf("Panes should split the width evenly, got %d and %d",
			m.panes[0].viewport.Width, m.panes[1].viewport.Width)
	}
	if !m.ready {
		t.Error("Model should be ready after a window size message")
	}
	if !strings.Contains(m.View(), "Waiting for a question") {
		t.Error("Empty panes should show a placeholder")
	}
}

// TestEnterSubmitsQuestion tests that enter sends the typed question
func TestEnterSubmitsQuestion(t *testing.T) {
	var got string
	m := newTestModel(newFakeCoordinator(), func(_ context.Context, q string) error {
		got = q
		return nil
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)
	if cmd != nil {
		t.Error("Enter with an empty input should not submit")
	}

	m.input.SetValue("  what is a goroutine?  ")
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)
	if cmd == nil {
		t.Fatal("Enter should return a submit command")
	}
	if !m.loading.Active() {
		t.Error("Loading indicator should be active while submitting")
	}
	if m.input.Value() != "" {
		t.Error("Input should be cleared after submitting")
	}

	msg := cmd()
	submitted, ok := msg.(SubmittedMsg)
	if !ok {
		t.Fatalf("Expected SubmittedMsg, got %T", msg)
	}
	if got != "what is a goroutine?" {
		t.Errorf("Submitted question = %q", got)
	}

	updated, _ = m.Update(submitted)
	m = updated.(model)
	if m.loading.Active() {
		t.Error("Loading indicator should stop after submission")
	}
	if m.question != "what is a goroutine?" {
		t.Errorf("Header question = %q", m.question)
	}
}

// TestSubmitErrorIsShown tests that a failed submission shows its error
func TestSubmitErrorIsShown(t *testing.T) {
	m := newTestModel(newFakeCoordinator(), nil)

	updated, _ := m.Update(SubmittedMsg{Question: "q", Error: errors.New("not logged in")})
	m = updated.(model)

	if !strings.Contains(m.View(), "not logged in") {
		t.Error("View should show the submission error")
	}
}

// TestEscCancelsAll tests the cancel-all key
func TestEscCancelsAll(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("Esc should return a cancel command")
	}
	if _, ok := cmd().(CancelledMsg); !ok {
		t.Error("Cancel command should report CancelledMsg")
	}
	if coord.cancels != 1 {
		t.Errorf("Expected 1 CancelAll call, got %d", coord.cancels)
	}
}

// TestCtrlCQuits tests that ctrl+c ends the program
func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(newFakeCoordinator(), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Ctrl+C should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Ctrl+C should quit")
	}
}

// TestUpdateRendersSnapshot tests that published state reaches the panes
func TestUpdateRendersSnapshot(t *testing.T) {
	coord := newFakeCoordinator()
	coord.views = []stream.SessionView{
		{Model: testModels[0], Generation: "g1", State: stream.StateDone, Displayed: "Hi there", Buffered: 8},
		{Model: testModels[1], Generation: "g1", State: stream.StateErrored, Displayed: "Hello", Buffered: 5, Err: "overloaded"},
	}
	m := newTestModel(coord, nil)

	updated, cmd := m.Update(UpdateMsg{})
	m = updated.(model)
	if cmd == nil {
		t.Error("UpdateMsg should wait for the next update")
	}

	view := m.View()
	for _, want := range []string{"Hi there", "done", "Hello", "errored", "error: overloaded"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

// TestFinishedAnswerIsRenderedOnce tests the markdown cache for done panes
func TestFinishedAnswerIsRenderedOnce(t *testing.T) {
	coord := newFakeCoordinator()
	coord.views = []stream.SessionView{
		{Model: testModels[0], Generation: "g1", State: stream.StateDone, Displayed: "**bold**", Buffered: 8},
	}
	calls := 0
	m := initialModel(context.Background(), Options{
		Coordinator: coord,
		Submit:      func(context.Context, string) error { return nil },
		Models:      testModels[:1],
		Render: func(text string, width int) (string, error) {
			calls++
			return "rendered:" + text, nil
		},
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = updated.(model)

	for i := 0; i < 3; i++ {
		updated, _ = m.Update(UpdateMsg{})
		m = updated.(model)
	}

	if calls != 1 {
		t.Errorf("Expected 1 render call, got %d", calls)
	}
	if !strings.Contains(m.View(), "rendered:**bold**") {
		t.Error("Done pane should show the rendered answer")
	}
}

// TestWaitForUpdatesStopsOnClose tests the update subscription
func TestWaitForUpdatesStopsOnClose(t *testing.T) {
	updates := make(chan struct{}, 1)
	updates <- struct{}{}
	if _, ok := waitForUpdates(updates)().(UpdateMsg); !ok {
		t.Error("A signal should produce UpdateMsg")
	}

	close(updates)
	if msg := waitForUpdates(updates)(); msg != nil {
		t.Errorf("A closed channel should produce no message, got %T", msg)
	}
}

// TestSpinnerAnimation tests spinner tick updates
func TestSpinnerAnimation(t *testing.T) {
	spinner := NewSpinner()
	initialFrame := spinner.View()

	spinner.Next()
	if spinner.View() == initialFrame {
		t.Error("Spinner frame should change after Next()")
	}

	// 8 frames in spinner
	for i := 0; i < 7; i++ {
		spinner.Next()
	}
	if spinner.View() != initialFrame {
		t.Error("Spinner should return to initial frame after full rotation")
	}
}

// TestLoadingIndicator tests the loading indicator
func TestLoadingIndicator(t *testing.T) {
	indicator := NewLoadingIndicator()
	if indicator.View() != "" {
		t.Error("Inactive indicator should render nothing")
	}

	indicator.Start("Sending question...")
	if !strings.Contains(indicator.View(), "Sending question...") {
		t.Error("Active indicator should show its message")
	}

	indicator.Stop()
	if indicator.Active() {
		t.Error("Indicator should be inactive after Stop")
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "hello world", 20, []string{"hello world"}},
		{"wraps on words", "hello big world", 9, []string{"hello big", "world"}},
		{"keeps newlines", "a\n\nb", 10, []string{"a", "", "b"}},
		{"splits long words", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"wide runes", "안녕하세요", 4, []string{"안녕", "하세", "요"}},
		{"no width", "a b", 0, []string{"a b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
			for _, line := range got {
				if tt.width > 0 && runewidth.StringWidth(line) > tt.width {
					t.Errorf("Line %q is wider than %d", line, tt.width)
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Claude Sonnet", 9); got != "Claude..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("GPT", 10); got != "GPT" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("GPT", 0); got != "" {
		t.Errorf("truncate = %q", got)
	}
}
