package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// SpinnerState is where a spinner is in its life.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const frameInterval = 80 * time.Millisecond

// Spinner shows one in-flight step on a single line and replaces it with
// a final status line when the step ends.
type Spinner struct {
	mu       sync.Mutex
	label    string
	state    SpinnerState
	frame    int
	started  time.Time
	output   func(string)
	animated bool
	drawn    int // visible width of the frame currently on screen

	stop chan struct{}
	done chan struct{}
}

// NewSpinner returns a pending spinner writing to stdout.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label:    label,
		output:   func(s string) { fmt.Print(s) },
		animated: true,
	}
}

// SetOutput redirects everything the spinner draws.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
}

// SetAnimated turns the animation off for outputs that aren't terminals.
// Only the final line is written then.
func (s *Spinner) SetAnimated(animated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animated = animated
}

// Start marks the step in progress and, when animated, starts drawing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SpinnerInProgress {
		return
	}
	s.state = SpinnerInProgress
	s.started = time.Now()
	if !s.animated {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.drawLocked()
	go s.animate(s.stop, s.done)
}

// Stop halts the animation without changing state.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Clear stops the animation and erases the spinner line, leaving the
// cursor at the start of an empty line. Used before prompting.
func (s *Spinner) Clear() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseLocked()
}

// Success ends the step with a success line.
func (s *Spinner) Success() {
	s.finish(SpinnerSuccess)
}

// Fail ends the step with a failure line.
func (s *Spinner) Fail() {
	s.finish(SpinnerFailed)
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// SetLabel changes the label; the final line uses the latest one.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) drawLocked() {
	s.eraseLocked()
	plain := spinnerFrames[s.frame] + " " + s.label + "..."
	s.output(InfoStyle().Render(spinnerFrames[s.frame]) + " " + s.label + "...")
	s.drawn = len([]rune(plain))
}

func (s *Spinner) eraseLocked() {
	if s.drawn == 0 {
		return
	}
	s.output("\r" + strings.Repeat(" ", s.drawn) + "\r")
	s.drawn = 0
}

func (s *Spinner) finish(state SpinnerState) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.eraseLocked()

	symbol := SuccessStyle().Render(SymbolComplete)
	if state == SpinnerFailed {
		symbol = ErrorStyle().Render(SymbolFail)
	}
	var elapsed time.Duration
	if !s.started.IsZero() {
		elapsed = time.Since(s.started)
	}
	s.output(fmt.Sprintf("%s %s %s\n", symbol, s.label, MutedStyle().Render(formatDuration(elapsed))))
}

// formatDuration renders short step timings, e.g. "0.05s" or "1.2s".
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
