package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (c *capture) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.WriteString(s)
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Testing")
	assert.Equal(t, "Testing", s.Label())
	assert.Equal(t, SpinnerPending, s.State())
}

func TestSpinnerStartStop(t *testing.T) {
	var out capture
	s := NewSpinner("Test")
	s.SetOutput(out.write)

	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	// Stop doesn't change state
	assert.Equal(t, SpinnerInProgress, s.State())
	assert.Contains(t, out.String(), "Test...")
}

func TestSpinnerFinalStates(t *testing.T) {
	withProfile(t, termenv.Ascii)

	tests := []struct {
		name   string
		finish func(*Spinner)
		state  SpinnerState
		symbol string
	}{
		{"success", (*Spinner).Success, SpinnerSuccess, SymbolComplete},
		{"fail", (*Spinner).Fail, SpinnerFailed, SymbolFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out capture
			s := NewSpinner("Connecting to example.com")
			s.SetOutput(out.write)

			s.Start()
			time.Sleep(20 * time.Millisecond)
			tt.finish(s)

			assert.Equal(t, tt.state, s.State())
			assert.Contains(t, out.String(), tt.symbol+" Connecting to example.com")
			assert.True(t, strings.HasSuffix(out.String(), "\n"))
		})
	}
}

func TestSpinnerNotAnimated(t *testing.T) {
	withProfile(t, termenv.Ascii)

	var out capture
	s := NewSpinner("Generating keys")
	s.SetOutput(out.write)
	s.SetAnimated(false)

	s.Start()
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, out.String(), "nothing is drawn until the spinner finishes")

	s.SetLabel("Generated keys")
	s.Success()

	got := out.String()
	assert.True(t, strings.HasPrefix(got, SymbolComplete+" Generated keys "), got)
	assert.NotContains(t, got, "\r")
}

func TestSpinnerClear(t *testing.T) {
	var out capture
	s := NewSpinner("Connecting")
	s.SetOutput(out.write)

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Clear()

	got := out.String()
	assert.True(t, strings.HasSuffix(got, "\r"), "clear leaves the cursor at line start")

	// Clearing twice writes nothing more.
	before := len(out.String())
	s.Clear()
	assert.Equal(t, before, len(out.String()))
}

func TestSpinnerFinishWithoutStart(t *testing.T) {
	withProfile(t, termenv.Ascii)

	var out capture
	s := NewSpinner("Nothing to do")
	s.SetOutput(out.write)
	s.Fail()

	assert.Equal(t, SymbolFail+" Nothing to do 0.00s\n", out.String())
}

func TestSpinnerDoubleStartStop(t *testing.T) {
	s := NewSpinner("Test")
	s.SetOutput(func(_ string) {})

	s.Start()
	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())

	s.Stop()
	s.Stop()
	assert.Equal(t, SpinnerInProgress, s.State())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "0.00s"},
		{50 * time.Millisecond, "0.05s"},
		{100 * time.Millisecond, "0.1s"},
		{1500 * time.Millisecond, "1.5s"},
		{10 * time.Second, "10.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.duration))
		})
	}
}

func TestSpinnerConcurrentAccess(t *testing.T) {
	s := NewSpinner("Test")
	s.SetOutput(func(_ string) {})
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.State()
			_ = s.Label()
			s.SetLabel("Test")
		}()
	}
	wg.Wait()
	s.Success()

	require.Equal(t, SpinnerSuccess, s.State())
}
