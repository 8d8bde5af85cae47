package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

// withProfile forces a lipgloss color profile for the duration of a test.
func withProfile(t *testing.T, p termenv.Profile) {
	t.Helper()
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(p)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
}

func TestSemanticColorsExist(t *testing.T) {
	tests := []struct {
		name  string
		color lipgloss.Color
	}{
		{"ColorSuccess", ColorSuccess},
		{"ColorError", ColorError},
		{"ColorWarning", ColorWarning},
		{"ColorInfo", ColorInfo},
		{"ColorPrimary", ColorPrimary},
		{"ColorSecondary", ColorSecondary},
		{"ColorMuted", ColorMuted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, string(tt.color), "%s should not be empty", tt.name)
		})
	}
}

func TestSetColorEnabled(t *testing.T) {
	withProfile(t, termenv.ANSI)

	SetColorEnabled(false)
	assert.False(t, ColorEnabled())
	assert.Equal(t, "ok", SuccessStyle().Render("ok"))
	assert.Equal(t, "bad", ErrorStyle().Render("bad"))
}

func TestStylesEmitColor(t *testing.T) {
	withProfile(t, termenv.ANSI)

	assert.True(t, ColorEnabled())
	assert.Contains(t, SuccessStyle().Render("ok"), "\x1b[")
	assert.Contains(t, WarningStyle().Render("hm"), "\x1b[")
}

func TestWantColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	assert.False(t, WantColor(false), "NO_COLOR set to anything disables color")

	t.Run("flag wins", func(t *testing.T) {
		assert.False(t, WantColor(true))
	})
}
