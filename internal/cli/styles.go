package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Colors used in terminal output.
var (
	colorAccent  = lipgloss.Color("212") // Pink
	colorMuted   = lipgloss.Color("241") // Gray
	colorGain    = lipgloss.Color("78")  // Green
	colorLoss    = lipgloss.Color("203") // Red
	colorWarning = lipgloss.Color("214") // Orange
)

// styleName renders friend names.
var styleName = lipgloss.NewStyle().Bold(true)

// styleHeading renders section headings.
var styleHeading = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

// styleMuted renders secondary detail like timestamps and fuzziness.
var styleMuted = lipgloss.NewStyle().Foreground(colorMuted)

// styleGain and styleLoss render signed magnitudes and deltas.
var (
	styleGain = lipgloss.NewStyle().Foreground(colorGain)
	styleLoss = lipgloss.NewStyle().Foreground(colorLoss)
)

// styleWarn flags drift and volatile bonds.
var styleWarn = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)

// renderSigned renders a signed value green for gains and red for losses.
func renderSigned(v float64) string {
	s := fmt.Sprintf("%+.2f", v)
	if v < 0 {
		return styleLoss.Render(s)
	}
	return styleGain.Render(s)
}

// renderVolatility renders a volatility band, flagging volatile ones.
func renderVolatility(v string) string {
	if v == "volatile" {
		return styleWarn.Render(v)
	}
	return styleMuted.Render(v)
}
