package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF") // Cyan, primary accent
	colorAccent     = lipgloss.Color("#FFD700") // Gold, warnings
	colorSuccess    = lipgloss.Color("#00E676") // Green, completed
	colorDanger     = lipgloss.Color("#FF5252") // Red, errors
	colorMuted      = lipgloss.Color("#636363") // Gray, de-emphasized
	colorMutedLight = lipgloss.Color("#8C8C8C") // Lighter gray, normal text
	colorWhite      = lipgloss.Color("#EEEEEE") // Off-white, primary text
	colorSurface    = lipgloss.Color("#1E1E2E") // Dark surface, status bar bg
	colorBlue       = lipgloss.Color("#5B8DEF") // Blue, working
)

// Status icons for stage states.
const (
	iconDone    = "✓"
	iconFailed  = "✗"
	iconWarn    = "!"
	iconWaiting = "·"
)

// Status bar styles.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	styleStatusLabel = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleStatusValue = lipgloss.NewStyle().
				Foreground(colorWhite)
)

// Stage row styles.
var (
	styleRowNormal = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleRowDone = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleRowWorking = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	styleRowFailed = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleDetail = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Log line styles.
var (
	styleWarn  = lipgloss.NewStyle().Foreground(colorAccent)
	styleError = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	styleInfo  = lipgloss.NewStyle().Foreground(colorMutedLight)
	styleHint  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
)
