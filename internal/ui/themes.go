package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines a color scheme for UI output.
// Each field contains an ANSI escape code for the corresponding color category.
type Theme struct {
	// Name is the identifier of the theme.
	Name string
	// Primary is the main accent color for important elements.
	Primary string
	// Secondary is used for less prominent elements.
	Secondary string
	// Success indicates positive outcomes or completed operations.
	Success string
	// Warning is used for caution messages or non-critical issues.
	Warning string
	// Error indicates failures or critical issues.
	Error string
	// Info is used for informational messages.
	Info string
	// Bold is the escape code for bold text.
	Bold string
	// Underline is the escape code for underlined text.
	Underline string
	// Reset clears all formatting.
	Reset string
}

var (
	// DarkTheme is optimized for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "\033[38;5;39m",  // Bright blue
		Secondary: "\033[38;5;245m", // Grey
		Success:   "\033[38;5;82m",  // Bright green
		Warning:   "\033[38;5;220m", // Yellow
		Error:     "\033[38;5;196m", // Red
		Info:      "\033[38;5;141m", // Purple
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
	}

	// LightTheme is optimized for light terminal backgrounds.
	LightTheme = Theme{
		Name:      "light",
		Primary:   "\033[38;5;27m",  // Dark blue
		Secondary: "\033[38;5;240m", // Dark grey
		Success:   "\033[38;5;28m",  // Dark green
		Warning:   "\033[38;5;130m", // Orange
		Error:     "\033[38;5;124m", // Dark red
		Info:      "\033[38;5;54m",  // Dark purple
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
	}

	// NoColorTheme disables all color output.
	// Used when NO_COLOR is set or --no-color flag is provided.
	NoColorTheme = Theme{Name: "none"}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the currently active theme in a thread-safe manner.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme sets the currently active theme in a thread-safe manner.
// This is primarily used for testing purposes to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme changes the active theme by name.
// Valid names are: "dark", "light", "none". Unknown names default to dark.
func SetTheme(name string) {
	themeMutex.Lock()
	defer themeMutex.Unlock()

	switch name {
	case "light":
		currentTheme = LightTheme
	case "none":
		currentTheme = NoColorTheme
	default:
		currentTheme = DarkTheme
	}
}

// InitTheme initializes the theme based on the noColor flag and environment.
// It respects the NO_COLOR environment variable (https://no-color.org/).
// If noColor is true or NO_COLOR is set, colors are disabled.
func InitTheme(noColor bool) {
	themeMutex.Lock()
	defer themeMutex.Unlock()

	if noColor {
		currentTheme = NoColorTheme
		return
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		currentTheme = NoColorTheme
		return
	}
	currentTheme = DarkTheme
}

// ColorReset returns the escape code clearing all formatting.
func ColorReset() string { return GetCurrentTheme().Reset }

// ColorRed returns the error color.
func ColorRed() string { return GetCurrentTheme().Error }

// ColorGreen returns the success color.
func ColorGreen() string { return GetCurrentTheme().Success }

// ColorYellow returns the warning color.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorBlue returns the primary color.
func ColorBlue() string { return GetCurrentTheme().Primary }

// ColorMagenta returns the info color.
func ColorMagenta() string { return GetCurrentTheme().Info }

// ColorCyan returns the secondary color.
func ColorCyan() string { return GetCurrentTheme().Secondary }

// ColorBold returns the bold escape code.
func ColorBold() string { return GetCurrentTheme().Bold }

// ColorUnderline returns the underline escape code.
func ColorUnderline() string { return GetCurrentTheme().Underline }

// TableStyles groups the lipgloss styles used to render the verbose
// worker report table.
type TableStyles struct {
	Box    lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Error  lipgloss.Style
}

// CurrentTableStyles returns table styles matching the active theme.
// With NoColorTheme the styles keep their layout but drop all colors.
func CurrentTableStyles() TableStyles {
	var accent, text, failure lipgloss.TerminalColor = lipgloss.NoColor{}, lipgloss.NoColor{}, lipgloss.NoColor{}
	switch GetCurrentTheme().Name {
	case "none":
	case "light":
		accent, text, failure = lipgloss.Color("27"), lipgloss.Color("236"), lipgloss.Color("124")
	default:
		accent, text, failure = lipgloss.Color("39"), lipgloss.Color("252"), lipgloss.Color("196")
	}
	return TableStyles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Header: lipgloss.NewStyle().Bold(true).Foreground(accent).PaddingRight(2),
		Cell:   lipgloss.NewStyle().Foreground(text).PaddingRight(2),
		Error:  lipgloss.NewStyle().Foreground(failure).PaddingRight(2),
	}
}
