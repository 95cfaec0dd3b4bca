// Package ui provides terminal color themes and lipgloss styles shared by
// the CLI presenter and error reporting. Themes honor the NO_COLOR
// environment variable and the --no-color flag.
package ui
