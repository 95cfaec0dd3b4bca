package cli

import (
	"fmt"
	"io"
	"strings"
)

// FlagCompletion describes a CLI flag for shell completion generation.
// All shell completion functions generate from this registry, so adding
// a new flag only requires appending to flagRegistry.
type FlagCompletion struct {
	Long      string   // long flag name without "-" (e.g., "threads")
	Short     string   // short flag without "-" (e.g., "t")
	Help      string   // description text
	Values    []string // suggested completion values (nil = boolean/no suggestions)
	ValueName string   // label for the value in zsh (e.g., "number", "duration")
	IsFile    bool     // true if the flag takes a file path
}

// flagRegistry is the central list of all CLI flags for completion generation.
var flagRegistry = []FlagCompletion{
	{Long: "help", Short: "h", Help: "Show help message"},
	{Long: "version", Short: "V", Help: "Show version information"},
	{Short: "n", Help: "Natural number to factor", ValueName: "number"},
	{Long: "threads", Short: "t", Help: "Number of concurrent workers", Values: []string{"1", "2", "4", "8", "16"}, ValueName: "count"},
	{Long: "chunk", Short: "c", Help: "Candidate divisors per work item", Values: []string{"1", "10", "100", "1000"}, ValueName: "size"},
	{Long: "poll-timeout", Help: "Maximum wait on the work queue", Values: []string{"10ms", "100ms", "1s"}, ValueName: "duration"},
	{Long: "shutdown-timeout", Help: "Maximum wait for all workers", Values: []string{"1m", "10m", "1h"}, ValueName: "duration"},
	{Long: "timeout", Help: "Maximum execution time", Values: []string{"1m", "5m", "10m", "30m", "1h"}, ValueName: "duration"},
	{Long: "verbose", Short: "v", Help: "Show worker report and statistics"},
	{Long: "quiet", Short: "q", Help: "Quiet mode for scripts"},
	{Long: "no-color", Help: "Disable colored output"},
	{Long: "output", Short: "o", Help: "Output file path", IsFile: true, ValueName: "file"},
	{Long: "config", Help: "YAML or JSON configuration file", IsFile: true, ValueName: "file"},
	{Long: "log-level", Help: "Log level", Values: []string{"debug", "info", "warn", "error", "disabled"}, ValueName: "level"},
	{Long: "metrics-addr", Help: "Prometheus listen address", ValueName: "address"},
	{Long: "completion", Help: "Generate completion script", Values: []string{"bash", "zsh", "fish", "powershell"}, ValueName: "shell"},
}

// SupportedShells lists the accepted values of -completion.
var SupportedShells = []string{"bash", "zsh", "fish", "powershell"}

// GenerateCompletion generates a shell completion script for the specified shell.
//
// Parameters:
//   - out: The writer to output the completion script.
//   - shell: The shell type ("bash", "zsh", "fish", "powershell").
//
// Returns:
//   - error: An error if the shell is not supported or the write fails.
func GenerateCompletion(out io.Writer, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion()
	case "zsh":
		script = zshCompletion()
	case "fish":
		script = fishCompletion()
	case "powershell", "ps":
		script = powerShellCompletion()
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: %s)", shell, strings.Join(SupportedShells, ", "))
	}
	if _, err := fmt.Fprint(out, script); err != nil {
		return fmt.Errorf("completion %s generation failed: %w", shell, err)
	}
	return nil
}

// flagNames returns the dash-prefixed spellings of f. The standard flag
// package accepts one or two dashes; completion offers the single-dash form.
func flagNames(f FlagCompletion) []string {
	var names []string
	if f.Long != "" {
		names = append(names, "-"+f.Long)
	}
	if f.Short != "" {
		names = append(names, "-"+f.Short)
	}
	return names
}

func bashCompletion() string {
	var opts []string
	var cases strings.Builder
	for _, f := range flagRegistry {
		names := flagNames(f)
		opts = append(opts, names...)

		var body string
		switch {
		case f.IsFile:
			body = `COMPREPLY=( $(compgen -f -- "${cur}") )`
		case len(f.Values) > 0:
			body = fmt.Sprintf(`COMPREPLY=( $(compgen -W "%s" -- "${cur}") )`, strings.Join(f.Values, " "))
		default:
			continue
		}
		fmt.Fprintf(&cases, "        %s)\n            %s\n            return 0\n            ;;\n", strings.Join(names, "|"), body)
	}

	return fmt.Sprintf(`# Bash completion script for factorcalc
# Add this to your ~/.bashrc or ~/.bash_completion

_factorcalc_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    opts="%s"

    case "${prev}" in
%s    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
        return 0
    fi
}

complete -F _factorcalc_completions factorcalc
`, strings.Join(opts, " "), cases.String())
}

func zshCompletion() string {
	var args []string
	for _, f := range flagRegistry {
		args = append(args, zshArgEntry(f))
	}
	return fmt.Sprintf(`#compdef factorcalc

# Zsh completion script for factorcalc
# Add this to your ~/.zshrc or place in $fpath

_factorcalc() {
    _arguments -s \
%s
}

_factorcalc "$@"
`, strings.Join(args, " \\\n"))
}

// zshArgEntry formats a single FlagCompletion as a zsh _arguments entry.
func zshArgEntry(f FlagCompletion) string {
	valueSuffix := ""
	switch {
	case f.IsFile:
		valueSuffix = fmt.Sprintf(":%s:_files", f.ValueName)
	case len(f.Values) > 0:
		valueSuffix = fmt.Sprintf(":%s:(%s)", f.ValueName, strings.Join(f.Values, " "))
	case f.ValueName != "":
		// Value-taking flag with no suggestions (e.g., -n)
		valueSuffix = fmt.Sprintf(":%s:", f.ValueName)
	}

	if f.Long != "" && f.Short != "" {
		return fmt.Sprintf("        '(-%s -%s)'{-%s,-%s}'[%s]%s'",
			f.Short, f.Long, f.Short, f.Long, f.Help, valueSuffix)
	}
	name := f.Long
	if name == "" {
		name = f.Short
	}
	return fmt.Sprintf("        '-%s[%s]%s'", name, f.Help, valueSuffix)
}

func fishCompletion() string {
	lines := []string{
		"# Fish completion script for factorcalc",
		"# Add this to ~/.config/fish/completions/factorcalc.fish",
		"",
		"# Disable file completion by default",
		"complete -c factorcalc -f",
		"",
	}
	for _, f := range flagRegistry {
		lines = append(lines, fishCompleteLine(f))
	}
	return strings.Join(lines, "\n") + "\n"
}

// fishCompleteLine formats a single FlagCompletion as a fish complete command.
// Go flags are single-dash, so every name is declared with -o.
func fishCompleteLine(f FlagCompletion) string {
	parts := []string{"complete -c factorcalc"}
	if f.Short != "" {
		parts = append(parts, "-o "+f.Short)
	}
	if f.Long != "" {
		parts = append(parts, "-o "+f.Long)
	}
	parts = append(parts, fmt.Sprintf("-d '%s'", f.Help))

	switch {
	case f.IsFile:
		parts = append(parts, "-rF")
	case len(f.Values) > 0:
		parts = append(parts, fmt.Sprintf("-xa '%s'", strings.Join(f.Values, " ")))
	case f.ValueName != "":
		parts = append(parts, "-x")
	}
	return strings.Join(parts, " ")
}

func powerShellCompletion() string {
	var options, switches []string
	for _, f := range flagRegistry {
		for _, name := range flagNames(f) {
			options = append(options, fmt.Sprintf("        @{Name = '%s'; Description = '%s' }", name, f.Help))
		}
		if len(f.Values) == 0 {
			continue
		}
		quoted := make([]string, len(f.Values))
		for i, v := range f.Values {
			quoted[i] = fmt.Sprintf("'%s'", v)
		}
		for _, name := range flagNames(f) {
			switches = append(switches, fmt.Sprintf(`        '%s' {
            @(%s) | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }`, name, strings.Join(quoted, ", ")))
		}
	}

	return fmt.Sprintf(`# PowerShell completion script for factorcalc
# Add this to your $PROFILE

Register-ArgumentCompleter -CommandName 'factorcalc' -Native -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $options = @(
%s
    )

    $elements = $commandAst.CommandElements
    $prevElement = if ($elements.Count -gt 2) { $elements[-2].ToString() } else { '' }

    switch ($prevElement) {
%s
    }

    $options | Where-Object { $_.Name -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)
    }
}
`, strings.Join(options, "\n"), strings.Join(switches, "\n"))
}
