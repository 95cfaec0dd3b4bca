package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/agbru/factorcalc/internal/config"
	apperrors "github.com/agbru/factorcalc/internal/errors"
	"github.com/agbru/factorcalc/internal/ui"
)

// Prompts shown for the three search inputs, in the order they are asked.
const (
	PromptNumber  = "Enter a natural number:"
	PromptThreads = "Enter the desired number of threads:"
	PromptChunk   = "Enter the desired chunk size:"
)

// Messages printed before re-prompting.
const (
	MsgNotPositive  = "Error! The number must be greater than 0"
	MsgInvalidInput = "Error! Invalid input"
)

// Prompter reads positive integers interactively. Input is consumed one
// whitespace-separated token at a time, so "36 4 2" on a single line answers
// three prompts.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter creates a Prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	return &Prompter{scanner: scanner, out: out}
}

// ReadPositive prints prompt and reads tokens until one parses as an integer
// greater than zero. Rejected tokens are reported and discarded.
//
// Parameters:
//   - field: The name of the value, used in the error when input runs out.
//   - prompt: The text printed before each attempt.
//
// Returns:
//   - int: The accepted value.
//   - error: A ValidationError wrapping io.EOF (or the read error) when
//     the input ends before a valid value was read.
func (p *Prompter) ReadPositive(field, prompt string) (int, error) {
	for {
		fmt.Fprintln(p.out, prompt)
		if !p.scanner.Scan() {
			cause := p.scanner.Err()
			if cause == nil {
				cause = io.EOF
			}
			return 0, apperrors.ValidationError{Field: field, Message: "input ended before a valid value was entered", Cause: cause}
		}

		n, err := strconv.Atoi(p.scanner.Text())
		switch {
		case err != nil:
			fmt.Fprintf(p.out, "%s%s%s\n", ui.ColorRed(), MsgInvalidInput, ui.ColorReset())
		case n <= 0:
			fmt.Fprintf(p.out, "%s%s%s\n", ui.ColorRed(), MsgNotPositive, ui.ColorReset())
		default:
			return n, nil
		}
	}
}

// PromptMissing asks for every search input left unset in cfg, in the order
// number, threads, chunk size.
func (p *Prompter) PromptMissing(cfg config.AppConfig) (config.AppConfig, error) {
	for _, name := range cfg.MissingInputs() {
		var (
			dst    *int
			prompt string
		)
		switch name {
		case "number":
			dst, prompt = &cfg.N, PromptNumber
		case "threads":
			dst, prompt = &cfg.Threads, PromptThreads
		case "chunk":
			dst, prompt = &cfg.ChunkSize, PromptChunk
		default:
			continue
		}
		v, err := p.ReadPositive(name, prompt)
		if err != nil {
			return cfg, err
		}
		*dst = v
	}
	return cfg, nil
}
