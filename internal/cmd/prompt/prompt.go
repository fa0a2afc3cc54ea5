// Package prompt implements the interactive console questions the check
// command asks: per-issue fix confirmations and the folder fallback when no
// usable path was given on the command line.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks line-oriented questions on a reader/writer pair, normally
// stdin/stdout.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// New creates a Prompter over the given streams.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(in), out: out}
}

// Default returns a Prompter on stdin/stdout.
func Default() *Prompter {
	return New(os.Stdin, os.Stdout)
}

// Confirm shows the issue being decided, asks question, and reads a yes/no
// answer. Anything other than y/yes declines; a read error declines too.
func (p *Prompter) Confirm(issue, question string) bool {
	fmt.Fprintln(p.out, issue)
	fmt.Fprintf(p.out, "%s ", question)

	response, err := p.reader.ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Ask asks a bare yes/no question with no issue context.
func (p *Prompter) Ask(question string) bool {
	fmt.Fprintf(p.out, "%s ", question)

	response, err := p.reader.ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Line prints the question and returns one trimmed input line. Windows
// explorer drag-and-drop wraps paths in double quotes; those are stripped.
func (p *Prompter) Line(question string) (string, error) {
	fmt.Fprintf(p.out, "%s ", question)

	response, err := p.reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.Trim(strings.TrimSpace(response), `"`), nil
}

// Acknowledge prints the message and waits for Enter, keeping the console
// window open when the binary was launched by double-click.
func (p *Prompter) Acknowledge(message string) {
	fmt.Fprintf(p.out, "%s ", message)
	_, _ = p.reader.ReadString('\n')
}
