package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/brynhild/brynhild/pkg/models"
	"github.com/brynhild/brynhild/pkg/provider"
	"github.com/brynhild/brynhild/pkg/renderer"
)

// termRenderer writes a turn's stream to a terminal as it arrives and
// prompts for tool permission on stdin when connected to a TTY. When
// stdin isn't a TTY (piped input, -p mode) it denies every
// permission-gated tool rather than blocking on a prompt nobody can answer.
type termRenderer struct {
	out        io.Writer
	in         *bufio.Reader
	interactive bool
	cancelled  func() bool
}

func newTermRenderer(cancelled func() bool) *termRenderer {
	return &termRenderer{
		out:         os.Stdout,
		in:          bufio.NewReader(os.Stdin),
		interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
		cancelled:   cancelled,
	}
}

var _ renderer.Callbacks = (*termRenderer)(nil)

func (r *termRenderer) OnStreamStart() {}

func (r *termRenderer) OnThinkingDelta(delta string) {
	fmt.Fprint(r.out, delta)
}

func (r *termRenderer) OnThinkingComplete(string) {
	fmt.Fprintln(r.out)
}

func (r *termRenderer) OnTextDelta(delta string) {
	fmt.Fprint(r.out, delta)
}

func (r *termRenderer) OnTextComplete(string) {
	fmt.Fprintln(r.out)
}

func (r *termRenderer) OnToolCall(tc models.ToolCall) {
	fmt.Fprintf(r.out, "\n> %s(%s)\n", tc.Name, string(tc.Input))
}

func (r *termRenderer) OnToolResult(tc models.ToolCall, result models.ToolResult) {
	if result.Success {
		fmt.Fprintf(r.out, "%s\n", result.Output)
		return
	}
	fmt.Fprintf(r.out, "error: %s\n", result.Error)
}

func (r *termRenderer) OnUsageUpdate(provider.Usage) {}

func (r *termRenderer) RequestToolPermission(tc models.ToolCall) bool {
	if !r.interactive {
		return false
	}
	fmt.Fprintf(r.out, "Allow %s to run with input %s? [y/N] ", tc.Name, string(tc.Input))
	line, _ := r.in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (r *termRenderer) IsCancelled() bool {
	if r.cancelled == nil {
		return false
	}
	return r.cancelled()
}
