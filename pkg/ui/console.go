// Package ui implements the interactive surface of the tool: user-facing
// notices, the strict yes/no prompt, and the confirmation gate that previews
// commands before anything mutating runs.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Canonical consent tokens. Matching is exact and case-sensitive; anything
// else reprompts.
const (
	Yes = "Yes"
	No  = "No"
)

const sudoPrefix = "sudo "

type lineResult struct {
	line string
	err  error
}

// Console reads prompt answers from one input stream and writes everything
// user-facing to one output stream. Interactive child processes share the
// same input stream, so the console must never hold an outstanding read
// between prompts: the reader goroutine reads only while a prompt is armed,
// one byte at a time, so a delivered line is all a prompt ever consumes and
// everything after it stays in the stream for whoever reads next.
type Console struct {
	out io.Writer
	in  io.Reader

	startOnce sync.Once
	arm       chan struct{}
	lines     chan lineResult

	// outstanding is true while an armed read has not delivered its line,
	// which survives a prompt abandoned by cancellation. Prompts are issued
	// sequentially, so no lock guards it.
	outstanding bool
}

// NewConsole creates a console over the given streams. The input reader
// goroutine starts lazily on the first prompt and sits idle between prompts.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		out:   out,
		in:    in,
		arm:   make(chan struct{}),
		lines: make(chan lineResult, 1),
	}
}

// Say writes a user-facing line to the console.
func (c *Console) Say(format string, a ...any) {
	fmt.Fprintf(c.out, format+"\n", a...)
}

// readOneLine reads up to and including one newline, byte by byte. No
// read-ahead: bytes after the newline are left unread in the stream.
func readOneLine(r io.Reader) lineResult {
	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n > 0 {
			if b[0] == '\n' {
				return lineResult{line: strings.TrimSuffix(string(buf), "\r")}
			}
			buf = append(buf, b[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return lineResult{line: string(buf)}
			}
			return lineResult{err: err}
		}
	}
}

// readLine blocks until a line of input arrives or the context is cancelled.
// A read abandoned by a cancelled prompt stays outstanding until the user
// types its line; that line then answers the next prompt instead of leaking
// to a child process.
func (c *Console) readLine(ctx context.Context) (string, error) {
	c.startOnce.Do(func() {
		go func() {
			for range c.arm {
				c.lines <- readOneLine(c.in)
			}
		}()
	})

	if !c.outstanding {
		// The reader goroutine is parked on arm whenever no read is
		// outstanding, so this send cannot block.
		c.arm <- struct{}{}
		c.outstanding = true
	}

	select {
	case res := <-c.lines:
		c.outstanding = false
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Ask blocks on a strict yes/no prompt, reprompting with a corrective
// message until one of the two canonical tokens is entered exactly.
func (c *Console) Ask(ctx context.Context, prompt string) (bool, error) {
	yesOrNo := fmt.Sprintf("'%s' or '%s'", Green(Yes), Red(No))
	for {
		fmt.Fprintf(c.out, "%s (%s): ", prompt, yesOrNo)
		input, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch input {
		case Yes:
			return true, nil
		case No:
			return false, nil
		}
		c.Say("\t%s", Yellow("Please type "+yesOrNo))
	}
}

// AskContinue blocks until the user acknowledges with Enter.
func (c *Console) AskContinue(ctx context.Context) error {
	fmt.Fprintf(c.out, "Press %s when you are ready: ", Green("Enter"))
	_, err := c.readLine(ctx)
	return err
}

// ConfirmExecution previews every command about to run and requires explicit
// consent before any of them executes. Comment lines render de-emphasized
// and are not actionable steps; a privilege-escalation prefix renders
// visually distinguished. An empty command set auto-approves without
// prompting: nothing to confirm is success.
func (c *Console) ConfirmExecution(ctx context.Context, commands []string) (bool, error) {
	if len(commands) == 0 {
		return true, nil
	}

	var preview strings.Builder
	preview.WriteString("Those commands will be executed:\n")
	for _, command := range commands {
		switch {
		case strings.HasPrefix(strings.TrimSpace(command), "#"):
			fmt.Fprintf(&preview, "\t%s\n", Grey(command))
		case strings.HasPrefix(strings.TrimSpace(command), sudoPrefix):
			rest := strings.Replace(command, sudoPrefix, "", 1)
			fmt.Fprintf(&preview, "\t%s %s\n", Yellow("sudo"), rest)
		default:
			fmt.Fprintf(&preview, "\t%s\n", command)
		}
	}
	preview.WriteString("\nDo you want to execute them?")

	return c.Ask(ctx, preview.String())
}
