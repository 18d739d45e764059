// Package prompt collects PINs from the interactive user.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// DefaultTimeout is how long a prompt waits for input before giving up.
const DefaultTimeout = 60 * time.Second

// exitWord typed at the prompt asks the whole service to shut down.
const exitWord = "exit"

// Request carries the context shown alongside the PIN prompt.
type Request struct {
	DeviceID          string
	Drive             string
	Label             string
	AttemptsRemaining int

	// LockoutRemaining, when positive, means PIN entry is locked out and
	// the prompt should inform the user instead of reading a PIN.
	LockoutRemaining time.Duration
}

// Response is the outcome of one prompt interaction.
type Response struct {
	PIN       string
	Cancelled bool

	// ExitRequested means the user asked the service itself to stop.
	ExitRequested bool
}

// Prompter requests a PIN from the user.
type Prompter interface {
	RequestPIN(ctx context.Context, req Request) (Response, error)
}

// fdReader is satisfied by *os.File and lets the prompter detect a terminal.
type fdReader interface {
	io.Reader
	Fd() uintptr
}

// TerminalPrompter reads PINs from a terminal with echo disabled. When the
// input is not a terminal (tests, pipes) it falls back to plain line reads.
type TerminalPrompter struct {
	In      io.Reader
	Out     io.Writer
	Timeout time.Duration
}

// RequestPIN prints the device context and reads one PIN. Typing "exit"
// requests service shutdown; EOF or the timeout cancels the prompt.
func (p *TerminalPrompter) RequestPIN(ctx context.Context, req Request) (Response, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	name := req.Label
	if name == "" {
		name = req.Drive
	}
	if name == "" {
		name = req.DeviceID
	}

	if req.LockoutRemaining > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(p.Out, "USB drive %s is locked out.\n", name)
		fmt.Fprintf(p.Out, "Try again in %s.\n", req.LockoutRemaining.Round(time.Second))
		return Response{Cancelled: true}, nil
	}

	color.New(color.FgYellow, color.Bold).Fprintf(p.Out, "USB drive %s locked. Enter PIN.\n", name)
	fmt.Fprintf(p.Out, "Attempts remaining: %d\n", req.AttemptsRemaining)
	fmt.Fprintf(p.Out, "PIN (or %q to stop the service): ", exitWord)

	type readResult struct {
		line string
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := p.readLine()
		ch <- readResult{line, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return Response{Cancelled: true}, ctx.Err()
	case <-timer.C:
		// The blocked read cannot be interrupted; its goroutine is
		// abandoned and the result discarded.
		fmt.Fprintln(p.Out, "\nPrompt timed out.")
		return Response{Cancelled: true}, nil
	case res := <-ch:
		fmt.Fprintln(p.Out)
		if res.err != nil {
			if res.err == io.EOF {
				return Response{Cancelled: true, ExitRequested: true}, nil
			}
			return Response{Cancelled: true}, res.err
		}
		line := strings.TrimSpace(res.line)
		if strings.EqualFold(line, exitWord) {
			return Response{Cancelled: true, ExitRequested: true}, nil
		}
		if line == "" {
			return Response{Cancelled: true}, nil
		}
		return Response{PIN: line}, nil
	}
}

func (p *TerminalPrompter) readLine() (string, error) {
	if f, ok := p.In.(fdReader); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ScriptedPrompter replays canned responses, for tests and headless runs.
type ScriptedPrompter struct {
	Responses []Response

	// Requests records what the prompter was asked, in order.
	Requests []Request
}

func (s *ScriptedPrompter) RequestPIN(_ context.Context, req Request) (Response, error) {
	s.Requests = append(s.Requests, req)
	if len(s.Responses) == 0 {
		return Response{Cancelled: true}, nil
	}
	resp := s.Responses[0]
	s.Responses = s.Responses[1:]
	return resp, nil
}
