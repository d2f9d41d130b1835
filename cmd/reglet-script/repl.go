package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/host"
	"golang.org/x/term"
)

const continuationPrompt = "... "

// consoleWriter lets the interactive terminal take over output that was
// wired to stdout and stderr before it started.
type consoleWriter struct {
	out      io.Writer
	errOut   io.Writer
	terminal io.Writer
}

type consoleStream struct {
	c     *consoleWriter
	isErr bool
}

func (s consoleStream) Write(p []byte) (int, error) {
	switch {
	case s.c.terminal != nil:
		return s.c.terminal.Write(p)
	case s.isErr:
		return s.c.errOut.Write(p)
	default:
		return s.c.out.Write(p)
	}
}

// Out returns the stream for regular output.
func (c *consoleWriter) Out() io.Writer { return consoleStream{c: c} }

// Err returns the stream for errors and diagnostics.
func (c *consoleWriter) Err() io.Writer { return consoleStream{c: c, isErr: true} }

// repl reads commands until end of input. A terminal gets line editing;
// other input is read line by line.
func repl(ctx context.Context, interp *host.Interpreter, stdin io.Reader, console *consoleWriter) error {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return terminalREPL(ctx, interp, f, console)
	}

	scanner := bufio.NewScanner(stdin)
	var buf strings.Builder
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if cmd, ok := accumulate(&buf, scanner.Text()); ok && cmd != "" {
			evaluate(ctx, interp, cmd, console.Out())
		}
	}
	if rest := strings.TrimSpace(buf.String()); rest != "" {
		evaluate(ctx, interp, rest, console.Out())
	}
	return scanner.Err()
}

func terminalREPL(ctx context.Context, interp *host.Interpreter, f *os.File, console *consoleWriter) error {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState) //nolint:errcheck

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, console.out}, interp.GetPrompt())
	if width, height, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(width, height)
	}
	console.terminal = t
	defer func() { console.terminal = nil }()

	fmt.Fprintln(t, interp.GetStartupMessage())

	var buf strings.Builder
	for ctx.Err() == nil {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		cmd, ok := accumulate(&buf, line)
		if !ok {
			t.SetPrompt(continuationPrompt)
			continue
		}
		t.SetPrompt(interp.GetPrompt())
		switch cmd {
		case "":
			continue
		case ".exit":
			return nil
		}
		evaluate(ctx, interp, cmd, t)
	}
	return nil
}

// accumulate appends line to buf and returns the buffered command once it
// parses as complete input. Blank input completes as "".
func accumulate(buf *strings.Builder, line string) (string, bool) {
	buf.WriteString(line)
	buf.WriteByte('\n')
	src := buf.String()
	if strings.TrimSpace(src) == "" {
		buf.Reset()
		return "", true
	}
	if incomplete(src) {
		return "", false
	}
	buf.Reset()
	return strings.TrimSpace(src), true
}

// incomplete reports whether src ends inside an unfinished construct.
func incomplete(src string) bool {
	_, err := goja.Compile("", src, false)
	return err != nil && strings.Contains(err.Error(), "Unexpected end of input")
}

func evaluate(ctx context.Context, interp *host.Interpreter, cmd string, w io.Writer) {
	if !interp.ExecuteCommand(ctx, cmd) {
		return
	}
	if v := interp.LastValue(); v != "" {
		fmt.Fprintln(w, v)
	}
}
