package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	historyFileName = ".peerctl_history"
	historySize     = 500
)

// lineEditor reads console input with readline on a terminal and with a
// plain scanner otherwise.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineEditor(in io.Reader, out io.Writer) *lineEditor {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) && os.Getenv("INSIDE_EMACS") == "" {
		rl, err := readline.NewFromConfig(&readline.Config{
			HistoryFile:            historyPath(),
			HistoryLimit:           historySize,
			DisableAutoSaveHistory: true,
		})
		if err == nil {
			return &lineEditor{rl: rl, out: out}
		}
		fmt.Fprintf(os.Stderr, "readline unavailable (%v), using basic input\n", err)
	}
	return &lineEditor{scanner: bufio.NewScanner(in), out: out}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}

// ReadLine returns the next input line, or io.EOF at end of input or on
// Ctrl-C.
func (e *lineEditor) ReadLine(prompt string) (string, error) {
	if e.rl == nil {
		fmt.Fprint(e.out, prompt)
		if !e.scanner.Scan() {
			if err := e.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return e.scanner.Text(), nil
	}

	e.rl.SetPrompt(prompt)
	line, err := e.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		_ = e.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

// Stdout returns the writer output should go to so it does not garble the
// prompt being edited.
func (e *lineEditor) Stdout() io.Writer {
	if e.rl != nil {
		return e.rl.Stdout()
	}
	return e.out
}

func (e *lineEditor) Close() {
	if e.rl != nil {
		e.rl.Close()
		e.rl = nil
	}
}
