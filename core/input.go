package core

import (
	"bufio"
	"io"
	"strings"

	"github.com/abiosoft/readline"
)

// lineReader prompts for and reads one line of input at a time.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// readlineReader edits lines on a terminal.
type readlineReader struct {
	rl *readline.Instance
}

func newReadlineReader(stdin io.ReadCloser, stdout, stderr io.Writer) (*readlineReader, error) {
	cfg := &readline.Config{
		Stdin:           readline.NewCancelableStdin(stdin),
		Stdout:          stdout,
		Stderr:          stderr,
		HistoryLimit:    -1,
		InterruptPrompt: "^C",
		EOFPrompt:       "\n", // only the newline

		FuncIsTerminal: func() bool {
			return true
		},

		// Ctrl-Z at the prompt would suspend the shell itself.
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				return r, false
			}
			return r, true
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	return r.rl.Readline()
}

func (r *readlineReader) Close() error {
	return r.rl.Close()
}

// plainReader reads lines from a pipe or file, writing the prompt unchanged.
type plainReader struct {
	in  *bufio.Reader
	out io.Writer
}

func newPlainReader(stdin io.Reader, stdout io.Writer) *plainReader {
	return &plainReader{in: bufio.NewReader(stdin), out: stdout}
}

func (r *plainReader) ReadLine(prompt string) (string, error) {
	if _, err := io.WriteString(r.out, prompt); err != nil {
		return "", err
	}

	line, err := r.in.ReadString('\n')
	if err == io.EOF && line != "" {
		// The last line wasn't terminated.
		err = nil
	}
	if err == io.EOF {
		// readline ends the prompt line at end of input, do the same.
		io.WriteString(r.out, "\n")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *plainReader) Close() error {
	return nil
}
