package shell

// Defined loosely by
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html

/**
Of the POSIX shell grammar only the pieces job control needs are accepted:

1. The input line is broken into words on whitespace. There is no quoting,
escaping, globbing or expansion; operators must stand alone as words.

2. Words are grouped into a pipeline: simple commands separated by `|`. A
trailing standalone `&` runs the pipeline asynchronously.

3. Redirections `<`, `>` and `>>` are removed from the argument list of the
command they appear in. Input may only be redirected on the first command and
output only on the last.

4. The whole line is checked before anything runs; a line that fails the check
is rejected as a unit.
**/

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommand is returned for any syntax or argument count violation.
var ErrInvalidCommand = errors.New("invalid command")

const (
	OpPipe       = "|"
	OpInput      = "<"
	OpOutput     = ">"
	OpAppend     = ">>"
	OpBackground = "&"
)

// Redirect is an output redirection target.
type Redirect struct {
	Path   string
	Append bool
}

// Stage is a single command of a pipeline.
type Stage struct {
	// Argv holds the program name followed by its arguments.
	Argv []string
	// Stdin is the input redirection path, empty if the stage reads from the
	// pipe or terminal.
	Stdin string
	// Stdout is the output redirection, nil if the stage writes to the pipe or
	// terminal.
	Stdout *Redirect
}

// Pipeline is a validated line of input.
type Pipeline struct {
	Stages     []Stage
	Background bool
	// Text is the input line the pipeline was parsed from.
	Text string
}

// Parser turns lines into pipelines. Builtins maps the name of each shell
// builtin to the exact number of words (name included) it accepts.
type Parser struct {
	Builtins map[string]int
}

// Tokenize splits a line into whitespace separated words.
func Tokenize(line string) []string {
	return strings.Fields(line)
}

// Parse tokenizes, validates and splits line. The returned error wraps
// ErrInvalidCommand.
func (p *Parser) Parse(line string) (*Pipeline, error) {
	tokens := Tokenize(line)

	background := false
	if n := len(tokens); n > 0 && tokens[n-1] == OpBackground {
		background = true
		tokens = tokens[:n-1]
	}

	if err := p.Validate(tokens); err != nil {
		return nil, err
	}

	out := &Pipeline{
		Background: background,
		Text:       line,
	}
	for _, words := range splitStages(tokens) {
		out.Stages = append(out.Stages, buildStage(words))
	}
	return out, nil
}

// IsBuiltin reports whether the pipeline is a single builtin invocation.
func (p *Parser) IsBuiltin(pipeline *Pipeline) bool {
	if len(pipeline.Stages) != 1 {
		return false
	}
	_, ok := p.Builtins[pipeline.Stages[0].Argv[0]]
	return ok
}

// Validate checks a token sequence (without the trailing `&`) without side
// effects.
func (p *Parser) Validate(tokens []string) error {
	if len(tokens) == 0 {
		return invalid("empty command")
	}

	stages := splitStages(tokens)
	last := len(stages) - 1
	for i, words := range stages {
		if len(words) == 0 {
			return invalid("empty pipeline stage %d", i+1)
		}

		inputs, outputs := 0, 0
		program := ""
		for j := 0; j < len(words); j++ {
			word := words[j]
			if word == OpBackground {
				return invalid("%q is only allowed at the end of a line", word)
			}
			if !isRedirect(word) {
				if program == "" {
					program = word
				}
				continue
			}

			if j+1 >= len(words) || isOperator(words[j+1]) || words[j+1] == OpBackground {
				return invalid("%q has no target", word)
			}

			if word == OpInput {
				inputs++
				if inputs > 1 || i != 0 {
					return invalid("input redirection outside the first command")
				}
			} else {
				outputs++
				if outputs > 1 || i != last {
					return invalid("output redirection outside the last command")
				}
			}
			j++ // skip the target
		}

		if program == "" {
			return invalid("stage %d has no program", i+1)
		}

		if want, ok := p.Builtins[program]; ok {
			if len(stages) > 1 {
				return invalid("builtin %q in a pipeline", program)
			}
			for _, word := range words {
				if isOperator(word) {
					return invalid("builtin %q with redirection", program)
				}
			}
			if len(words) != want {
				return invalid("builtin %q takes %d argument(s)", program, want-1)
			}
		}
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidCommand, fmt.Sprintf(format, args...))
}

// splitStages splits on `|`, keeping empty stages so they can be rejected.
func splitStages(tokens []string) [][]string {
	var out [][]string
	start := 0
	for i, tok := range tokens {
		if tok == OpPipe {
			out = append(out, tokens[start:i])
			start = i + 1
		}
	}
	return append(out, tokens[start:])
}

func buildStage(words []string) Stage {
	var stage Stage
	for i := 0; i < len(words); i++ {
		switch words[i] {
		case OpInput:
			stage.Stdin = words[i+1]
			i++
		case OpOutput, OpAppend:
			stage.Stdout = &Redirect{Path: words[i+1], Append: words[i] == OpAppend}
			i++
		default:
			stage.Argv = append(stage.Argv, words[i])
		}
	}
	return stage
}

func isRedirect(word string) bool {
	return word == OpInput || word == OpOutput || word == OpAppend
}

func isOperator(word string) bool {
	return word == OpPipe || isRedirect(word)
}
