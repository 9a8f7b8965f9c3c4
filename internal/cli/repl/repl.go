package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Options configures a REPL.
type Options struct {
	In     io.Reader
	Out    io.Writer
	Prompt string

	// Exec runs one parsed command line.
	Exec func(ctx context.Context, args []string) error

	History   *History
	Completer *Completer
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	opts Options
}

// New creates a REPL.
func New(opts Options) *REPL {
	if opts.Prompt == "" {
		opts.Prompt = "tradeguard> "
	}
	if opts.History == nil {
		opts.History = NewHistory("", 0)
	}
	if opts.Completer == nil {
		opts.Completer = NewCompleter(nil)
	}
	return &REPL{opts: opts}
}

// Run reads lines until EOF, exit/quit, or ctx is done.
//
// A line ending in "?" lists the commands that start with the rest of it;
// "history" prints previous lines.
func (r *REPL) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.opts.In)
	out := r.opts.Out

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, r.opts.Prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case line == "exit" || line == "quit":
			return nil
		case line == "history":
			for i, entry := range r.opts.History.Entries() {
				fmt.Fprintf(out, "%4d  %s\n", i+1, entry)
			}
		case strings.HasSuffix(line, "?"):
			for _, s := range r.opts.Completer.Complete(strings.TrimSpace(strings.TrimSuffix(line, "?"))) {
				fmt.Fprintln(out, s)
			}
		default:
			r.opts.History.Add(line)
			r.execute(ctx, line)
		}

		if eof {
			fmt.Fprintln(out)
			return nil
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) {
	args, err := Split(line)
	if err != nil {
		fmt.Fprintf(r.opts.Out, "error: %v\n", err)
		return
	}
	if err := r.opts.Exec(ctx, args); err != nil {
		fmt.Fprintf(r.opts.Out, "error: %v\n", err)
	}
}

// Split breaks a line into arguments. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func Split(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped, inArg = true, true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote, inArg = c, true
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(c)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
