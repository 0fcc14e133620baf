// Package maincmd implements the command-line surface of the interpreter:
// flag parsing, opening of the source and input files, and the mapping of
// every failure to its process exit code.
package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/ippi/lang/ipperr"
	"github.com/mna/ippi/lang/loader"
	"github.com/mna/ippi/lang/machine"
	"github.com/mna/mainer"
)

const binName = "ippi"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [--source <path>] [--input <path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [--source <path>] [--input <path>]
       %[1]s -h|--help
       %[1]s -v|--version

Interpreter for the XML form of IPPcode23 programs. The program document
is read from --source and the input stream consumed by READ instructions
from --input. At least one of the two must be provided; the other defaults
to standard input.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --source <path>           Path of the source program document.
       --input <path>            Path of the input stream for READ.

The process exit code is the EXIT code of the interpreted program (0 when
execution reaches the end of the program), or the code of the load or
run-time error that terminated it.
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Source string `flag:"source"`
	Input  string `flag:"input"`

	args []string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.ExitCode(ipperr.MissingParam)
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	if len(c.args) > 0 {
		fmt.Fprintf(stdio.Stderr, "unexpected arguments: %v\n%s", c.args, shortUsage)
		return mainer.ExitCode(ipperr.MissingParam)
	}
	if c.Source == "" && c.Input == "" {
		fmt.Fprintf(stdio.Stderr, "at least one of --source or --input must be provided\n%s", shortUsage)
		return mainer.ExitCode(ipperr.MissingParam)
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	status, err := c.run(ctx, stdio)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		if code := ipperr.CodeOf(err, 0); code != ipperr.Ok {
			return mainer.ExitCode(code)
		}
		return mainer.Failure
	}
	return mainer.ExitCode(status)
}

func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) (int, error) {
	source, err := c.open(c.Source, stdio)
	if err != nil {
		return 0, err
	}
	input, err := c.open(c.Input, stdio)
	if err != nil {
		return 0, err
	}

	prog, err := loader.Load(source)
	if err != nil {
		return 0, err
	}

	m := machine.Machine{Stdout: stdio.Stdout, Stdin: input}
	return m.Run(ctx, prog)
}

// open returns the reader for path, or the standard input when path is
// empty. Files are released on process exit.
func (c *Cmd) open(path string, stdio mainer.Stdio) (io.Reader, error) {
	if path == "" {
		return stdio.Stdin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ipperr.Errorf(ipperr.InFileOpen, "%s", err)
	}
	return f, nil
}
