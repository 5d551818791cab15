// Package sh provides the ishell backed interactive shell.
package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cartbus/pkg/cart"
	"github.com/robotalks/cartbus/pkg/config"
	fx "github.com/robotalks/cartbus/pkg/framework"
	"github.com/robotalks/cartbus/pkg/ops"
)

// Shell runs ops commands against one dispatcher.
type Shell struct {
	Interactive bool

	Shell      *ishell.Shell
	Dispatcher *cart.Dispatcher
}

const shellKey = "$shell"

// readyTimeout bounds waiting for a bridge link at startup.
const readyTimeout = 3 * time.Second

var evalOnly bool

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// shellWriter routes dispatcher output through the shell.
type shellWriter struct {
	*ishell.Shell
}

func (w shellWriter) Write(p []byte) (int, error) {
	w.Print(string(p))
	return len(p), nil
}

// New creates a shell over d. A nil Console on d is replaced by the shell output.
func New(d *cart.Dispatcher) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Dispatcher:  d,
	}
	if d.Console == nil {
		d.Console = shellWriter{s.Shell}
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("cartbus > ")
	for _, op := range ops.Ops {
		s.Shell.AddCmd(OpCmd(op))
	}
	s.Shell.AddCmd(&VerboseCmd)
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// OpCmd exposes an op as a shell command.
func OpCmd(op *ops.Op) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    op.Name,
		Aliases: op.Aliases,
		Help:    op.Help,
		Func: func(c *ishell.Context) {
			if err := op.Exec(ShellFrom(c).Dispatcher, c.Args); err != nil {
				c.Err(err)
			}
		},
	}
}

// VerboseCmd shows or toggles echo of fire-and-forget commands.
var VerboseCmd = ishell.Cmd{
	Name: "verbose",
	Help: "[on|off]",
	Func: func(c *ishell.Context) {
		d := ShellFrom(c).Dispatcher
		if len(c.Args) > 0 {
			en, err := parseSwitch(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			d.Verbose = en
		}
		c.Printf("verbose = %v\n", d.Verbose)
	},
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	en, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid switch %q", s)
	}
	return en, nil
}

// Run runs the shell: args are evaluated as one command, otherwise
// the interactive shell starts.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.Load()
	if err != nil {
		log.Fatalln(err)
	}
	b, err := conf.OpenBus(nil)
	if err != nil {
		log.Fatalln(err)
	}
	runner := fx.NewRunner().Go(b)
	ctx, cancel := context.WithTimeout(runner.Context, readyTimeout)
	err = b.WaitReady(ctx)
	cancel()
	if err != nil {
		log.Fatalf("bus %s not ready: %v", conf.BusURL, err)
	}

	d := &cart.Dispatcher{Bus: b, Verbose: conf.Verbose}
	runErr := New(d).Run(flag.Args()...)
	runner.Stop()
	if err := runner.Wait(); err != nil {
		log.Println(err)
	}
	if runErr != nil {
		log.Fatalln(runErr)
	}
}
