package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/dekarrin/dslc"
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dslconfig"
)

// replSession holds the accumulated source buffer and live configuration
// for one interactive run, the read-compile-print-loop analogue of
// internal/input's InteractiveCommandReader-driven game loop: a readline
// instance feeds lines in, each one either a ":"-prefixed meta-command or
// another line of source to accumulate.
type replSession struct {
	rl  *readline.Instance
	cfg dslconfig.Config
	buf strings.Builder
}

// runREPL starts an interactive session over cfg. Source lines accumulate
// in a buffer; ":run" parses what's been typed so far, reports diagnostics
// and prints the syntax tree, ":compile" does a full compile to cfg.OutputPath,
// and ":reset" clears the buffer to start a new translation unit.
func runREPL(cfg dslconfig.Config) error {
	rl, err := readline.NewEx(&readline.Config{Prompt: "dslc> "})
	if err != nil {
		return fmt.Errorf("create readline config: %w", err)
	}
	defer rl.Close()

	sess := &replSession{rl: rl, cfg: cfg}

	fmt.Printf("dslc interactive session (%s)\n", cfg.Target)
	fmt.Println(`type source lines, ":run" to check them, ":compile" to emit a binary, ":help" for more`)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ":") {
			if quit := sess.handleMeta(trimmed); quit {
				return nil
			}
			continue
		}

		sess.buf.WriteString(line)
		sess.buf.WriteByte('\n')
	}
}

// handleMeta dispatches a ":"-prefixed command, returning true if the
// session should end.
func (s *replSession) handleMeta(line string) (quit bool) {
	args, err := shellquote.Split(line[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse command: %s\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "quit", "exit":
		return true
	case "help":
		s.printHelp()
	case "reset":
		s.buf.Reset()
		fmt.Println("buffer cleared")
	case "show":
		fmt.Print(s.buf.String())
	case "load":
		s.load(args[1:])
	case "set":
		s.set(args[1:])
	case "run":
		s.run()
	case "compile":
		s.compile()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, try :help\n", args[0])
	}
	return false
}

func (s *replSession) printHelp() {
	fmt.Println(`commands:
  :run              parse the buffered source, report diagnostics
  :compile          compile the buffered source to the configured output
  :load PATH        append a file's contents to the buffer
  :set KEY VALUE    set opt, unroll, target, debug, or output for the session
  :show             print the accumulated source buffer
  :reset            clear the buffer
  :quit             end the session`)
}

func (s *replSession) load(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: :load PATH")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %s\n", args[0], err)
		return
	}
	s.buf.Write(data)
	s.buf.WriteByte('\n')
}

func (s *replSession) set(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: :set KEY VALUE")
		return
	}
	key, val := args[0], args[1]
	var err error
	switch key {
	case "opt":
		s.cfg.OptimizationLevel, err = strconv.Atoi(val)
	case "unroll":
		s.cfg.UnrollFactor, err = strconv.Atoi(val)
	case "target":
		s.cfg.Target = dslconfig.Target(val)
	case "debug":
		s.cfg.EmitDebugInfo, err = strconv.ParseBool(val)
	case "output":
		s.cfg.OutputPath = val
	default:
		fmt.Fprintf(os.Stderr, "unknown setting %q\n", key)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "set %s: %s\n", key, err)
		return
	}
	if verr := s.cfg.Validate(); verr != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration after set: %s\n", verr)
	}
}

func (s *replSession) run() {
	p, err := dslc.New(s.cfg, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	tree, summary, err := p.ParseOnly([]byte(s.buf.String()))
	printDiagnostics(dslc.Result{Diagnostics: summary})
	if err != nil {
		return
	}
	fmt.Println(ast.Print(tree, tree.Root()))
}

func (s *replSession) compile() {
	p, err := dslc.New(s.cfg, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	result, err := p.Compile([]byte(s.buf.String()))
	printDiagnostics(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	fmt.Printf("wrote %s\n", s.cfg.OutputPath)
}
