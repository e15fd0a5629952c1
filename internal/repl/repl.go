package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nafisa/promptpix/internal/display"
	"github.com/nafisa/promptpix/internal/export"
	"github.com/nafisa/promptpix/internal/generate"
	"github.com/nafisa/promptpix/internal/history"
)

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	controller *generate.Controller
	history    *history.Store
	displayer  *display.Displayer
	exporter   *export.Exporter
	commands   map[string]Command
	running    bool
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Controller *generate.Controller
	History    *history.Store
	Displayer  *display.Displayer
	Exporter   *export.Exporter
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		controller: cfg.Controller,
		history:    cfg.History,
		displayer:  cfg.Displayer,
		exporter:   cfg.Exporter,
		commands:   make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running && ctx.Err() == nil {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "promptpix interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	fmt.Fprintf(r.out, "promptpix [%s]> ", r.controller.AspectRatio())
}

// parseCommand splits a line on whitespace, keeping quoted runs (single or
// double) together so prompts with spaces survive as one argument.
func parseCommand(line string) []string {
	var (
		parts   []string
		current strings.Builder
		quote   rune
	)

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, ch := range line {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				current.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ' ' || ch == '\t':
			flush()
		default:
			current.WriteRune(ch)
		}
	}
	flush()

	return parts
}
