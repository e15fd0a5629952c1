package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nafisa/promptpix/internal/display"
	"github.com/nafisa/promptpix/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&GenerateCommand{},
		&SampleCommand{},
		&AspectCommand{},
		&HistoryCommand{},
		&SelectCommand{},
		&DeleteCommand{},
		&ExportCommand{},
		&ShowCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// GenerateCommand submits a generation attempt.
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate an image from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) == "" {
		// Fall back to the prompt field, e.g. after 'sample'.
		prompt = r.controller.Prompt()
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	ratio := r.controller.AspectRatio()
	fmt.Fprintf(r.out, "Generating (%s)...\n", ratio)

	img, err := r.controller.Submit(ctx, prompt, ratio)
	if err != nil {
		if errors.Is(err, models.ErrRequestInFlight) {
			return err
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	if display.IsTerminalSupported() {
		if err := r.displayer.Display(img); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}

	fmt.Fprintf(r.out, "Done: %s (%s, %s)\n",
		img.Prompt, img.AspectRatio, humanize.Bytes(uint64(len(img.ImageData))))
	return nil
}

// SampleCommand fills the prompt field with a random sample prompt.
type SampleCommand struct{}

func (c *SampleCommand) Name() string        { return "sample" }
func (c *SampleCommand) Aliases() []string   { return []string{"surprise"} }
func (c *SampleCommand) Description() string { return "Fill the prompt with a random sample" }
func (c *SampleCommand) Usage() string       { return "sample" }

func (c *SampleCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	prompt := r.controller.RandomSamplePrompt()
	r.controller.SetPrompt(prompt)
	fmt.Fprintf(r.out, "Prompt: %s\n", prompt)
	fmt.Fprintln(r.out, "Run 'generate' to submit it.")
	return nil
}

// AspectCommand shows or changes the aspect ratio.
type AspectCommand struct{}

func (c *AspectCommand) Name() string        { return "aspect" }
func (c *AspectCommand) Aliases() []string   { return []string{"ar"} }
func (c *AspectCommand) Description() string { return "Show or set the aspect ratio" }
func (c *AspectCommand) Usage() string       { return "aspect [1:1|16:9|9:16|4:3]" }

func (c *AspectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		current := r.controller.AspectRatio()
		for _, ratio := range models.ValidAspectRatios() {
			marker := " "
			if ratio == current {
				marker = "*"
			}
			fmt.Fprintf(r.out, " %s %s (%s)\n", marker, ratio, ratio.Label())
		}
		return nil
	}

	ratio := models.AspectRatio(args[0])
	if err := r.controller.SetAspectRatio(ratio); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Aspect ratio set to %s (%s)\n", ratio, ratio.Label())
	return nil
}

// HistoryCommand lists past generations, most recent first.
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"ls", "h"} }
func (c *HistoryCommand) Description() string { return "List past generations" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	all := r.history.All()
	if len(all) == 0 {
		fmt.Fprintln(r.out, "No generations yet.")
		return nil
	}

	selection := r.controller.Selection()
	for i, img := range all {
		marker := " "
		if selection != nil && selection.ID == img.ID {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %-40s %s  %s  %s\n",
			marker, i+1, truncatePrompt(img.Prompt, 40), img.AspectRatio,
			humanize.Bytes(uint64(len(img.ImageData))), humanize.Time(img.CreatedAt))
	}
	return nil
}

// SelectCommand re-selects a history entry, restoring its prompt and
// aspect ratio.
type SelectCommand struct{}

func (c *SelectCommand) Name() string        { return "select" }
func (c *SelectCommand) Aliases() []string   { return []string{"sel"} }
func (c *SelectCommand) Description() string { return "Re-select a history entry" }
func (c *SelectCommand) Usage() string       { return "select <number>" }

func (c *SelectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := resolveEntry(r, args[0])
	if err != nil {
		return err
	}

	if _, err := r.controller.Reselect(img.ID); err != nil {
		return err
	}

	if display.IsTerminalSupported() {
		if err := r.displayer.Display(img); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}

	fmt.Fprintf(r.out, "Selected: %s (%s)\n", img.Prompt, img.AspectRatio)
	return nil
}

// DeleteCommand removes a history entry.
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"del", "rm"} }
func (c *DeleteCommand) Description() string { return "Delete a history entry" }
func (c *DeleteCommand) Usage() string       { return "delete <number>" }

func (c *DeleteCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := resolveEntry(r, args[0])
	if err != nil {
		return err
	}

	if err := r.controller.Remove(img.ID); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Deleted: %s\n", truncatePrompt(img.Prompt, 60))
	return nil
}

// ExportCommand writes the current selection to disk.
type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Aliases() []string   { return []string{"save"} }
func (c *ExportCommand) Description() string { return "Export the current image to a file" }
func (c *ExportCommand) Usage() string       { return "export [path]" }

func (c *ExportCommand) Execute(_ context.Context, r *REPL, args []string) error {
	img := r.controller.Selection()
	if img == nil {
		return fmt.Errorf("no current image - use 'generate' or 'select' first")
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}

	written, err := r.exporter.Export(img, path)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	fmt.Fprintf(r.out, "Saved: %s\n", written)
	return nil
}

// ShowCommand re-displays the current selection.
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"s"} }
func (c *ShowCommand) Description() string { return "Display the current image" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	img := r.controller.Selection()
	if img == nil {
		return fmt.Errorf("no current image - use 'generate' or 'select' first")
	}

	if !display.IsTerminalSupported() {
		fmt.Fprintf(r.out, "%s (%s, %s) - terminal cannot display images inline; use 'export'\n",
			truncatePrompt(img.Prompt, 60), img.AspectRatio,
			humanize.Bytes(uint64(len(img.ImageData))))
		return nil
	}

	return r.displayer.Display(img)
}

// HelpCommand lists available commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	seen := make(map[string]bool)
	var ordered []Command
	for _, cmd := range r.commands {
		if !seen[cmd.Name()] {
			seen[cmd.Name()] = true
			ordered = append(ordered, cmd)
		}
	}

	fmt.Fprintln(r.out, "Commands:")
	for _, cmd := range ordered {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = " (" + strings.Join(cmd.Aliases(), ", ") + ")"
		}
		fmt.Fprintf(r.out, "  %-28s %s%s\n", cmd.Usage(), cmd.Description(), aliases)
	}
	return nil
}

// QuitCommand stops the loop.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.Stop()
	fmt.Fprintln(r.out, "Bye!")
	return nil
}

// resolveEntry maps a 1-based history number (as shown by 'history') to
// its entry. A full id is accepted too.
func resolveEntry(r *REPL, arg string) (*models.GeneratedImage, error) {
	all := r.history.All()

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(all) {
			return nil, fmt.Errorf("no history entry %d (have %d)", n, len(all))
		}
		return all[n-1], nil
	}

	if img, ok := r.history.Get(arg); ok {
		return img, nil
	}
	return nil, fmt.Errorf("no history entry %q", arg)
}

func truncatePrompt(prompt string, max int) string {
	if len(prompt) <= max {
		return prompt
	}
	return prompt[:max-3] + "..."
}
