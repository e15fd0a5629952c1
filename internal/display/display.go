package display

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/nafisa/promptpix/pkg/models"
)

type Displayer struct {
	out io.Writer
}

func New(out io.Writer) *Displayer {
	return &Displayer{out: out}
}

// Display renders the image inline using the kitty graphics protocol.
func (d *Displayer) Display(img *models.GeneratedImage) error {
	if img == nil || len(img.ImageData) == 0 {
		return fmt.Errorf("image has no data")
	}

	if err := writeKitty(d.out, img.ImageData); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}

// Terminals known to speak the kitty graphics protocol.
var kittyCapablePrograms = []string{"kitty", "ghostty", "iterm.app", "wezterm"}

// IsTerminalSupported reports whether stdout is a terminal that understands
// the kitty graphics protocol.
func IsTerminalSupported() bool {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" || os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	if slices.Contains(kittyCapablePrograms, strings.ToLower(os.Getenv("TERM_PROGRAM"))) {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
