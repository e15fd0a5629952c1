package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nafisa/promptpix/internal/keys"
)

const defaultProvider = "gemini"

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [provider]",
		Short: "Store an API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysSet(app, providerArg(args))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [provider]",
		Short: "Show a stored API key (masked)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysGet(app, providerArg(args))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [provider]",
		Short: "Delete a stored API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysDelete(app, providerArg(args))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List providers with stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	})

	return cmd
}

func providerArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultProvider
}

// readKey reads the key without echo when stdin is a terminal, so the
// secret never lands in shell history or scrollback.
func readKey(app *App) (string, error) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprint(app.Out, "Enter API key: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(app.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return "", fmt.Errorf("no key provided on stdin")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func runKeysSet(app *App, provider string) error {
	key, err := readKey(app)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	store, err := keys.NewStore()
	if err != nil {
		return err
	}
	if err := store.Set(provider, key); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Key for %s saved to %s\n", provider, store.Path())
	return nil
}

func runKeysGet(app *App, provider string) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	key, err := store.Get(provider)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("no key stored for %s", provider)
	}

	fmt.Fprintf(app.Out, "%s: %s\n", provider, keys.MaskKey(key))
	return nil
}

func runKeysDelete(app *App, provider string) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}
	if err := store.Delete(provider); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Key for %s deleted\n", provider)
	return nil
}

func runKeysList(app *App) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	providers, err := store.List()
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Fprintln(app.Out, "No stored keys.")
		return nil
	}

	for _, provider := range providers {
		key, err := store.Get(provider)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "%-12s %s\n", provider, keys.MaskKey(key))
	}
	return nil
}
