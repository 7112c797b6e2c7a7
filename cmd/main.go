package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/logging"
)

var version = "dev"

const defaultConfigPath = "configs/config.yaml"

// App carries the process dependencies the commands use
type App struct {
	Out          io.Writer
	Err          io.Writer
	Confirm      func(title string) (bool, error)
	ReadPassword func() (string, error)

	configPath string
	cfg        *config.Config
}

func DefaultApp() *App {
	return &App{
		Out:          os.Stdout,
		Err:          os.Stderr,
		Confirm:      confirmPrompt,
		ReadPassword: readPasswordPrompt,
	}
}

func confirmPrompt(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func main() {
	if err := newRootCmd(DefaultApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ai-collection",
		Short:         "Catalogue AI-generated images and their generation parameters",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.loadConfig(cmd.Flags().Changed("config"))
		},
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newHashPasswordCmd(app))
	return cmd
}

// loadConfig reads the configuration file. A missing default file falls
// back to built-in defaults; an explicitly given one must exist.
func (a *App) loadConfig(explicit bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}
	if err := logging.Setup(cfg.Logging); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.cfg = cfg
	return nil
}
