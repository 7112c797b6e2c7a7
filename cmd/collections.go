package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ai-collection/server/internal/collection"
)

func newExportCmd(app *App) *cobra.Command {
	var owner, outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's collection to a dated JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.export(cmd.Context(), owner, outDir, time.Now())
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner ID")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var owner string
	var yes bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge records from an exported JSON file into an owner's collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.importFile(cmd.Context(), owner, args[0], yes)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner ID")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "import without asking for confirmation")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	var owner string
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.clear(cmd.Context(), owner, yes)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner ID")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking for confirmation")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// withSyncer opens the backends, loads the owner's collection and hands
// the syncer to fn
func (a *App) withSyncer(ctx context.Context, owner string, fn func(*collection.Syncer) error) error {
	b, err := openBackends(a.cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	s, err := b.adminSyncer(a.cfg, owner)
	if err != nil {
		return err
	}
	res := s.Load(ctx, owner)
	if res.Degraded {
		return fmt.Errorf("failed to load collections for %s", owner)
	}
	return fn(s)
}

func (a *App) export(ctx context.Context, owner, outDir string, now time.Time) error {
	return a.withSyncer(ctx, owner, func(s *collection.Syncer) error {
		file, err := s.Export(now)
		if err != nil {
			return err
		}
		if file == nil {
			fmt.Fprintln(a.Out, s.State().LastNotice().Message)
			return nil
		}

		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(outDir, file.Name)
		if err := os.WriteFile(path, file.Data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Fprintf(a.Out, "Exported %d records to %s\n", len(s.Records()), path)
		return nil
	})
}

func (a *App) importFile(ctx context.Context, owner, path string, yes bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	return a.withSyncer(ctx, owner, func(s *collection.Syncer) error {
		confirmer := collection.ConfirmFunc(func(_ context.Context, count int) (bool, error) {
			if yes {
				return true, nil
			}
			return a.Confirm(fmt.Sprintf("Found %d new items. Do you want to import them?", count))
		})

		res, err := s.Import(ctx, owner, data, confirmer)
		if err != nil {
			if f, ok := collection.AsFailure(err); ok {
				return errors.New(f.Message)
			}
			return err
		}
		fmt.Fprintln(a.Out, s.State().LastNotice().Message)
		if res.Status == collection.ImportImported {
			fmt.Fprintf(a.Out, "Collection now holds %d records\n", len(s.Records()))
		}
		return nil
	})
}

func (a *App) clear(ctx context.Context, owner string, yes bool) error {
	return a.withSyncer(ctx, owner, func(s *collection.Syncer) error {
		if !yes {
			ok, err := a.Confirm(fmt.Sprintf("Delete ALL %d collections of %s? This action cannot be undone.", len(s.Records()), owner))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.Out, "Nothing deleted.")
				return nil
			}
		}
		if err := s.ClearAll(ctx, owner); err != nil {
			return err
		}
		fmt.Fprintln(a.Out, s.State().LastNotice().Message)
		return nil
	})
}
