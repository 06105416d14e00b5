package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/urlzip/urlzip/pkg/app"
	"github.com/urlzip/urlzip/pkg/config"
	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/logging"
	"github.com/urlzip/urlzip/pkg/ports"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	var application *app.App

	root := &cobra.Command{
		Use:          "urlzip",
		Short:        "Operate on the urlzip link store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cfg.LogLevel, cfg.LogFile)
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to db: %w", err)
			}
			application = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if application == nil {
				return nil
			}
			return application.Close()
		},
	}
	root.PersistentFlags().StringVar(&cfg.DatabaseURL, "db-url", cfg.DatabaseURL, "Database URL (file:, libsql:// or postgres://)")

	root.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Write every link as JSON to stdout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return doExport(cmd.Context(), application.Store, cmd.OutOrStdout())
			},
		},
		newImportCmd(func() *app.App { return application }),
		&cobra.Command{
			Use:   "shorten <url>",
			Short: "Create a short link",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				link, err := application.Links.Shorten(cmd.Context(), args[0], nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), application.Links.ShortURL(link.ShortCode))
				return nil
			},
		},
		&cobra.Command{
			Use:   "resolve <code>",
			Short: "Resolve a short code, counting one click",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				link, err := application.Links.Resolve(cmd.Context(), args[0], ports.VisitInfo{UserAgent: "urlzip-cli"})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", link.OriginalURL, link.Clicks)
				return nil
			},
		},
	)
	return root
}

func newImportCmd(current func() *app.App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Insert links from a JSON export, skipping codes that already exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			a := current()
			imported, skipped, err := doImport(cmd.Context(), a.Store, f, a.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d links, skipped %d\n", imported, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func doExport(ctx context.Context, store ports.LinkRepository, w io.Writer) error {
	links, err := store.Dump(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if links == nil {
		links = []domain.ShortLink{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

func doImport(ctx context.Context, store ports.LinkRepository, r io.Reader, logger *slog.Logger) (int, int, error) {
	var links []domain.ShortLink
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return 0, 0, fmt.Errorf("decode failed: %w", err)
	}

	imported, skipped := 0, 0
	for i := range links {
		l := &links[i]
		if l.ShortCode == "" || l.OriginalURL == "" {
			logger.Warn("skipping incomplete row", "index", i)
			skipped++
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now().UTC()
		}
		if l.Clicks < 0 {
			l.Clicks = 0
		}

		err := store.InsertIfAbsent(ctx, l)
		switch {
		case err == nil:
			imported++
		case errors.Is(err, domain.ErrCodeTaken):
			logger.Info("skipping existing code", "short_code", l.ShortCode)
			skipped++
		default:
			return imported, skipped, fmt.Errorf("failed to import %s: %w", l.ShortCode, err)
		}
	}
	return imported, skipped, nil
}
