package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/gitsource"
	"github.com/conorfennell/flashdeck/internal/importer"
	"github.com/conorfennell/flashdeck/internal/shell"
	"github.com/conorfennell/flashdeck/internal/web"
)

func newImportCommand(a *app) *cobra.Command {
	var deck string
	cmd := &cobra.Command{
		Use:   "import <dir|file|git-url>",
		Short: "Import Q:/A: cards from markdown notes",
		Long: `Import cards from markdown notes in a local file or directory, or in a git
repository that is cloned (or pulled) below import.repos_dir first. Cards
whose content already exists in the deck are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			syncer := &gitsource.Syncer{
				BaseDir: a.cfg.Import.ReposDir,
				Logger:  slog.Default(),
			}
			res, err := importer.New(a.session, syncer, slog.Default()).Import(cmd.Context(), args[0], deck)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d cards in %d files: %d added, %d already present, %d errors.\n",
				res.Parsed, res.Files, len(res.Added), res.Duplicates, len(res.Errors))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "- %s\n", e)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&deck, "deck", domain.RootDeckName, "deck to import into")
	cmd.Flags().String("repos-dir", "", "where git sources are checked out (default repos)")
	return cmd
}

func newStudyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "study",
		Short: "Start an interactive study session with undo and redo",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return shell.New(a.session, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		}),
	}
}

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API for one study session",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      web.NewServer(a.session, slog.Default()),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("starting server", "addr", srv.Addr, "session_id", a.session.ID())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			slog.Info("shutting down server")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			return nil
		}),
	}
	cmd.Flags().String("addr", "", "listen address (default localhost:8080)")
	return cmd
}
