package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/session"
	"github.com/conorfennell/flashdeck/internal/storage"
)

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
}

// app carries what every subcommand needs. It is filled in by withSession
// so commands such as help never touch the database.
type app struct {
	configFile string
	logOut     io.Writer

	cfg     *config.Config
	db      *storage.DB
	session *session.Session
}

func newRootCommand(logOut io.Writer) *cobra.Command {
	a := &app{logOut: logOut}
	root := &cobra.Command{
		Use:           "flashdeck",
		Short:         "Spaced-repetition flashcards with SM-2 scheduling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path")
	flags.Bool("debug", false, "Enable debug mode")
	flags.String("db", "", "path to the SQLite database (default flashcards.db)")
	flags.Int("limit", 0, "maximum number of cards to select (default 50)")

	root.AddCommand(
		newInitCommand(a),
		newAddDeckCommand(a),
		newDeleteDeckCommand(a),
		newRenameDeckCommand(a),
		newAddCardCommand(a),
		newEditCardCommand(a),
		newDeleteCardCommand(a),
		newListCommand(a),
		newDueCommand(a),
		newStatsCommand(a),
		newTreeCommand(a),
		newLinkTopicsCommand(a),
		newGraphCommand(a),
		newImportCommand(a),
		newStudyCommand(a),
		newServeCommand(a),
	)
	return root
}

// open loads the configuration from cmd's flags, configures logging, opens
// the database and starts a session.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	setupLogger(a.logOut, cfg.Log.Debug)

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	a.db = db
	a.session = session.New(db, session.Options{
		Limit:  cfg.Review.Limit,
		Logger: slog.Default(),
	})
	slog.Debug("database opened", "path", cfg.Database.Path)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// withSession wraps a command body so it runs with an open database and a
// fresh session that are released afterwards.
func (a *app) withSession(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer func() {
			if closeErr := a.close(); err == nil {
				err = closeErr
			}
		}()
		return run(cmd, args)
	}
}

// setupLogger configures the default logger based on debug mode
func setupLogger(w io.Writer, debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: debugMode,
		})),
	)
}
