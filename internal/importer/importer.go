// Package importer adds cards written as markdown notes to a deck. Notes
// come from a local file or directory, or from a git repository that is
// checked out first.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/gitsource"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/parser"
)

// Target is where imported cards go. *session.Session implements it, so
// every imported card is recorded as an undoable add.
type Target interface {
	DeckCards(ctx context.Context, deck string) ([]domain.Card, error)
	AddCard(ctx context.Context, in domain.NewCard) (domain.Card, error)
}

// Checkouter provides a local copy of a remote repository.
type Checkouter interface {
	Checkout(ctx context.Context, repoURL string) (string, error)
}

// Result summarises one import.
type Result struct {
	Files      int
	Parsed     int
	Added      []domain.Card
	Duplicates int
	Errors     []error
}

type Importer struct {
	target Target
	git    Checkouter
	log    *slog.Logger
}

// New returns an Importer. git may be nil when only local sources are used.
func New(target Target, git Checkouter, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{target: target, git: git, log: logger}
}

// Import parses every .md file below source and adds the cards whose
// content is not already in deck. Problems with single files or cards are
// collected in Result.Errors; the returned error is reserved for failures
// that stop the import altogether.
func (im *Importer) Import(ctx context.Context, source, deck string) (Result, error) {
	var res Result

	root := source
	if gitsource.IsRemote(source) {
		if im.git == nil {
			return res, fmt.Errorf("cannot import %s: git sources are not configured", source)
		}
		path, err := im.git.Checkout(ctx, source)
		if err != nil {
			return res, err
		}
		root = path
	}

	existing, err := im.target.DeckCards(ctx, deck)
	if err != nil {
		return res, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[knol.Hash(c)] = true
	}

	log := im.log.With("source", source, "deck", deck)
	log.Info("starting import")

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res.Files++
		cards, err := parser.ParseFile(path)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, err))
			return nil
		}
		for _, c := range cards {
			res.Parsed++
			c.Deck = deck
			if strings.TrimSpace(c.Back) == "" {
				res.Errors = append(res.Errors, fmt.Errorf("%s: card %q has no answer", path, c.Front))
				continue
			}
			h := knol.HashNew(c)
			if seen[h] {
				res.Duplicates++
				continue
			}
			added, err := im.target.AddCard(ctx, c)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("adding card from %s: %w", path, err))
				continue
			}
			seen[h] = true
			res.Added = append(res.Added, added)
			log.Debug("card imported", "card_id", added.ID, "file", path)
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return res, fmt.Errorf("source %s does not exist: %w", source, walkErr)
		}
		return res, fmt.Errorf("error walking %s: %w", root, walkErr)
	}

	log.Info("import complete",
		"files", res.Files,
		"parsed_cards", res.Parsed,
		"added", len(res.Added),
		"duplicates", res.Duplicates,
		"errors", len(res.Errors),
	)
	return res, nil
}
