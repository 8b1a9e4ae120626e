package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/flashdeck/internal/domain"
)

type deckRow struct {
	ID       int64         `db:"id"`
	Name     string        `db:"name"`
	ParentID sql.NullInt64 `db:"parent_id"`
}

func (r deckRow) toDomain() domain.Deck {
	d := domain.Deck{ID: r.ID, Name: r.Name}
	if r.ParentID.Valid {
		id := r.ParentID.Int64
		d.ParentID = &id
	}
	return d
}

// FindDeckByName resolves a deck name. It returns domain.ErrDeckNotFound
// when no deck has that name.
func (q *Queries) FindDeckByName(ctx context.Context, name string) (domain.Deck, error) {
	var row deckRow
	err := q.get(ctx, &row, `SELECT id, name, parent_id FROM decks WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("%w: %q", domain.ErrDeckNotFound, name)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to find deck %q: %w", name, err)
	}
	return row.toDomain(), nil
}

// GetAllDecks returns every deck ordered by name.
func (q *Queries) GetAllDecks(ctx context.Context) ([]domain.Deck, error) {
	var rows []deckRow
	if err := q.selectAll(ctx, &rows, `SELECT id, name, parent_id FROM decks ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to get all decks: %w", err)
	}
	decks := make([]domain.Deck, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, r.toDomain())
	}
	return decks, nil
}

// InsertDeck inserts a deck and returns its id. A non-zero deck.ID is used as
// the row id, which lets a deleted deck come back under its old id.
func (q *Queries) InsertDeck(ctx context.Context, deck domain.Deck) (int64, error) {
	var parent sql.NullInt64
	if deck.ParentID != nil {
		parent = sql.NullInt64{Int64: *deck.ParentID, Valid: true}
	}

	var (
		res sql.Result
		err error
	)
	if deck.ID != 0 {
		res, err = q.q.ExecContext(ctx,
			`INSERT INTO decks (id, name, parent_id) VALUES (?, ?, ?)`,
			deck.ID, deck.Name, parent)
	} else {
		res, err = q.q.ExecContext(ctx,
			`INSERT INTO decks (name, parent_id) VALUES (?, ?)`,
			deck.Name, parent)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert deck %q: %w", deck.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for deck %q: %w", deck.Name, err)
	}
	return id, nil
}

// DeleteDeckByID removes a deck. Its cards go with it through the foreign key.
func (q *Queries) DeleteDeckByID(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrDeckNotFound, id)
	}
	return nil
}

// CountChildDecks returns how many decks name id as their parent.
func (q *Queries) CountChildDecks(ctx context.Context, id int64) (int, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM decks WHERE parent_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to count child decks of %d: %w", id, err)
	}
	return n, nil
}

// UpdateDeck overwrites the name and parent of an existing deck.
func (q *Queries) UpdateDeck(ctx context.Context, deck domain.Deck) error {
	var parent sql.NullInt64
	if deck.ParentID != nil {
		parent = sql.NullInt64{Int64: *deck.ParentID, Valid: true}
	}
	res, err := q.q.ExecContext(ctx,
		`UPDATE decks SET name = ?, parent_id = ? WHERE id = ?`,
		deck.Name, parent, deck.ID)
	if err != nil {
		return fmt.Errorf("failed to update deck %d: %w", deck.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrDeckNotFound, deck.ID)
	}
	return nil
}

// SubtreeDeckIDs returns id followed by the ids of all its descendants.
func (q *Queries) SubtreeDeckIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := q.selectAll(ctx, &ids, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM decks WHERE id = ?
			UNION
			SELECT d.id FROM decks d JOIN subtree s ON d.parent_id = s.id
		)
		SELECT id FROM subtree ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sub decks of %d: %w", id, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: id %d", domain.ErrDeckNotFound, id)
	}
	return ids, nil
}
