package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const cardColumns = `id, deck_id, front, back, tags, easiness, interval, repetitions,
	due_at, last_reviewed_at, successes, failures, created_at, updated_at`

// cardRow mirrors one row of the cards table.
type cardRow struct {
	ID             int64        `db:"id"`
	DeckID         int64        `db:"deck_id"`
	Front          string       `db:"front"`
	Back           string       `db:"back"`
	Tags           string       `db:"tags"`
	Easiness       float64      `db:"easiness"`
	Interval       float64      `db:"interval"`
	Repetitions    int          `db:"repetitions"`
	DueAt          sql.NullTime `db:"due_at"`
	LastReviewedAt sql.NullTime `db:"last_reviewed_at"`
	Successes      int          `db:"successes"`
	Failures       int          `db:"failures"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r cardRow) toDomain() domain.Card {
	return domain.Card{
		ID:             r.ID,
		DeckID:         r.DeckID,
		Front:          r.Front,
		Back:           r.Back,
		Tags:           r.Tags,
		Easiness:       r.Easiness,
		Interval:       r.Interval,
		Repetitions:    r.Repetitions,
		DueAt:          fromNullTime(r.DueAt),
		LastReviewedAt: fromNullTime(r.LastReviewedAt),
		Successes:      r.Successes,
		Failures:       r.Failures,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

// FindCardByID loads a card together with its topics. It returns
// domain.ErrCardNotFound when the id does not exist.
func (q *Queries) FindCardByID(ctx context.Context, id int64) (domain.Card, error) {
	var row cardRow
	err := q.get(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, fmt.Errorf("%w: id %d", domain.ErrCardNotFound, id)
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to find card %d: %w", id, err)
	}
	cards, err := q.withTopics(ctx, []cardRow{row})
	if err != nil {
		return domain.Card{}, err
	}
	return cards[0], nil
}

// InsertCard inserts a card with every scheduling column as given and links
// its topics. A non-zero card.ID is used as the row id.
func (q *Queries) InsertCard(ctx context.Context, card domain.Card) (int64, error) {
	args := []any{
		card.DeckID, card.Front, card.Back, card.Tags,
		card.Easiness, card.Interval, card.Repetitions,
		nullTime(card.DueAt), nullTime(card.LastReviewedAt),
		card.Successes, card.Failures,
		card.CreatedAt.UTC(), card.UpdatedAt.UTC(),
	}
	query := `INSERT INTO cards (deck_id, front, back, tags, easiness, interval, repetitions,
		due_at, last_reviewed_at, successes, failures, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if card.ID != 0 {
		query = `INSERT INTO cards (` + cardColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = append([]any{card.ID}, args...)
	}

	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for card: %w", err)
	}
	if err := q.LinkCardTopics(ctx, id, card.Topics); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateCard overwrites every column of the card row with the given values.
// Topics are not touched.
func (q *Queries) UpdateCard(ctx context.Context, card domain.Card) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE cards
		SET deck_id = ?, front = ?, back = ?, tags = ?, easiness = ?, interval = ?,
			repetitions = ?, due_at = ?, last_reviewed_at = ?, successes = ?, failures = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?
	`,
		card.DeckID, card.Front, card.Back, card.Tags,
		card.Easiness, card.Interval, card.Repetitions,
		nullTime(card.DueAt), nullTime(card.LastReviewedAt),
		card.Successes, card.Failures,
		card.CreatedAt.UTC(), card.UpdatedAt.UTC(),
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrCardNotFound, card.ID)
	}
	return nil
}

// DeleteCardByID removes a card from the database by its id.
func (q *Queries) DeleteCardByID(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrCardNotFound, id)
	}
	return nil
}

// GetCardsByDeckID returns every card of a deck ordered by id.
func (q *Queries) GetCardsByDeckID(ctx context.Context, deckID int64) ([]domain.Card, error) {
	var rows []cardRow
	if err := q.selectAll(ctx, &rows,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY id`, deckID); err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %d: %w", deckID, err)
	}
	return q.withTopics(ctx, rows)
}

// GetDueCards returns cards whose due time is absent or not after now,
// earliest first with absent counting as earliest, ties by id. An empty
// deckIDs matches every deck.
func (q *Queries) GetDueCards(ctx context.Context, deckIDs []int64, now time.Time, limit int) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE (due_at IS NULL OR due_at <= ?)`
	args := []any{now.UTC()}
	if len(deckIDs) > 0 {
		query += ` AND deck_id IN (?)`
		args = append(args, deckIDs)
	}
	query += ` ORDER BY due_at IS NOT NULL, due_at, id LIMIT ?`
	args = append(args, limit)

	rows, err := q.selectCards(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	return q.withTopics(ctx, rows)
}

// ListCards returns cards regardless of due time in the same order as
// GetDueCards.
func (q *Queries) ListCards(ctx context.Context, deckIDs []int64, limit int) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards`
	var args []any
	if len(deckIDs) > 0 {
		query += ` WHERE deck_id IN (?)`
		args = append(args, deckIDs)
	}
	query += ` ORDER BY due_at IS NOT NULL, due_at, id LIMIT ?`
	args = append(args, limit)

	rows, err := q.selectCards(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return q.withTopics(ctx, rows)
}

// selectCards expands slice arguments into IN lists before querying.
func (q *Queries) selectCards(ctx context.Context, query string, args ...any) ([]cardRow, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var rows []cardRow
	if err := q.selectAll(ctx, &rows, q.q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetDeckStats counts total and due cards for every deck.
func (q *Queries) GetDeckStats(ctx context.Context, now time.Time) ([]domain.DeckStats, error) {
	var rows []struct {
		Deck  string `db:"deck"`
		Total int    `db:"total"`
		Due   int    `db:"due"`
	}
	err := q.selectAll(ctx, &rows, `
		SELECT d.name AS deck,
			COUNT(c.id) AS total,
			COUNT(CASE WHEN c.id IS NOT NULL AND (c.due_at IS NULL OR c.due_at <= ?) THEN 1 END) AS due
		FROM decks d
		LEFT JOIN cards c ON c.deck_id = d.id
		GROUP BY d.id, d.name
		ORDER BY d.name
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get deck stats: %w", err)
	}
	stats := make([]domain.DeckStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.DeckStats{Deck: r.Deck, Total: r.Total, Due: r.Due})
	}
	return stats, nil
}

// withTopics converts rows to cards and fills in their topic names.
func (q *Queries) withTopics(ctx context.Context, rows []cardRow) ([]domain.Card, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	query, args, err := sqlx.In(`
		SELECT ct.card_id, t.name
		FROM card_topics ct
		JOIN topics t ON t.id = ct.topic_id
		WHERE ct.card_id IN (?)
		ORDER BY t.name
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build topic query: %w", err)
	}
	var links []struct {
		CardID int64  `db:"card_id"`
		Name   string `db:"name"`
	}
	if err := q.selectAll(ctx, &links, q.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load card topics: %w", err)
	}
	byCard := make(map[int64][]string)
	for _, l := range links {
		byCard[l.CardID] = append(byCard[l.CardID], l.Name)
	}

	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		c := r.toDomain()
		c.Topics = byCard[r.ID]
		cards = append(cards, c)
	}
	return cards, nil
}
