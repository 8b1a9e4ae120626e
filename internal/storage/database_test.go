package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertDeck(t *testing.T, db *DB, name string) domain.Deck {
	t.Helper()
	ctx := context.Background()
	root, err := db.FindDeckByName(ctx, domain.RootDeckName)
	require.NoError(t, err)
	id, err := db.InsertDeck(ctx, domain.Deck{Name: name, ParentID: &root.ID})
	require.NoError(t, err)
	return domain.Deck{ID: id, Name: name, ParentID: &root.ID}
}

func insertCard(t *testing.T, db *DB, deckID int64, front string, due *time.Time) int64 {
	t.Helper()
	id, err := db.InsertCard(context.Background(), domain.Card{
		DeckID:    deckID,
		Front:     front,
		Back:      "back of " + front,
		Easiness:  2.5,
		DueAt:     due,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return id
}

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestOpenCreatesRootDeck(t *testing.T) {
	db := openTestDB(t)

	root, err := db.FindDeckByName(context.Background(), domain.RootDeckName)
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)

	_, err = db.FindDeckByName(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDeckNotFound)
}

func TestCardRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck := insertDeck(t, db, "go")

	reviewed := now.Add(-time.Hour)
	card := domain.Card{
		DeckID:         deck.ID,
		Front:          "What does defer do?",
		Back:           "Runs a call when the function returns",
		Tags:           "lang basics",
		Easiness:       2.36,
		Interval:       6,
		Repetitions:    2,
		DueAt:          at(6 * 24 * time.Hour),
		LastReviewedAt: &reviewed,
		Successes:      2,
		Failures:       1,
		CreatedAt:      now,
		UpdatedAt:      now,
		Topics:         []string{"runtime", "control-flow"},
	}
	id, err := db.InsertCard(ctx, card)
	require.NoError(t, err)

	got, err := db.FindCardByID(ctx, id)
	require.NoError(t, err)
	card.ID = id
	card.Topics = []string{"control-flow", "runtime"}
	assert.Equal(t, card, got)
}

func TestInsertCardWithExplicitID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck := insertDeck(t, db, "go")

	id := insertCard(t, db, deck.ID, "q", nil)
	before, err := db.FindCardByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, db.DeleteCardByID(ctx, id))
	_, err = db.FindCardByID(ctx, id)
	require.ErrorIs(t, err, domain.ErrCardNotFound)

	restored, err := db.InsertCard(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, id, restored)

	after, err := db.FindCardByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Ids are not handed out twice.
	next := insertCard(t, db, deck.ID, "q2", nil)
	assert.Greater(t, next, id)
}

func TestGetDueCards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	goDeck := insertDeck(t, db, "go")
	rustDeck := insertDeck(t, db, "rust")

	late := insertCard(t, db, goDeck.ID, "late", at(-time.Minute))
	never := insertCard(t, db, goDeck.ID, "never", nil)
	early := insertCard(t, db, rustDeck.ID, "early", at(-48*time.Hour))
	tieA := insertCard(t, db, goDeck.ID, "tie a", at(-time.Hour))
	tieB := insertCard(t, db, rustDeck.ID, "tie b", at(-time.Hour))
	insertCard(t, db, goDeck.ID, "future", at(time.Hour))
	exact := insertCard(t, db, rustDeck.ID, "exact", at(0))

	ids := func(cards []domain.Card) []int64 {
		var out []int64
		for _, c := range cards {
			out = append(out, c.ID)
		}
		return out
	}

	tests := []struct {
		name    string
		deckIDs []int64
		limit   int
		want    []int64
	}{
		{name: "all decks", limit: 50, want: []int64{never, early, tieA, tieB, late, exact}},
		{name: "limit", limit: 2, want: []int64{never, early}},
		{name: "deck filter", deckIDs: []int64{goDeck.ID}, limit: 50, want: []int64{never, tieA, late}},
		{name: "several decks", deckIDs: []int64{goDeck.ID, rustDeck.ID}, limit: 3, want: []int64{never, early, tieA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := db.GetDueCards(ctx, tt.deckIDs, now, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(cards))
		})
	}
}

func TestSubtreeDeckIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	goDeck := insertDeck(t, db, "go")
	rustDeck := insertDeck(t, db, "rust")
	generics, err := db.InsertDeck(ctx, domain.Deck{Name: "generics", ParentID: &goDeck.ID})
	require.NoError(t, err)
	constraints, err := db.InsertDeck(ctx, domain.Deck{Name: "constraints", ParentID: &generics})
	require.NoError(t, err)

	ids, err := db.SubtreeDeckIDs(ctx, goDeck.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{goDeck.ID, generics, constraints}, ids)

	ids, err = db.SubtreeDeckIDs(ctx, rustDeck.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{rustDeck.ID}, ids)

	_, err = db.SubtreeDeckIDs(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrDeckNotFound)

	card := insertCard(t, db, constraints, "deep", nil)
	insertCard(t, db, rustDeck.ID, "elsewhere", nil)
	subtree, err := db.SubtreeDeckIDs(ctx, goDeck.ID)
	require.NoError(t, err)
	cards, err := db.ListCards(ctx, subtree, 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, card, cards[0].ID)
}

func TestUpdateDeck(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	goDeck := insertDeck(t, db, "go")
	rustDeck := insertDeck(t, db, "rust")

	moved := domain.Deck{ID: rustDeck.ID, Name: "rust-lang", ParentID: &goDeck.ID}
	require.NoError(t, db.UpdateDeck(ctx, moved))

	got, err := db.FindDeckByName(ctx, "rust-lang")
	require.NoError(t, err)
	assert.Equal(t, moved, got)
	assert.ErrorIs(t, db.UpdateDeck(ctx, domain.Deck{ID: 999, Name: "x"}), domain.ErrDeckNotFound)
}

func TestDeleteDeckCascadesCards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck := insertDeck(t, db, "go")
	id := insertCard(t, db, deck.ID, "q", nil)

	require.NoError(t, db.DeleteDeckByID(ctx, deck.ID))

	_, err := db.FindCardByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	assert.ErrorIs(t, db.DeleteDeckByID(ctx, deck.ID), domain.ErrDeckNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(q *Queries) error {
		if _, err := q.InsertDeck(ctx, domain.Deck{Name: "temp"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = db.FindDeckByName(ctx, "temp")
	assert.ErrorIs(t, err, domain.ErrDeckNotFound)
}

func TestTopicEdges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertTopicEdge(ctx, domain.TopicEdge{Src: "maps", Dst: "hashing", Weight: 1}))
	require.NoError(t, db.UpsertTopicEdge(ctx, domain.TopicEdge{Src: "maps", Dst: "hashing", Weight: 0.5}))
	require.NoError(t, db.UpsertTopicEdge(ctx, domain.TopicEdge{Src: "hashing", Dst: "crypto", Weight: 2}))

	edges, err := db.GetTopicEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TopicEdge{
		{Src: "hashing", Dst: "crypto", Weight: 2},
		{Src: "maps", Dst: "hashing", Weight: 0.5},
	}, edges)

	topics, err := db.GetAllTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 3)
}

func TestGetDeckStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck := insertDeck(t, db, "go")
	insertCard(t, db, deck.ID, "due", nil)
	insertCard(t, db, deck.ID, "later", at(time.Hour))

	stats, err := db.GetDeckStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []domain.DeckStats{
		{Deck: "go", Total: 2, Due: 1},
		{Deck: "root", Total: 0, Due: 0},
	}, stats)
}

func TestGetDueCardsDriverError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := New(sqlx.NewDb(conn, "sqlite"))
	mock.ExpectQuery("SELECT (.+) FROM cards WHERE").
		WillReturnError(errors.New("disk I/O error"))

	_, err = db.GetDueCards(context.Background(), nil, now, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get due cards")
	assert.NoError(t, mock.ExpectationsWereMet())
}
