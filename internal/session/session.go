// Package session ties the scheduler, the review queue and the undo log to
// the card store for the lifetime of one interactive study session.
//
// A Session is not safe for concurrent use. Front-ends that serve several
// callers must serialise access to it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/history"
	"github.com/conorfennell/flashdeck/internal/review"
	"github.com/conorfennell/flashdeck/internal/sm2"
	"github.com/conorfennell/flashdeck/internal/storage"
)

// DefaultLimit caps the due set when no limit is configured.
const DefaultLimit = 50

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Params *sm2.Params      // nil: sm2.DefaultParams()
	Limit  int              // due-set size when a call passes <= 0; 0: DefaultLimit
	Clock  func() time.Time // nil: time.Now
	Logger *slog.Logger     // nil: slog.Default()
}

// Session is the state of one study session: the review queue, the cards
// loaded with it, the deck index, the topic graph and the undo/redo log.
type Session struct {
	id       string
	db       *storage.DB
	params   *sm2.Params
	limit    int
	clock    func() time.Time
	log      *slog.Logger
	validate *validator.Validate

	queue   *review.Queue
	cache   map[int64]domain.Card
	decks   map[string]int64
	graph   domain.TopicGraph
	undo    *history.Log
	reviews []domain.ReviewLog
}

// New returns an empty session backed by db.
func New(db *storage.DB, opts Options) *Session {
	s := &Session{
		id:       uuid.NewString(),
		db:       db,
		params:   opts.Params,
		limit:    opts.Limit,
		clock:    opts.Clock,
		log:      opts.Logger,
		validate: validator.New(),
		queue:    review.NewQueue(),
		undo:     history.NewLog(),
	}
	if s.params == nil {
		s.params = sm2.DefaultParams()
	}
	if s.limit <= 0 {
		s.limit = DefaultLimit
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("session_id", s.id)
	s.Reset()
	return s
}

// ID returns the random identifier of this session.
func (s *Session) ID() string { return s.id }

// Reset clears the queue, the caches, both undo stacks and the review
// history. Storage is not touched.
func (s *Session) Reset() {
	s.queue.Clear()
	s.cache = make(map[int64]domain.Card)
	s.decks = make(map[string]int64)
	s.graph = make(domain.TopicGraph)
	s.undo.Clear()
	s.reviews = nil
}

func (s *Session) now() time.Time {
	return s.clock().UTC().Truncate(time.Second)
}

// SelectDue loads the cards that are due now into the review queue,
// replacing whatever it held. deck "" selects from every deck; otherwise
// only cards directly in the named deck are considered. limit <= 0 uses the
// configured default.
func (s *Session) SelectDue(ctx context.Context, deck string, limit int) ([]domain.Card, error) {
	return s.selectDue(ctx, deck, false, limit)
}

// SelectDueWithSubdecks is SelectDue for deck and every deck below it.
func (s *Session) SelectDueWithSubdecks(ctx context.Context, deck string, limit int) ([]domain.Card, error) {
	return s.selectDue(ctx, deck, true, limit)
}

func (s *Session) selectDue(ctx context.Context, deck string, subdecks bool, limit int) ([]domain.Card, error) {
	if limit <= 0 {
		limit = s.limit
	}
	deckIDs, err := s.deckFilter(ctx, deck, subdecks)
	if err != nil {
		return nil, err
	}

	cards, err := s.db.GetDueCards(ctx, deckIDs, s.now(), limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(cards))
	s.cache = make(map[int64]domain.Card, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
		s.cache[c.ID] = c
	}
	s.queue.Load(ids)
	s.log.Debug("due set loaded", "deck", deck, "subdecks", subdecks, "count", len(cards))
	return cards, nil
}

// deckFilter resolves deck to the ids a card query is restricted to. An
// empty deck means no restriction.
func (s *Session) deckFilter(ctx context.Context, deck string, subdecks bool) ([]int64, error) {
	if deck == "" {
		return nil, nil
	}
	d, err := s.db.FindDeckByName(ctx, deck)
	if err != nil {
		return nil, err
	}
	if !subdecks {
		return []int64{d.ID}, nil
	}
	return s.db.SubtreeDeckIDs(ctx, d.ID)
}

// Current returns the card at the head of the review queue.
func (s *Session) Current(ctx context.Context) (domain.Card, error) {
	id, err := s.queue.Peek()
	if err != nil {
		return domain.Card{}, err
	}
	if c, ok := s.cache[id]; ok {
		return c, nil
	}
	return s.db.FindCardByID(ctx, id)
}

// Pending returns how many cards are left in the review queue.
func (s *Session) Pending() int { return s.queue.Len() }

// Answer grades the card at the head of the queue, persists its new
// schedule and removes it from the queue. An invalid quality or an empty
// queue leaves everything unchanged.
func (s *Session) Answer(ctx context.Context, quality int) (domain.Card, error) {
	q := sm2.Quality(quality)
	if err := q.Validate(); err != nil {
		return domain.Card{}, err
	}
	id, err := s.queue.Peek()
	if err != nil {
		return domain.Card{}, err
	}

	now := s.now()
	var before, after domain.Card
	err = s.db.InTx(ctx, func(tx *storage.Queries) error {
		var err error
		if before, err = tx.FindCardByID(ctx, id); err != nil {
			return err
		}
		if after, err = s.params.NextState(before, q, now); err != nil {
			return err
		}
		return tx.UpdateCard(ctx, after)
	})
	if err != nil {
		return domain.Card{}, err
	}

	_, _ = s.queue.Pop()
	s.cache[id] = after
	s.undo.Record(history.AnswerCardOp(before, after))
	s.reviews = append(s.reviews, domain.ReviewLog{
		SessionID:  s.id,
		CardID:     id,
		Quality:    quality,
		AnsweredAt: now,
	})
	s.log.Info("card answered",
		"card_id", id,
		"quality", quality,
		"interval", after.Interval,
		"due_at", after.DueAt,
	)
	return after, nil
}

// History returns the answers given during this session, oldest first.
func (s *Session) History() []domain.ReviewLog {
	out := make([]domain.ReviewLog, len(s.reviews))
	copy(out, s.reviews)
	return out
}

// Undo reverts the most recent mutation and describes what it did.
func (s *Session) Undo(ctx context.Context) (string, error) {
	kind, err := s.undo.Undo(ctx, s.applyInverse)
	if err != nil {
		return "", err
	}
	s.log.Info("undo", "op", kind)
	return fmt.Sprintf("Undid %s.", kind), nil
}

// Redo re-applies the most recently undone mutation.
func (s *Session) Redo(ctx context.Context) (string, error) {
	kind, err := s.undo.Redo(ctx, s.applyInverse)
	if err != nil {
		return "", err
	}
	s.log.Info("redo", "op", kind)
	return fmt.Sprintf("Redid %s.", kind), nil
}

// CanUndo and CanRedo report whether the respective stack holds anything.
func (s *Session) CanUndo() bool { return s.undo.UndoLen() > 0 }
func (s *Session) CanRedo() bool { return s.undo.RedoLen() > 0 }

// LoadIndexes refreshes the deck name index and the topic graph.
func (s *Session) LoadIndexes(ctx context.Context) error {
	decks, err := s.db.GetAllDecks(ctx)
	if err != nil {
		return err
	}
	topics, err := s.db.GetAllTopics(ctx)
	if err != nil {
		return err
	}
	edges, err := s.db.GetTopicEdges(ctx)
	if err != nil {
		return err
	}

	s.decks = make(map[string]int64, len(decks))
	for _, d := range decks {
		s.decks[d.Name] = d.ID
	}
	s.graph = make(domain.TopicGraph, len(topics))
	for _, t := range topics {
		s.graph[t.Name] = map[string]float64{}
	}
	for _, e := range edges {
		s.graph[e.Src][e.Dst] = e.Weight
	}
	return nil
}

// DeckIndex returns a copy of the deck name to id index.
func (s *Session) DeckIndex() map[string]int64 {
	return maps.Clone(s.decks)
}

// TopicGraph returns a copy of the adjacency map loaded by LoadIndexes.
func (s *Session) TopicGraph() domain.TopicGraph {
	out := make(domain.TopicGraph, len(s.graph))
	for src, dsts := range s.graph {
		out[src] = maps.Clone(dsts)
	}
	return out
}

// LinkTopics creates or reweights the edge src -> dst. It is not undoable.
func (s *Session) LinkTopics(ctx context.Context, src, dst string, weight float64) error {
	src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
	if src == "" || dst == "" {
		return fmt.Errorf("topic %w", domain.ErrEmptyName)
	}
	if err := s.db.UpsertTopicEdge(ctx, domain.TopicEdge{Src: src, Dst: dst, Weight: weight}); err != nil {
		return err
	}
	if s.graph[src] == nil {
		s.graph[src] = map[string]float64{}
	}
	if s.graph[dst] == nil {
		s.graph[dst] = map[string]float64{}
	}
	s.graph[src][dst] = weight
	return nil
}

// ListCards returns cards regardless of due time, ordered like the due set.
func (s *Session) ListCards(ctx context.Context, deck string, limit int) ([]domain.Card, error) {
	return s.listCards(ctx, deck, false, limit)
}

// ListCardsWithSubdecks is ListCards for deck and every deck below it.
func (s *Session) ListCardsWithSubdecks(ctx context.Context, deck string, limit int) ([]domain.Card, error) {
	return s.listCards(ctx, deck, true, limit)
}

func (s *Session) listCards(ctx context.Context, deck string, subdecks bool, limit int) ([]domain.Card, error) {
	if limit <= 0 {
		limit = s.limit
	}
	deckIDs, err := s.deckFilter(ctx, deck, subdecks)
	if err != nil {
		return nil, err
	}
	return s.db.ListCards(ctx, deckIDs, limit)
}

// DeckCards returns every card directly in the named deck.
func (s *Session) DeckCards(ctx context.Context, deck string) ([]domain.Card, error) {
	d, err := s.db.FindDeckByName(ctx, deck)
	if err != nil {
		return nil, err
	}
	return s.db.GetCardsByDeckID(ctx, d.ID)
}

// Card loads a single card by id.
func (s *Session) Card(ctx context.Context, id int64) (domain.Card, error) {
	return s.db.FindCardByID(ctx, id)
}

// Deck resolves a deck by name.
func (s *Session) Deck(ctx context.Context, name string) (domain.Deck, error) {
	return s.db.FindDeckByName(ctx, name)
}

// Decks returns every deck ordered by name.
func (s *Session) Decks(ctx context.Context) ([]domain.Deck, error) {
	return s.db.GetAllDecks(ctx)
}

// Stats returns the total and due card counts per deck.
func (s *Session) Stats(ctx context.Context) ([]domain.DeckStats, error) {
	return s.db.GetDeckStats(ctx, s.now())
}

// DeckTree returns the deck hierarchy starting at the root deck, children
// ordered by name, with card counts summed over each subtree.
func (s *Session) DeckTree(ctx context.Context) ([]domain.DeckNode, error) {
	decks, err := s.db.GetAllDecks(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.db.GetDeckStats(ctx, s.now())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]domain.DeckStats, len(stats))
	for _, st := range stats {
		counts[st.Deck] = st
	}

	children := make(map[int64][]domain.Deck)
	var roots []domain.Deck
	for _, d := range decks {
		if d.ParentID == nil {
			roots = append(roots, d)
			continue
		}
		children[*d.ParentID] = append(children[*d.ParentID], d)
	}

	var build func(d domain.Deck) domain.DeckNode
	build = func(d domain.Deck) domain.DeckNode {
		n := domain.DeckNode{Deck: d, Total: counts[d.Name].Total, Due: counts[d.Name].Due}
		for _, c := range children[d.ID] {
			child := build(c)
			n.Total += child.Total
			n.Due += child.Due
			n.Children = append(n.Children, child)
		}
		return n
	}
	tree := make([]domain.DeckNode, 0, len(roots))
	for _, r := range roots {
		tree = append(tree, build(r))
	}
	return tree, nil
}

// forget drops ids from the queue and the card cache.
func (s *Session) forget(ids ...int64) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[int64]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
		delete(s.cache, id)
	}
	var keep []int64
	for _, id := range s.queue.IDs() {
		if !gone[id] {
			keep = append(keep, id)
		}
	}
	s.queue.Load(keep)
}

// refresh updates a cached card if the session holds it.
func (s *Session) refresh(c domain.Card) {
	if _, ok := s.cache[c.ID]; ok {
		s.cache[c.ID] = c
	}
}
