package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/history"
	"github.com/conorfennell/flashdeck/internal/storage"
)

// Each mutation runs in one transaction and records its undo Op only after
// the transaction committed.

// AddDeck creates a deck below parent ("" means the root deck).
func (s *Session) AddDeck(ctx context.Context, name, parent string) (domain.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Deck{}, fmt.Errorf("deck %w", domain.ErrEmptyName)
	}
	if parent == "" {
		parent = domain.RootDeckName
	}

	var deck domain.Deck
	err := s.db.InTx(ctx, func(tx *storage.Queries) error {
		p, err := tx.FindDeckByName(ctx, parent)
		if err != nil {
			return err
		}
		if _, err := tx.FindDeckByName(ctx, name); err == nil {
			return fmt.Errorf("%w: %q", domain.ErrDeckExists, name)
		} else if !errors.Is(err, domain.ErrDeckNotFound) {
			return err
		}
		deck = domain.Deck{Name: name, ParentID: &p.ID}
		deck.ID, err = tx.InsertDeck(ctx, deck)
		return err
	})
	if err != nil {
		return domain.Deck{}, err
	}

	s.decks[deck.Name] = deck.ID
	s.undo.Record(history.AddDeckOp(deck.Name))
	s.log.Info("deck added", "deck", deck.Name, "parent", parent)
	return deck, nil
}

// DeleteDeck removes a deck and, through the storage cascade, its cards.
// The root deck and decks that still have child decks cannot be deleted.
func (s *Session) DeleteDeck(ctx context.Context, name string) error {
	deck, cards, err := s.deleteDeck(ctx, name)
	if err != nil {
		return err
	}
	s.undo.Record(history.DeleteDeckOp(deck, cards))
	s.log.Info("deck deleted", "deck", deck.Name, "cards", len(cards))
	return nil
}

func (s *Session) deleteDeck(ctx context.Context, name string) (domain.Deck, []domain.Card, error) {
	var (
		deck  domain.Deck
		cards []domain.Card
	)
	err := s.db.InTx(ctx, func(tx *storage.Queries) error {
		var err error
		if deck, err = tx.FindDeckByName(ctx, name); err != nil {
			return err
		}
		if deck.ParentID == nil {
			return domain.ErrRootDeck
		}
		n, err := tx.CountChildDecks(ctx, deck.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %q has %d", domain.ErrDeckHasChildren, name, n)
		}
		if cards, err = tx.GetCardsByDeckID(ctx, deck.ID); err != nil {
			return err
		}
		return tx.DeleteDeckByID(ctx, deck.ID)
	})
	if err != nil {
		return domain.Deck{}, nil, err
	}

	delete(s.decks, deck.Name)
	ids := make([]int64, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	s.forget(ids...)
	return deck, cards, nil
}

// RenameDeck gives a deck a new name, a new parent, or both. An empty
// newName keeps the name and an empty newParent keeps the parent. The root
// deck cannot be changed and a deck cannot be moved below itself.
func (s *Session) RenameDeck(ctx context.Context, name, newName, newParent string) (domain.Deck, error) {
	newName = strings.TrimSpace(newName)
	newParent = strings.TrimSpace(newParent)
	if newName == "" && newParent == "" {
		return domain.Deck{}, domain.ErrNoFieldsToUpdate
	}

	var before, after domain.Deck
	err := s.db.InTx(ctx, func(tx *storage.Queries) error {
		var err error
		if before, err = tx.FindDeckByName(ctx, name); err != nil {
			return err
		}
		if before.ParentID == nil {
			return domain.ErrRootDeck
		}
		after = before

		if newName != "" && newName != before.Name {
			if _, err := tx.FindDeckByName(ctx, newName); err == nil {
				return fmt.Errorf("%w: %q", domain.ErrDeckExists, newName)
			} else if !errors.Is(err, domain.ErrDeckNotFound) {
				return err
			}
			after.Name = newName
		}
		if newParent != "" {
			p, err := tx.FindDeckByName(ctx, newParent)
			if err != nil {
				return err
			}
			subtree, err := tx.SubtreeDeckIDs(ctx, before.ID)
			if err != nil {
				return err
			}
			if slices.Contains(subtree, p.ID) {
				return fmt.Errorf("%w: %q is inside %q", domain.ErrDeckCycle, newParent, name)
			}
			after.ParentID = &p.ID
		}
		return tx.UpdateDeck(ctx, after)
	})
	if err != nil {
		return domain.Deck{}, err
	}

	s.reindexDeck(before, after)
	s.undo.Record(history.RenameDeckOp(before, after))
	s.log.Info("deck renamed", "deck", before.Name, "name", after.Name, "parent_id", *after.ParentID)
	return after, nil
}

func (s *Session) reindexDeck(before, after domain.Deck) {
	delete(s.decks, before.Name)
	s.decks[after.Name] = after.ID
}

// AddCard creates a card that is due immediately.
func (s *Session) AddCard(ctx context.Context, in domain.NewCard) (domain.Card, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Card{}, fmt.Errorf("invalid card: %w", err)
	}

	now := s.now()
	card := domain.Card{
		Front:     in.Front,
		Back:      in.Back,
		Tags:      in.Tags,
		Easiness:  s.params.InitialEasiness,
		DueAt:     &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, t := range in.Topics {
		if t = strings.TrimSpace(t); t != "" {
			card.Topics = append(card.Topics, t)
		}
	}

	err := s.db.InTx(ctx, func(tx *storage.Queries) error {
		deck, err := tx.FindDeckByName(ctx, in.Deck)
		if err != nil {
			return err
		}
		card.DeckID = deck.ID
		card.ID, err = tx.InsertCard(ctx, card)
		return err
	})
	if err != nil {
		return domain.Card{}, err
	}

	s.undo.Record(history.AddCardOp(card.ID))
	s.log.Info("card added", "card_id", card.ID, "deck", in.Deck)
	return card, nil
}

// EditCard changes the fields named by edit and bumps updated_at.
func (s *Session) EditCard(ctx context.Context, id int64, edit domain.CardEdit) (domain.Card, error) {
	if edit.Empty() {
		return domain.Card{}, domain.ErrNoFieldsToUpdate
	}

	var before, after domain.Card
	err := s.db.InTx(ctx, func(tx *storage.Queries) error {
		var err error
		if before, err = tx.FindCardByID(ctx, id); err != nil {
			return err
		}
		after = edit.Apply(before)
		after.UpdatedAt = s.now()
		return tx.UpdateCard(ctx, after)
	})
	if err != nil {
		return domain.Card{}, err
	}

	s.refresh(after)
	s.undo.Record(history.EditCardOp(before, after))
	s.log.Info("card edited", "card_id", id)
	return after, nil
}

// DeleteCard removes a card and drops it from the review queue.
func (s *Session) DeleteCard(ctx context.Context, id int64) error {
	var card domain.Card
	err := s.db.InTx(ctx, func(tx *storage.Queries) error {
		var err error
		if card, err = tx.FindCardByID(ctx, id); err != nil {
			return err
		}
		return tx.DeleteCardByID(ctx, id)
	})
	if err != nil {
		return err
	}

	s.forget(id)
	s.undo.Record(history.DeleteCardOp(card))
	s.log.Info("card deleted", "card_id", id)
	return nil
}

// applyInverse reverts op through the same storage paths the mutations use
// and returns the Op that reverts the inverse.
func (s *Session) applyInverse(ctx context.Context, op history.Op) (history.Op, error) {
	switch op.Kind {
	case history.AddDeck:
		deck, cards, err := s.deleteDeck(ctx, op.DeckName)
		if err != nil {
			return history.Op{}, err
		}
		return history.DeleteDeckOp(deck, cards), nil

	case history.DeleteDeck:
		err := s.db.InTx(ctx, func(tx *storage.Queries) error {
			if _, err := tx.InsertDeck(ctx, op.Deck); err != nil {
				return err
			}
			for _, c := range op.DeckCards {
				if _, err := tx.InsertCard(ctx, c); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return history.Op{}, err
		}
		s.decks[op.Deck.Name] = op.Deck.ID
		return history.AddDeckOp(op.Deck.Name), nil

	case history.RenameDeck:
		err := s.db.InTx(ctx, func(tx *storage.Queries) error {
			return tx.UpdateDeck(ctx, op.PrevDeck)
		})
		if err != nil {
			return history.Op{}, err
		}
		s.reindexDeck(op.Deck, op.PrevDeck)
		return history.RenameDeckOp(op.Deck, op.PrevDeck), nil

	case history.AddCard:
		var card domain.Card
		err := s.db.InTx(ctx, func(tx *storage.Queries) error {
			var err error
			if card, err = tx.FindCardByID(ctx, op.CardID); err != nil {
				return err
			}
			return tx.DeleteCardByID(ctx, op.CardID)
		})
		if err != nil {
			return history.Op{}, err
		}
		s.forget(card.ID)
		return history.DeleteCardOp(card), nil

	case history.DeleteCard:
		err := s.db.InTx(ctx, func(tx *storage.Queries) error {
			_, err := tx.InsertCard(ctx, op.Card)
			return err
		})
		if err != nil {
			return history.Op{}, err
		}
		return history.AddCardOp(op.Card.ID), nil

	case history.EditCard, history.AnswerCard:
		err := s.db.InTx(ctx, func(tx *storage.Queries) error {
			return tx.UpdateCard(ctx, op.Before)
		})
		if err != nil {
			return history.Op{}, err
		}
		s.refresh(op.Before)
		if op.Kind == history.EditCard {
			return history.EditCardOp(op.After, op.Before), nil
		}
		return history.AnswerCardOp(op.After, op.Before), nil
	}
	return history.Op{}, fmt.Errorf("unknown operation %q", op.Kind)
}
