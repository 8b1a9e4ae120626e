// Package history keeps the undo and redo stacks of a study session.
//
// Every successful mutation records an Op describing how to revert it.
// Undo pops the newest Op, asks the caller to apply its inverse against
// storage and pushes the Op describing that inverse onto the redo stack.
// Redo does the same in the other direction. Recording a new Op empties
// the redo stack.
package history

import (
	"context"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Kind names a reversible operation.
type Kind string

const (
	AddDeck    Kind = "add-deck"
	DeleteDeck Kind = "delete-deck"
	RenameDeck Kind = "rename-deck"
	AddCard    Kind = "add-card"
	DeleteCard Kind = "delete-card"
	EditCard   Kind = "edit-card"
	AnswerCard Kind = "answer-card"
)

// Op is one record on the undo or redo stack. Which fields are set depends
// on Kind:
//
//	add-deck     DeckName
//	delete-deck  Deck, DeckCards (cards removed with it)
//	rename-deck  PrevDeck, Deck (name and parent before and after)
//	add-card     CardID
//	delete-card  Card (full row)
//	edit-card    Before, After (full rows)
//	answer-card  Before, After (full rows)
type Op struct {
	Kind Kind

	DeckName  string
	Deck      domain.Deck
	PrevDeck  domain.Deck
	DeckCards []domain.Card

	CardID int64
	Card   domain.Card

	Before domain.Card
	After  domain.Card
}

func AddDeckOp(name string) Op {
	return Op{Kind: AddDeck, DeckName: name}
}

func DeleteDeckOp(deck domain.Deck, cards []domain.Card) Op {
	return Op{Kind: DeleteDeck, Deck: deck, DeckCards: cards}
}

func RenameDeckOp(before, after domain.Deck) Op {
	return Op{Kind: RenameDeck, PrevDeck: before, Deck: after}
}

func AddCardOp(id int64) Op {
	return Op{Kind: AddCard, CardID: id}
}

func DeleteCardOp(card domain.Card) Op {
	return Op{Kind: DeleteCard, Card: card}
}

func EditCardOp(before, after domain.Card) Op {
	return Op{Kind: EditCard, Before: before, After: after}
}

func AnswerCardOp(before, after domain.Card) Op {
	return Op{Kind: AnswerCard, Before: before, After: after}
}

// ApplyFunc applies the inverse of op and returns the Op that reverts that
// inverse in turn.
type ApplyFunc func(ctx context.Context, op Op) (Op, error)

// Log holds the undo and redo stacks. Create one with NewLog.
type Log struct {
	undo *arraystack.Stack
	redo *arraystack.Stack
}

// NewLog returns a log with both stacks empty.
func NewLog() *Log {
	return &Log{undo: arraystack.New(), redo: arraystack.New()}
}

// Record pushes op onto the undo stack and discards all redo history.
func (l *Log) Record(op Op) {
	l.undo.Push(op)
	l.redo.Clear()
}

// Undo reverts the newest recorded operation and returns its kind.
// If apply fails, both stacks are left as they were.
func (l *Log) Undo(ctx context.Context, apply ApplyFunc) (Kind, error) {
	return move(ctx, l.undo, l.redo, apply, domain.ErrNothingToUndo)
}

// Redo re-applies the newest undone operation and returns the kind of the
// record it consumed.
func (l *Log) Redo(ctx context.Context, apply ApplyFunc) (Kind, error) {
	return move(ctx, l.redo, l.undo, apply, domain.ErrNothingToRedo)
}

func move(ctx context.Context, from, to *arraystack.Stack, apply ApplyFunc, empty error) (Kind, error) {
	v, ok := from.Peek()
	if !ok {
		return "", empty
	}
	op := v.(Op)
	inverse, err := apply(ctx, op)
	if err != nil {
		return "", err
	}
	from.Pop()
	to.Push(inverse)
	return op.Kind, nil
}

// UndoLen returns the number of operations that can be undone.
func (l *Log) UndoLen() int { return l.undo.Size() }

// RedoLen returns the number of operations that can be redone.
func (l *Log) RedoLen() int { return l.redo.Size() }

// Clear empties both stacks.
func (l *Log) Clear() {
	l.undo.Clear()
	l.redo.Clear()
}
