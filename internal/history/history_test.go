package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// swap is an ApplyFunc that needs no storage: it inverts add/delete card ops
// and swaps edit snapshots.
func swap(applied *[]Op) ApplyFunc {
	return func(_ context.Context, op Op) (Op, error) {
		*applied = append(*applied, op)
		switch op.Kind {
		case AddCard:
			return DeleteCardOp(domain.Card{ID: op.CardID}), nil
		case DeleteCard:
			return AddCardOp(op.Card.ID), nil
		case EditCard:
			return EditCardOp(op.After, op.Before), nil
		}
		return op, nil
	}
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()
	l := NewLog()
	var applied []Op

	l.Record(AddCardOp(4))
	l.Record(EditCardOp(domain.Card{ID: 4, Front: "old"}, domain.Card{ID: 4, Front: "new"}))

	kind, err := l.Undo(ctx, swap(&applied))
	require.NoError(t, err)
	assert.Equal(t, EditCard, kind)
	assert.Equal(t, 1, l.UndoLen())
	assert.Equal(t, 1, l.RedoLen())

	kind, err = l.Undo(ctx, swap(&applied))
	require.NoError(t, err)
	assert.Equal(t, AddCard, kind)

	_, err = l.Undo(ctx, swap(&applied))
	assert.ErrorIs(t, err, domain.ErrNothingToUndo)

	// Redo consumes the inverse records, newest first.
	kind, err = l.Redo(ctx, swap(&applied))
	require.NoError(t, err)
	assert.Equal(t, DeleteCard, kind)
	kind, err = l.Redo(ctx, swap(&applied))
	require.NoError(t, err)
	assert.Equal(t, EditCard, kind)
	assert.Equal(t, "new", applied[len(applied)-1].Before.Front, "redo applies the post-edit row")

	_, err = l.Redo(ctx, swap(&applied))
	assert.ErrorIs(t, err, domain.ErrNothingToRedo)
	assert.Equal(t, 2, l.UndoLen())
}

func TestRecordClearsRedo(t *testing.T) {
	ctx := context.Background()
	l := NewLog()
	var applied []Op

	l.Record(AddCardOp(1))
	_, err := l.Undo(ctx, swap(&applied))
	require.NoError(t, err)
	require.Equal(t, 1, l.RedoLen())

	l.Record(AddCardOp(2))
	assert.Equal(t, 0, l.RedoLen())
	_, err = l.Redo(ctx, swap(&applied))
	assert.ErrorIs(t, err, domain.ErrNothingToRedo)
}

func TestFailedApplyKeepsStacks(t *testing.T) {
	ctx := context.Background()
	l := NewLog()
	l.Record(AddDeckOp("go"))
	boom := errors.New("boom")

	_, err := l.Undo(ctx, func(context.Context, Op) (Op, error) { return Op{}, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, l.UndoLen())
	assert.Equal(t, 0, l.RedoLen())
}

func TestClear(t *testing.T) {
	l := NewLog()
	l.Record(AddDeckOp("a"))
	l.Record(AddDeckOp("b"))
	l.Clear()
	assert.Equal(t, 0, l.UndoLen())
	assert.Equal(t, 0, l.RedoLen())
}
