package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
)

func TestQueue(t *testing.T) {
	q := NewQueue()

	_, err := q.Peek()
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)
	_, err = q.Pop()
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)

	q.Load([]int64{3, 1, 2})
	assert.Equal(t, 3, q.Len())

	head, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, int64(3), head)
	assert.Equal(t, 3, q.Len(), "peek must not consume")

	for _, want := range []int64{3, 1, 2} {
		got, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = q.Pop()
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)
}

func TestQueueLoadReplaces(t *testing.T) {
	q := NewQueue()
	q.Load([]int64{1, 2, 3})
	_, _ = q.Pop()

	q.Load([]int64{9})
	assert.Equal(t, []int64{9}, q.IDs())

	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.IDs())
}
