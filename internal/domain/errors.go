package domain

import "errors"

// Sentinel errors returned by the core. Use errors.Is to check them.
var (
	ErrInvalidQuality   = errors.New("quality must be between 0 and 5")
	ErrDeckNotFound     = errors.New("deck not found")
	ErrDeckExists       = errors.New("deck already exists")
	ErrDeckHasChildren  = errors.New("deck still has child decks")
	ErrRootDeck         = errors.New("the root deck cannot be deleted or moved")
	ErrDeckCycle        = errors.New("a deck cannot be moved below itself")
	ErrCardNotFound     = errors.New("card not found")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	ErrQueueEmpty       = errors.New("review queue is empty")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
	ErrEmptyName        = errors.New("name must not be empty")
)
