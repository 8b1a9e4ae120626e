package domain

import "time"

// RootDeckName is the distinguished deck every other deck descends from.
const RootDeckName = "root"

// Deck is a named node in the deck tree. ParentID is nil only for the root.
type Deck struct {
	ID       int64
	Name     string
	ParentID *int64
}

// Card is one front/back entry together with its SM-2 scheduling state.
//
// Easiness never drops below 1.3, Interval is a day count >= 0 and
// Repetitions counts consecutive successful reviews. A nil DueAt means the
// card is due immediately.
type Card struct {
	ID     int64
	DeckID int64
	Front  string
	Back   string
	Tags   string

	Easiness       float64
	Interval       float64
	Repetitions    int
	DueAt          *time.Time
	LastReviewedAt *time.Time
	Successes      int
	Failures       int

	CreatedAt time.Time
	UpdatedAt time.Time

	// Topics holds the names of the topics the card is tagged with.
	Topics []string
}

// NewCard is the input for creating a card.
type NewCard struct {
	Deck   string   `validate:"required"`
	Front  string   `validate:"required"`
	Back   string   `validate:"required"`
	Tags   string
	Topics []string
}

// CardEdit names the fields an edit may change. Nil fields are left alone.
type CardEdit struct {
	Front *string
	Back  *string
	Tags  *string
}

// Empty reports whether the edit changes nothing.
func (e CardEdit) Empty() bool {
	return e.Front == nil && e.Back == nil && e.Tags == nil
}

// Apply returns a copy of c with the edit's fields set.
func (e CardEdit) Apply(c Card) Card {
	if e.Front != nil {
		c.Front = *e.Front
	}
	if e.Back != nil {
		c.Back = *e.Back
	}
	if e.Tags != nil {
		c.Tags = *e.Tags
	}
	return c
}

// Topic is a globally unique label cards can be associated with.
type Topic struct {
	ID   int64
	Name string
}

// TopicEdge is a directed, weighted relation between two topics.
type TopicEdge struct {
	Src    string
	Dst    string
	Weight float64
}

// TopicGraph maps a topic name to its outgoing neighbours and edge weights.
type TopicGraph map[string]map[string]float64

// ReviewLog records a single answer given during a session.
type ReviewLog struct {
	SessionID  string
	CardID     int64
	Quality    int
	AnsweredAt time.Time
}

// DeckStats summarises one deck for the stats view.
type DeckStats struct {
	Deck  string
	Total int
	Due   int
}

// DeckNode is one deck in the deck tree. Total and Due count the cards of
// the deck and of every deck below it.
type DeckNode struct {
	Deck     Deck
	Total    int
	Due      int
	Children []DeckNode
}
