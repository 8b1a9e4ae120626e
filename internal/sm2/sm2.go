package sm2

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Quality is the 0..5 self-assessment given after a review.
// 0 is a complete blackout, 5 a perfect answer.
type Quality int

const (
	MinQuality Quality = 0
	MaxQuality Quality = 5

	// PassingQuality is the lowest grade that counts as a successful recall.
	PassingQuality Quality = 3
)

// Validate rejects grades outside 0..5.
func (q Quality) Validate() error {
	if q < MinQuality || q > MaxQuality {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuality, int(q))
	}
	return nil
}

// Params holds the constants of the SM-2 algorithm.
type Params struct {
	InitialEasiness float64 // easiness of a never-reviewed card
	MinEasiness     float64 // easiness floor
}

// DefaultParams returns the classic SM-2 constants.
func DefaultParams() *Params {
	return &Params{
		InitialEasiness: 2.5,
		MinEasiness:     1.3,
	}
}

const secondsPerDay = 24 * 60 * 60

// NextState calculates the scheduling state that follows answering card with
// quality q at time now. The card is returned as a copy; nothing is persisted.
//
// The new interval uses the easiness from before this review. The updated
// easiness only affects the next interval.
func (p *Params) NextState(card domain.Card, q Quality, now time.Time) (domain.Card, error) {
	if err := q.Validate(); err != nil {
		return card, err
	}

	easiness := card.Easiness
	interval := card.Interval
	reps := card.Repetitions

	if q < PassingQuality {
		reps = 0
		interval = 0
		card.Failures++
	} else {
		switch reps {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = round(interval*easiness, 2)
		}
		reps++
		card.Successes++
		easiness = p.nextEasiness(easiness, q)
	}

	reviewed := now
	due := NextDueDate(now, interval)

	card.Easiness = round(easiness, 4)
	card.Interval = interval
	card.Repetitions = reps
	card.LastReviewedAt = &reviewed
	card.DueAt = &due
	card.UpdatedAt = now
	return card, nil
}

// nextEasiness applies the SM-2 easiness delta and clamps to the floor.
func (p *Params) nextEasiness(ef float64, q Quality) float64 {
	d := float64(MaxQuality - q)
	ef += 0.1 - d*(0.08+d*0.02)
	return math.Max(ef, p.MinEasiness)
}

// NextDueDate returns the time interval days after from.
// An interval of 0 means the card is due at from.
func NextDueDate(from time.Time, interval float64) time.Time {
	secs := math.Round(interval * secondsPerDay)
	return from.Add(time.Duration(secs) * time.Second)
}

// round rounds the exact binary value of v, so a product stored as
// 237.76499... stays 237.76 instead of being scaled up onto the tie.
func round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
