// Package knol fingerprints card content so the same note imported twice
// maps to the same card.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

func normalizePart(part string) string {
	p := strings.ToLower(part)
	p = strings.ReplaceAll(p, "\r\n", "\n")
	return strings.TrimSpace(p)
}

// Normalize lowercases and trims front, back and tags and joins them with
// newlines so adjacent fields cannot run together.
func Normalize(front, back, tags string) string {
	return strings.Join([]string{normalizePart(front), normalizePart(back), normalizePart(tags)}, "\n")
}

// Sum returns the hex SHA-256 of the normalized content.
func Sum(front, back, tags string) string {
	sum := sha256.Sum256([]byte(Normalize(front, back, tags)))
	return hex.EncodeToString(sum[:])
}

// Hash fingerprints a stored card. Scheduling state does not contribute.
func Hash(c domain.Card) string {
	return Sum(c.Front, c.Back, c.Tags)
}

// HashNew fingerprints a card that has not been stored yet.
func HashNew(c domain.NewCard) string {
	return Sum(c.Front, c.Back, c.Tags)
}
