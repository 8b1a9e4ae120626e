// Package parser reads flashcards written in markdown notes.
//
// A card starts with a "Q:" line and may carry "A:" (back), "C:" (tags) and
// "T:" (comma-separated topics) sections. Lines that follow a section
// without a prefix continue it. A "---" line or the next "Q:" ends the card.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

type section int

const (
	none section = iota
	front
	back
	tags
	topics
)

var prefixes = []struct {
	prefix  string
	section section
}{
	{"Q:", front},
	{"A:", back},
	{"C:", tags},
	{"T:", topics},
}

const separator = "---"

// ParseFile parses the cards in the file at path.
func ParseFile(path string) ([]domain.NewCard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse extracts every card with a non-empty front from r. Deck is left
// empty for the caller to fill in.
func Parse(r io.Reader) ([]domain.NewCard, error) {
	p := &cardParser{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.finish()
	return p.cards, nil
}

type cardParser struct {
	cards   []domain.NewCard
	current domain.NewCard
	section section
	block   []string
}

func (p *cardParser) line(line string) {
	if line == separator {
		p.finish()
		return
	}
	for _, pr := range prefixes {
		if !strings.HasPrefix(line, pr.prefix) {
			continue
		}
		p.flush()
		if pr.section == front && p.section != none {
			p.finish()
		}
		p.section = pr.section
		p.block = append(p.block, strings.TrimPrefix(line[len(pr.prefix):], " "))
		return
	}
	if p.section != none {
		p.block = append(p.block, line)
	}
}

// flush stores the pending block in the field of the current section.
func (p *cardParser) flush() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimSpace(strings.Join(p.block, "\n"))
	p.block = nil

	switch p.section {
	case front:
		p.current.Front = content
	case back:
		p.current.Back = content
	case tags:
		p.current.Tags = content
	case topics:
		for _, t := range strings.Split(content, ",") {
			if t = strings.TrimSpace(t); t != "" {
				p.current.Topics = append(p.current.Topics, t)
			}
		}
	}
}

func (p *cardParser) finish() {
	p.flush()
	if p.current.Front != "" {
		p.cards = append(p.cards, p.current)
	}
	p.current = domain.NewCard{}
	p.section = none
}
