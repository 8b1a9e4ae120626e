// Package render formats cards, deck statistics and the deck tree as text
// for the command line and the study shell.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// OneLine flattens s to a single line of at most n runes.
func OneLine(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

// Cards writes cards as an aligned table.
func Cards(w io.Writer, cards []domain.Card) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFRONT\tBACK\tDUE\tINTERVAL\tEF\tREPS")
	for _, c := range cards {
		due := "now"
		if c.DueAt != nil {
			due = c.DueAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%g\t%.2f\t%d\n",
			c.ID, OneLine(c.Front, 40), OneLine(c.Back, 40), due, c.Interval, c.Easiness, c.Repetitions)
	}
	return tw.Flush()
}

// Stats writes the total and due count of every deck.
func Stats(w io.Writer, stats []domain.DeckStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DECK\tTOTAL\tDUE")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Deck, s.Total, s.Due)
	}
	return tw.Flush()
}

// DeckTree draws the deck hierarchy, one deck per line with the card
// counts of its whole subtree:
//
//	root (3 cards, 2 due)
//	├── go (2 cards, 1 due)
//	│   └── generics (1 cards, 0 due)
//	└── rust (0 cards, 0 due)
func DeckTree(w io.Writer, tree []domain.DeckNode) error {
	var b strings.Builder
	for _, n := range tree {
		writeNode(&b, n)
		writeChildren(&b, n.Children, "")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, nodes []domain.DeckNode, prefix string) {
	for i, n := range nodes {
		branch, indent := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, indent = "└── ", "    "
		}
		b.WriteString(prefix + branch)
		writeNode(b, n)
		writeChildren(b, n.Children, prefix+indent)
	}
}

func writeNode(b *strings.Builder, n domain.DeckNode) {
	fmt.Fprintf(b, "%s (%d cards, %d due)\n", n.Deck.Name, n.Total, n.Due)
}
