package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/render"
)

// splitSubdecks removes a leading --subdecks flag from args.
func splitSubdecks(args []string) ([]string, bool) {
	if len(args) > 0 && args[0] == "--subdecks" {
		return args[1:], true
	}
	return args, false
}

func (sh *Shell) quiz(ctx context.Context, args []string) error {
	args, subdecks := splitSubdecks(args)
	var deck string
	var limit int
	switch len(args) {
	case 2:
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit %q", args[1])
		}
		limit = n
		fallthrough
	case 1:
		deck = args[0]
	case 0:
	default:
		return fmt.Errorf("usage: quiz [--subdecks] [deck] [limit]")
	}

	selectDue := sh.session.SelectDue
	if subdecks {
		selectDue = sh.session.SelectDueWithSubdecks
	}
	cards, err := selectDue(ctx, deck, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%d card(s) due.\n", len(cards))
	return sh.printFront(ctx)
}

func (sh *Shell) show(ctx context.Context, _ []string) error {
	card, err := sh.session.Current(ctx)
	if err != nil {
		return err
	}
	sh.bold.Fprintf(sh.out, "Q: %s\n", card.Front)
	fmt.Fprintf(sh.out, "A: %s\n", card.Back)
	if card.Tags != "" {
		sh.faint.Fprintf(sh.out, "tags: %s\n", card.Tags)
	}
	return nil
}

func (sh *Shell) answer(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: answer <0-5>")
	}
	q, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidQuality, args[0])
	}
	card, err := sh.session.Answer(ctx, q)
	if err != nil {
		return err
	}
	if card.Repetitions == 0 {
		sh.red.Fprintf(sh.out, "Card %d will come back today.\n", card.ID)
	} else {
		sh.green.Fprintf(sh.out, "Card %d next due in %g day(s).\n", card.ID, card.Interval)
	}
	return sh.printFront(ctx)
}

func (sh *Shell) undo(ctx context.Context, _ []string) error {
	msg, err := sh.session.Undo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, msg)
	return nil
}

func (sh *Shell) redo(ctx context.Context, _ []string) error {
	msg, err := sh.session.Redo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, msg)
	return nil
}

func (sh *Shell) addCard(ctx context.Context, args []string) error {
	deck := domain.RootDeckName
	switch len(args) {
	case 0:
	case 1:
		deck = args[0]
	default:
		return fmt.Errorf("usage: add-card [deck]")
	}

	in := domain.NewCard{Deck: deck}
	var err error
	if in.Front, err = sh.readField("Front"); err != nil {
		return err
	}
	if in.Back, err = sh.readField("Back"); err != nil {
		return err
	}
	if in.Tags, err = sh.readField("Tags"); err != nil {
		return err
	}
	topics, err := sh.readField("Topics")
	if err != nil {
		return err
	}
	if topics != "" {
		in.Topics = strings.Split(topics, ",")
	}

	card, err := sh.session.AddCard(ctx, in)
	if err != nil {
		return err
	}
	sh.green.Fprintf(sh.out, "Added card %d to %s.\n", card.ID, deck)
	return nil
}

func (sh *Shell) editCard(ctx context.Context, args []string) error {
	id, err := parseID(args, "edit-card <id>")
	if err != nil {
		return err
	}
	card, err := sh.session.Card(ctx, id)
	if err != nil {
		return err
	}

	var edit domain.CardEdit
	for _, f := range []struct {
		label   string
		current string
		dst     **string
	}{
		{"Front", card.Front, &edit.Front},
		{"Back", card.Back, &edit.Back},
		{"Tags", card.Tags, &edit.Tags},
	} {
		sh.faint.Fprintf(sh.out, "%s is %q\n", f.label, f.current)
		v, err := sh.readField(f.label)
		if err != nil {
			return err
		}
		if v != "" {
			*f.dst = &v
		}
	}

	if _, err := sh.session.EditCard(ctx, id, edit); err != nil {
		return err
	}
	sh.green.Fprintf(sh.out, "Updated card %d.\n", id)
	return nil
}

func (sh *Shell) deleteCard(ctx context.Context, args []string) error {
	id, err := parseID(args, "delete-card <id>")
	if err != nil {
		return err
	}
	if err := sh.session.DeleteCard(ctx, id); err != nil {
		return err
	}
	sh.green.Fprintf(sh.out, "Deleted card %d.\n", id)
	return nil
}

func (sh *Shell) list(ctx context.Context, args []string) error {
	args, subdecks := splitSubdecks(args)
	var deck string
	if len(args) > 0 {
		deck = args[0]
	}
	list := sh.session.ListCards
	if subdecks {
		list = sh.session.ListCardsWithSubdecks
	}
	cards, err := list(ctx, deck, 0)
	if err != nil {
		return err
	}
	return render.Cards(sh.out, cards)
}

func (sh *Shell) stats(ctx context.Context, _ []string) error {
	stats, err := sh.session.Stats(ctx)
	if err != nil {
		return err
	}
	return render.Stats(sh.out, stats)
}

func (sh *Shell) tree(ctx context.Context, _ []string) error {
	tree, err := sh.session.DeckTree(ctx)
	if err != nil {
		return err
	}
	return render.DeckTree(sh.out, tree)
}

func (sh *Shell) addDeck(ctx context.Context, args []string) error {
	var parent string
	switch len(args) {
	case 2:
		parent = args[1]
	case 1:
	default:
		return fmt.Errorf("usage: add-deck <name> [parent]")
	}
	deck, err := sh.session.AddDeck(ctx, args[0], parent)
	if err != nil {
		return err
	}
	sh.green.Fprintf(sh.out, "Added deck %s.\n", deck.Name)
	return nil
}

func (sh *Shell) deleteDeck(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete-deck <name>")
	}
	if err := sh.session.DeleteDeck(ctx, args[0]); err != nil {
		return err
	}
	sh.green.Fprintf(sh.out, "Deleted deck %s.\n", args[0])
	return nil
}

func (sh *Shell) renameDeck(ctx context.Context, args []string) error {
	var parent string
	switch len(args) {
	case 3:
		parent = args[2]
	case 2:
	default:
		return fmt.Errorf("usage: rename-deck <name> <new-name> [new-parent]")
	}
	deck, err := sh.session.RenameDeck(ctx, args[0], args[1], parent)
	if err != nil {
		return err
	}
	sh.green.Fprintf(sh.out, "Deck %s is now %s.\n", args[0], deck.Name)
	return nil
}

func (sh *Shell) history(context.Context, []string) error {
	logs := sh.session.History()
	if len(logs) == 0 {
		fmt.Fprintln(sh.out, "No answers yet.")
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(sh.out, "%s  card %d  quality %d\n", l.AnsweredAt.Format("15:04:05"), l.CardID, l.Quality)
	}
	return nil
}
