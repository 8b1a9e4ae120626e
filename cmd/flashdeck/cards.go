package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/render"
)

func newInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and its root deck",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Initialised %s.\n", a.cfg.Database.Path)
			return nil
		}),
	}
}

func newAddDeckCommand(a *app) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "add-deck <name>",
		Short: "Create a deck",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			deck, err := a.session.AddDeck(cmd.Context(), args[0], parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added deck %s (id %d).\n", deck.Name, deck.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&parent, "parent", domain.RootDeckName, "parent deck")
	return cmd
}

func newDeleteDeckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-deck <name>",
		Short: "Delete a deck and its cards",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			if err := a.session.DeleteDeck(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted deck %s.\n", args[0])
			return nil
		}),
	}
}

func newRenameDeckCommand(a *app) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "rename-deck <name> [new-name]",
		Short: "Rename a deck or move it below another deck",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			var newName string
			if len(args) == 2 {
				newName = args[1]
			}
			deck, err := a.session.RenameDeck(cmd.Context(), args[0], newName, parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deck %s is now %s.\n", args[0], deck.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&parent, "parent", "", "move the deck below this deck")
	return cmd
}

func newAddCardCommand(a *app) *cobra.Command {
	var in domain.NewCard
	cmd := &cobra.Command{
		Use:   "add-card",
		Short: "Create a card that is due immediately",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			card, err := a.session.AddCard(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added card %d to %s.\n", card.ID, in.Deck)
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Deck, "deck", domain.RootDeckName, "deck to add the card to")
	flags.StringVar(&in.Front, "front", "", "front of the card")
	flags.StringVar(&in.Back, "back", "", "back of the card")
	flags.StringVar(&in.Tags, "tags", "", "free-form tags")
	flags.StringSliceVar(&in.Topics, "topics", nil, "comma-separated topics")
	_ = cmd.MarkFlagRequired("front")
	_ = cmd.MarkFlagRequired("back")
	return cmd
}

func newEditCardCommand(a *app) *cobra.Command {
	var front, back, tags string
	cmd := &cobra.Command{
		Use:   "edit-card <id>",
		Short: "Change the front, back or tags of a card",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			var edit domain.CardEdit
			if cmd.Flags().Changed("front") {
				edit.Front = &front
			}
			if cmd.Flags().Changed("back") {
				edit.Back = &back
			}
			if cmd.Flags().Changed("tags") {
				edit.Tags = &tags
			}
			if _, err := a.session.EditCard(cmd.Context(), id, edit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated card %d.\n", id)
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&front, "front", "", "new front")
	flags.StringVar(&back, "back", "", "new back")
	flags.StringVar(&tags, "tags", "", "new tags")
	return cmd
}

func newDeleteCardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-card <id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			if err := a.session.DeleteCard(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted card %d.\n", id)
			return nil
		}),
	}
}

func newListCommand(a *app) *cobra.Command {
	var (
		deck     string
		subdecks bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards ordered by due date",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			list := a.session.ListCards
			if subdecks {
				list = a.session.ListCardsWithSubdecks
			}
			cards, err := list(cmd.Context(), deck, 0)
			if err != nil {
				return err
			}
			return render.Cards(cmd.OutOrStdout(), cards)
		}),
	}
	cmd.Flags().StringVar(&deck, "deck", "", "only list cards in this deck")
	cmd.Flags().BoolVar(&subdecks, "subdecks", false, "include the decks below --deck")
	return cmd
}

func newDueCommand(a *app) *cobra.Command {
	var (
		deck     string
		subdecks bool
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show the cards that are due now",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			selectDue := a.session.SelectDue
			if subdecks {
				selectDue = a.session.SelectDueWithSubdecks
			}
			cards, err := selectDue(cmd.Context(), deck, 0)
			if err != nil {
				return err
			}
			return render.Cards(cmd.OutOrStdout(), cards)
		}),
	}
	cmd.Flags().StringVar(&deck, "deck", "", "only select cards in this deck")
	cmd.Flags().BoolVar(&subdecks, "subdecks", false, "include the decks below --deck")
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show total and due card counts per deck",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			stats, err := a.session.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return render.Stats(cmd.OutOrStdout(), stats)
		}),
	}
}

func newTreeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the deck hierarchy with card counts per subtree",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			tree, err := a.session.DeckTree(cmd.Context())
			if err != nil {
				return err
			}
			return render.DeckTree(cmd.OutOrStdout(), tree)
		}),
	}
}

func newLinkTopicsCommand(a *app) *cobra.Command {
	var weight float64
	cmd := &cobra.Command{
		Use:   "link-topics <src> <dst>",
		Short: "Add or reweight a directed edge between two topics",
		Args:  cobra.ExactArgs(2),
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			if err := a.session.LinkTopics(cmd.Context(), args[0], args[1], weight); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -> %s (%g).\n", args[0], args[1], weight)
			return nil
		}),
	}
	cmd.Flags().Float64Var(&weight, "weight", 1.0, "edge weight")
	return cmd
}

func newGraphCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the topic graph",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, args []string) error {
			if err := a.session.LoadIndexes(cmd.Context()); err != nil {
				return err
			}
			graph := a.session.TopicGraph()
			names := make([]string, 0, len(graph))
			for name := range graph {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, src := range names {
				dsts := make([]string, 0, len(graph[src]))
				for dst := range graph[src] {
					dsts = append(dsts, dst)
				}
				sort.Strings(dsts)
				if len(dsts) == 0 {
					fmt.Fprintln(out, src)
					continue
				}
				for _, dst := range dsts {
					fmt.Fprintf(out, "%s -> %s (%g)\n", src, dst, graph[src][dst])
				}
			}
			return nil
		}),
	}
}

func parseCardID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid card id %q", s)
	}
	return id, nil
}
