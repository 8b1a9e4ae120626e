// Package shell runs an interactive study loop over one session, so undo
// and redo span everything done until the user quits.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/session"
)

const prompt = "flashdeck> "

var errQuit = errors.New("quit")

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Shell reads commands line by line and applies them to its session.
type Shell struct {
	session *session.Session
	in      *bufio.Reader
	out     io.Writer

	bold  *color.Color
	green *color.Color
	red   *color.Color
	faint *color.Color

	commands map[string]command
	order    []string
}

func New(s *session.Session, in io.Reader, out io.Writer) *Shell {
	sh := &Shell{
		session: s,
		in:      bufio.NewReader(in),
		out:     out,
		bold:    color.New(color.Bold),
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		faint:   color.New(color.Faint),

		commands: make(map[string]command),
	}
	sh.register("quiz", "quiz [--subdecks] [deck] [limit]", "load the cards due now and show the first", sh.quiz)
	sh.register("show", "show", "reveal the back of the current card", sh.show)
	sh.register("answer", "answer <0-5>", "grade the current card", sh.answer)
	sh.register("undo", "undo", "revert the last change", sh.undo)
	sh.register("redo", "redo", "re-apply the last undone change", sh.redo)
	sh.register("add-card", "add-card [deck]", "add a card, prompting for its fields", sh.addCard)
	sh.register("edit-card", "edit-card <id>", "edit a card; leave a field blank to keep it", sh.editCard)
	sh.register("delete-card", "delete-card <id>", "delete a card", sh.deleteCard)
	sh.register("add-deck", "add-deck <name> [parent]", "create a deck", sh.addDeck)
	sh.register("delete-deck", "delete-deck <name>", "delete a deck and its cards", sh.deleteDeck)
	sh.register("rename-deck", "rename-deck <name> <new-name> [new-parent]", "rename or move a deck", sh.renameDeck)
	sh.register("list", "list [--subdecks] [deck]", "list cards by due date", sh.list)
	sh.register("stats", "stats", "show card counts per deck", sh.stats)
	sh.register("tree", "tree", "show the deck hierarchy with card counts", sh.tree)
	sh.register("history", "history", "show the answers given in this session", sh.history)
	sh.register("help", "help", "show this help", sh.help)
	sh.register("quit", "quit", "leave the shell", func(context.Context, []string) error { return errQuit })
	return sh
}

func (sh *Shell) register(name, usage, help string, run func(context.Context, []string) error) {
	sh.commands[name] = command{usage: usage, help: help, run: run}
	sh.order = append(sh.order, name)
}

// Run processes commands until quit, end of input or ctx is done. Command
// errors are printed and do not stop the loop.
func (sh *Shell) Run(ctx context.Context) error {
	sh.bold.Fprintf(sh.out, "Session %s. Type help for commands.\n", sh.session.ID())
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(sh.out, prompt)
		line, err := sh.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read command: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		fields := strings.Fields(line)
		if len(fields) > 0 {
			if runErr := sh.exec(ctx, fields[0], fields[1:]); errors.Is(runErr, errQuit) {
				fmt.Fprintln(sh.out, "Bye.")
				return nil
			} else if runErr != nil {
				sh.red.Fprintf(sh.out, "error: %v\n", runErr)
			}
		}
		if eof {
			fmt.Fprintln(sh.out)
			return nil
		}
	}
}

func (sh *Shell) exec(ctx context.Context, name string, args []string) error {
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := sh.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, type help", name)
	}
	return cmd.run(ctx, args)
}

// readField prompts for one line of input and returns it without the line
// ending.
func (sh *Shell) readField(label string) (string, error) {
	fmt.Fprintf(sh.out, "%s: ", label)
	line, err := sh.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid card id %q", args[0])
	}
	return id, nil
}

func (sh *Shell) printFront(ctx context.Context) error {
	card, err := sh.session.Current(ctx)
	if errors.Is(err, domain.ErrQueueEmpty) {
		sh.green.Fprintln(sh.out, "No more cards due. Well done.")
		return nil
	}
	if err != nil {
		return err
	}
	sh.faint.Fprintf(sh.out, "[%d left] card %d\n", sh.session.Pending(), card.ID)
	sh.bold.Fprintf(sh.out, "Q: %s\n", card.Front)
	return nil
}

func (sh *Shell) help(context.Context, []string) error {
	for _, name := range sh.order {
		c := sh.commands[name]
		fmt.Fprintf(sh.out, "  %-44s %s\n", c.usage, c.help)
	}
	return nil
}
