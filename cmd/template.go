package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/database"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Work with print templates",
}

var templateWatchCmd = &cobra.Command{
	Use:   "watch <owner-id>",
	Short: "Keep a template in sync from the terminal",
	Long: `Open the template of an event or market and keep it in sync with
newly ingested photos. The slot grid is printed after every change.

Type "print" and press Enter to print the current sheet, "quit" to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateWatch,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateWatchCmd)

	templateWatchCmd.Flags().String("kind", string(database.OwnerEvent), "Owner kind: event or market")
	templateWatchCmd.Flags().String("printer", printerHelper, "Where printed sheets go: helper, cloud or none")
}

func runTemplateWatch(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	owner := booth.Owner{ID: args[0], Kind: database.OwnerKind(mustGetString(cmd, "kind"))}
	if err := owner.Validate(); err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	printer, err := selectPrinter(mustGetString(cmd, "printer"), cfg.Printing, b, log)
	if err != nil {
		return err
	}

	view, err := booth.OpenView(ctx, b.viewDeps(cfg, printer, log), owner)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer view.Close()

	out := cmd.OutOrStdout()
	events := view.AddListener()
	defer view.RemoveListener(events)

	lines := readLines(cmd.InOrStdin())
	prompter := &linePrompter{out: out, lines: lines}

	fmt.Fprintf(out, "Watching %s %s, type \"print\" or \"quit\"\n", owner.Kind, owner.ID)
	printSlots(out, view.Manager.Slots())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			reportEvent(out, ev)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(strings.ToLower(line)) {
			case "print", "p":
				runPrint(ctx, out, view, prompter)
			case "quit", "q", "exit":
				return nil
			case "":
			default:
				fmt.Fprintln(out, `Unknown command, type "print" or "quit"`)
			}
		}
	}
}

func runPrint(ctx context.Context, out io.Writer, view *booth.View, prompter booth.Prompter) {
	printed, err := view.Handoff.Run(ctx, prompter)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Print failed: %v\n", err)
	case printed:
		fmt.Fprintln(out, "Photos marked as printed")
	default:
		fmt.Fprintln(out, "Print cancelled, template unchanged")
	}
}

func reportEvent(out io.Writer, ev booth.Event) {
	switch ev.Type {
	case booth.EventSlots:
		if slots, ok := ev.Data.([]booth.Slot); ok {
			printSlots(out, slots)
		}
	case booth.EventPollError:
		fmt.Fprintf(out, "Poll failed: %s\n", ev.Message)
	case booth.EventPrint:
		fmt.Fprintf(out, "Print state: %v\n", ev.Data)
	case booth.EventOwner:
		fmt.Fprintln(out, "Owner changed")
	}
}

// printSlots writes the grid as a table, one row per slot.
func printSlots(out io.Writer, slots []booth.Slot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tPHOTO\tORIGIN\tCODE")
	for i, s := range slots {
		if s.Empty() {
			fmt.Fprintf(w, "%d\t-\t\t\n", i)
			continue
		}
		id := s.Photo.ID
		if s.Duplicate {
			id += " (copy)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, id, s.Photo.Origin, s.Photo.OrderCode)
	}
	w.Flush()
}

// readLines forwards lines read from r until it is exhausted.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// linePrompter answers print decisions with lines typed by the operator.
type linePrompter struct {
	out   io.Writer
	lines <-chan string
}

func (p *linePrompter) ask(ctx context.Context, question string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	select {
	case line, ok := <-p.lines:
		if !ok {
			return false
		}
		answer := strings.TrimSpace(strings.ToLower(line))
		return answer == "y" || answer == "yes"
	case <-ctx.Done():
		return false
	}
}

func (p *linePrompter) SaveEdits(ctx context.Context, dirty []string) bool {
	return p.ask(ctx, fmt.Sprintf("Save unsaved edits of %d photo(s) before printing?", len(dirty)))
}

func (p *linePrompter) ConfirmPrinted(ctx context.Context, pending *booth.PendingPrint) bool {
	return p.ask(ctx, fmt.Sprintf("Did the sheet with %d photo(s) print correctly?", len(pending.PhotoIDs)))
}
