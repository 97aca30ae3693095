package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinware/rapport/internal/score"
	"github.com/tinware/rapport/internal/store"
	"github.com/tinware/rapport/internal/tracker"
)

// --- record command ---

var recordCmd = &cobra.Command{
	Use:   "record <name> <magnitude> [reason...]",
	Short: "Record an interaction with a friend",
	Long: "Record one interaction. Positive magnitudes strengthen the bond, negative\n" +
		"ones strain it. Zero carries no information and is rejected. New names are\n" +
		"tracked automatically on first contact.",
	Args: cobra.MinimumNArgs(2),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	magnitude, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("magnitude %q is not a number", args[1])
	}
	reason := strings.Join(args[2:], " ")

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	out, err := tracker.New(db).Record(args[0], magnitude, reason)
	if err != nil {
		return err
	}

	if out.Created {
		fmt.Printf("Now tracking %s.\n", styleName.Render(out.Friend.Name))
	}
	fmt.Printf("%s %s  %s\n",
		styleName.Render(out.Friend.Name),
		renderSigned(out.Record.AppliedDelta),
		out.Next.Display())
	if out.RankChanged() {
		if out.Record.NewRank > out.Record.PrevRank {
			fmt.Println(styleHeading.Render("Level up: " + out.Next.Status()))
		} else {
			fmt.Println(styleWarn.Render("Slipped to: " + out.Next.Status()))
		}
	}
	return nil
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show one friendship chart with recent history",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	tr := tracker.New(db)
	friend, err := tr.Get(args[0])
	if err != nil {
		return err
	}

	st := friend.State()
	fmt.Println(score.Chart(friend.Name, st))
	fmt.Printf("Volatility: %s\n", renderVolatility(st.Volatility()))

	history, err := tr.History(friend.Name, tracker.DefaultHistoryLimit)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Println()
		fmt.Println(styleHeading.Render("Recent:"))
		for _, rec := range history {
			fmt.Println(historyLine(rec))
		}
	}
	return nil
}

// --- list command ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tracked friends, closest first",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	friends, err := tracker.New(db).List()
	if err != nil {
		return err
	}
	if len(friends) == 0 {
		fmt.Println("No friends tracked yet. Record an interaction to start.")
		return nil
	}

	nameWidth := 0
	for _, f := range friends {
		if len(f.Name) > nameWidth {
			nameWidth = len(f.Name)
		}
	}

	for _, f := range friends {
		st := f.State()
		fmt.Printf("%s  %-34s %s\n",
			styleName.Width(nameWidth).Render(f.Name),
			st.Display(),
			renderVolatility(st.Volatility()))
	}
	fmt.Println(styleMuted.Render(fmt.Sprintf("%d friends tracked", len(friends))))
	return nil
}

// --- history command ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Show a friend's recent interactions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	history, err := tracker.New(db).History(args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Printf("No interactions recorded for %s yet.\n", args[0])
		return nil
	}

	for _, rec := range history {
		fmt.Println(historyLine(rec))
	}
	return nil
}

// --- remove command ---

var removeYes bool

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Stop tracking a friend and drop their ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	tr := tracker.New(db)
	friend, err := tr.Get(args[0])
	if err != nil {
		return err
	}

	count, _ := db.CountInteractions(friend.ID)
	if !removeYes {
		fmt.Printf("This would remove %s and their %d recorded interactions.\n",
			styleName.Render(friend.Name), count)
		fmt.Println("Re-run with --yes to confirm.")
		return nil
	}

	if err := tr.Remove(friend.Name); err != nil {
		return err
	}
	fmt.Printf("Removed %s (%d interactions dropped).\n", friend.Name, count)
	return nil
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum number of entries")
	removeCmd.Flags().BoolVar(&removeYes, "yes", false, "Skip the confirmation step")
}

// historyLine formats one ledger row for terminal output.
func historyLine(rec store.Interaction) string {
	ts := time.UnixMilli(rec.OccurredAt).Format("2006-01-02 15:04")
	line := fmt.Sprintf("  %s %s  bound %.2f",
		styleMuted.Render("["+ts+"]"), renderSigned(rec.Magnitude), rec.NewBound)
	if rec.NewRank != rec.PrevRank {
		line += "  " + styleWarn.Render(fmt.Sprintf("rank %d to %d", rec.PrevRank, rec.NewRank))
	}
	if rec.Reason != "" {
		line += "  " + rec.Reason
	}
	return line
}
