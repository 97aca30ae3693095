package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinware/rapport/internal/config"
	"github.com/tinware/rapport/internal/dump"
	"github.com/tinware/rapport/internal/tracker"
)

// --- verify command ---

var verifyCmd = &cobra.Command{
	Use:   "verify [name]",
	Short: "Check stored states against a replay of each ledger",
	Long: "Refold every ledger from scratch and compare the result with the stored\n" +
		"state. The two must agree exactly; any drift means the stored state was\n" +
		"tampered with or corrupted. With a name, checks only that friend.",
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	tr := tracker.New(db)

	var drifts []tracker.Drift
	if len(args) == 1 {
		d, err := tr.Verify(args[0])
		if err != nil {
			return err
		}
		drifts = append(drifts, *d)
	} else {
		drifts, err = tr.VerifyAll()
		if err != nil {
			return err
		}
	}

	if len(drifts) == 0 {
		fmt.Println("No friends tracked yet.")
		return nil
	}

	bad := 0
	for _, d := range drifts {
		if d.Clean() {
			fmt.Printf("  %s  %s\n", styleGain.Render("ok   "), d.Name)
			continue
		}
		bad++
		fmt.Printf("  %s  %s  stored (%.4f, %.4f) replayed (%.4f, %.4f)\n",
			styleWarn.Render("DRIFT"), d.Name,
			d.Stored.LowerBound, d.Stored.Fuzziness,
			d.Replayed.LowerBound, d.Replayed.Fuzziness)
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d friends have drifted state; run rebuild to repair", bad, len(drifts))
	}
	fmt.Println(styleMuted.Render(fmt.Sprintf("%d ledgers verified", len(drifts))))
	return nil
}

// --- rebuild command ---

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <name>",
	Short: "Refold a friend's ledger and overwrite the stored state",
	Args:  cobra.ExactArgs(1),
	RunE:  runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	drift, err := tracker.New(db).Rebuild(args[0])
	if err != nil {
		return err
	}

	if drift.Clean() {
		fmt.Printf("%s: ledger and stored state already agree.\n", drift.Name)
		return nil
	}
	fmt.Printf("%s: state corrected from (%.4f, %.4f) to (%.4f, %.4f).\n",
		drift.Name,
		drift.Stored.LowerBound, drift.Stored.Fuzziness,
		drift.Replayed.LowerBound, drift.Replayed.Fuzziness)
	return nil
}

// --- export command ---

var (
	exportOutput     string
	exportNoCompress bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the roster and all ledgers to a JSONL dump",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	path := exportOutput
	if path == "" {
		path = "rapport-" + time.Now().Format("20060102") + ".jsonl"
		if cfg.Export.Compress && !exportNoCompress {
			path += ".zst"
		}
	}

	meta, err := dump.Export(db, path)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d friends and %d interactions to %s\n",
		meta.Friends, meta.Interactions, path)
	return nil
}

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Merge a JSONL dump into the database",
	Long: "Read a dump produced by export and merge it in. Friends are matched by\n" +
		"name, ledgers are combined, and every touched friend is refolded from the\n" +
		"merged ledger so the stored state matches the evidence.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	res, err := dump.Import(db, tracker.New(db), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d new friends and %d interactions, refolded %d ledgers.\n",
		res.Friends, res.Interactions, res.Rebuilt)
	if res.Skipped > 0 {
		fmt.Println(styleWarn.Render(fmt.Sprintf("Skipped %d unreadable lines.", res.Skipped)))
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Dump path (.zst enables compression)")
	exportCmd.Flags().BoolVar(&exportNoCompress, "no-compress", false, "Write the default dump uncompressed")
}
