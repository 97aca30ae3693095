package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinware/rapport/internal/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check whether a rapport server is reachable",
	Long: "Ping the server named by RAPPORT_URL (default http://127.0.0.1:7575)\n" +
		"and print its health report.",
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	c := client.NewFromEnv()
	h, err := c.Health()
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	db := "ok"
	if !h.DB {
		db = styleWarn.Render("unreachable")
	}
	fmt.Printf("%s %s  uptime %.0fs  db %s  %d friends\n",
		styleGain.Render("ok"), h.Version, h.Uptime, db, h.Friends)
	return nil
}
