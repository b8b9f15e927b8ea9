package cli

import (
	"github.com/spf13/cobra"

	"riven-sniper/internal/app"
)

var (
	backfillMaxPages int
	backfillDryRun   bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Seed price histories with a full riven.market scrape",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.BackfillOptions{
			MaxPages: backfillMaxPages,
			DryRun:   backfillDryRun,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillMaxPages, "max-pages", 0, "Maximum pages to scrape (0 means all)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Scrape without writing to storage")
}
