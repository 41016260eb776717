package main

import (
	"github.com/communehq/commune/internal/cli/output"
	"github.com/communehq/commune/internal/tui"
	"github.com/spf13/cobra"
)

var (
	tuiFeedSize int
	tuiLive     bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the three-pane view",
	Long: `Communities and notifications on the left, the feed or a comment thread in
the middle, events and donations on the right. The panes scroll together.

Keys: tab next pane, j/k or the mouse wheel scroll, enter opens comments,
esc returns to the feed, r refreshes, q quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		if !output.Interactive() {
			cli.out.Info("Not a terminal, printing the feed instead.")
			page, err := cli.client.Feed(cmd.Context(), feedQuery)
			if err != nil {
				return err
			}
			return cli.out.Feed(page)
		}
		return tui.Run(cmd.Context(), cli.client, tui.Options{
			GuardDelay: cli.cfg.ScrollGuardDelay,
			FeedSize:   tuiFeedSize,
			Live:       tuiLive,
			Logger:     cli.log,
		})
	},
}

func init() {
	tuiCmd.Flags().IntVar(&tuiFeedSize, "posts", 50, "posts to load into the feed")
	tuiCmd.Flags().BoolVar(&tuiLive, "live", true, "reload when comments or notifications arrive")
}
