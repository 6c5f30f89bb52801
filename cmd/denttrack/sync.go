package main

import (
	"errors"
	"fmt"
	"time"

	dtsync "github.com/denttrack/denttrack/internal/sync"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Reload the record from your account",
	Long: `Fetch treatments, dentists and tooth statuses from your account and
replace the local copy. If any of the three fetches fails the local copy is
kept unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			return errors.New("cannot sync with --offline")
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if !a.coord.RemoteEnabled() {
			return errors.New("no remote store configured")
		}
		if !a.coord.HasSession() {
			return errors.New("not signed in: run 'denttrack auth login'")
		}

		degraded := false
		a.coord.Subscribe(func(ch dtsync.Change) {
			if ch.Kind == dtsync.ChangeReconciled && ch.Degraded {
				degraded = true
			}
		})

		start := time.Now()
		if err := a.coord.Resync(ctx); err != nil {
			return err
		}
		if degraded {
			return errors.New("could not reach the remote store; local records unchanged")
		}

		col := a.coord.Collections()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Synced in %v: %d treatments, %d dentists\n",
			ui.OK("✓"), time.Since(start).Round(time.Millisecond), len(col.Treatments), len(col.Dentists))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
