package main

import (
	"fmt"
	"strconv"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mode, session and record summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		col := a.coord.Collections()
		state, sess := a.auth.State()
		treated := 0
		for _, s := range col.TeethStatus {
			if s != model.StatusHealthy {
				treated++
			}
		}

		mode := "guest (local only)"
		switch {
		case sess != nil && a.coord.RemoteEnabled():
			mode = "signed in as " + sess.Email
		case sess != nil:
			mode = "signed in, no remote store configured"
		}
		backend := a.cfg.Remote.Backend
		if backend == "" {
			backend = "none"
		}

		if jsonOutput {
			return outputJSON(cmd, map[string]any{
				"mode":       mode,
				"session":    state.String(),
				"remote":     backend,
				"treatments": len(col.Treatments),
				"dentists":   len(col.Dentists),
				"treated":    treated,
				"cache":      a.cfg.CachePath(),
			})
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Heading("DentTrack"))
		fmt.Fprint(cmd.OutOrStdout(), ui.KeyValues(
			"mode", mode,
			"remote", backend,
			"treatments", strconv.Itoa(len(col.Treatments)),
			"dentists", strconv.Itoa(len(col.Dentists)),
			"treated teeth", strconv.Itoa(treated),
			"cache", a.cfg.CachePath(),
		))
		if len(col.Treatments) > 0 {
			latest := col.Treatments[0]
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s %s\n", ui.Muted("latest:"), latest.Date, latest.Kind)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
