package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	GroupID: "advanced",
	Short:   "Inspect or clear the local cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache location and contents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		offline = true
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		st, err := a.cache.Stats()
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd, st)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.KeyValues(
			"path", st.Path,
			"size", fmt.Sprintf("%.1f KB", float64(st.SizeBytes)/1024),
			"treatments", strconv.Itoa(st.Treatments),
			"dentists", strconv.Itoa(st.Dentists),
			"treated teeth", strconv.Itoa(st.Treated),
			"profile", yesNo(st.HasProfile),
			"saved session", yesNo(st.HasSession),
			"last write", st.LastUpdated,
		))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached treatments, dentists and tooth statuses",
	Long: `Delete cached treatments, dentists and tooth statuses. The profile and a
saved session are kept. Records that only exist locally are lost.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if force, _ := cmd.Flags().GetBool("force"); !force {
			return errors.New("refusing to clear without --force")
		}
		offline = true
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.coord.ClearCache(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Cache cleared\n", ui.OK("✓"))
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().Bool("force", false, "Confirm deletion")
	cacheCmd.AddCommand(cacheStatusCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
