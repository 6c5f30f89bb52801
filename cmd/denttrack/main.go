// Command denttrack keeps a dental treatment record offline and, once
// signed in, in sync with a cloud account.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonOutput bool
	offline    bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "denttrack",
	Short: "Local-first dental treatment tracker",
	Long: `denttrack records treatments, dentists and the status of all 32 teeth.

Everything works offline against a local cache. After 'denttrack auth login'
the record is mirrored to your cloud account: the account copy is loaded
when a session starts and every change is written to both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/denttrack/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Do not contact the remote store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")

	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "sync", Title: "Account & Sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("Error:"), err)
		os.Exit(1)
	}
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
