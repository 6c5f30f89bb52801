package main

import (
	"fmt"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var teethCmd = &cobra.Command{
	Use:     "teeth",
	Aliases: []string{"tooth"},
	GroupID: "records",
	Short:   "Show and set tooth statuses",
}

var teethListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show the status of all 32 teeth",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		teeth := a.coord.Collections().TeethStatus
		if jsonOutput {
			return outputJSON(cmd, teeth)
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, ui.TeethChart(teeth))
		var rows [][]string
		for _, id := range model.AllTeeth() {
			if s := teeth.Status(id); s != model.StatusHealthy {
				rows = append(rows, []string{id.String(), id.Quadrant(), ui.Status(s)})
			}
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, ui.Muted("\nAll teeth healthy."))
			return nil
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, ui.Table([]string{"TOOTH", "QUADRANT", "STATUS"}, rows))
		return nil
	},
}

var teethSetCmd = &cobra.Command{
	Use:   "set <tooth> <status>",
	Short: "Set the status of one tooth",
	Long: `Set the status of one tooth, for example to flag it:

  denttrack teeth set 36 needs-attention

Statuses: healthy, filled, root-canal, crown, veneer, missing, implant,
needs-attention.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tooth, err := model.ParseToothID(args[0])
		if err != nil {
			return err
		}
		status, err := model.ParseToothStatus(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.coord.SetToothStatus(ctx, tooth, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Tooth %s is now %s\n", ui.OK("✓"), tooth, ui.Status(status))
		return nil
	},
}

func init() {
	teethCmd.AddCommand(teethListCmd, teethSetCmd)
	rootCmd.AddCommand(teethCmd)
}
