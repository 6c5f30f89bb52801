package main

import (
	"fmt"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var dentistCmd = &cobra.Command{
	Use:     "dentist",
	Aliases: []string{"dentists"},
	GroupID: "records",
	Short:   "Manage the dentists you have seen",
}

var dentistAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a dentist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specialtyRaw, _ := cmd.Flags().GetString("specialty")
		specialty, err := model.ParseSpecialty(specialtyRaw)
		if err != nil {
			return err
		}
		d := model.Dentist{Name: args[0], Specialty: specialty}
		d.ClinicName, _ = cmd.Flags().GetString("clinic")
		d.Phone, _ = cmd.Flags().GetString("phone")
		d.Notes, _ = cmd.Flags().GetString("notes")

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		saved, err := a.coord.AddDentist(ctx, d)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd, saved)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s %s\n", ui.OK("✓"), saved.Name, ui.Muted(saved.ID))
		return nil
	},
}

var dentistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List dentists by name",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		dentists := a.coord.Collections().Dentists
		if jsonOutput {
			return outputJSON(cmd, dentists)
		}
		if len(dentists) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("No dentists recorded."))
			return nil
		}
		rows := make([][]string, 0, len(dentists))
		for _, d := range dentists {
			rows = append(rows, []string{d.ID, d.Name, string(d.Specialty), d.ClinicName, d.Phone})
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.Table([]string{"ID", "NAME", "SPECIALTY", "CLINIC", "PHONE"}, rows))
		return nil
	},
}

func init() {
	dentistAddCmd.Flags().StringP("specialty", "s", "", "Specialty (general, oral surgeon, endodontist, orthodontist, ...)")
	dentistAddCmd.Flags().String("clinic", "", "Clinic name")
	dentistAddCmd.Flags().String("phone", "", "Phone number")
	dentistAddCmd.Flags().StringP("notes", "n", "", "Notes")

	dentistCmd.AddCommand(dentistAddCmd, dentistListCmd)
	rootCmd.AddCommand(dentistCmd)
}
