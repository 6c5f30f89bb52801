package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var treatmentCmd = &cobra.Command{
	Use:     "treatment",
	Aliases: []string{"treatments", "t"},
	GroupID: "records",
	Short:   "Add, edit, delete and list treatments",
}

var treatmentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a treatment",
	Long: `Record a treatment. Tooth-specific treatments update the tooth's status:
Extraction marks it Missing, Root Canal, Crown, Filling, Veneer and Implant set
the matching status.

Examples:
  denttrack treatment add --kind filling --tooth 16 --date yesterday
  denttrack treatment add --kind checkup --date 2024-03-01 --cost 80 --currency EUR`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := treatmentFromFlags(cmd, model.Treatment{Date: model.DateOf(time.Now())})
		if err != nil {
			return err
		}
		return saveTreatment(cmd, t, "")
	},
}

var treatmentEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a treatment",
	Long: `Change fields of a treatment. Only the flags given are changed; the
treatment keeps its id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		existing, ok := findTreatment(a.coord.Collections().Treatments, args[0])
		if !ok {
			return fmt.Errorf("treatment %s not found", args[0])
		}
		t, err := treatmentFromFlags(cmd, existing)
		if err != nil {
			return err
		}
		if err := attachFiles(ctx, a, cmd, &t); err != nil {
			return err
		}
		saved, err := a.coord.AddOrEditTreatment(ctx, t, existing.ID)
		if err != nil {
			return err
		}
		return printSaved(cmd, saved, "Updated")
	},
}

var treatmentDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a treatment",
	Long:    `Delete a treatment. Tooth statuses are left unchanged.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.coord.DeleteTreatment(ctx, args[0]); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd, map[string]string{"deleted": args[0]})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted treatment %s\n", ui.OK("✓"), args[0])
		return nil
	},
}

var treatmentListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List treatments, most recent first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		col := a.coord.Collections()
		treatments := col.Treatments
		if cmd.Flags().Changed("tooth") {
			raw, _ := cmd.Flags().GetString("tooth")
			tooth, err := model.ParseToothID(raw)
			if err != nil {
				return err
			}
			treatments = filterByTooth(treatments, tooth)
		}

		if jsonOutput {
			return outputJSON(cmd, treatments)
		}
		if len(treatments) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("No treatments recorded."))
			return nil
		}
		rows := make([][]string, 0, len(treatments))
		for _, t := range treatments {
			tooth := "-"
			if t.ToothID != nil {
				tooth = t.ToothID.String()
			}
			dentist := ""
			if t.DentistID != "" {
				dentist = model.DentistName(col.Dentists, t.DentistID)
			}
			rows = append(rows, []string{
				t.ID, string(t.Date), tooth, string(t.Kind), formatCost(t), dentist, t.Notes,
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.Table(
			[]string{"ID", "DATE", "TOOTH", "KIND", "COST", "DENTIST", "NOTES"}, rows))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{treatmentAddCmd, treatmentEditCmd} {
		c.Flags().StringP("kind", "k", "", "Treatment kind (filling, root-canal, crown, extraction, veneer, implant, braces, hygiene, checkup, other)")
		c.Flags().String("tooth", "", "FDI tooth number, e.g. 16 (empty for a general treatment)")
		c.Flags().StringP("date", "d", "", "Date: YYYY-MM-DD or natural language (default today)")
		c.Flags().StringP("notes", "n", "", "Notes")
		c.Flags().Float64("cost", 0, "Cost")
		c.Flags().String("currency", "", "Currency code, e.g. EUR")
		c.Flags().String("warranty", "", "Warranty end date")
		c.Flags().String("dentist", "", "Dentist id")
		c.Flags().StringSlice("attach", nil, "File to attach (repeatable, at most 3 per treatment)")
	}
	_ = treatmentAddCmd.MarkFlagRequired("kind")
	treatmentListCmd.Flags().String("tooth", "", "Only treatments of this tooth")

	treatmentCmd.AddCommand(treatmentAddCmd, treatmentEditCmd, treatmentDeleteCmd, treatmentListCmd)
	rootCmd.AddCommand(treatmentCmd)
}

// treatmentFromFlags applies the changed flags to base.
func treatmentFromFlags(cmd *cobra.Command, base model.Treatment) (model.Treatment, error) {
	t := base.Clone()
	flags := cmd.Flags()
	now := time.Now()

	if flags.Changed("kind") {
		raw, _ := flags.GetString("kind")
		kind, err := model.ParseTreatmentKind(raw)
		if err != nil {
			return t, err
		}
		t.Kind = kind
	}
	if flags.Changed("tooth") {
		raw, _ := flags.GetString("tooth")
		if raw == "" {
			t.ToothID = nil
		} else {
			tooth, err := model.ParseToothID(raw)
			if err != nil {
				return t, err
			}
			t.ToothID = &tooth
		}
	}
	if flags.Changed("date") {
		raw, _ := flags.GetString("date")
		d, err := parseDate(raw, now)
		if err != nil {
			return t, err
		}
		t.Date = d
	}
	if flags.Changed("notes") {
		t.Notes, _ = flags.GetString("notes")
	}
	if flags.Changed("cost") {
		cost, _ := flags.GetFloat64("cost")
		t.Cost = &cost
	}
	if flags.Changed("currency") {
		t.Currency, _ = flags.GetString("currency")
	}
	if flags.Changed("warranty") {
		raw, _ := flags.GetString("warranty")
		if raw == "" {
			t.WarrantyUntil = nil
		} else {
			d, err := parseDate(raw, now)
			if err != nil {
				return t, err
			}
			t.WarrantyUntil = &d
		}
	}
	if flags.Changed("dentist") {
		t.DentistID, _ = flags.GetString("dentist")
	}
	return t, nil
}

// attachFiles uploads every --attach file and appends the references.
func attachFiles(ctx context.Context, a *app, cmd *cobra.Command, t *model.Treatment) error {
	paths, _ := cmd.Flags().GetStringSlice("attach")
	if len(paths) == 0 {
		return nil
	}
	if len(t.Attachments)+len(paths) > model.MaxAttachments {
		return fmt.Errorf("at most %d attachments per treatment", model.MaxAttachments)
	}
	store, err := a.attachments(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read attachment: %w", err)
		}
		att, err := store.Put(ctx, filepath.Base(p), mime.TypeByExtension(filepath.Ext(p)), data)
		if err != nil {
			return err
		}
		t.Attachments = append(t.Attachments, att)
	}
	return nil
}

func saveTreatment(cmd *cobra.Command, t model.Treatment, existingID string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := attachFiles(ctx, a, cmd, &t); err != nil {
		return err
	}
	saved, err := a.coord.AddOrEditTreatment(ctx, t, existingID)
	if err != nil {
		return err
	}
	return printSaved(cmd, saved, "Recorded")
}

func printSaved(cmd *cobra.Command, t model.Treatment, verb string) error {
	if jsonOutput {
		return outputJSON(cmd, t)
	}
	where := "general"
	if t.ToothID != nil {
		where = "tooth " + t.ToothID.String()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%s, %s) %s\n",
		ui.OK("✓"), verb, t.Kind, where, t.Date, ui.Muted(t.ID))
	return nil
}

func findTreatment(ts []model.Treatment, id string) (model.Treatment, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return model.Treatment{}, false
}

func filterByTooth(ts []model.Treatment, tooth model.ToothID) []model.Treatment {
	out := make([]model.Treatment, 0, len(ts))
	for _, t := range ts {
		if t.ToothID != nil && *t.ToothID == tooth {
			out = append(out, t)
		}
	}
	return out
}

func formatCost(t model.Treatment) string {
	if t.Cost == nil {
		return ""
	}
	s := strconv.FormatFloat(*t.Cost, 'f', 2, 64)
	if t.Currency != "" {
		s += " " + t.Currency
	}
	return s
}
