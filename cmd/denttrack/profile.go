package main

import (
	"fmt"
	"time"

	"github.com/denttrack/denttrack/internal/cache"
	"github.com/denttrack/denttrack/internal/logging"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	GroupID: "records",
	Short:   "Show or edit the medical profile (kept on this device only)",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openCacheOnly()
		if err != nil {
			return err
		}
		defer closeStore()

		p, s := store.Profile(), store.Settings()
		if jsonOutput {
			return outputJSON(cmd, map[string]any{"profile": p, "settings": s})
		}
		next := ""
		if s.NextCheckupDate != nil {
			next = string(*s.NextCheckupDate)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.KeyValues(
			"name", p.Name,
			"date of birth", string(p.DOB),
			"blood type", p.BloodType,
			"allergies", p.Allergies,
			"medical notes", p.MedicalNotes,
			"next checkup", next,
		))
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change profile fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openCacheOnly()
		if err != nil {
			return err
		}
		defer closeStore()

		flags := cmd.Flags()
		now := time.Now()
		p, s := store.Profile(), store.Settings()

		if flags.Changed("name") {
			p.Name, _ = flags.GetString("name")
			s.Name = p.Name
		}
		if flags.Changed("dob") {
			raw, _ := flags.GetString("dob")
			d, err := parseDate(raw, now)
			if err != nil {
				return err
			}
			p.DOB = d
		}
		if flags.Changed("blood-type") {
			p.BloodType, _ = flags.GetString("blood-type")
		}
		if flags.Changed("allergies") {
			p.Allergies, _ = flags.GetString("allergies")
		}
		if flags.Changed("notes") {
			p.MedicalNotes, _ = flags.GetString("notes")
		}
		if flags.Changed("next-checkup") {
			raw, _ := flags.GetString("next-checkup")
			if raw == "" {
				s.NextCheckupDate = nil
			} else {
				d, err := parseDate(raw, now)
				if err != nil {
					return err
				}
				s.NextCheckupDate = &d
			}
		}

		if err := store.SetProfile(p); err != nil {
			return err
		}
		if err := store.SetSettings(s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Profile saved\n", ui.OK("✓"))
		return nil
	},
}

func init() {
	f := profileSetCmd.Flags()
	f.String("name", "", "Full name")
	f.String("dob", "", "Date of birth")
	f.String("blood-type", "", "Blood type")
	f.String("allergies", "", "Allergies")
	f.String("notes", "", "Medical notes")
	f.String("next-checkup", "", "Next checkup date (empty to clear)")

	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}

// openCacheOnly opens the cache without the session or remote store; the
// profile never leaves the device.
func openCacheOnly() (*cache.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, nil, err
	}
	store, err := cache.Open(cfg.CachePath(), logger.Named("cache"))
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		_ = store.Close()
		_ = logger.Sync()
	}, nil
}
