package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command offline against a temporary data dir.
func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--offline"}, args...))
	t.Cleanup(func() {
		jsonOutput = false
		offline = false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	require.NoError(t, rootCmd.Execute(), "denttrack %v", args)
	return out.String()
}

func setupCLIEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("DENTTRACK_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("DENTTRACK_LOG_LEVEL", "error")
	t.Setenv("DENTTRACK_REMOTE_BACKEND", "")
}

func TestTreatmentAddUpdatesTeeth(t *testing.T) {
	setupCLIEnv(t)

	runCLI(t, "treatment", "add", "--kind", "extraction", "--tooth", "16", "--date", "2024-03-01", "--notes", "wisdom")

	var teeth model.TeethStatus
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "--json", "teeth", "list")), &teeth))
	assert.Len(t, teeth, 32)
	assert.Equal(t, model.StatusMissing, teeth[16])

	var treatments []model.Treatment
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "--json", "treatment", "list")), &treatments))
	require.Len(t, treatments, 1)
	assert.Equal(t, model.KindExtraction, treatments[0].Kind)
	assert.Equal(t, "wisdom", treatments[0].Notes)
}

func TestProfileStaysLocal(t *testing.T) {
	setupCLIEnv(t)

	runCLI(t, "profile", "set", "--name", "Ana", "--blood-type", "O+", "--next-checkup", "2025-01-10")

	var got struct {
		Profile  model.Profile  `json:"profile"`
		Settings model.Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "--json", "profile", "show")), &got))
	assert.Equal(t, "Ana", got.Profile.Name)
	assert.Equal(t, "O+", got.Profile.BloodType)
	require.NotNil(t, got.Settings.NextCheckupDate)
	assert.Equal(t, model.Date("2025-01-10"), *got.Settings.NextCheckupDate)
}

func newTreatmentFlags() *cobra.Command {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("kind", "", "")
	cmd.Flags().String("tooth", "", "")
	cmd.Flags().String("date", "", "")
	cmd.Flags().String("notes", "", "")
	cmd.Flags().Float64("cost", 0, "")
	cmd.Flags().String("currency", "", "")
	cmd.Flags().String("warranty", "", "")
	cmd.Flags().String("dentist", "", "")
	return cmd
}

func TestTreatmentFromFlagsOnlyChangesGivenFlags(t *testing.T) {
	base := model.Treatment{
		ID:      "t1",
		Kind:    model.KindCrown,
		Date:    "2023-05-05",
		ToothID: model.ToothPtr(26),
		Notes:   "porcelain",
	}

	cmd := newTreatmentFlags()
	require.NoError(t, cmd.Flags().Parse([]string{"--cost", "450", "--currency", "EUR", "--tooth", ""}))

	got, err := treatmentFromFlags(cmd, base)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, model.KindCrown, got.Kind)
	assert.Equal(t, model.Date("2023-05-05"), got.Date)
	assert.Equal(t, "porcelain", got.Notes)
	assert.Nil(t, got.ToothID)
	require.NotNil(t, got.Cost)
	assert.Equal(t, "450.00 EUR", formatCost(got))

	require.NotNil(t, base.ToothID, "base must not be modified")
}

func TestTreatmentFromFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"--kind", "whitening"},
		{"--tooth", "19"},
		{"--date", "qwerty zxcv"},
	} {
		cmd := newTreatmentFlags()
		require.NoError(t, cmd.Flags().Parse(args))
		_, err := treatmentFromFlags(cmd, model.Treatment{})
		assert.Error(t, err, "%v", args)
	}
}

func TestFilterByTooth(t *testing.T) {
	ts := []model.Treatment{
		{ID: "a", ToothID: model.ToothPtr(11)},
		{ID: "b"},
		{ID: "c", ToothID: model.ToothPtr(21)},
		{ID: "d", ToothID: model.ToothPtr(11)},
	}
	got := filterByTooth(ts, 11)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}
