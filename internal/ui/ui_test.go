package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/denttrack/denttrack/internal/model"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestKeyValuesAligned(t *testing.T) {
	out := KeyValues("mode", "guest", "treatments", "3")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "mode        guest", lines[0])
	assert.Equal(t, "treatments  3", lines[1])
}

func TestTable(t *testing.T) {
	out := Table([]string{"ID", "KIND"}, [][]string{{"a1", "Crown"}, {"b", "Root Canal"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  KIND", lines[0])
	assert.Equal(t, "a1  Crown", lines[1])
	assert.Equal(t, "b   Root Canal", lines[2])
}

func TestTeethChart(t *testing.T) {
	teeth := model.DefaultTeethStatus()
	teeth[16] = model.StatusMissing

	lines := strings.Split(strings.TrimRight(TeethChart(teeth), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "UR 18 17 16"), lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "LR 48"), lines[3])
}

func TestStatusUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "Gold", Status("Gold"))
	assert.Equal(t, "Healthy", Status(model.StatusHealthy))
}
