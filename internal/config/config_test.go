package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, "sunday", c.WeekStart)
	assert.Equal(t, 80.0, c.Timeline.PixelsPerHour)
	assert.Equal(t, 40.0, c.Timeline.MinimumBlockHeight)
	assert.Equal(t, "stack", c.Timeline.Overlap)
	assert.Equal(t, 3, c.Month.MaxEventsPerCell)
	assert.Equal(t, 14, c.AgendaDays)
	assert.Equal(t, "@every 1m", c.MarkerTick)
	assert.Equal(t, "http://127.0.0.1:8080/calendar", c.Snapshot.URL)
	assert.NotNil(t, c.ICS)
}

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultListen, c.Listen)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
listen: 0.0.0.0:9000
week_start: friday
timeline:
  pixels_per_hour: 60
  overlap: columns
month:
  max_events_per_cell: -1
ics:
  - id: team
    url: https://example.com/team.ics
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", c.Listen)
	assert.Equal(t, "sunday", c.WeekStart)
	assert.Equal(t, 60.0, c.Timeline.PixelsPerHour)
	assert.Equal(t, 40.0, c.Timeline.MinimumBlockHeight)
	assert.Equal(t, "columns", c.Timeline.Overlap)
	assert.Equal(t, -1, c.Month.MaxEventsPerCell)
	require.Len(t, c.ICS, 1)
	assert.Equal(t, "team", c.ICS[0].ID)
	assert.Nil(t, c.BasicAuth)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := DefaultConfig()
	c.WeekStart = "monday"
	c.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	require.NoError(t, c.Save(path))
	back, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, c, back)
}

func TestSave_EmptyPath(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save("x.yaml", nil))
}

func TestLocation(t *testing.T) {
	c := DefaultConfig()
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	c.Timezone = "UTC"
	loc, err = c.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	c.Timezone = "Mars/Olympus"
	loc, err = c.Location()
	assert.Error(t, err)
	assert.Equal(t, time.Local, loc)
}
