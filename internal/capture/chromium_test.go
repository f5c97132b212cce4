package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	_, err := Options{OutputPath: "x.png"}.withDefaults()
	assert.Error(t, err)
	_, err = Options{URL: "http://127.0.0.1/calendar"}.withDefaults()
	assert.Error(t, err)

	o, err := Options{URL: "http://127.0.0.1/calendar", OutputPath: "x.png"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

func TestCalendarPNG_RejectsMissingURL(t *testing.T) {
	err := CalendarPNG(context.Background(), Options{OutputPath: "x.png"})
	assert.Error(t, err)
}

func TestAuthHeaders(t *testing.T) {
	assert.Nil(t, Options{Username: "admin"}.authHeaders())

	h := Options{Username: "admin", Password: "secret"}.authHeaders()
	assert.Equal(t, "Basic YWRtaW46c2VjcmV0", h["Authorization"])
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preview.png")
	require.NoError(t, writeAtomic(path, []byte("one")))
	require.NoError(t, writeAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
