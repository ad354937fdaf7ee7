package rawstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.False(t, store.Exists("drivers"))

	payload := json.RawMessage(`{"MRData":{"total":"1","DriverTable":{"Drivers":[{"driverId":"alonso"}]}}}`)
	require.NoError(t, store.Write("drivers", payload))
	require.True(t, store.Exists("drivers"))

	readBack, err := store.Read("drivers")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(readBack, &doc))
	require.Contains(t, doc, "MRData")
}

func TestStoreWritesPrettyPrinted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Write("races_2020", map[string]any{
		"Races": []any{},
		"year":  2020,
	}))

	contents, err := os.ReadFile(filepath.Join(dir, "races_2020.json"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(contents), "\n  "))
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Write("constructors", map[string]string{"a": "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "constructors.json", entries[0].Name())
}
