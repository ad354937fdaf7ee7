// Package rawstore is a directory of pretty-printed JSON snapshots
// keyed by logical name. The ingestion pipeline treats it as
// "get-or-fetch-and-persist": a key is written at most once per pull
// and only after a fully successful fetch.
package rawstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Store struct {
	directory string
}

func NewStore(dir string) (Store, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return Store{}, fmt.Errorf("create raw store directory: %w", err)
	}
	return Store{directory: dir}, nil
}

func (s Store) path(key string) string {
	return filepath.Join(s.directory, key+".json")
}

func (s Store) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

func (s Store) Read(key string) (json.RawMessage, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read raw snapshot %q: %w", key, err)
	}
	return json.RawMessage(data), nil
}

// Write persists a payload under the key, pretty-printed. The write
// goes through a temp file and a rename so a crash mid-write never
// leaves a truncated snapshot behind.
func (s Store) Write(key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal raw snapshot %q: %w", key, err)
	}
	var pretty bytes.Buffer
	err = json.Indent(&pretty, data, "", "  ")
	if err != nil {
		return fmt.Errorf("format raw snapshot %q: %w", key, err)
	}

	tmp := s.path(key) + ".tmp"
	err = os.WriteFile(tmp, pretty.Bytes(), 0644)
	if err != nil {
		return fmt.Errorf("write raw snapshot %q: %w", key, err)
	}
	err = os.Rename(tmp, s.path(key))
	if err != nil {
		return fmt.Errorf("commit raw snapshot %q: %w", key, err)
	}
	return nil
}
