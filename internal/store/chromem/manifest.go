package chromem

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// sourceEntry tracks the records and category tag of one ingested
// source.
type sourceEntry struct {
	IDs      []string `json:"ids"`
	Category string   `json:"category,omitempty"`
}

// manifest is a JSON sidecar next to the chromem data keeping the
// source-level view the embedded index itself cannot answer: which
// record ids belong to which source, and what category a source
// carries. Mutations go through Store methods holding the store lock.
type manifest struct {
	path    string
	Sources map[string]*sourceEntry `json:"sources"`
}

// loadManifest reads the sidecar, returning an empty manifest when the
// file does not exist yet.
func loadManifest(path string) (*manifest, error) {
	m := &manifest{
		path:    path,
		Sources: make(map[string]*sourceEntry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Sources == nil {
		m.Sources = make(map[string]*sourceEntry)
	}
	return m, nil
}

// save writes the manifest atomically via rename.
func (m *manifest) save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// addRecords merges record ids into a source entry, creating it if
// needed, and records the category tag of the batch.
func (m *manifest) addRecords(source string, ids []string, category string) {
	entry := m.Sources[source]
	if entry == nil {
		entry = &sourceEntry{}
		m.Sources[source] = entry
	}

	seen := make(map[string]struct{}, len(entry.IDs))
	for _, id := range entry.IDs {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			entry.IDs = append(entry.IDs, id)
		}
	}
	entry.Category = category
}

// categories returns the distinct non-empty category tags, sorted.
func (m *manifest) categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, entry := range m.Sources {
		if entry.Category == "" {
			continue
		}
		if _, ok := seen[entry.Category]; !ok {
			seen[entry.Category] = struct{}{}
			out = append(out, entry.Category)
		}
	}
	sort.Strings(out)
	return out
}
