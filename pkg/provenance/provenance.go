// Package provenance records which metadata table supplied each value that
// ends up in a document or embedded title, and what it replaced.
package provenance

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/types"
)

// Provenance is one recorded change of a field.
type Provenance struct {
	Source    types.SourceID `yaml:"source"`
	Field     string         `yaml:"field"`
	Value     string         `yaml:"value"`
	Previous  string         `yaml:"previous,omitempty"`
	Reason    string         `yaml:"reason,omitempty"`
	Timestamp utc.Time       `yaml:"timestamp"`
}

// Key addresses a single field of a document or embedded title.
type Key struct {
	Type  types.ResourceType
	ID    string
	Field string
}

// DocumentField is the key of field on document id.
func DocumentField(id, field string) Key {
	return Key{Type: types.ResourceTypeDocument, ID: id, Field: field}
}

// TitleField is the key of field on embedded title id.
func TitleField(id, field string) Key {
	return Key{Type: types.ResourceTypeEmbeddedTitle, ID: id, Field: field}
}

// String renders the key as "type:id:field".
func (k Key) String() string {
	return string(k.Type) + ":" + k.ID + ":" + k.Field
}

// ParseKey is the inverse of Key.String. Identifiers never contain colons.
func ParseKey(s string) (Key, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return Key{}, false
	}
	return Key{Type: types.ResourceType(parts[0]), ID: parts[1], Field: parts[2]}, true
}

// Map holds the recorded history per rendered Key, oldest first.
type Map map[string][]Provenance

// Tracker records field changes. Implementations are not safe for
// concurrent use; each document gets its own tracker.
type Tracker interface {
	Track(key Key, change Provenance)
	History(key Key) []Provenance
	Map() Map
}

type tracker struct {
	enabled bool
	changes map[Key][]Provenance
}

// NewTracker creates a tracker. A disabled tracker records nothing and
// returns nil from History and Map.
func NewTracker(enabled bool) Tracker {
	return &tracker{enabled: enabled, changes: make(map[Key][]Provenance)}
}

func (t *tracker) Track(key Key, change Provenance) {
	if !t.enabled {
		return
	}
	if change.Field == "" {
		change.Field = key.Field
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = utc.Now()
	}
	t.changes[key] = append(t.changes[key], change)
}

func (t *tracker) History(key Key) []Provenance {
	if !t.enabled {
		return nil
	}
	return slices.Clone(t.changes[key])
}

func (t *tracker) Map() Map {
	if !t.enabled {
		return nil
	}
	out := make(Map, len(t.changes))
	for key, changes := range t.changes {
		out[key.String()] = slices.Clone(changes)
	}
	return out
}

// Report groups a Map by resource, keyed by "type:id".
type Report struct {
	Resources map[string]ResourceProvenance `yaml:"resources"`
}

// ResourceProvenance is the provenance of every tracked field of one resource.
type ResourceProvenance struct {
	Type   types.ResourceType `yaml:"type"`
	ID     string             `yaml:"id"`
	Fields map[string]Field   `yaml:"fields"`
}

// Field is the latest change of a field plus its full history, newest first.
type Field struct {
	Current Provenance   `yaml:"current"`
	History []Provenance `yaml:"history,omitempty"`
}

// GenerateReport groups m by resource. Entries with malformed keys are skipped.
func GenerateReport(m Map) *Report {
	report := &Report{Resources: make(map[string]ResourceProvenance)}

	for raw, changes := range m {
		key, ok := ParseKey(raw)
		if !ok || len(changes) == 0 {
			continue
		}

		id := string(key.Type) + ":" + key.ID
		resource, ok := report.Resources[id]
		if !ok {
			resource = ResourceProvenance{Type: key.Type, ID: key.ID, Fields: make(map[string]Field)}
			report.Resources[id] = resource
		}

		// Changes sharing a timestamp keep recording order, latest first.
		history := slices.Clone(changes)
		slices.Reverse(history)
		slices.SortStableFunc(history, func(a, b Provenance) int {
			switch {
			case a.Timestamp.After(b.Timestamp):
				return -1
			case b.Timestamp.After(a.Timestamp):
				return 1
			}
			return 0
		})
		resource.Fields[key.Field] = Field{Current: history[0], History: history}
	}

	return report
}

// String lists every resource and field, sorted, with replaced values indented.
func (r *Report) String() string {
	var sb strings.Builder
	for _, id := range sortedKeys(r.Resources) {
		resource := r.Resources[id]
		fmt.Fprintf(&sb, "%s %s\n", resource.Type, resource.ID)
		for _, name := range sortedKeys(resource.Fields) {
			field := resource.Fields[name]
			fmt.Fprintf(&sb, "  %s = %q [%s]\n", name, field.Current.Value, field.Current.Source)
			for _, older := range field.History[1:] {
				fmt.Fprintf(&sb, "    earlier %q [%s]\n", older.Value, older.Source)
			}
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// File is the on-disk layout written by Save.
type File struct {
	Provenance Map `yaml:"provenance"`
}

// Save writes m to path as YAML.
func Save(fsys afero.Fs, path string, m Map) error {
	data, err := yaml.Marshal(File{Provenance: m})
	if err != nil {
		return errors.WrapIO("encode", path, err)
	}
	if err := afero.WriteFile(fsys, path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads a file written by Save. A missing file yields nil, nil.
func Load(fsys afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapIO("parse", path, err)
	}
	return &f, nil
}
