package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfig marks a mapping source that is missing, unreadable, or not a
// key -> string document. It is fatal at startup.
var ErrConfig = errors.New("invalid table mapping")

// Entry is one legacy table and its replacement. An empty Replacement means
// the table is known to be legacy but has no successor yet.
type Entry struct {
	Table       string `json:"table"`
	Replacement string `json:"replacement,omitempty"`
}

// Table is the immutable legacy -> replacement name mapping. Keys are stored
// upper-cased; lookups are case-insensitive.
type Table struct {
	entries map[string]string
	version string
}

// New builds a Table from raw entries. Two keys that differ only by case are
// rejected, as are empty keys.
func New(entries map[string]string) (*Table, error) {
	t := &Table{entries: make(map[string]string, len(entries))}
	for name, replacement := range entries {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty table name", ErrConfig)
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("%w: duplicate table name %q", ErrConfig, key)
		}
		t.entries[key] = strings.TrimSpace(replacement)
	}
	t.version = t.computeVersion()
	return t, nil
}

// Parse decodes a mapping document. format is "json" or "yaml". Values must be
// strings or null; null marks a legacy table without a replacement.
func Parse(data []byte, format string) (*Table, error) {
	var raw map[string]*string
	switch format {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrConfig, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrConfig, format)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: document is not a key/value mapping", ErrConfig)
	}

	entries := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			entries[k] = ""
			continue
		}
		entries[k] = *v
	}
	return New(entries)
}

// Lookup returns the replacement for name. ok is false when the table is
// unknown or has no replacement.
func (t *Table) Lookup(name string) (replacement string, ok bool) {
	r := t.entries[normalize(name)]
	return r, r != ""
}

// Contains reports whether name is a known legacy table, mapped or not.
func (t *Table) Contains(name string) bool {
	_, ok := t.entries[normalize(name)]
	return ok
}

// Names returns all legacy table names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for k := range t.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Entries returns every mapping entry sorted by table name.
func (t *Table) Entries() []Entry {
	names := t.Names()
	out := make([]Entry, len(names))
	for i, n := range names {
		out[i] = Entry{Table: n, Replacement: t.entries[n]}
	}
	return out
}

// Len returns the number of legacy tables.
func (t *Table) Len() int { return len(t.entries) }

// Version is a content hash of the mapping, stable across load order.
func (t *Table) Version() string { return t.version }

func (t *Table) computeVersion() string {
	h := sha256.New()
	for _, n := range t.Names() {
		h.Write([]byte(n))
		h.Write([]byte{0})
		h.Write([]byte(t.entries[n]))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
