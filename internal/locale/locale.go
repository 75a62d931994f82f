// Package locale maps symbolic keys to localized template strings used when
// composing system messages and rendering push alerts. Lookup never fails:
// unknown keys resolve to a fixed sentinel so rendering stays total on the
// notification hot path.
package locale

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Unknown is returned for any key absent from the loaded table.
const Unknown = "err_unknown_key"

//go:embed ru.toml
var defaultLocale []byte

// Table is a read-only mapping from symbolic key to localized string.
type Table struct {
	strings map[string]string
}

// New builds a table from an explicit key/string map.
func New(strings map[string]string) *Table {
	m := make(map[string]string, len(strings))
	for k, v := range strings {
		m[k] = v
	}
	return &Table{strings: m}
}

// Default returns the embedded Russian table.
func Default() *Table {
	t, err := decode(defaultLocale)
	if err != nil {
		// The embedded table is validated by tests; a decode failure here is
		// a build defect, not a runtime condition.
		panic(fmt.Sprintf("locale: embedded table: %v", err))
	}
	return t
}

// Load reads a locale table from a TOML file of key = "string" pairs.
func Load(path string) (*Table, error) {
	var strings map[string]string
	if _, err := toml.DecodeFile(path, &strings); err != nil {
		return nil, fmt.Errorf("locale: load %s: %w", path, err)
	}
	return &Table{strings: strings}, nil
}

func decode(data []byte) (*Table, error) {
	var strings map[string]string
	if err := toml.Unmarshal(data, &strings); err != nil {
		return nil, err
	}
	return &Table{strings: strings}, nil
}

// Render returns the localized string for key, or the Unknown sentinel when
// the key is not present. It has no side effects.
func (t *Table) Render(key string) string {
	if v, ok := t.strings[key]; ok {
		return v
	}
	return Unknown
}
