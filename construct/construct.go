// Package construct maps psychological constructs to the task
// contrasts that measure them. The across-construct similarity phase
// uses these mappings to decide which contrasts to aggregate.
package construct

import (
	"fmt"
	"os"
	"sort"

	"github.com/hupe1980/parcelcorr/codec"
)

// Map associates construct names with the contrast keys belonging to
// them. A contrast may appear in any number of constructs.
type Map map[string][]string

// ConstructsFor returns the names of all constructs that include the
// given contrast, in sorted order.
func (m Map) ConstructsFor(contrast string) []string {
	var names []string
	for name, contrasts := range m {
		for _, c := range contrasts {
			if c == contrast {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// Contrasts returns the union of all member contrasts, sorted.
func (m Map) Contrasts() []string {
	seen := make(map[string]struct{})
	for _, contrasts := range m {
		for _, c := range contrasts {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Load reads a construct map from a JSON file of the form
// {"Construct Name": ["task-..._contrast-...", ...], ...}.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("construct: read %s: %w", path, err)
	}

	var m Map
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("construct: parse %s: %w", path, err)
	}

	return m, nil
}
