// Package codec centralizes the encoding of snapshot metadata.
//
// Snapshot files are self-describing: the codec name travels in the
// file header and readers select the codec by that name rather than
// assuming the writer's default. Changing a codec's wire output is
// therefore a breaking change for every file that names it.
package codec

import "fmt"

// Codec encodes and decodes snapshot sections.
// Implementations must be safe for concurrent use and deterministic:
// snapshot byte-identity relies on equal values encoding to equal
// bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by the stable name recorded in
// snapshot headers.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
