package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec: the portable,
// zero-dependency option. Map keys are emitted sorted, which keeps the
// output deterministic.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec new snapshots are written with. Reading is
// unaffected: a snapshot file names the codec that wrote it.
var Default Codec = GoJSON{}
