// Package codec centralizes metadata encoding for the media cache.
//
// The durable tier persists its item manifest through a Codec so the format
// stays a single, explicit boundary: if you change codecs, manifests written
// by older codecs may no longer decode and are then treated as an empty
// cache (never a fatal error).
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Manifests are self-describing: the file header stores the codec name and
// the reader selects the codec with ByName before decoding the body.
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
