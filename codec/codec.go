// Package codec centralizes payload and pattern encoding.
//
// The driver decodes queue payloads and encodes stored patterns with one
// Codec. Stored artifacts carry the codec in their name, so changing the
// configured codec does not break reading older artifacts.
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
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "msgpack":
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// Extension returns the file extension for data encoded with c, without
// the leading dot.
func Extension(c Codec) string {
	switch c.Name() {
	case "json", "go-json":
		return "json"
	default:
		return c.Name()
	}
}

// ByExtension returns the codec that reads files with the given extension.
func ByExtension(ext string) (Codec, bool) {
	if ext == "json" {
		return Default, true
	}
	return ByName(ext)
}

// MustMarshal is a helper for tests.
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
