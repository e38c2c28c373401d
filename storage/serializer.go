package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned by GetSerializer for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported serialization format")

// Serializer defines the interface for value serialization. It has the same
// method set as cache.Marshaller, so either can be passed where the other is expected.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer implements Serializer using JSON.
type JSONSerializer struct{}

// Marshal serializes a value to JSON.
func (js *JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON. Numbers decode as float64 unless
// v is a typed destination.
func (js *JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// GetSerializer returns a serializer for the given format.
func GetSerializer(format string) (Serializer, error) {
	switch format {
	case "json", "":
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
