package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Codec encodes/decodes a typed payload to/from the bytes a Store persists.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// DecodeError wraps a codec failure, matching §7's "decode_error" kind.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("corpus: decode failed: %v", e.Cause) }
func (e *DecodeError) Unwrap() error { return e.Cause }

// JSONCodec is the Codec implementation used by every Store in this service:
// JSON encoding with optional JSON-Schema validation of the encoded form.
type JSONCodec[T any] struct {
	// Schema, if set, validates every encoded payload before it is
	// persisted and every decoded payload before it is returned.
	Schema *jsonschema.Schema
}

// NewJSONCodec builds a schema-less JSON codec.
func NewJSONCodec[T any]() JSONCodec[T] {
	return JSONCodec[T]{}
}

// NewValidatedJSONCodec compiles schemaJSON (a JSON-Schema document) and
// returns a codec that validates every payload against it.
func NewValidatedJSONCodec[T any](schemaJSON []byte) (JSONCodec[T], error) {
	compiler := jsonschema.NewCompiler()
	const resourceName = "schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaJSON)); err != nil {
		return JSONCodec[T]{}, fmt.Errorf("corpus: compiling schema: %w", err)
	}
	sch, err := compiler.Compile(resourceName)
	if err != nil {
		return JSONCodec[T]{}, fmt.Errorf("corpus: compiling schema: %w", err)
	}
	return JSONCodec[T]{Schema: sch}, nil
}

// Encode marshals v to canonical JSON, validating it first if a schema is set.
func (c JSONCodec[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &DecodeError{Cause: err}
	}
	if c.Schema != nil {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &DecodeError{Cause: err}
		}
		if err := c.Schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("corpus: schema validation failed: %w", err)
		}
	}
	return data, nil
}

// Decode unmarshals data into T, validating it first if a schema is set.
func (c JSONCodec[T]) Decode(data []byte) (T, error) {
	var zero T
	if c.Schema != nil {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return zero, &DecodeError{Cause: err}
		}
		if err := c.Schema.Validate(doc); err != nil {
			return zero, fmt.Errorf("corpus: schema validation failed: %w", err)
		}
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, &DecodeError{Cause: err}
	}
	return v, nil
}
