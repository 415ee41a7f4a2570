// Package encoding implements the Format Encoder (spec.md §4.E):
// serializing a model.Record to bytes under JSON or schema-framed
// binary wire format.
package encoding

import (
	"streamgen/internal/model"
)

// Encoder turns a built record into the bytes handed to the Broker
// Publisher.
type Encoder interface {
	// Encode serializes record for entity, registering or looking up
	// the entity's schema on first use where the format requires one.
	Encode(entity *model.EntityDescriptor, record *model.Record) ([]byte, error)
}

// JSONEncoder implements the JSON wire format: UTF-8 text, field order
// equal to the record's insertion order (model.Record.MarshalJSON
// already guarantees this).
type JSONEncoder struct{}

func NewJSONEncoder() *JSONEncoder { return &JSONEncoder{} }

func (JSONEncoder) Encode(_ *model.EntityDescriptor, record *model.Record) ([]byte, error) {
	return record.MarshalJSON()
}
