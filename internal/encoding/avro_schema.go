package encoding

import (
	"encoding/json"
	"fmt"

	"streamgen/internal/model"
)

// avroType maps a field's declared kind to the Avro primitive that
// carries model.Value's native representation. reference-typed fields
// take on the Avro type of whatever scalar they ultimately produce;
// since the descriptor alone doesn't know that at schema-build time,
// they are treated as nullable strings, the permissive common case for
// derived display fields (amounts are the one numeric exception,
// handled by int/float fields directly rather than through reference
// lookups in the committed spec scenarios).
func avroType(k model.FieldKind) any {
	switch k {
	case model.FieldInt:
		return "long"
	case model.FieldFloat:
		return "double"
	default:
		return []any{"null", "string"}
	}
}

// buildAvroSchema derives an Avro record schema for entity from its
// schema, relationship, and derived fields, promoting any field named
// in entity.NestedFields into a nested sub-record per spec.md §4.E.
// This is the one piece of schema authoring this engine must do itself:
// the pack's schema-registry example (mcolomerc-pipegen) always reads a
// schema file supplied externally and only ever falls back to
// CreateSchema with that pre-authored content, so deriving Avro JSON
// from an entity descriptor has no direct precedent in the corpus and
// is built here as plain Go struct-to-JSON marshaling rather than
// importing a schema-building library, since none in the pack addresses
// this direction (Go types → Avro schema, not Avro schema → Go types).
func buildAvroSchema(entity *model.EntityDescriptor) (string, error) {
	nested := map[string]bool{}
	for _, fields := range entity.NestedFields {
		for _, f := range fields {
			nested[f] = true
		}
	}

	type avroField struct {
		Name string `json:"name"`
		Type any    `json:"type"`
	}
	var fields []avroField

	fieldKind := func(name string) model.FieldKind {
		if fd, ok := entity.Schema[name]; ok {
			return fd.Kind
		}
		if fd, ok := entity.DerivedFields[name]; ok {
			return fd.Kind
		}
		return model.FieldString
	}

	for _, name := range entity.RelOrder {
		fields = append(fields, avroField{Name: name, Type: "string"})
	}
	for _, name := range entity.SchemaOrder {
		if nested[name] {
			continue
		}
		fields = append(fields, avroField{Name: name, Type: avroType(fieldKind(name))})
	}
	for _, name := range entity.DerivedOrder {
		if nested[name] {
			continue
		}
		fields = append(fields, avroField{Name: name, Type: avroType(fieldKind(name))})
	}

	for nestedName, flat := range entity.NestedFields {
		var innerFields []avroField
		for _, f := range flat {
			innerFields = append(innerFields, avroField{Name: f, Type: avroType(fieldKind(f))})
		}
		fields = append(fields, avroField{
			Name: nestedName,
			Type: map[string]any{
				"type":   "record",
				"name":   nestedName + "_t",
				"fields": innerFields,
			},
		})
	}

	schema := map[string]any{
		"type":      "record",
		"name":      entity.Name + "_record",
		"namespace": "streamgen",
		"fields":    fields,
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal avro schema for %s: %w", entity.Name, err)
	}
	return string(b), nil
}

// promoteNested rewrites record's native map, moving the flat fields
// named in entity.NestedFields under their nested sub-message name.
// Every other key is copied through unchanged; this function does not
// remove keys the schema doesn't declare.
func promoteNested(entity *model.EntityDescriptor, native map[string]any) map[string]any {
	if len(entity.NestedFields) == 0 {
		return native
	}
	absorbed := map[string]bool{}
	out := map[string]any{}
	for nestedName, flat := range entity.NestedFields {
		sub := map[string]any{}
		for _, f := range flat {
			if v, ok := native[f]; ok {
				sub[f] = v
			}
			absorbed[f] = true
		}
		out[nestedName] = sub
	}
	for k, v := range native {
		if absorbed[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// wrapUnionValues rewrites native so every field typed as a nullable
// union by avroType (anything but long/double, and other than the
// plain-string relationship fields) carries goavro's required
// single-key disambiguation, e.g. {"string": v} rather than a bare v.
// goavro's BinaryFromNative cannot otherwise tell which union branch a
// non-nil scalar belongs to; only a literal nil is accepted as-is for
// the null branch. Applied after promoteNested so nested sub-records'
// inner fields are wrapped too.
func wrapUnionValues(entity *model.EntityDescriptor, native map[string]any) map[string]any {
	nestedGroup := map[string]bool{}
	for name := range entity.NestedFields {
		nestedGroup[name] = true
	}
	isRel := map[string]bool{}
	for _, name := range entity.RelOrder {
		isRel[name] = true
	}
	fieldKind := func(name string) (model.FieldKind, bool) {
		if fd, ok := entity.Schema[name]; ok {
			return fd.Kind, true
		}
		if fd, ok := entity.DerivedFields[name]; ok {
			return fd.Kind, true
		}
		return 0, false
	}
	wrapScalar := func(name string, v any) any {
		if isRel[name] || v == nil {
			return v
		}
		if kind, ok := fieldKind(name); ok && (kind == model.FieldInt || kind == model.FieldFloat) {
			return v
		}
		return map[string]any{"string": v}
	}

	out := make(map[string]any, len(native))
	for k, v := range native {
		if nestedGroup[k] {
			if sub, ok := v.(map[string]any); ok {
				wrapped := make(map[string]any, len(sub))
				for fk, fv := range sub {
					wrapped[fk] = wrapScalar(fk, fv)
				}
				out[k] = wrapped
				continue
			}
		}
		out[k] = wrapScalar(k, v)
	}
	return out
}
