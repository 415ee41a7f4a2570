package broker

import "streamgen/internal/model"

// DeriveKey implements spec.md §4.F's partition-key derivation: if the
// entity declares a key_field, use that field's value rendered as
// UTF-8; otherwise nil, letting the broker's default partitioning
// apply.
func DeriveKey(entity *model.EntityDescriptor, record *model.Record) []byte {
	if entity.KeyField == "" {
		return nil
	}
	v, ok := record.Get(entity.KeyField)
	if !ok {
		return nil
	}
	return []byte(v.AsString())
}
