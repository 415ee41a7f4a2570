package fieldgen

import (
	"math/rand"

	"github.com/google/uuid"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

// Generate evaluates one field descriptor against ctx and returns the
// resulting Value. This is the pure "(descriptor, context) → value"
// function spec.md §4.A names; FieldReference is handled here too since
// its semantics (look up via a local field, copy a named field from the
// parent) depend only on the pool and the in-progress record, the same
// context every other variant consumes.
func Generate(fd *model.FieldDescriptor, ctx *model.BuildContext) (model.Value, error) {
	switch fd.Kind {
	case model.FieldFaker:
		s, err := Invoke(fd.Method, ctx.Seq)
		if err != nil {
			return model.Value{}, errkind.New(errkind.Config, ctx.Entity, fd.Method, err)
		}
		return model.String(s), nil

	case model.FieldString:
		s, err := renderTemplate(fd.Format, ctx.Entity, ctx.Seq, ctx.Record)
		if err != nil {
			return model.Value{}, err
		}
		return model.String(s), nil

	case model.FieldUUID:
		return model.String(uuid.NewString()), nil

	case model.FieldInt:
		lo, hi := int64(fd.Min), int64(fd.Max)
		if hi <= lo {
			return model.Int64(lo), nil
		}
		return model.Int64(lo + rand.Int63n(hi-lo+1)), nil

	case model.FieldFloat:
		if fd.Max <= fd.Min {
			return model.Float64(fd.Min), nil
		}
		return model.Float64(fd.Min + rand.Float64()*(fd.Max-fd.Min)), nil

	case model.FieldTimestamp:
		// iso8601 is the only required format, per spec.md §3.
		return model.String(nowISO8601()), nil

	case model.FieldChoice:
		if len(fd.Choices) == 0 {
			return model.Value{}, errkind.Newf(errkind.Config, ctx.Entity, "", "choice field has no choices")
		}
		return model.String(fd.Choices[rand.Intn(len(fd.Choices))]), nil

	case model.FieldReference:
		return generateReference(fd, ctx)

	default:
		return model.Value{}, errkind.Newf(errkind.Config, ctx.Entity, "", "unknown field kind %q", fd.Kind)
	}
}

// generateReference resolves a reference{source, via} derived field: the
// parent record is looked up by the value already bound to the local
// fk field named Via, and the field named SourceField is copied from it.
func generateReference(fd *model.FieldDescriptor, ctx *model.BuildContext) (model.Value, error) {
	fkVal, ok := ctx.Record.Get(fd.Via)
	if !ok {
		return model.Value{}, errkind.Newf(errkind.Config, ctx.Entity, fd.Via, "reference field's via %q is not yet bound", fd.Via)
	}
	parent, err := ctx.Pool.Lookup(fd.SourceEntity, fkVal.AsString())
	if err != nil {
		return model.Value{}, err
	}
	v, ok := parent.Get(fd.SourceField)
	if !ok {
		return model.Value{}, errkind.Newf(errkind.MissingReference, ctx.Entity, fd.SourceField, "parent %s/%s has no field %q", fd.SourceEntity, fkVal.AsString(), fd.SourceField)
	}
	return v, nil
}
