package config

import (
	"streamgen/internal/errkind"
	"streamgen/internal/fieldgen"
	"streamgen/internal/model"
)

// Validate implements the Correlation Orchestrator's Init phase
// (spec.md §4.G): every relationship's references target must resolve
// to a declared entity with a matching id_field, every faker method
// must be known, every choice field declares at least one choice, every
// string field's {name} template tokens resolve to a field the entity
// actually declares, and every reference-type field's via must name a
// relationship or schema field of the same entity (both bound before
// derived fields are evaluated), and the reference's source entity must
// declare the named source field.
// Any failure is ConfigError, surfaced before any I/O — none of these
// checks are deferred to generation time.
func Validate(doc *Document, knownFaker func(method string) bool) error {
	all := make(map[string]*model.EntityDescriptor)
	for _, e := range doc.MasterData {
		all[e.Name] = e
	}
	for _, e := range doc.TransactionalData {
		all[e.Name] = e
	}

	entities := append(append([]*model.EntityDescriptor{}, doc.MasterData...), doc.TransactionalData...)
	for _, e := range entities {
		if err := validateEntity(e, all, knownFaker); err != nil {
			return err
		}
	}
	return nil
}

func validateEntity(e *model.EntityDescriptor, all map[string]*model.EntityDescriptor, knownFaker func(string) bool) error {
	localFields := map[string]bool{}
	for _, name := range e.RelOrder {
		localFields[name] = true
	}
	for _, name := range e.SchemaOrder {
		localFields[name] = true
	}
	for _, name := range e.DerivedOrder {
		localFields[name] = true
	}

	for fieldName, rs := range e.Relationships {
		target, ok := all[rs.Entity]
		if !ok {
			return errkind.Newf(errkind.Config, e.Name, fieldName, "relationship references undeclared entity %q", rs.Entity)
		}
		if target.IDField != "" && target.IDField != rs.IDField {
			return errkind.Newf(errkind.Config, e.Name, fieldName, "relationship id_field %q does not match entity %q's declared id_field %q", rs.IDField, rs.Entity, target.IDField)
		}
	}

	for fieldName, fd := range e.Schema {
		if err := validateField(e.Name, fieldName, fd, localFields, all, knownFaker); err != nil {
			return err
		}
	}
	for fieldName, fd := range e.DerivedFields {
		if err := validateField(e.Name, fieldName, fd, localFields, all, knownFaker); err != nil {
			return err
		}
	}
	return nil
}

func validateField(entity, field string, fd *model.FieldDescriptor, localFields map[string]bool, all map[string]*model.EntityDescriptor, knownFaker func(string) bool) error {
	switch fd.Kind {
	case model.FieldFaker:
		if knownFaker != nil && !knownFaker(fd.Method) {
			return errkind.Newf(errkind.Config, entity, field, "unknown faker method %q", fd.Method)
		}
	case model.FieldChoice:
		if len(fd.Choices) == 0 {
			return errkind.Newf(errkind.Config, entity, field, "choice field declares no choices")
		}
	case model.FieldString:
		for _, name := range fieldgen.TemplateFields(fd.Format) {
			if !localFields[name] {
				return errkind.Newf(errkind.Config, entity, field, "template references undeclared field %q", name)
			}
		}
	case model.FieldReference:
		self := all[entity]
		_, inRel := self.Relationships[fd.Via]
		_, inSchema := self.Schema[fd.Via]
		if !inRel && !inSchema {
			return errkind.Newf(errkind.Config, entity, field, "reference via %q is not a declared schema or relationship field", fd.Via)
		}
		target, ok := all[fd.SourceEntity]
		if !ok {
			return errkind.Newf(errkind.Config, entity, field, "reference source entity %q is not declared", fd.SourceEntity)
		}
		if _, ok := target.Schema[fd.SourceField]; !ok {
			if _, ok := target.DerivedFields[fd.SourceField]; !ok {
				return errkind.Newf(errkind.Config, entity, field, "entity %q does not declare field %q", fd.SourceEntity, fd.SourceField)
			}
		}
	}
	return nil
}
