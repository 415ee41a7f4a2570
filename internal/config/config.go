// Package config decodes the declarative configuration documents
// spec.md §6 defines: the master_data/transactional_data entity tree
// and the separate broker-config document.
//
// YAML is the teacher's own ambient format for nothing (GVCUTV-NRG-CHAMP
// uses flat .properties files throughout), but spec.md §6 calls for "a
// declarative key-value tree" with nested per-entity schema/
// relationships/derived_fields maps that a flat properties file cannot
// express; the mcolomerc-pipegen manifest in the broader pack is the
// one example repo whose go.mod pulls in gopkg.in/yaml.v3 for exactly
// this kind of nested pipeline-stage document, so this package follows
// that precedent rather than inventing a bespoke nested-properties
// dialect.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

// rawDocument mirrors the YAML shape directly so yaml.v3 can unmarshal
// into it before the Load function translates it into model types.
type rawDocument struct {
	MasterData        map[string]rawEntity `yaml:"master_data"`
	TransactionalData map[string]rawEntity `yaml:"transactional_data"`
}

type rawEntity struct {
	KafkaTopic    string                  `yaml:"kafka_topic"`
	IDField       string                  `yaml:"id_field"`
	KeyField      string                  `yaml:"key_field"`
	Source        string                  `yaml:"source"`
	BulkLoad      bool                    `yaml:"bulk_load"`
	Count         *int                    `yaml:"count"`
	MaxMessages   *int                    `yaml:"max_messages"`
	RatePerSecond float64                 `yaml:"rate_per_second"`
	TrackRecent   bool                    `yaml:"track_recent"`
	Schema        map[string]rawField     `yaml:"schema"`
	Relationships map[string]rawReference `yaml:"relationships"`
	DerivedFields map[string]rawField     `yaml:"derived_fields"`
	NestedFields  map[string][]string     `yaml:"nested_fields"`
}

type rawField struct {
	Type         string   `yaml:"type"`
	Method       string   `yaml:"method"`
	Format       string   `yaml:"format"`
	InitialValue string   `yaml:"initial_value"`
	Min          float64  `yaml:"min"`
	Max          float64  `yaml:"max"`
	Choices      []string `yaml:"choices"`
	Source       string   `yaml:"source"`
	Via          string   `yaml:"via"`
}

type rawReference struct {
	References      string  `yaml:"references"`
	Distribution    string  `yaml:"distribution"`
	Alpha           float64 `yaml:"alpha"`
	RecencyBias     bool    `yaml:"recency_bias"`
	MaxDelayMinutes int     `yaml:"max_delay_minutes"`
}

// Document is the decoded, model-typed configuration: every declared
// entity, split into masters and transactional streams. Both sections
// decode into Go maps, so neither slice keeps the YAML declaration
// order; the order of entities in each slice (which bulk load and the
// orchestrator's task fan-out follow) is not defined.
type Document struct {
	MasterData        []*model.EntityDescriptor
	TransactionalData []*model.EntityDescriptor
}

// Load parses a YAML document's bytes into a Document.
func Load(data []byte) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errkind.New(errkind.Config, "", "", fmt.Errorf("parse config: %w", err))
	}

	doc := &Document{}
	for name, re := range raw.MasterData {
		ed, err := toEntity(name, re)
		if err != nil {
			return nil, err
		}
		doc.MasterData = append(doc.MasterData, ed)
	}
	for name, re := range raw.TransactionalData {
		ed, err := toEntity(name, re)
		if err != nil {
			return nil, err
		}
		doc.TransactionalData = append(doc.TransactionalData, ed)
	}
	return doc, nil
}

func toEntity(name string, re rawEntity) (*model.EntityDescriptor, error) {
	ed := &model.EntityDescriptor{
		Name:          name,
		KafkaTopic:    re.KafkaTopic,
		IDField:       re.IDField,
		KeyField:      re.KeyField,
		Source:        model.SourceKind(re.Source),
		BulkLoad:      re.BulkLoad,
		RatePerSecond: re.RatePerSecond,
		TrackRecent:   re.TrackRecent,
		NestedFields:  re.NestedFields,
	}
	if re.Count != nil {
		ed.Count = *re.Count
		ed.HasCount = true
	}
	if re.MaxMessages != nil {
		ed.MaxMessages = *re.MaxMessages
		ed.HasMaxMsgs = true
	}

	for _, fname := range sortedKeys(re.Schema) {
		fd, err := toField(name, fname, re.Schema[fname])
		if err != nil {
			return nil, err
		}
		ed.SetSchemaField(fname, fd)
	}
	for _, fname := range sortedKeys(re.Relationships) {
		rs, err := toReference(name, fname, re.Relationships[fname])
		if err != nil {
			return nil, err
		}
		ed.SetRelationship(fname, rs)
	}
	for _, fname := range sortedKeys(re.DerivedFields) {
		fd, err := toField(name, fname, re.DerivedFields[fname])
		if err != nil {
			return nil, err
		}
		ed.SetDerivedField(fname, fd)
	}
	return ed, nil
}

func toField(entity, field string, rf rawField) (*model.FieldDescriptor, error) {
	switch model.FieldKind(rf.Type) {
	case model.FieldFaker:
		return &model.FieldDescriptor{Kind: model.FieldFaker, Method: rf.Method}, nil
	case model.FieldString:
		format := rf.Format
		if format == "" {
			format = rf.InitialValue
		}
		return &model.FieldDescriptor{Kind: model.FieldString, Format: format}, nil
	case model.FieldUUID:
		return &model.FieldDescriptor{Kind: model.FieldUUID}, nil
	case model.FieldInt:
		return &model.FieldDescriptor{Kind: model.FieldInt, Min: rf.Min, Max: rf.Max}, nil
	case model.FieldFloat:
		return &model.FieldDescriptor{Kind: model.FieldFloat, Min: rf.Min, Max: rf.Max}, nil
	case model.FieldTimestamp:
		return &model.FieldDescriptor{Kind: model.FieldTimestamp, TimeFormat: rf.Format}, nil
	case model.FieldChoice:
		return &model.FieldDescriptor{Kind: model.FieldChoice, Choices: rf.Choices}, nil
	case model.FieldReference:
		srcEntity, srcField, err := splitDotted(rf.Source)
		if err != nil {
			return nil, errkind.New(errkind.Config, entity, field, err)
		}
		return &model.FieldDescriptor{
			Kind: model.FieldReference, Source: rf.Source, Via: rf.Via,
			SourceEntity: srcEntity, SourceField: srcField,
		}, nil
	default:
		return nil, errkind.Newf(errkind.Config, entity, field, "unknown field type %q", rf.Type)
	}
}

func toReference(entity, field string, rr rawReference) (*model.ReferenceSpec, error) {
	refEntity, idField, err := splitDotted(rr.References)
	if err != nil {
		return nil, errkind.New(errkind.Config, entity, field, err)
	}
	dist := model.Distribution(rr.Distribution)
	if dist == "" {
		dist = model.DistUniform
	}
	alpha := rr.Alpha
	if alpha == 0 {
		alpha = 1.0
	}
	return &model.ReferenceSpec{
		References: rr.References, Distribution: dist, Alpha: alpha,
		RecencyBias: rr.RecencyBias, MaxDelayMinutes: rr.MaxDelayMinutes,
		Entity: refEntity, IDField: idField,
	}, nil
}

func splitDotted(s string) (string, string, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected \"<entity>.<field>\", got %q", s)
}

// sortedKeys gives a deterministic field order; yaml.v3 decodes mapping
// nodes into plain Go maps, which lose declaration order, so exact
// insertion order from the YAML source isn't recoverable without
// walking yaml.Node directly, so fields are evaluated in alphabetical
// order within each phase. Validate requires a reference field's "via"
// to be a relationship or schema field, so a derived reference always
// finds it bound. Validate does not check order within a phase: a
// string template {name} token, or a schema-phase "via", that names a
// field not yet bound at that point (a schema field sorting later, or a
// derived field) passes Validate and fails when the record is built.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
