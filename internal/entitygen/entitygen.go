// Package entitygen implements the Entity Generator (spec.md §4.C):
// assembling a complete record for one entity by combining
// relationship-resolved foreign keys, declared schema fields, and
// derived fields, in that order, consulting the Reference Pool and the
// Field Generator as needed.
package entitygen

import (
	"streamgen/internal/errkind"
	"streamgen/internal/fieldgen"
	"streamgen/internal/model"
)

// Generator builds records for one entity. It owns the entity's
// monotonic sequence counter; per spec.md §5, counters are not shared
// across tasks, so each transactional stream's task holds exactly one
// Generator.
type Generator struct {
	Entity *model.EntityDescriptor
	Pool   model.Pool
	seq    int64
}

// New returns a Generator for entity backed by pool.
func New(entity *model.EntityDescriptor, pool model.Pool) *Generator {
	return &Generator{Entity: entity, Pool: pool}
}

// Build runs the three-phase record assembly described in spec.md §4.C.
// The sequence counter advances exactly once per call, win or lose
// (invariant 4): failed attempts do not reuse the failed seq value.
func (g *Generator) Build() (*model.Record, error) {
	g.seq++
	rec := model.NewRecord()
	ctx := &model.BuildContext{Entity: g.Entity.Name, Seq: g.seq, Record: rec, Pool: g.Pool}

	for _, name := range g.Entity.RelOrder {
		rs := g.Entity.Relationships[name]
		id, err := g.Pool.SampleID(rs.Entity, rs.Distribution, rs.Alpha, rs.RecencyBias)
		if err != nil {
			return nil, err
		}
		rec.Set(name, model.String(id))
	}

	for _, name := range g.Entity.SchemaOrder {
		if _, bound := rec.Get(name); bound {
			continue
		}
		fd := g.Entity.Schema[name]
		v, err := fieldgen.Generate(fd, ctx)
		if err != nil {
			return nil, wrapGeneration(g.Entity.Name, name, err)
		}
		rec.Set(name, v)
	}

	for _, name := range g.Entity.DerivedOrder {
		fd := g.Entity.DerivedFields[name]
		v, err := fieldgen.Generate(fd, ctx)
		if err != nil {
			return nil, wrapGeneration(g.Entity.Name, name, err)
		}
		rec.Set(name, v)
	}

	return rec, nil
}

// Seq returns the counter value used by the most recently built record
// (successful or not), exposed for tests and for orchestrator reporting.
func (g *Generator) Seq() int64 { return g.seq }

// wrapGeneration tags a field-evaluation failure as GenerationError
// unless it already carries a more specific kind (EmptyPool,
// MissingReference, Config) that the caller needs to distinguish.
func wrapGeneration(entity, field string, err error) error {
	if e, ok := err.(*errkind.Error); ok {
		switch e.Kind {
		case errkind.EmptyPool, errkind.MissingReference, errkind.Config:
			return e
		}
	}
	return errkind.New(errkind.Generation, entity, field, err)
}
