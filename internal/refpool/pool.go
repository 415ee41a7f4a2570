// Package refpool implements the Reference Pool (spec.md §4.B): a
// per-entity append-only store of emitted records, indexed by ID, with
// sampled ID selection under a named distribution and a recency-biased
// window.
//
// The structure mirrors the teacher's FileLedger (mutex-guarded append)
// minus the on-disk WAL: spec.md's non-goals exclude durable persistence
// beyond the broker, so the pool is memory-only. Append and SampleID
// (which may rebuild the cached Zipf table) take an entity's exclusive
// section; Count and Lookup take its shared section. Lookup returns the
// stored record itself, not a copy.
package refpool

import (
	"sync"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

// recencyWindow bounds the ring of most-recently appended IDs used for
// recency-biased sampling. spec.md §4.B leaves N implementation-defined,
// "≥ 256"; 512 gives two full LRU generations of headroom for the
// moderate-cardinality master entities this engine targets.
const recencyWindow = 512

type entityStore struct {
	mu      sync.RWMutex
	ids     []string
	byID    map[string]*model.Record
	recent  []string // ring buffer, oldest overwritten first
	recentI int

	zipfAlpha float64
	zipfCDF   []float64 // cached cumulative distribution over [1..len(ids)]
}

// Pool is the concurrency-safe, multi-entity Reference Pool. The zero
// value is not usable; construct with New.
type Pool struct {
	mu          sync.Mutex // guards the stores map and idFields/trackRecent maps
	stores      map[string]*entityStore
	idFields    map[string]string
	trackRecent map[string]bool
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		stores:      make(map[string]*entityStore),
		idFields:    make(map[string]string),
		trackRecent: make(map[string]bool),
	}
}

// SetIDField records which field of entity's records holds its ID. The
// orchestrator calls this once per entity during Init, before any
// Append; it lets Append satisfy model.Pool's single-argument signature
// while still knowing which field to index on.
func (p *Pool) SetIDField(entity, idField string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idFields[entity] = idField
}

// SetTrackRecent records whether entity's recency ring should be
// maintained, mirroring its declared track_recent flag (spec.md §4.B's
// "updates ... the recent-IDs ring for entities with track_recent=true").
// The orchestrator calls this once per entity during Init, alongside
// SetIDField. Entities never registered default to false.
func (p *Pool) SetTrackRecent(entity string, track bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trackRecent[entity] = track
}

func (p *Pool) tracksRecent(entity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trackRecent[entity]
}

func (p *Pool) storeFor(entity string) *entityStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[entity]
	if !ok {
		s = &entityStore{byID: make(map[string]*model.Record)}
		p.stores[entity] = s
	}
	return s
}

// Append adds record under entity's pool, keyed by the entity's
// registered ID field (see SetIDField). It satisfies model.Pool so the
// Field/Entity Generators can depend on the interface rather than this
// concrete type.
func (p *Pool) Append(entity string, record *model.Record) error {
	p.mu.Lock()
	idField, ok := p.idFields[entity]
	p.mu.Unlock()
	if !ok {
		return errkind.Newf(errkind.Generation, entity, "", "no id field registered for entity %q", entity)
	}

	id, ok := record.Get(idField)
	if !ok {
		return errkind.Newf(errkind.Generation, entity, idField, "record missing id field %q", idField)
	}
	idStr := id.AsString()

	s := p.storeFor(entity)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[idStr]; exists {
		return errkind.Newf(errkind.Generation, entity, idField, "duplicate id %q", idStr)
	}
	s.byID[idStr] = record
	s.ids = append(s.ids, idStr)
	s.zipfCDF = nil // invalidate cache; population grew

	if p.tracksRecent(entity) {
		if len(s.recent) < recencyWindow {
			s.recent = append(s.recent, idStr)
		} else {
			s.recent[s.recentI] = idStr
			s.recentI = (s.recentI + 1) % recencyWindow
		}
	}
	return nil
}

// Count returns the number of records appended for entity.
func (p *Pool) Count(entity string) int {
	s := p.storeFor(entity)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Lookup returns the full record for entity/id, or MissingReference.
func (p *Pool) Lookup(entity, id string) (*model.Record, error) {
	s := p.storeFor(entity)
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, errkind.Newf(errkind.MissingReference, entity, "", "no record with id %q", id)
	}
	return r, nil
}

// SampleID draws an ID from entity's pool under dist, optionally
// restricted to the recency window. alpha is only consulted for
// DistZipf.
func (p *Pool) SampleID(entity string, dist model.Distribution, alpha float64, recencyOnly bool) (string, error) {
	s := p.storeFor(entity)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) == 0 {
		return "", errkind.Newf(errkind.EmptyPool, entity, "", "pool for %q is empty", entity)
	}

	if recencyOnly && len(s.recent) > 0 {
		return s.recent[uniformIndex(len(s.recent))], nil
	}
	if recencyOnly {
		// entity never registered track_recent=true (or has no ring
		// entries yet): fall back to uniform sampling over every
		// inserted ID rather than indexing the empty ring.
		return s.ids[uniformIndex(len(s.ids))], nil
	}

	switch dist {
	case model.DistZipf:
		return s.sampleZipfLocked(alpha), nil
	default:
		return s.ids[uniformIndex(len(s.ids))], nil
	}
}

// sampleZipfLocked must be called with s.mu held. Rank k is drawn with
// probability proportional to 1/k^alpha, k in [1, n], and mapped to the
// (k-1)'th inserted ID — early-inserted IDs concentrate probability, per
// spec.md §4.B.
func (s *entityStore) sampleZipfLocked(alpha float64) string {
	n := len(s.ids)
	if s.zipfCDF == nil || s.zipfAlpha != alpha || len(s.zipfCDF) != n {
		s.zipfCDF = buildZipfCDF(n, alpha)
		s.zipfAlpha = alpha
	}
	u := randFloat64() * s.zipfCDF[n-1]
	k := searchCDF(s.zipfCDF, u)
	return s.ids[k]
}

func buildZipfCDF(n int, alpha float64) []float64 {
	cdf := make([]float64, n)
	var sum float64
	for k := 1; k <= n; k++ {
		sum += 1.0 / powFloat(float64(k), alpha)
		cdf[k-1] = sum
	}
	return cdf
}

// searchCDF returns the smallest index i such that cdf[i] >= u.
func searchCDF(cdf []float64, u float64) int {
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cdf[mid] < u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
