// Package orchestrator implements the Correlation Orchestrator (spec.md
// §4.G): the top-level driver that validates configuration, bulk-loads
// masters, interleaves transactional streams under their rate limits,
// and shuts down cleanly on completion, cancellation, or fatal error.
//
// Grounded on the teacher's ingest Manager (services/ledger/internal/
// ingest/kafka.go) for the per-stream-task/shared-resource shape, and on
// zone_simulator's startPublisher for the ticker-paced per-entity loop —
// generalized here from "one goroutine per zone" to "one goroutine per
// transactional entity, sharing one Reference Pool and one Broker
// Publisher" per spec.md §5.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"streamgen/internal/breaker"
	"streamgen/internal/broker"
	"streamgen/internal/config"
	"streamgen/internal/encoding"
	"streamgen/internal/entitygen"
	"streamgen/internal/errkind"
	"streamgen/internal/fieldgen"
	"streamgen/internal/model"
	"streamgen/internal/ratelimit"
	"streamgen/internal/refpool"
)

// drainDeadline is the default flush deadline spec.md §5 names for the
// Draining phase.
const drainDeadline = 30 * time.Second

// Options configures one Run invocation, corresponding to the control
// surface's generate(...) parameters (spec.md §6).
type Options struct {
	Format      Format
	CleanTopics bool
	DryRun      bool
	DryRunOut   io.Writer
}

// Format selects the wire format every entity in the run is encoded
// under.
type Format string

const (
	FormatJSON         Format = "json"
	FormatSchemaFramed Format = "binary"
)

// EntitySummary reports one entity's final counters, used by the Done
// phase's summary (spec.md §4.G).
type EntitySummary struct {
	Entity string
	Sent   int64
	Acked  int64
	Failed int64
}

// Summary is the Done-phase report.
type Summary struct {
	Entities []EntitySummary
	Failed   int64
}

// Run executes Init → BulkLoadMasters → StreamTransactional → Draining
// → Done for doc against brokerCfg, returning a Summary
// and the terminal error, if any. ctx cancellation propagates to every
// transactional task (spec.md §5).
func Run(ctx context.Context, doc *config.Document, brokerCfg *model.BrokerConfig, opts Options, log *slog.Logger) (*Summary, error) {
	if log == nil {
		log = slog.Default()
	}

	// Init
	if err := config.Validate(doc, fieldgen.KnownMethod); err != nil {
		return nil, err
	}

	pool := refpool.New()
	for _, e := range append(append([]*model.EntityDescriptor{}, doc.MasterData...), doc.TransactionalData...) {
		pool.SetIDField(e.Name, e.IDField)
		pool.SetTrackRecent(e.Name, e.TrackRecent)
	}

	if opts.CleanTopics {
		var topics []string
		for _, e := range append(append([]*model.EntityDescriptor{}, doc.MasterData...), doc.TransactionalData...) {
			topics = append(topics, e.KafkaTopic)
		}
		admin := broker.NewAdmin(brokerCfg.BootstrapServers, log)
		if err := admin.CleanTopics(ctx, topics); err != nil {
			return nil, errkind.New(errkind.Delivery, "", "", fmt.Errorf("clean_topics: %w", err))
		}
	}

	pub, err := newPublisher(brokerCfg, opts, log)
	if err != nil {
		return nil, errkind.New(errkind.Config, "", "", err)
	}
	pub.Start(ctx)
	defer pub.Close()

	enc, err := newEncoder(opts.Format, brokerCfg)
	if err != nil {
		return nil, errkind.New(errkind.Config, "", "", err)
	}

	counters := newCounterSet()

	// BulkLoadMasters
	for _, e := range doc.MasterData {
		if !e.BulkLoad {
			continue
		}
		if err := bulkLoadOne(ctx, e, pool, pub, enc, counters, log); err != nil {
			return nil, err
		}
	}
	if residual := pub.Flush(drainDeadline); residual > 0 {
		return nil, errkind.Newf(errkind.DrainTimeout, "", "", "bulk load flush left %d records unacked", residual)
	}

	// StreamTransactional
	var wg sync.WaitGroup
	for _, e := range doc.TransactionalData {
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTransactionalTask(ctx, e, pool, pub, enc, counters, log)
		}()
	}
	wg.Wait()

	// Draining
	residual := pub.Flush(drainDeadline)
	var drainErr error
	if residual > 0 {
		drainErr = errkind.Newf(errkind.DrainTimeout, "", "", "drain left %d records unacked", residual)
	}

	// Done
	summary := counters.summarize()
	if drainErr != nil {
		return summary, drainErr
	}
	if summary.Failed > 0 {
		return summary, errkind.Newf(errkind.Delivery, "", "", "%d records failed delivery", summary.Failed)
	}
	return summary, nil
}

func newPublisher(brokerCfg *model.BrokerConfig, opts Options, log *slog.Logger) (*broker.Publisher, error) {
	if opts.DryRun {
		out := opts.DryRunOut
		w := broker.NewDryRunWriter(out)
		return broker.NewPublisherWithWriter(broker.Config{}, log, w)
	}
	cfg := broker.Config{Brokers: brokerCfg.BootstrapServers, Acks: 1, Partitioner: broker.PartitionerHash}
	brk := breaker.New("broker-publisher", breaker.DefaultConfig(), log, nil)
	return broker.NewPublisher(cfg, log, brk)
}

func newEncoder(format Format, brokerCfg *model.BrokerConfig) (encoding.Encoder, error) {
	switch format {
	case FormatSchemaFramed:
		if brokerCfg.SchemaRegistryURL == "" {
			return nil, fmt.Errorf("binary format requires schema.registry.url")
		}
		return encoding.NewSchemaFramedEncoderFromURL(brokerCfg.SchemaRegistryURL), nil
	default:
		return encoding.NewJSONEncoder(), nil
	}
}

func bulkLoadOne(ctx context.Context, e *model.EntityDescriptor, pool *refpool.Pool, pub *broker.Publisher, enc encoding.Encoder, counters *counterSet, log *slog.Logger) error {
	gen := entitygen.New(e, pool)
	count := e.Count
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := emitOne(ctx, e, gen, pool, pub, enc, counters); err != nil {
			if errkind.Is(err, errkind.SchemaRegistration) || errkind.Is(err, errkind.IncompatibleSchema) || errkind.Is(err, errkind.EmptyPool) || errkind.Is(err, errkind.Config) {
				return err
			}
			log.Warn("bulk_load_record_failed", "entity", e.Name, "err", err)
			counters.incFailed(e.Name)
			continue
		}
	}
	return nil
}

func runTransactionalTask(ctx context.Context, e *model.EntityDescriptor, pool *refpool.Pool, pub *broker.Publisher, enc encoding.Encoder, counters *counterSet, log *slog.Logger) {
	gen := entitygen.New(e, pool)
	limiter := ratelimit.New(e.RatePerSecond)
	var emitted int64
	const maxQueueFullRetries = 5
	var queueFullRetries int

	for {
		if ctx.Err() != nil {
			return
		}
		if e.HasMaxMsgs && emitted >= int64(e.MaxMessages) {
			return
		}

		if d := limiter.Reserve(); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return
			}
		}

		err := emitOne(ctx, e, gen, pool, pub, enc, counters)
		if err == nil {
			emitted++
			queueFullRetries = 0
			continue
		}

		switch {
		case errkind.Is(err, errkind.EmptyPool), errkind.Is(err, errkind.SchemaRegistration), errkind.Is(err, errkind.IncompatibleSchema), errkind.Is(err, errkind.Config):
			log.Error("task_fatal", "entity", e.Name, "err", err)
			return
		case errkind.Is(err, errkind.QueueFull):
			if queueFullRetries >= maxQueueFullRetries {
				log.Warn("record_dropped", "entity", e.Name, "err", err)
				counters.incFailed(e.Name)
				queueFullRetries = 0
				continue
			}
			backoffAndRetry(ctx, queueFullRetries)
			queueFullRetries++
		default:
			log.Warn("record_dropped", "entity", e.Name, "err", err)
			counters.incFailed(e.Name)
		}
	}
}

// backoffAndRetry sleeps a bounded exponential delay before the task
// loop's next iteration retries, per spec.md §7's QueueFull policy
// (10-100ms exponential, capped): 10ms doubled per prior attempt, at
// most 100ms.
func backoffAndRetry(ctx context.Context, attempt int) {
	d := 10 * time.Millisecond << attempt
	if d > 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func emitOne(ctx context.Context, e *model.EntityDescriptor, gen *entitygen.Generator, pool *refpool.Pool, pub *broker.Publisher, enc encoding.Encoder, counters *counterSet) error {
	rec, err := gen.Build()
	if err != nil {
		return err
	}
	payload, err := enc.Encode(e, rec)
	if err != nil {
		return err
	}
	key := broker.DeriveKey(e, rec)

	future, err := pub.Publish(e.KafkaTopic, key, payload)
	if err != nil {
		return err
	}
	counters.incSent(e.Name)

	if err := pool.Append(e.Name, rec); err != nil {
		return err
	}

	select {
	case ackErr := <-future:
		if ackErr != nil {
			counters.incFailed(e.Name)
			return ackErr
		}
		counters.incAcked(e.Name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type counterSet struct {
	mu     sync.Mutex
	sent   map[string]*atomic.Int64
	acked  map[string]*atomic.Int64
	failed map[string]*atomic.Int64
	order  []string
}

func newCounterSet() *counterSet {
	return &counterSet{sent: map[string]*atomic.Int64{}, acked: map[string]*atomic.Int64{}, failed: map[string]*atomic.Int64{}}
}

func (c *counterSet) ensure(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sent[entity]; !ok {
		c.sent[entity] = &atomic.Int64{}
		c.acked[entity] = &atomic.Int64{}
		c.failed[entity] = &atomic.Int64{}
		c.order = append(c.order, entity)
	}
}

func (c *counterSet) incSent(entity string)   { c.ensure(entity); c.sent[entity].Add(1) }
func (c *counterSet) incAcked(entity string)  { c.ensure(entity); c.acked[entity].Add(1) }
func (c *counterSet) incFailed(entity string) { c.ensure(entity); c.failed[entity].Add(1) }

func (c *counterSet) summarize() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Summary{}
	for _, name := range c.order {
		es := EntitySummary{Entity: name, Sent: c.sent[name].Load(), Acked: c.acked[name].Load(), Failed: c.failed[name].Load()}
		s.Entities = append(s.Entities, es)
		s.Failed += es.Failed
	}
	return s
}
