// Package broker implements the Broker Publisher (spec.md §4.F):
// asynchronous send with delivery-acknowledgement accounting, per-topic
// partition-key selection, and flush-on-shutdown.
//
// Generalized from services/ledger/internal/public/publisher.go: the
// teacher publisher is bound to one fixed topic and one Epoch payload
// type; this one is bound to neither — every transactional and master
// entity in the run shares a single Publisher instance (spec.md §4.G,
// §5), so Publish takes topic/key/value per call instead of the
// teacher's single-purpose Publish(ctx, epoch). The queue/run/drain/
// deliver control flow and the startOnce/stopOnce/atomic.Bool lifecycle
// guard are kept unchanged.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"streamgen/internal/breaker"
	"streamgen/internal/errkind"
)

// Partitioner enumerates the supported Kafka partition strategies,
// carried over from the teacher's public.Partitioner.
type Partitioner string

const (
	PartitionerHash       Partitioner = "hash"
	PartitionerRoundRobin Partitioner = "roundrobin"
)

func resolveBalancer(p Partitioner) (kafka.Balancer, error) {
	switch p {
	case PartitionerHash, "":
		return &kafka.Hash{}, nil
	case PartitionerRoundRobin:
		return &kafka.RoundRobin{}, nil
	default:
		return nil, fmt.Errorf("unsupported partitioner: %s", p)
	}
}

// Config configures the Publisher's underlying Kafka writer.
type Config struct {
	Brokers     []string
	Acks        int
	Partitioner Partitioner
	QueueSize   int // default 256, mirroring the teacher's publisherQueueSize
}

// AckFuture is resolved once a publish attempt's delivery outcome is
// known, per spec.md §4.F's "publish(...) → AckFuture".
type AckFuture <-chan error

type publishRequest struct {
	topic string
	key   []byte
	value []byte
	done  chan error
}

const defaultQueueSize = 256

// Publisher is the single shared, concurrency-safe broker client every
// entity task publishes through.
type Publisher struct {
	log     *slog.Logger
	writer  breaker.KafkaWriter
	closer  interface{ Close() error }
	queue   chan publishRequest
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once

	sent   atomic.Int64
	acked  atomic.Int64
	failed atomic.Int64
}

var (
	ErrNotStarted = errors.New("publisher not started")
	ErrQueueFull  = errkind.New(errkind.QueueFull, "", "", errors.New("publish queue is full"))
)

// NewPublisher constructs a Publisher whose writer is wrapped by brk
// (nil disables circuit breaking). Dry-run mode does not come through
// here; it uses NewPublisherWithWriter.
func NewPublisher(cfg Config, log *slog.Logger, brk *breaker.Breaker) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	balancer, err := resolveBalancer(cfg.Partitioner)
	if err != nil {
		return nil, err
	}
	base := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		RequiredAcks:           kafka.RequiredAcks(cfg.Acks),
		AllowAutoTopicCreation: false,
		Balancer:               balancer,
	}
	var w breaker.KafkaWriter = base
	if brk != nil {
		w = breaker.NewCBKafkaWriter(base, brk)
	}
	return newPublisherWithWriter(cfg, log, w, base)
}

// NewPublisherWithWriter builds a Publisher around an already-constructed
// writer, bypassing the kafka.Writer dial setup NewPublisher performs.
// Used to wire DryRunWriter in for dry_run mode.
func NewPublisherWithWriter(cfg Config, log *slog.Logger, w breaker.KafkaWriter) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	return newPublisherWithWriter(cfg, log, w, w)
}

func newPublisherWithWriter(cfg Config, log *slog.Logger, w breaker.KafkaWriter, closer interface{ Close() error }) (*Publisher, error) {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Publisher{
		log:    log.With(slog.String("component", "broker_publisher")),
		writer: w,
		closer: closer,
		queue:  make(chan publishRequest, size),
	}, nil
}

// Start launches the background delivery loop.
func (p *Publisher) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info("publisher_started")
	})
}

// Publish enqueues (topic, key, value) for asynchronous delivery and
// returns an AckFuture resolved once the write attempt completes.
// Per spec.md §4.F, a full queue is reported as QueueFull rather than
// blocking; the orchestrator's task loop owns the bounded backoff/retry.
func (p *Publisher) Publish(topic string, key, value []byte) (AckFuture, error) {
	if !p.started.Load() {
		return nil, ErrNotStarted
	}
	done := make(chan error, 1)
	req := publishRequest{topic: topic, key: key, value: value, done: done}
	select {
	case p.queue <- req:
		p.sent.Add(1)
		return done, nil
	default:
		return nil, ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			p.started.Store(false)
			p.log.Info("publisher_loop_exit")
			return
		case req := <-p.queue:
			p.deliver(req)
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case req := <-p.queue:
			p.deliver(req)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(req publishRequest) {
	err := p.writer.WriteMessages(context.Background(), kafka.Message{Topic: req.topic, Key: req.key, Value: req.value})
	if err != nil {
		p.failed.Add(1)
		p.log.Error("publish_failed", "topic", req.topic, "err", err)
		req.done <- errkind.New(errkind.Delivery, "", "", err)
		return
	}
	p.acked.Add(1)
	req.done <- nil
}

// Flush blocks until the queue drains or timeout elapses, returning the
// residual in-flight count — 0 means every enqueued record was
// delivered (acked or permanently failed), per spec.md §4.F.
func (p *Publisher) Flush(timeout time.Duration) int {
	residual := func() int {
		n := int(p.sent.Load() - p.acked.Load() - p.failed.Load())
		if q := len(p.queue); q > n {
			n = q
		}
		return n
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if residual() <= 0 {
			return 0
		}
		time.Sleep(5 * time.Millisecond)
	}
	return residual()
}

// Close cancels the delivery loop (implying a final drain) and closes
// the underlying writer.
func (p *Publisher) Close() error {
	var err error
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		if p.closer != nil {
			err = p.closer.Close()
		}
	})
	return err
}

// Counts returns the publisher's lifetime sent/acked/failed counters,
// used by the orchestrator's §4.G Done-phase summary.
func (p *Publisher) Counts() (sent, acked, failed int64) {
	return p.sent.Load(), p.acked.Load(), p.failed.Load()
}
