package broker

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func newTestPublisher(t *testing.T) (*Publisher, *DryRunWriter) {
	t.Helper()
	w := NewDryRunWriter(&bytes.Buffer{})
	p, err := NewPublisherWithWriter(Config{QueueSize: 4}, nil, w)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	p.Start(context.Background())
	return p, w
}

func TestPublishDeliversAndAcks(t *testing.T) {
	p, w := newTestPublisher(t)
	defer p.Close()

	future, err := p.Publish("orders", []byte("k"), []byte("v"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case err := <-future:
		if err != nil {
			t.Fatalf("ack error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ack")
	}

	sent, acked, failed := p.Counts()
	if sent != 1 || acked != 1 || failed != 0 {
		t.Fatalf("counts = sent=%d acked=%d failed=%d", sent, acked, failed)
	}
	if w.Lines() != 1 {
		t.Fatalf("dry-run lines = %d, want 1", w.Lines())
	}
}

func TestPublishNotStartedFails(t *testing.T) {
	w := NewDryRunWriter(&bytes.Buffer{})
	p, err := NewPublisherWithWriter(Config{}, nil, w)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if _, err := p.Publish("orders", nil, []byte("v")); err != ErrNotStarted {
		t.Fatalf("want ErrNotStarted, got %v", err)
	}
}

func TestFlushReturnsZeroResidualAfterDrain(t *testing.T) {
	p, _ := newTestPublisher(t)
	defer p.Close()

	for i := 0; i < 3; i++ {
		if _, err := p.Publish("orders", nil, []byte("v")); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	residual := p.Flush(time.Second)
	if residual != 0 {
		t.Fatalf("residual = %d, want 0", residual)
	}
}

func TestQueueFullReportsBackpressure(t *testing.T) {
	w := NewDryRunWriter(&bytes.Buffer{})
	p, err := NewPublisherWithWriter(Config{QueueSize: 1}, nil, w)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	// Deliberately do not Start: the run loop never drains the queue,
	// so the second enqueue attempt observes it full.
	p.started.Store(true)
	p.runCtx = context.Background()

	if _, err := p.Publish("orders", nil, []byte("v")); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := p.Publish("orders", nil, []byte("v")); err != ErrQueueFull {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
}
