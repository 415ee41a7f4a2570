package breaker

import (
	"context"

	kafka "github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer the Broker Publisher
// depends on, narrowed to an interface so CBKafkaWriter can wrap either
// a real writer or a test stub — the same shape the teacher's
// kafkacb_test.go stubs against.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CBKafkaWriter wraps a KafkaWriter so every WriteMessages call goes
// through a Breaker, generalizing the teacher's CBProducer (which wrapped
// a bespoke Send(topic, key, value) interface) to kafka-go's variadic
// WriteMessages signature.
type CBKafkaWriter struct {
	inner KafkaWriter
	brk   *Breaker
}

// NewCBKafkaWriter returns a CBKafkaWriter delegating to inner under brk.
func NewCBKafkaWriter(inner KafkaWriter, brk *Breaker) *CBKafkaWriter {
	return &CBKafkaWriter{inner: inner, brk: brk}
}

func (w *CBKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return w.brk.Execute(ctx, func(ctx context.Context) error {
		return w.inner.WriteMessages(ctx, msgs...)
	})
}

func (w *CBKafkaWriter) Close() error { return w.inner.Close() }
