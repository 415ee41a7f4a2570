package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"streamgen/internal/config"
	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

const testYAML = `
master_data:
  customers:
    kafka_topic: customers
    id_field: customer_id
    bulk_load: true
    count: 5
    schema:
      customer_id:
        type: string
        format: "CUST_{seq:4d}"
      name:
        type: faker
        method: name
transactional_data:
  orders:
    kafka_topic: orders
    id_field: order_id
    rate_per_second: 0
    max_messages: 3
    relationships:
      customer_id:
        references: customers.customer_id
        distribution: uniform
    schema:
      order_id:
        type: string
        format: "ORDER_{seq:5d}"
      total_amount:
        type: float
        min: 10
        max: 20
`

func testBrokerConfig() *model.BrokerConfig {
	return &model.BrokerConfig{BootstrapServers: []string{"localhost:9092"}, SecurityProtocol: model.SecurityPlaintext}
}

func TestRunDryRunCompletesAndReportsCounts(t *testing.T) {
	doc, err := config.Load([]byte(testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	opts := Options{Format: FormatJSON, DryRun: true, DryRunOut: &out}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := Run(ctx, doc, testBrokerConfig(), opts, log)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var customers, orders *EntitySummary
	for i := range summary.Entities {
		switch summary.Entities[i].Entity {
		case "customers":
			customers = &summary.Entities[i]
		case "orders":
			orders = &summary.Entities[i]
		}
	}
	if customers == nil || customers.Acked != 5 {
		t.Fatalf("customers summary = %+v, want Acked=5", customers)
	}
	if orders == nil || orders.Acked != 3 {
		t.Fatalf("orders summary = %+v, want Acked=3", orders)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("dry-run output lines = %d, want 8", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("dry-run line not valid JSON: %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	const bad = `
transactional_data:
  orders:
    kafka_topic: orders
    id_field: order_id
    relationships:
      customer_id:
        references: customers.customer_id
    schema:
      order_id:
        type: string
        format: "ORDER_{seq:5d}"
`
	doc, err := config.Load([]byte(bad))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var out bytes.Buffer
	_, err = Run(context.Background(), doc, testBrokerConfig(), Options{Format: FormatJSON, DryRun: true, DryRunOut: &out}, nil)
	if err == nil {
		t.Fatal("want ConfigError for undeclared relationship target")
	}
}

// TestRunRejectsInvalidConfigIdempotentlyWithoutNetworkIO backs spec.md
// §8's claim that validate is idempotent and side-effect-free: Run's
// Init phase must reject the same bad document with the same exit code
// every time, and must do so before newPublisher ever dials the broker
// (the bootstrap address below is unroutable; a passing, prompt test
// proves Validate short-circuits ahead of it rather than hanging or
// erroring out on a dial).
func TestRunRejectsInvalidConfigIdempotentlyWithoutNetworkIO(t *testing.T) {
	const bad = `
transactional_data:
  orders:
    kafka_topic: orders
    id_field: order_id
    relationships:
      customer_id:
        references: customers.customer_id
    schema:
      order_id:
        type: string
        format: "ORDER_{seq:5d}"
`
	doc, err := config.Load([]byte(bad))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	unroutable := &model.BrokerConfig{BootstrapServers: []string{"198.51.100.1:9092"}, SecurityProtocol: model.SecurityPlaintext}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err1 := Run(ctx, doc, unroutable, Options{Format: FormatJSON}, nil)
	if err1 == nil {
		t.Fatal("want ConfigError on first run")
	}
	_, err2 := Run(ctx, doc, unroutable, Options{Format: FormatJSON}, nil)
	if err2 == nil {
		t.Fatal("want ConfigError on second run")
	}
	if errkind.ExitCode(err1) != errkind.ExitCode(err2) {
		t.Fatalf("exit codes differ across runs: %d vs %d", errkind.ExitCode(err1), errkind.ExitCode(err2))
	}
	if want := errkind.ExitCode(err1); want != 2 {
		t.Fatalf("exit code = %d, want 2 (ConfigError)", want)
	}
}

func TestRunCancellationStopsTransactionalTasks(t *testing.T) {
	const slowYAML = `
master_data:
  customers:
    kafka_topic: customers
    id_field: customer_id
    bulk_load: true
    count: 2
    schema:
      customer_id:
        type: string
        format: "CUST_{seq:4d}"
transactional_data:
  orders:
    kafka_topic: orders
    id_field: order_id
    rate_per_second: 1
    relationships:
      customer_id:
        references: customers.customer_id
    schema:
      order_id:
        type: string
        format: "ORDER_{seq:5d}"
`
	doc, err := config.Load([]byte(slowYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_, _ = Run(ctx, doc, testBrokerConfig(), Options{Format: FormatJSON, DryRun: true, DryRunOut: &out}, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return within deadline after context cancellation")
	}
}
