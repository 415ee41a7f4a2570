package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// Admin performs the broker-level topic administration the Correlation
// Orchestrator's clean_topics option needs (spec.md §6). Grounded on
// topic-init's ensureLedgerTopics: dial the broker, resolve its
// controller, dial the controller, and issue the admin call — here
// DeleteTopics instead of topic-init's CreateTopics, since spec.md §6
// only asks this engine to remove pre-existing messages on its declared
// topics, not provision new ones (topic provisioning is out of scope,
// external to the core per spec.md §1).
type Admin struct {
	brokers []string
	log     *slog.Logger
}

// NewAdmin returns an Admin dialing brokers[0] for controller discovery,
// matching topic-init's single-seed-broker dial pattern.
func NewAdmin(brokers []string, log *slog.Logger) *Admin {
	if log == nil {
		log = slog.Default()
	}
	return &Admin{brokers: brokers, log: log}
}

// CleanTopics deletes each named topic, per spec.md §6's clean_topics
// flag. It does not recreate them. Any failure is fatal, per the same
// section.
func (a *Admin) CleanTopics(ctx context.Context, topics []string) error {
	if len(a.brokers) == 0 {
		return fmt.Errorf("clean_topics: no brokers configured")
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(dialCtx, "tcp", a.brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", a.brokers[0], err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			a.log.Warn("admin_broker_close", "err", cerr)
		}
	}()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("fetch controller metadata: %w", err)
	}
	ctrlAddr := fmt.Sprintf("%s:%d", controller.Host, controller.Port)
	ctrlCtx, ctrlCancel := context.WithTimeout(ctx, 10*time.Second)
	defer ctrlCancel()
	admin, err := kafka.DialContext(ctrlCtx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", ctrlAddr, err)
	}
	defer func() {
		if cerr := admin.Close(); cerr != nil {
			a.log.Warn("admin_controller_close", "err", cerr)
		}
	}()

	if err := admin.DeleteTopics(topics...); err != nil {
		return fmt.Errorf("delete topics %v: %w", topics, err)
	}
	a.log.Info("topics_cleaned", "count", len(topics))
	return nil
}
