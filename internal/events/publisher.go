// Package events publishes vehicle change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"lotwatch/internal/reconcile"
)

// ChangeEvent is one vehicle-level change as published on the bus.
type ChangeEvent struct {
	RunDate   string   `json:"runDate"`
	VehicleID int64    `json:"vehicleId"`
	ModelName string   `json:"modelName"`
	Change    string   `json:"change"`
	Composite *float64 `json:"compositeScore,omitempty"`
	EmittedAt int64    `json:"emittedAt"`
}

// RunSummaryEvent closes one run on the bus.
type RunSummaryEvent struct {
	RunDate   string `json:"runDate"`
	Seen      int    `json:"seen"`
	New       int    `json:"new"`
	Changed   int    `json:"changed"`
	Sold      int    `json:"sold"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	EmittedAt int64  `json:"emittedAt"`
}

// Publisher writes change events to a Kafka topic, keyed by vehicle
// identifier so per-vehicle ordering is preserved.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		log: log,
	}
}

// PublishChanges emits one event per vehicle change, then the run summary.
func (p *Publisher) PublishChanges(ctx context.Context, runDate time.Time, changes []reconcile.VehicleChange, summary RunSummaryEvent) error {
	now := time.Now().UnixMilli()
	msgs := make([]kafka.Message, 0, len(changes)+1)

	for _, c := range changes {
		event := ChangeEvent{
			RunDate:   runDate.Format("2006-01-02"),
			VehicleID: c.VehicleID,
			ModelName: c.ModelName,
			Change:    string(c.Change),
			Composite: c.Composite,
			EmittedAt: now,
		}
		b, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal change event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(fmt.Sprintf("%d", c.VehicleID)),
			Value: b,
		})
	}

	summary.RunDate = runDate.Format("2006-01-02")
	summary.EmittedAt = now
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	msgs = append(msgs, kafka.Message{Key: []byte("run-summary"), Value: b})

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error("kafka write failed", "err", err, "messages", len(msgs))
		return err
	}
	p.log.Info("published change events", "changes", len(changes), "runDate", summary.RunDate)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
