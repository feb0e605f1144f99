// Package deadletter publishes change events the worker rejected as
// unparseable. Rejected payloads are preserved verbatim so an operator can
// inspect and replay them after fixing the upstream producer.
package deadletter

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer records rejected events. Callers use it best-effort: a failed
// dead-letter write is logged but never blocks consumer progress.
type Producer interface {
	// Reject publishes the original payload together with the rejection
	// reason. Returns an error only on write failure.
	Reject(ctx context.Context, payload []byte, reason string) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}

// record is the dead-letter wire shape. The original payload rides along as
// raw JSON when it parses, base64-encoded bytes otherwise.
type record struct {
	Reason     string          `json:"reason"`
	RejectedAt time.Time       `json:"rejectedAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RawPayload []byte          `json:"rawPayload,omitempty"`
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer creates a producer that writes rejected events to the
// given topic. Returns nil when brokers or topic are unset; a nil producer
// drops rejections with a log line. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}
}

// Reject wraps the payload in a dead-letter record and writes it to the
// topic. Uses a short timeout so a slow broker does not stall the consumer.
func (p *KafkaProducer) Reject(ctx context.Context, payload []byte, reason string) error {
	if p == nil || p.writer == nil {
		log.Printf("deadletter: no topic configured, dropping rejected event: %s", reason)
		return nil
	}
	rec := record{Reason: reason, RejectedAt: time.Now().UTC()}
	if json.Valid(payload) {
		rec.Payload = json.RawMessage(payload)
	} else {
		rec.RawPayload = payload
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, kafka.Message{Value: value}); err != nil {
		log.Printf("deadletter: kafka write failed: %v", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
