// Package events publishes engine results to Kafka for downstream reporting.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// Publisher receives evaluation and scan results.
type Publisher interface {
	PublishDeviations(ctx context.Context, results []domain.DeviationResult) error
	PublishOpportunities(ctx context.Context, opps []domain.Opportunity) error
	Close() error
}

// Nop drops every event; used when no brokers are configured.
type Nop struct{}

func (Nop) PublishDeviations(context.Context, []domain.DeviationResult) error { return nil }
func (Nop) PublishOpportunities(context.Context, []domain.Opportunity) error  { return nil }
func (Nop) Close() error                                                      { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	deviations    messageWriter
	opportunities messageWriter
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
}

func NewKafkaPublisher(brokers []string, deviationsTopic, opportunitiesTopic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: no kafka brokers")
	}
	return &KafkaPublisher{
		deviations:    newWriter(brokers, deviationsTopic),
		opportunities: newWriter(brokers, opportunitiesTopic),
	}, nil
}

// PublishDeviations writes one message per result keyed by entity so a
// partition sees an entity's periods in order.
func (p *KafkaPublisher) PublishDeviations(ctx context.Context, results []domain.DeviationResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(results))
	for _, r := range results {
		value, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode deviation: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.EntityID + "|" + r.EnergySource),
			Value: value,
			Time:  r.PeriodStart,
			Headers: []kafka.Header{
				{Key: "compliance", Value: []byte(r.Compliance)},
			},
		})
	}
	return p.deviations.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) PublishOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(opps))
	for _, o := range opps {
		value, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode opportunity: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(o.EntityID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "issue_type", Value: []byte(o.IssueType.String())},
			},
		})
	}
	return p.opportunities.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.deviations.Close(), p.opportunities.Close())
}
