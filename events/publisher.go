// Package events publishes CRM domain events to Pub/Sub for downstream
// consumers (analytics, integrations). Publication is fire-and-forget:
// a failed publish is logged and never fails the workflow that raised it.
package events

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/config"
)

const (
	EventQuoteConverted    = "crm.quote.converted"
	EventShipmentDelivered = "crm.shipment.delivered"
)

type DomainEvent struct {
	Id         string         `json:"id"`
	TenantId   string         `json:"tenant_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type Publisher struct {
	topic  *pubsub.Topic
	logger *logrus.Logger
}

// NewPublisher wires the shared Pub/Sub client to the CRM events topic
// (CRM_EVENTS_TOPIC, default crm-domain-events), creating it if needed.
func NewPublisher(ctx context.Context, logger *logrus.Logger) (*Publisher, error) {
	client, err := config.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	topicName := os.Getenv("CRM_EVENTS_TOPIC")
	if topicName == "" {
		topicName = "crm-domain-events"
	}
	topic, err := config.CreateTopicIfNotExists(client, topicName)
	if err != nil {
		return nil, err
	}
	return &Publisher{topic: topic, logger: logger}, nil
}

// Publish is safe on a nil publisher so callers can run without Pub/Sub
// configured (local dev, tests).
func (p *Publisher) Publish(ctx context.Context, tenantId string, eventType string, payload map[string]any) {
	if p == nil || p.topic == nil {
		return
	}
	ev := DomainEvent{
		Id:         uuid.NewString(),
		TenantId:   tenantId,
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		config.LogError(p.logger, "events", "Publish", eventType, nil, err)
		return
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"tenant_id": tenantId,
			"type":      eventType,
		},
	})
	go func() {
		if _, err := res.Get(context.Background()); err != nil {
			config.LogError(p.logger, "events", "Publish", eventType, ev.Id, err)
		}
	}()
}
