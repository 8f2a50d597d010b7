package repository

import (
	"context"
	"time"

	"SmartLoan/internal/domain/models"
	domrepo "SmartLoan/internal/domain/repository"
)

type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// DecisionEvent is the JSON value published for each decision.
type DecisionEvent struct {
	ID                  string             `json:"id"`
	Status              string             `json:"status"`
	Reason              string             `json:"reason"`
	ApprovalProbability *float64           `json:"approval_probability,omitempty"`
	FraudLabel          int                `json:"fraud_label"`
	ApprovalLabel       *int               `json:"approval_label,omitempty"`
	Features            map[string]float64 `json:"features"`
	Backend             string             `json:"backend"`
	CreatedAt           time.Time          `json:"created_at"`
}

func NewDecisionEvent(d *models.Decision) DecisionEvent {
	return DecisionEvent{
		ID:                  d.ID,
		Status:              string(d.Status),
		Reason:              d.Reason,
		ApprovalProbability: d.Probability,
		FraudLabel:          d.FraudLabel,
		ApprovalLabel:       d.ApprovalLabel,
		Features:            d.Features.Map(),
		Backend:             d.Backend,
		CreatedAt:           d.CreatedAt,
	}
}

// KafkaDecisionPublisher publishes decisions keyed by decision ID.
type KafkaDecisionPublisher struct {
	p     publisher
	topic string
}

func NewKafkaDecisionPublisher(p publisher, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{p: p, topic: topic}
}

func (k *KafkaDecisionPublisher) Record(ctx context.Context, d *models.Decision) error {
	return k.p.Publish(ctx, k.topic, []byte(d.ID), NewDecisionEvent(d))
}

func (k *KafkaDecisionPublisher) Close() error {
	return k.p.Close()
}

var _ domrepo.DecisionSink = (*KafkaDecisionPublisher)(nil)
