package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

const TypePayslipStatusChanged = "payslip.status_changed"

type Event struct {
	Type          string    `json:"type"`
	CompanyID     string    `json:"companyId"`
	PayslipID     string    `json:"payslipId"`
	Action        string    `json:"action"`
	FromStatus    string    `json:"fromStatus"`
	ToStatus      string    `json:"toStatus"`
	ActorID       string    `json:"actorId,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub uses Application Default Credentials unless credentialsJSON is
// set. The topic must already exist.
func NewPubSub(ctx context.Context, projectID, topic, credentialsJSON string) (*PubSub, error) {
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	if topic == "" {
		return nil, errors.New("PUBSUB_TOPIC is required")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return &PubSub{client: client, topic: client.Topic(topic)}, nil
}

func (p *PubSub) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":      event.Type,
			"companyId": event.CompanyID,
		},
	})
	_, err = result.Get(ctx)
	return err
}

func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
