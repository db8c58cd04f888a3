package notify

import (
	"context"
	"fmt"

	"project-pulse/internals/modules/alert"
	"project-pulse/pkg/rabbitmq"
)

const (
	eventAlertRaised = "monitoring.alert.raised"
	eventDigest      = "monitoring.alert.digest"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// BrokerSink publishes alerts to the monitoring exchange for downstream
// consumers. Routing keys are alerts.<severity>.<type>.
type BrokerSink struct {
	pub Publisher
}

func NewBrokerSink(pub Publisher) *BrokerSink {
	return &BrokerSink{pub: pub}
}

func (b *BrokerSink) Name() string           { return "broker" }
func (b *BrokerSink) ReceivesWarnings() bool { return true }

func (b *BrokerSink) Send(ctx context.Context, a alert.Alert) error {
	body, err := rabbitmq.NewEvent(eventAlertRaised, a)
	if err != nil {
		return fmt.Errorf("broker payload: %w", err)
	}
	key := fmt.Sprintf("alerts.%s.%s", a.Severity, a.Type)
	return b.pub.Publish(ctx, key, body)
}

func (b *BrokerSink) SendDigest(ctx context.Context, d alert.Digest) error {
	body, err := rabbitmq.NewEvent(eventDigest, d)
	if err != nil {
		return fmt.Errorf("broker payload: %w", err)
	}
	return b.pub.Publish(ctx, "alerts.digest", body)
}
