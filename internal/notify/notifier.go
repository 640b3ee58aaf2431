package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/pubsub"
)

const publishTimeout = 10 * time.Second

// Event describes one payment lifecycle change sent to the merchant-facing
// notification pipeline.
type Event struct {
	MerchantID    uuid.UUID           `json:"merchant_id"`
	PaymentID     uuid.UUID           `json:"payment_id"`
	ReferenceCode string              `json:"reference_code"`
	Type          enums.PaymentType   `json:"type"`
	Status        enums.PaymentStatus `json:"status"`
	AmountCents   int64               `json:"amount_cents"`
	Amount        string              `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// Notifier delivers payment status events. Delivery is best effort; callers
// log and swallow errors after their transaction has committed.
type Notifier interface {
	PaymentStatusChanged(ctx context.Context, event Event) error
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

type pubsubNotifier struct {
	pub  publisher
	logg *logger.Logger
}

// NewPubSubNotifier wires a notifier backed by the configured Pub/Sub topic.
func NewPubSubNotifier(client *pubsub.Client, logg *logger.Logger) (Notifier, error) {
	if client == nil {
		return nil, errors.New("pubsub client required")
	}
	pub := client.NotifyPublisher()
	if pub == nil {
		return nil, errors.New("notify topic not configured")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &pubsubNotifier{pub: pub, logg: logg}, nil
}

func (n *pubsubNotifier) PaymentStatusChanged(ctx context.Context, event Event) error {
	if event.MerchantID == uuid.Nil || event.PaymentID == uuid.Nil {
		return errors.New("merchant and payment ids are required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.Amount = formatAmount(event.AmountCents)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing notification: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := n.pub.Publish(publishCtx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":       "payment.status_changed",
			"merchant_id": event.MerchantID.String(),
			"type":        string(event.Type),
			"status":      string(event.Status),
		},
	})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// formatAmount renders minor units as a display amount, e.g. 12345 -> "123.45".
func formatAmount(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
