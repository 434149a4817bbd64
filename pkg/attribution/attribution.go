// Package attribution consumes ledger notifications from SQS and stores one
// attribution row per event.
package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage"
)

// Consumer turns notify.Events into attribution rows.
type Consumer struct {
	store  storage.AttributionStore
	logger *slog.Logger
	now    func() time.Time
}

// NewConsumer creates a Consumer.
func NewConsumer(store storage.AttributionStore, logger *slog.Logger) *Consumer {
	return &Consumer{store: store, logger: logger, now: time.Now}
}

// Record stores the attribution for event. A replayed event is not an error.
func (c *Consumer) Record(ctx context.Context, event notify.Event) error {
	err := c.store.RecordAttribution(ctx, &models.Attribution{
		EventID:    event.ID,
		Kind:       event.Kind,
		UserID:     event.UserID,
		Reference:  event.Reference,
		Amount:     event.Amount,
		RecordedAt: c.now().UTC(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		c.logger.DebugContext(ctx, "attribution already recorded", "event_id", event.ID)
		return nil
	}
	return err
}

// HandleSQS processes a batch. Messages that cannot be stored are returned as
// batch item failures so SQS redelivers only those; malformed messages are
// dropped since a retry cannot fix them.
func (c *Consumer) HandleSQS(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, message := range sqsEvent.Records {
		var event notify.Event
		if err := json.Unmarshal([]byte(message.Body), &event); err != nil || event.ID == "" {
			c.logger.ErrorContext(ctx, "dropping malformed notification", "message_id", message.MessageId, "error", err)
			continue
		}

		if err := c.Record(ctx, event); err != nil {
			c.logger.ErrorContext(ctx, "failed to record attribution",
				"message_id", message.MessageId,
				"event_id", event.ID,
				"error", err,
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: message.MessageId})
			continue
		}
		c.logger.InfoContext(ctx, "attribution recorded", "event_id", event.ID, "kind", event.Kind, "user_id", event.UserID)
	}
	return resp, nil
}
