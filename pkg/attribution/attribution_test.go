package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/chris/stealth-ledger/pkg/notify"
	"github.com/chris/stealth-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails every attribution for failUser.
type flakyStore struct {
	*memory.Store
	failUser string
}

func (f flakyStore) RecordAttribution(ctx context.Context, a *models.Attribution) error {
	if a.UserID == f.failUser {
		return errors.New("throttled")
	}
	return f.Store.RecordAttribution(ctx, a)
}

func message(t *testing.T, id string, event notify.Event) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestHandleSQS(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		c := NewConsumer(memory.New(), logger)
		event := notify.NewEvent(notify.KindPaymentRecorded, "user1", "0xabc", 100, "0x1::aptos_coin::AptosCoin")

		resp, err := c.HandleSQS(ctx, events.SQSEvent{Records: []events.SQSMessage{
			message(t, "m1", event),
			message(t, "m2", event), // redelivery
		}})

		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)
	})

	t.Run("Partial Failure", func(t *testing.T) {
		c := NewConsumer(flakyStore{Store: memory.New(), failUser: "user2"}, logger)

		resp, err := c.HandleSQS(ctx, events.SQSEvent{Records: []events.SQSMessage{
			message(t, "m1", notify.NewEvent(notify.KindWithdrawalDebited, "user1", "w1", 5, "t")),
			message(t, "m2", notify.NewEvent(notify.KindWithdrawalDebited, "user2", "w2", 5, "t")),
			{MessageId: "m3", Body: "not json"},
		}})

		require.NoError(t, err)
		assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures)
	})
}
