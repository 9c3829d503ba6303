package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"marketplace-service/events"
	"marketplace-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectStampsAndDelivers(t *testing.T) {
	var got models.Event
	d := events.NewDirect(func(_ context.Context, e models.Event) error {
		got = e
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), models.Event{Type: models.EventListingInquiry, RecipientID: "u1"}))
	assert.Equal(t, models.EventListingInquiry, got.Type)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestDispatch(t *testing.T) {
	var calls int
	handler := func(_ context.Context, e models.Event) error {
		calls++
		assert.Equal(t, "u1", e.RecipientID)
		return nil
	}

	payload, err := json.Marshal(models.Event{
		Type:        models.EventSupplierVerified,
		RecipientID: "u1",
		Title:       "Verified",
		OccurredAt:  time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, events.Dispatch(context.Background(), payload, handler))
	assert.Equal(t, 1, calls)

	assert.Error(t, events.Dispatch(context.Background(), []byte("{not json"), handler))
	assert.Error(t, events.Dispatch(context.Background(), []byte(`{"type":"x"}`), handler))
	assert.Equal(t, 1, calls)
}
