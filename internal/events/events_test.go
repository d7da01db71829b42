package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus(4)
	a, unsubA := bus.Subscribe()
	b, unsubB := bus.Subscribe()
	defer unsubB()

	bus.Publish(New(ReportUpserted, nil))

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, ReportUpserted, (<-a).Type)
	assert.Equal(t, ReportUpserted, (<-b).Type)

	unsubA()
	unsubA() // idempotent
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bus.Subscribers())

	bus.Publish(New(DraftChanged, DraftData{State: "idle"}))
	ev := <-b
	assert.Equal(t, DraftChanged, ev.Type)
	assert.Equal(t, "idle", ev.Data.(DraftData).State)
}

func TestBusDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus(1)
	ch, unsub := bus.Subscribe()
	defer unsub()

	for i := 0; i < 10; i++ {
		bus.Publish(New(AggregatesChanged, AggregatesData{ReportID: int64(i)}))
	}

	require.Len(t, ch, 1)
	assert.Equal(t, int64(0), (<-ch).Data.(AggregatesData).ReportID)
}

func TestNewStampsEvent(t *testing.T) {
	e1 := New(ReportsLoaded, ReportsLoadedData{Loaded: 1})
	e2 := New(ReportsLoaded, ReportsLoadedData{Loaded: 1})

	assert.NotEqual(t, e1.ID, e2.ID)
	assert.False(t, e1.Timestamp.IsZero())
}
