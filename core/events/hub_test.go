package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"peerswap/core/types"
)

func executed(height uint64) Executed {
	return Executed{
		Height:  height,
		Sender:  "peer1sender",
		Payload: &types.Event{Type: "peerswap.swap", Attributes: map[string]string{types.AttrOfferID: "3"}},
	}
}

func TestHubFansOut(t *testing.T) {
	var got []Event
	hub := NewHub(EmitterFunc(func(evt Event) { got = append(got, evt) }))
	_, ch, cancel := hub.Subscribe(4)
	require.Equal(t, 1, hub.Subscribers())

	hub.Emit(executed(1))
	require.Len(t, got, 1)
	delivered := <-ch
	require.Equal(t, "peerswap.swap", delivered.EventType())

	cancel()
	cancel()
	require.Zero(t, hub.Subscribers())
	_, open := <-ch
	require.False(t, open)
	hub.Emit(executed(2))
	require.Len(t, got, 2)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	drops := 0
	hub.SetDropHook(func() { drops++ })
	_, ch, cancel := hub.Subscribe(1)
	defer cancel()
	hub.Emit(executed(1))
	hub.Emit(executed(2))
	require.Len(t, ch, 1)
	require.Equal(t, 1, drops)
	first := (<-ch).(Executed)
	require.Equal(t, uint64(1), first.Height)
}

func TestExecutedEventStampsHeight(t *testing.T) {
	evt := executed(7)
	wire := evt.Event()
	require.Equal(t, "7", wire.Attributes["height"])
	require.Equal(t, "peer1sender", wire.Attributes["sender"])
	require.Equal(t, "3", wire.Attributes["offerId"])
	require.NotContains(t, evt.Payload.Attributes, "height")
}
