package events

import (
	"strconv"
	"time"

	"peerswap/core/types"
)

// Transfer is the wire form of a settlement instruction produced by an
// execution. Amounts are base-10 strings.
type Transfer struct {
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
}

// Executed is emitted once per committed execution. It carries the engine's
// audit event together with the transfers the host must settle.
type Executed struct {
	Height    uint64
	Time      time.Time
	Sender    string
	Payload   *types.Event
	Transfers []Transfer
}

// EventType satisfies the events.Event interface.
func (e Executed) EventType() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Type
}

// Event converts the execution into a wire-friendly representation for RPC
// subscribers. The engine attributes are copied and stamped with the height
// and sender.
func (e Executed) Event() *types.Event {
	extra := map[string]string{"height": strconv.FormatUint(e.Height, 10)}
	if e.Sender != "" {
		extra["sender"] = e.Sender
	}
	return e.Payload.With(extra)
}
