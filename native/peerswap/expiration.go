package peerswap

import (
	"fmt"
	"time"
)

// BlockInfo is the logical clock the engine evaluates expirations against.
type BlockInfo struct {
	Height uint64
	Time   time.Time
}

// ExpirationKind discriminates the expiration predicates.
type ExpirationKind uint8

const (
	ExpiresNever ExpirationKind = iota
	ExpiresAtHeight
	ExpiresAtTime
)

// Expiration is satisfied once the block height or time reaches the stored
// bound. The zero value never expires.
type Expiration struct {
	Kind   ExpirationKind
	Height uint64
	// Time is stored as nanoseconds since the Unix epoch.
	Time uint64
}

// Never returns an expiration that is never satisfied.
func Never() Expiration { return Expiration{} }

// AtHeight expires once the block height is at least h.
func AtHeight(h uint64) Expiration { return Expiration{Kind: ExpiresAtHeight, Height: h} }

// AtTime expires once the block time is at least t.
func AtTime(t time.Time) Expiration {
	return Expiration{Kind: ExpiresAtTime, Time: uint64(t.UnixNano())}
}

// IsExpired evaluates the predicate against the supplied block.
func (e Expiration) IsExpired(block BlockInfo) bool {
	switch e.Kind {
	case ExpiresAtHeight:
		return block.Height >= e.Height
	case ExpiresAtTime:
		return uint64(block.Time.UnixNano()) >= e.Time
	default:
		return false
	}
}

func (e Expiration) String() string {
	switch e.Kind {
	case ExpiresAtHeight:
		return fmt.Sprintf("expiration height: %d", e.Height)
	case ExpiresAtTime:
		return fmt.Sprintf("expiration time: %s", time.Unix(0, int64(e.Time)).UTC().Format(time.RFC3339Nano))
	default:
		return "expiration: never"
	}
}

func (e Expiration) valid() bool {
	switch e.Kind {
	case ExpiresNever, ExpiresAtHeight, ExpiresAtTime:
		return true
	default:
		return false
	}
}
