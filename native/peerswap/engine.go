package peerswap

import (
	"math"
	"time"

	"github.com/holiman/uint256"

	"peerswap/core/types"
)

type engineState interface {
	ConfigGet() (*Config, bool, error)
	ConfigPut(*Config) error
	ContractInfoGet() (*ContractInfo, bool, error)
	ContractInfoPut(*ContractInfo) error
	OfferGet(id uint32) (*Offer, bool, error)
	OfferHas(id uint32) (bool, error)
	OfferPut(id uint32, offer *Offer) error
	OfferDelete(id uint32) error
	// OfferIterate visits offers in ascending id order, beginning after
	// startAfter when it is non-nil.
	OfferIterate(startAfter *uint32, fn func(id uint32, offer *Offer) (bool, error)) error
}

// Transfer instructs the settlement layer to deliver an asset. The engine
// never moves funds itself.
type Transfer struct {
	Recipient [20]byte
	Asset     Asset
}

func newTransfer(recipient [20]byte, info AssetInfo, amount *uint256.Int) Transfer {
	return Transfer{Recipient: recipient, Asset: Asset{Info: info, Amount: cloneAmount(amount)}}
}

// Result carries the transfers produced by an operation together with the
// audit event describing it. Nothing in a Result has taken effect until the
// host commits the state writes that produced it.
type Result struct {
	Transfers []Transfer
	Event     *types.Event
}

// CreateResult adds the assigned id and stored record to the result of an
// offer creation.
type CreateResult struct {
	Result
	ID    uint32
	Offer *Offer
}

// SwapResult adds the settlement details to the result of a swap.
type SwapResult struct {
	Result
	Settlement Settlement
}

// SweepResult lists every offer the sweeper refunded.
type SweepResult struct {
	Result
	Refunded []ExpiredRefund
}

// Engine implements offer creation, swap settlement, cancellation, the
// expiry sweep and the read-only queries over a pluggable state backend.
// Every operation is a single synchronous state transition; the host is
// expected to serialise calls and to apply writes and transfers atomically.
type Engine struct {
	state     engineState
	blockFn   func() BlockInfo
	maxProbes uint64
}

// NewEngine creates an engine whose logical clock follows the wall clock.
func NewEngine() *Engine {
	return &Engine{
		blockFn:   wallClockBlock,
		maxProbes: math.MaxUint32 + 1,
	}
}

func wallClockBlock() BlockInfo {
	return BlockInfo{Time: time.Now()}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBlockFunc overrides the logical clock. Passing nil restores the wall
// clock.
func (e *Engine) SetBlockFunc(fn func() BlockInfo) {
	if fn == nil {
		e.blockFn = wallClockBlock
		return
	}
	e.blockFn = fn
}

func (e *Engine) block() BlockInfo {
	if e == nil || e.blockFn == nil {
		return wallClockBlock()
	}
	return e.blockFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) loadConfig() (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, ok, err := e.state.ConfigGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInstantiated
	}
	return cfg, nil
}

func (e *Engine) loadOffer(id uint32) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	offer, ok, err := e.state.OfferGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return offer, nil
}
