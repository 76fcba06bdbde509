package core

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"lukechampine.com/blake3"

	"peerswap/core/events"
	"peerswap/core/genesis"
	"peerswap/core/state"
	"peerswap/core/types"
	"peerswap/crypto"
	"peerswap/native/peerswap"
	"peerswap/observability"
	"peerswap/storage"
)

// Node hosts the engine. It serialises executions, runs each one against a
// write buffer that is committed only on success, advances the logical block
// height per committed execution and publishes the resulting events.
type Node struct {
	db      storage.Database
	mu      sync.Mutex
	clock   func() time.Time
	emitter events.Emitter
	logger  *slog.Logger
	metrics *observability.EngineMetrics
	tracer  trace.Tracer
	meter   metric.Meter
	execs   metric.Int64Counter
}

const instrumentationName = "peerswap/core"

// Option customises a Node.
type Option func(*Node)

// WithClock overrides the source of block time.
func WithClock(fn func() time.Time) Option {
	return func(n *Node) {
		if fn != nil {
			n.clock = fn
		}
	}
}

// WithEmitter sets the receiver of committed execution events.
func WithEmitter(emitter events.Emitter) Option {
	return func(n *Node) {
		if emitter != nil {
			n.emitter = emitter
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithTracerProvider sets the provider executions are traced with. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(n *Node) {
		if tp != nil {
			n.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithMeterProvider sets the provider the execution counter is registered on.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(n *Node) {
		if mp != nil {
			n.meter = mp.Meter(instrumentationName)
		}
	}
}

// NewNode opens the engine state held in db. The schema version is stamped
// on first use and verified afterwards.
func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database must not be nil")
	}
	if err := state.EnsureSchema(db, false); err != nil {
		return nil, err
	}
	n := &Node{
		db:      db,
		clock:   time.Now,
		emitter: events.Discard,
		logger:  slog.Default(),
		metrics: observability.Engine(),
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(n)
	}
	execs, err := n.meter.Int64Counter("peerswap.executions",
		metric.WithDescription("Executions handled by the node, by operation and outcome"))
	if err != nil {
		return nil, fmt.Errorf("core: execution counter: %w", err)
	}
	n.execs = execs
	if err := n.refreshGauges(); err != nil {
		return nil, err
	}
	return n, nil
}

// Receipt summarises a committed execution.
type Receipt struct {
	Height    uint64            `json:"height"`
	Operation string            `json:"operation"`
	OfferID   *uint32           `json:"offer_id,omitempty"`
	Event     *types.Event      `json:"event"`
	Transfers []events.Transfer `json:"transfers"`
}

// InitGenesis instantiates the engine from spec unless it already holds a
// configuration.
func (n *Node) InitGenesis(spec *genesis.GenesisSpec) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	emitted, err := genesis.InitFromSpec(spec, n.db)
	if err != nil {
		return err
	}
	if emitted == nil {
		n.logger.Info("engine already instantiated, genesis skipped")
		return nil
	}
	admin := crypto.FormatPeer(spec.AdminAddress())
	for _, evt := range emitted {
		n.publish(events.Executed{Time: n.clock(), Sender: admin, Payload: evt})
	}
	n.logger.Info("engine instantiated", slog.String("admin", admin))
	return nil
}

// Execute applies msg on behalf of sender with funds attached. Either every
// state write of the call is committed or none is.
func (n *Node) Execute(ctx context.Context, sender [20]byte, funds []peerswap.Coin, msg *ExecuteMsg) (*Receipt, error) {
	op, err := msg.Operation()
	if err != nil {
		return nil, err
	}
	ctx, span := n.tracer.Start(ctx, "peerswap.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation", op),
			attribute.String("sender", crypto.FormatPeer(sender)),
		))
	defer span.End()
	if id, ok := msg.OfferID(); ok {
		span.SetAttributes(attribute.Int64("offer_id", int64(id)))
	}
	if err := ctx.Err(); err != nil {
		n.reject(ctx, span, op, sender, err)
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	receipt, err := n.execute(op, sender, funds, msg)
	n.metrics.Observe(op, time.Since(start), err)
	if err != nil {
		n.reject(ctx, span, op, sender, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("height", int64(receipt.Height)))
	if receipt.OfferID != nil {
		span.SetAttributes(attribute.Int64("offer_id", int64(*receipt.OfferID)))
	}
	n.execs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", "committed"),
	))
	n.logger.Info("execution committed",
		slog.String("operation", op),
		slog.Uint64("height", receipt.Height),
		slog.String("event", receipt.Event.Type),
		slog.String("trace_id", span.SpanContext().TraceID().String()))
	return receipt, nil
}

func (n *Node) reject(ctx context.Context, span trace.Span, op string, sender [20]byte, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	n.execs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", "rejected"),
	))
	n.logger.Debug("execution rejected",
		slog.String("operation", op),
		slog.String("sender", crypto.FormatPeer(sender)),
		slog.String("error", err.Error()))
}

type outcome struct {
	result    *peerswap.Result
	offerID   *uint32
	actor     [20]byte
	openDelta int
}

func (n *Node) execute(op string, sender [20]byte, funds []peerswap.Coin, msg *ExecuteMsg) (*Receipt, error) {
	cache := storage.NewCacheDB(n.db)
	manager := state.NewManager(cache)
	height, err := manager.Height()
	if err != nil {
		return nil, err
	}
	block := peerswap.BlockInfo{Height: height + 1, Time: n.clock()}
	engine := newEngine(manager, block)

	out, err := dispatch(engine, op, sender, funds, msg)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if err := manager.SetHeight(block.Height); err != nil {
		cache.Discard()
		return nil, err
	}
	if err := cache.Commit(); err != nil {
		return nil, fmt.Errorf("core: commit: %w", err)
	}

	receipt := &Receipt{
		Height:    block.Height,
		Operation: op,
		OfferID:   out.offerID,
		Event:     out.result.Event,
		Transfers: wireTransfers(out.result.Transfers),
	}
	n.metrics.SetHeight(block.Height)
	n.metrics.AddOpenOffers(out.openDelta)
	for _, tr := range out.result.Transfers {
		n.metrics.RecordTransfer(tr.Asset.Info.String(), op, tr.Asset.Amount.ToBig())
	}
	n.publish(events.Executed{
		Height:    block.Height,
		Time:      block.Time,
		Sender:    crypto.FormatPeer(out.actor),
		Payload:   out.result.Event,
		Transfers: receipt.Transfers,
	})
	return receipt, nil
}

func dispatch(engine *peerswap.Engine, op string, sender [20]byte, funds []peerswap.Coin, msg *ExecuteMsg) (*outcome, error) {
	if op != "create" && op != "swap" && len(funds) > 0 {
		return nil, ErrFundsNotAccepted
	}
	switch op {
	case "create":
		params, err := msg.Create.toParams(peerswap.NativeBalance(funds...))
		if err != nil {
			return nil, err
		}
		res, err := engine.Create(sender, params)
		if err != nil {
			return nil, err
		}
		return &outcome{result: &res.Result, offerID: &res.ID, actor: sender, openDelta: 1}, nil
	case "swap":
		res, err := engine.SwapNative(sender, msg.Swap.ID, funds)
		if err != nil {
			return nil, err
		}
		return swapOutcome(res, sender, msg.Swap.ID), nil
	case "cancel":
		res, err := engine.Cancel(sender, msg.Cancel.ID)
		if err != nil {
			return nil, err
		}
		id := msg.Cancel.ID
		return &outcome{result: res, offerID: &id, actor: sender, openDelta: -1}, nil
	case "set_active":
		res, err := engine.SetActive(sender, msg.SetActive.Active)
		if err != nil {
			return nil, err
		}
		return &outcome{result: res, actor: sender}, nil
	case "remove_expired":
		res, err := engine.RemoveExpired()
		if err != nil {
			return nil, err
		}
		return &outcome{result: &res.Result, actor: sender, openDelta: -len(res.Refunded)}, nil
	case "receive":
		return dispatchReceive(engine, sender, msg.Receive)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidMessage, op)
	}
}

// dispatchReceive handles a token notification. token is the contract that
// delivered it; the user named inside is the acting identity.
func dispatchReceive(engine *peerswap.Engine, token [20]byte, rcv *TokenReceive) (*outcome, error) {
	user, err := crypto.DecodeWithPrefix(rcv.Sender, crypto.PeerPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: receive sender: %v", ErrInvalidMessage, err)
	}
	amount, err := peerswap.ParseAmount(rcv.Amount)
	if err != nil {
		return nil, err
	}
	inner, err := DecodeReceiveMsg(rcv.Msg)
	if err != nil {
		return nil, err
	}
	if inner.Create != nil {
		params, err := inner.Create.toParams(peerswap.TokenBalance(token, amount))
		if err != nil {
			return nil, err
		}
		res, err := engine.Create(user, params)
		if err != nil {
			return nil, err
		}
		return &outcome{result: &res.Result, offerID: &res.ID, actor: user, openDelta: 1}, nil
	}
	res, err := engine.SwapToken(user, inner.Swap.ID, peerswap.TokenAmount{Contract: token, Amount: amount})
	if err != nil {
		return nil, err
	}
	return swapOutcome(res, user, inner.Swap.ID), nil
}

func swapOutcome(res *peerswap.SwapResult, payer [20]byte, id uint32) *outcome {
	out := &outcome{result: &res.Result, offerID: &id, actor: payer}
	if res.Settlement.Completed {
		out.openDelta = -1
	}
	return out
}

func newEngine(manager *state.Manager, block peerswap.BlockInfo) *peerswap.Engine {
	engine := peerswap.NewEngine()
	engine.SetState(manager)
	engine.SetBlockFunc(func() peerswap.BlockInfo { return block })
	return engine
}

func (n *Node) publish(evt events.Executed) {
	if evt.Payload == nil {
		return
	}
	observability.Events().RecordEmitted(evt.EventType())
	n.emitter.Emit(evt)
}

// readEngine returns an engine over committed state evaluated at the block
// the next execution would run in. Callers hold n.mu.
func (n *Node) readEngine() (*peerswap.Engine, error) {
	manager := state.NewManager(n.db)
	height, err := manager.Height()
	if err != nil {
		return nil, err
	}
	return newEngine(manager, peerswap.BlockInfo{Height: height + 1, Time: n.clock()}), nil
}

func (n *Node) refreshGauges() error {
	manager := state.NewManager(n.db)
	height, err := manager.Height()
	if err != nil {
		return err
	}
	count := 0
	if err := manager.OfferIterate(nil, func(uint32, *peerswap.Offer) (bool, error) {
		count++
		return true, nil
	}); err != nil {
		return err
	}
	n.metrics.SetHeight(height)
	n.metrics.SetOpenOffers(count)
	return nil
}

// Height returns the logical height of the last committed execution.
func (n *Node) Height() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return state.NewManager(n.db).Height()
}

// StateDigest hashes every stored key and value in key order and reports the
// height the digest was taken at. Two nodes with the same digest hold
// identical state.
func (n *Node) StateDigest() (uint64, string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	height, err := state.NewManager(n.db).Height()
	if err != nil {
		return 0, "", err
	}
	hasher := blake3.New(32, nil)
	var lenBuf [binary.MaxVarintLen64]byte
	writeField := func(b []byte) {
		size := binary.PutUvarint(lenBuf[:], uint64(len(b)))
		hasher.Write(lenBuf[:size])
		hasher.Write(b)
	}
	err = n.db.Iterate(nil, nil, func(key, value []byte) (bool, error) {
		writeField(key)
		writeField(value)
		return true, nil
	})
	if err != nil {
		return 0, "", err
	}
	return height, hex.EncodeToString(hasher.Sum(nil)), nil
}
