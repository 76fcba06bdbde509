package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"peerswap/core"
	"peerswap/core/events"
	"peerswap/indexer"
	"peerswap/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

// EventLister serves indexed execution events.
type EventLister interface {
	ListEvents(ctx context.Context, q indexer.ListQuery) ([]indexer.EventRecord, error)
}

// Config tunes the RPC server.
type Config struct {
	JWT         JWTConfig
	RateLimit   RateLimit
	EventBuffer int
}

// Server exposes the node over JSON-RPC 2.0 plus a websocket event stream.
type Server struct {
	node    *core.Node
	hub     *events.Hub
	events  EventLister
	auth    *authenticator
	limiter *rateLimiter
	buffer  int
	logger  *slog.Logger
}

// NewServer wires the transport around node. hub feeds /ws/events and may be
// nil; store backs peerswap_listEvents and may be nil.
func NewServer(node *core.Node, hub *events.Hub, store EventLister, cfg Config, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}
	if hub != nil {
		hub.SetDropHook(observability.Events().RecordDropped)
	}
	return &Server{
		node:    node,
		hub:     hub,
		events:  store,
		auth:    newAuthenticator(cfg.JWT),
		limiter: newRateLimiter(cfg.RateLimit),
		buffer:  buffer,
		logger:  logger,
	}, nil
}

// Handler returns the HTTP surface of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, chimw.RealIP, chimw.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.With(s.limiter.middleware).Post("/", s.handle)
	return otelhttp.NewHandler(r, "peerswap-rpc")
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// requestID tags every request with a uuid, honouring one supplied by the
// client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimw.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(chimw.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, int, *RPCError)

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"peerswap_execute":           s.handleExecute,
		"peerswap_receive":           s.handleReceive,
		"peerswap_getOffers":         s.handleGetOffers,
		"peerswap_getOffersBySeller": s.handleGetOffersBySeller,
		"peerswap_getOffer":          s.handleGetOffer,
		"peerswap_getConfig":         s.handleGetConfig,
		"peerswap_contractInfo":      s.handleContractInfo,
		"peerswap_listEvents":        s.handleListEvents,
		"peerswap_stateDigest":       s.handleStateDigest,
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}

	start := time.Now()
	result, status, rpcErr := handler(r, req)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	observability.ModuleMetrics().Observe(req.Method, code, time.Since(start))
	if rpcErr != nil {
		s.logger.Debug("rpc request failed",
			slog.String("method", req.Method),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("trace_id", trace.SpanFromContext(r.Context()).SpanContext().TraceID().String()),
			slog.Int("code", rpcErr.Code),
			slog.String("message", rpcErr.Message))
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	height, err := s.node.Height()
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "height": height})
}
