package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"peerswap/core"
	"peerswap/core/events"
	"peerswap/core/genesis"
	"peerswap/crypto"
	"peerswap/indexer"
	"peerswap/storage"
)

const testJWTSecret = "rpc-test-secret"

type testEnv struct {
	node    *core.Node
	hub     *events.Hub
	store   *indexer.Store
	server  *Server
	handler http.Handler
	cfg     Config
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	testAdmin  = testAddress(0xAD)
	testSeller = testAddress(0x01)
	testPayer  = testAddress(0x02)
	testToken  = testAddress(0x7C)
)

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	store, err := indexer.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil)
	if err != nil {
		t.Fatalf("open indexer: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	hub := events.NewHub(store)

	node, err := core.NewNode(storage.NewMemDB(),
		core.WithEmitter(hub),
		core.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	spec, err := genesis.ParseGenesisSpec([]byte("admin: " + crypto.FormatPeer(testAdmin) + "\n"))
	if err != nil {
		t.Fatalf("parse genesis: %v", err)
	}
	if err := node.InitGenesis(spec); err != nil {
		t.Fatalf("init genesis: %v", err)
	}

	cfg := Config{JWT: JWTConfig{HMACSecret: testJWTSecret, Issuer: "rpc-tests"}}
	for _, fn := range mutate {
		fn(&cfg)
	}
	srv, err := NewServer(node, hub, store, cfg, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{node: node, hub: hub, store: store, server: srv, handler: srv.Handler(), cfg: cfg}
}

func (e *testEnv) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := IssueToken(e.cfg.JWT, subject, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func marshalParam(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal param: %v", err)
	}
	return raw
}

// call posts one JSON-RPC request and returns the recorder. bearer may be
// empty.
func (e *testEnv) call(t *testing.T, bearer, method string, params ...interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := RPCRequest{JSONRPC: jsonRPCVersion, Method: method, ID: 1}
	for _, p := range params {
		req.Params = append(req.Params, marshalParam(t, p))
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)).WithContext(context.Background())
	httpReq.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, httpReq)
	return recorder
}

func decodeRPCResponse(t *testing.T, recorder *httptest.ResponseRecorder) (json.RawMessage, *RPCError) {
	t.Helper()
	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return resp.Result, resp.Error
}

func decodeResult(t *testing.T, recorder *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected rpc error: %+v", rpcErr)
	}
	if err := json.Unmarshal(result, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func createParams(denom, amount, askDenom, askAmount string) map[string]interface{} {
	return map[string]interface{}{
		"msg": map[string]interface{}{
			"create": map[string]interface{}{
				"ask": []interface{}{map[string]interface{}{
					"native": []interface{}{map[string]string{"denom": askDenom, "amount": askAmount}},
				}},
			},
		},
		"funds": []map[string]string{{"denom": denom, "amount": amount}},
	}
}
