package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"peerswap/config"
	"peerswap/crypto"
)

type capturedCall struct {
	Method string
	Auth   string
	Params []json.RawMessage
}

// startFakeNode serves canned JSON-RPC results and records each request.
func startFakeNode(t *testing.T, result string) *[]capturedCall {
	t.Helper()
	calls := &[]capturedCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*calls = append(*calls, capturedCall{Method: req.Method, Auth: r.Header.Get("Authorization"), Params: req.Params})
		w.Header().Set("Content-Type", "application/json")
		if req.Method == "peerswap_getOffer" {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32040,"message":"offer_not_found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)

	prevEndpoint, prevToken := rpcEndpoint, rpcAuthToken
	t.Cleanup(func() {
		rpcEndpoint, rpcAuthToken = prevEndpoint, prevToken
	})
	rpcEndpoint = srv.URL
	rpcAuthToken = ""
	return calls
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI("bogus")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Unknown command: bogus")
}

func TestApplyGlobalFlagsStripsRPCAndToken(t *testing.T) {
	prevEndpoint, prevToken := rpcEndpoint, rpcAuthToken
	t.Cleanup(func() { rpcEndpoint, rpcAuthToken = prevEndpoint, prevToken })

	rest, err := applyGlobalFlags([]string{"--rpc", "http://node:9000", "swap", "--token=abc", "--id", "1"})
	require.NoError(t, err)
	require.Equal(t, []string{"swap", "--id", "1"}, rest)
	require.Equal(t, "http://node:9000", rpcEndpoint)
	require.Equal(t, "abc", rpcAuthToken)

	_, err = applyGlobalFlags([]string{"offers", "--rpc"})
	require.Error(t, err)
}

func TestCreateSendsExecuteWithFunds(t *testing.T) {
	calls := startFakeNode(t, `{"height":1,"events":[]}`)

	code, stdout, stderr := runCLI("--token", "jwt-value", "create",
		"--ask", "5000000ubtc",
		"--ask", crypto.FormatToken([20]byte{0x7C})+":42",
		"--funds", "10000000uatom",
		"--expires-height", "100",
		"--description", "atom for btc")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, `"height": 1`)
	require.Len(t, *calls, 1)

	call := (*calls)[0]
	require.Equal(t, "peerswap_execute", call.Method)
	require.Equal(t, "Bearer jwt-value", call.Auth)
	require.Len(t, call.Params, 1)

	var params struct {
		Msg struct {
			Create struct {
				Ask []struct {
					Native []map[string]string `json:"native"`
					Token  map[string]string   `json:"token"`
				} `json:"ask"`
				Expires struct {
					AtHeight uint64 `json:"at_height"`
				} `json:"expires"`
				Description string `json:"description"`
			} `json:"create"`
		} `json:"msg"`
		Funds []map[string]string `json:"funds"`
	}
	require.NoError(t, json.Unmarshal(call.Params[0], &params))
	create := params.Msg.Create
	require.Len(t, create.Ask, 2)
	require.Equal(t, map[string]string{"denom": "ubtc", "amount": "5000000"}, create.Ask[0].Native[0])
	require.Equal(t, "42", create.Ask[1].Token["amount"])
	require.Equal(t, uint64(100), create.Expires.AtHeight)
	require.Equal(t, "atom for btc", create.Description)
	require.Equal(t, []map[string]string{{"denom": "uatom", "amount": "10000000"}}, params.Funds)
}

func TestExecuteRequiresToken(t *testing.T) {
	calls := startFakeNode(t, `{}`)
	code, _, stderr := runCLI("cancel", "--id", "3")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "requires a caller token")
	require.Empty(t, *calls)
}

func TestSwapAndCancelMessages(t *testing.T) {
	calls := startFakeNode(t, `{"height":2}`)

	code, _, stderr := runCLI("--token", "t", "swap", "--id", "0", "--funds", "1000000ubtc")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI("--token", "t", "cancel", "--id", "7")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI("--token", "t", "set-active", "--active=false")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI("--token", "t", "remove-expired")
	require.Equal(t, 0, code, stderr)

	require.Len(t, *calls, 4)
	require.JSONEq(t, `{"msg":{"swap":{"id":0}},"funds":[{"denom":"ubtc","amount":"1000000"}]}`, string((*calls)[0].Params[0]))
	require.JSONEq(t, `{"msg":{"cancel":{"id":7}}}`, string((*calls)[1].Params[0]))
	require.JSONEq(t, `{"msg":{"set_active":{"active":false}}}`, string((*calls)[2].Params[0]))
	require.JSONEq(t, `{"msg":{"remove_expired":{}}}`, string((*calls)[3].Params[0]))
}

func TestSwapValidatesFlags(t *testing.T) {
	calls := startFakeNode(t, `{}`)

	code, _, stderr := runCLI("--token", "t", "swap", "--funds", "1ubtc")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--id is required")

	code, _, stderr = runCLI("--token", "t", "swap", "--id", "1", "--funds", "ubtc")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "invalid coin")

	code, _, stderr = runCLI("--token", "t", "create", "--ask", "1ubtc", "--funds", "1uatom", "--never", "--expires-height", "9")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "choose one of")
	require.Empty(t, *calls)
}

func TestQueriesRouteToReadMethods(t *testing.T) {
	calls := startFakeNode(t, `{"offers":[]}`)

	code, _, stderr := runCLI("offers", "--limit", "5", "--start-after", "2", "--include-expired")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI("offers", "--seller", "peer1seller")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI("config")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI("events", "--type", "peerswap.swap", "--offer", "0")
	require.Equal(t, 0, code, stderr)

	require.Len(t, *calls, 4)
	require.Equal(t, "peerswap_getOffers", (*calls)[0].Method)
	require.Empty(t, (*calls)[0].Auth)
	require.JSONEq(t, `{"include_expired":true,"start_after":2,"limit":5}`, string((*calls)[0].Params[0]))
	require.Equal(t, "peerswap_getOffersBySeller", (*calls)[1].Method)
	require.JSONEq(t, `{"user":"peer1seller"}`, string((*calls)[1].Params[0]))
	require.Equal(t, "peerswap_getConfig", (*calls)[2].Method)
	require.Empty(t, (*calls)[2].Params)
	require.Equal(t, "peerswap_listEvents", (*calls)[3].Method)
	require.JSONEq(t, `{"type":"peerswap.swap","offer_id":0}`, string((*calls)[3].Params[0]))
}

func TestOfferSurfacesRPCError(t *testing.T) {
	startFakeNode(t, `{}`)
	code, _, stderr := runCLI("offer", "--id", "9")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "rpc error -32040: offer_not_found")
}

func TestTokenSignsSubject(t *testing.T) {
	t.Setenv(config.EnvRPCSecret, "cli-secret")
	subject := crypto.FormatPeer([20]byte{1, 2, 3})

	code, stdout, stderr := runCLI("token", "--subject", subject, "--issuer", "cli-tests")
	require.Equal(t, 0, code, stderr)

	parsed, err := jwt.Parse(strings.TrimSpace(stdout), func(*jwt.Token) (interface{}, error) {
		return []byte("cli-secret"), nil
	}, jwt.WithIssuer("cli-tests"), jwt.WithExpirationRequired())
	require.NoError(t, err)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	require.Equal(t, subject, sub)
}

func TestTokenRejectsBadSubject(t *testing.T) {
	t.Setenv(config.EnvRPCSecret, "cli-secret")
	code, _, stderr := runCLI("token", "--subject", "not-an-address")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "invalid subject")

	code, _, stderr = runCLI("token")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--subject or --keystore is required")
}

func TestKeygenAndAddressRoundTrip(t *testing.T) {
	t.Setenv(envKeystorePassphrase, "correct horse")
	path := filepath.Join(t.TempDir(), "id.key")

	code, stdout, stderr := runCLI("keygen", "--out", path)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "Address: peer1")
	generated := strings.TrimPrefix(strings.SplitN(stdout, "\n", 2)[0], "Address: ")

	code, stdout, stderr = runCLI("address", "--keystore", path)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, generated, strings.TrimSpace(stdout))

	code, _, stderr = runCLI("keygen", "--out", path)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "already exists")
}

func TestParseBalanceForms(t *testing.T) {
	leg, err := parseBalance("5ubtc,7uatom")
	require.NoError(t, err)
	require.Len(t, leg.Native, 2)
	require.Nil(t, leg.Token)

	_, err = parseBalance("ptok1abc")
	require.Error(t, err)
	_, err = parseBalance("ptok1abc:12x")
	require.Error(t, err)
	_, err = parseBalance("")
	require.Error(t, err)
}
