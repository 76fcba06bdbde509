package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	envRPCURL = "PEERSWAP_RPC_URL"
	envToken  = "PEERSWAP_TOKEN"
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	rpcAuthToken = strings.TrimSpace(os.Getenv(envToken))
	rpcCall      = callRPC
	httpClient   = &http.Client{Timeout: 30 * time.Second}
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d (%s): %s", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	command, rest := args[0], args[1:]
	switch command {
	case "token":
		return runToken(rest, stdout, stderr)
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "create":
		return runCreate(rest, stdout, stderr)
	case "swap":
		return runSwap(rest, stdout, stderr)
	case "cancel":
		return runCancel(rest, stdout, stderr)
	case "set-active":
		return runSetActive(rest, stdout, stderr)
	case "remove-expired":
		return runRemoveExpired(rest, stdout, stderr)
	case "offers":
		return runOffers(rest, stdout, stderr)
	case "offer":
		return runOffer(rest, stdout, stderr)
	case "config":
		return runQuery("peerswap_getConfig", nil, stdout, stderr)
	case "info":
		return runQuery("peerswap_contractInfo", nil, stdout, stderr)
	case "events":
		return runEvents(rest, stdout, stderr)
	case "digest":
		return runQuery("peerswap_stateDigest", nil, stdout, stderr)
	case "help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.Join([]string{
		"Usage: peerswap-cli [--rpc URL] [--token JWT] <command> [flags]",
		"",
		"Identity:",
		"  keygen          create an encrypted identity keystore",
		"  address         print the address held by a keystore",
		"  token           sign a caller token (secret from " + envRPCSecretName + " or prompt)",
		"",
		"Execute (requires a caller token):",
		"  create          escrow native funds in a new offer",
		"  swap            pay into an offer",
		"  cancel          withdraw an offer you own",
		"  set-active      pause or resume offer creation (admin)",
		"  remove-expired  refund every expired offer",
		"",
		"Query:",
		"  offers          list offers, optionally by seller",
		"  offer           show one offer",
		"  config          show the engine configuration",
		"  info            show the contract name and version",
		"  events          list indexed events",
		"  digest          show the state digest",
	}, "\n")
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(envRPCURL)); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// applyGlobalFlags strips --rpc and --token from args wherever they appear.
func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			setGlobal(arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--rpc="):
			setGlobal("--rpc", strings.TrimPrefix(arg, "--rpc="))
		case strings.HasPrefix(arg, "--token="):
			setGlobal("--token", strings.TrimPrefix(arg, "--token="))
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func setGlobal(name, value string) {
	if name == "--rpc" {
		rpcEndpoint = strings.TrimSpace(value)
		return
	}
	rpcAuthToken = strings.TrimSpace(value)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method}
	if param != nil {
		req.Params = []interface{}{param}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("%s requires a caller token; pass --token or set %s", method, envToken)
		}
		httpReq.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}

func printJSON(w io.Writer, raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(w, string(raw))
		return
	}
	fmt.Fprintln(w, buf.String())
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}
