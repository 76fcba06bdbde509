package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"peerswap/cmd/internal/passphrase"
	"peerswap/config"
	"peerswap/core"
	"peerswap/crypto"
	"peerswap/rpc"
)

const (
	envRPCSecretName      = config.EnvRPCSecret
	envKeystorePassphrase = "PEERSWAP_KEYSTORE_PASSPHRASE"
	defaultTokenTTL       = time.Hour
	defaultTokenIssuer    = "peerswapd"
	tokenAddressSeparator = ":"
	coinListSeparator     = ","
)

var (
	coinPattern = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]*)$`)

	rpcSecretSource = func() *passphrase.Source { return passphrase.NewSource(envRPCSecretName, "RPC secret") }
	keystoreSource  = func() *passphrase.Source {
		return passphrase.NewSource(envKeystorePassphrase, "keystore passphrase")
	}
)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, " ") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("token", stderr)
	subject := fs.String("subject", "", "Caller address to embed as the token subject")
	keystorePath := fs.String("keystore", "", "Derive the subject from this keystore instead of --subject")
	ttl := fs.Duration("ttl", defaultTokenTTL, "Token lifetime")
	issuer := fs.String("issuer", defaultTokenIssuer, "Issuer claim expected by the node")
	audience := fs.String("audience", "", "Optional audience claim")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	sub := strings.TrimSpace(*subject)
	if *keystorePath != "" {
		if sub != "" {
			return printError(stderr, "--subject and --keystore are mutually exclusive")
		}
		key, err := loadKeystore(*keystorePath)
		if err != nil {
			return printError(stderr, err.Error())
		}
		sub = key.PubKey().Address().String()
	}
	if sub == "" {
		return printError(stderr, "--subject or --keystore is required")
	}
	if _, err := crypto.DecodeAddress(sub); err != nil {
		return printError(stderr, fmt.Sprintf("invalid subject: %v", err))
	}
	secret, err := rpcSecretSource().Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	token, err := rpc.IssueToken(rpc.JWTConfig{HMACSecret: secret, Issuer: *issuer, Audience: *audience}, sub, *ttl)
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, token)
	return 0
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	out := fs.String("out", "peerswap.key", "Destination keystore file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pass, err := keystoreSource().Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, fmt.Sprintf("generate key: %v", err))
	}
	if err := crypto.SaveKeystore(*out, key, pass); err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintf(stdout, "Address: %s\nKeystore: %s\n", key.PubKey().Address().String(), *out)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	path := fs.String("keystore", "peerswap.key", "Keystore file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := loadKeystore(*path)
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func loadKeystore(path string) (*crypto.PrivateKey, error) {
	pass, err := keystoreSource().Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadKeystore(path, pass)
}

func runCreate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("create", stderr)
	var asks stringList
	fs.Var(&asks, "ask", "Requested leg: coins like 5000000ubtc[,1uatom] or ptok1...:amount (repeatable)")
	funds := fs.String("funds", "", "Native coins to escrow, e.g. 10000000uatom")
	atHeight := fs.Uint64("expires-height", 0, "Expire at this block height")
	atTime := fs.String("expires-time", "", "Expire at this RFC3339 time")
	never := fs.Bool("never", false, "Never expire")
	description := fs.String("description", "", "Free-form offer description")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(asks) == 0 {
		return printError(stderr, "at least one --ask is required")
	}
	msg := core.CreateMsg{Description: *description}
	for _, raw := range asks {
		leg, err := parseBalance(raw)
		if err != nil {
			return printError(stderr, err.Error())
		}
		msg.Ask = append(msg.Ask, leg)
	}
	expires, err := buildExpiration(*atHeight, *atTime, *never)
	if err != nil {
		return printError(stderr, err.Error())
	}
	msg.Expires = expires
	coins, err := parseCoins(*funds)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return execute(core.ExecuteMsg{Create: &msg}, coins, stdout, stderr)
}

func runSwap(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("swap", stderr)
	id := fs.Uint("id", 0, "Offer id")
	funds := fs.String("funds", "", "Native payment, e.g. 1000000ubtc")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	offerID, err := requireID(fs, *id)
	if err != nil {
		return printError(stderr, err.Error())
	}
	coins, err := parseCoins(*funds)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if len(coins) == 0 {
		return printError(stderr, "--funds is required")
	}
	return execute(core.ExecuteMsg{Swap: &core.SwapMsg{ID: offerID}}, coins, stdout, stderr)
}

func runCancel(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("cancel", stderr)
	id := fs.Uint("id", 0, "Offer id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	offerID, err := requireID(fs, *id)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return execute(core.ExecuteMsg{Cancel: &core.CancelMsg{ID: offerID}}, nil, stdout, stderr)
}

func runSetActive(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("set-active", stderr)
	active := fs.Bool("active", true, "Whether offer creation is enabled")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return execute(core.ExecuteMsg{SetActive: &core.SetActiveMsg{Active: *active}}, nil, stdout, stderr)
}

func runRemoveExpired(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("remove-expired", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return execute(core.ExecuteMsg{RemoveExpired: &struct{}{}}, nil, stdout, stderr)
}

func runOffers(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("offers", stderr)
	seller := fs.String("seller", "", "Only list offers created by this address")
	startAfter := fs.Int64("start-after", -1, "Return offers with ids above this one")
	limit := fs.Uint("limit", 0, "Maximum offers to return")
	includeExpired := fs.Bool("include-expired", false, "Include expired offers")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	page := core.PageParams{}
	if *includeExpired {
		page.IncludeExpired = includeExpired
	}
	if *startAfter >= 0 {
		if *startAfter > int64(^uint32(0)) {
			return printError(stderr, "--start-after out of range")
		}
		v := uint32(*startAfter)
		page.StartAfter = &v
	}
	if *limit > 0 {
		v := uint32(*limit)
		page.Limit = &v
	}
	if s := strings.TrimSpace(*seller); s != "" {
		return runQuery("peerswap_getOffersBySeller", core.GetAddressOffers{User: s, PageParams: page}, stdout, stderr)
	}
	return runQuery("peerswap_getOffers", page, stdout, stderr)
}

func runOffer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("offer", stderr)
	id := fs.Uint("id", 0, "Offer id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	offerID, err := requireID(fs, *id)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return runQuery("peerswap_getOffer", map[string]uint32{"id": offerID}, stdout, stderr)
}

func runEvents(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("events", stderr)
	typ := fs.String("type", "", "Only list events of this type, e.g. peerswap.swap")
	offerID := fs.Int64("offer", -1, "Only list events for this offer id")
	offset := fs.Int("offset", 0, "Events to skip")
	limit := fs.Int("limit", 0, "Maximum events to return")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	params := map[string]interface{}{}
	if *typ != "" {
		params["type"] = *typ
	}
	if *offerID >= 0 {
		params["offer_id"] = *offerID
	}
	if *offset > 0 {
		params["offset"] = *offset
	}
	if *limit > 0 {
		params["limit"] = *limit
	}
	return runQuery("peerswap_listEvents", params, stdout, stderr)
}

func runQuery(method string, params interface{}, stdout, stderr io.Writer) int {
	result, err := rpcCall(method, params, false)
	if err != nil {
		return printError(stderr, err.Error())
	}
	printJSON(stdout, result)
	return 0
}

func execute(msg core.ExecuteMsg, funds []core.Coin, stdout, stderr io.Writer) int {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{"msg": json.RawMessage(encoded)}
	if len(funds) > 0 {
		params["funds"] = funds
	}
	result, err := rpcCall("peerswap_execute", params, true)
	if err != nil {
		return printError(stderr, err.Error())
	}
	printJSON(stdout, result)
	return 0
}

func requireID(fs *flag.FlagSet, id uint) (uint32, error) {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "id" {
			set = true
		}
	})
	if !set {
		return 0, errors.New("--id is required")
	}
	if id > uint(^uint32(0)) {
		return 0, fmt.Errorf("--id %d out of range", id)
	}
	return uint32(id), nil
}

// parseCoins accepts a comma separated list such as "100uatom,5ubtc".
func parseCoins(raw string) ([]core.Coin, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, coinListSeparator)
	out := make([]core.Coin, 0, len(parts))
	for _, part := range parts {
		match := coinPattern.FindStringSubmatch(strings.TrimSpace(part))
		if match == nil {
			return nil, fmt.Errorf("invalid coin %q: expected <amount><denom>", part)
		}
		out = append(out, core.Coin{Denom: match[2], Amount: match[1]})
	}
	return out, nil
}

// parseBalance reads one ask leg. Token legs are written address:amount.
func parseBalance(raw string) (core.Balance, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, string(crypto.TokenPrefix)+"1") {
		addr, amount, ok := strings.Cut(raw, tokenAddressSeparator)
		if !ok {
			return core.Balance{}, fmt.Errorf("invalid token leg %q: expected <address>:<amount>", raw)
		}
		if !isDecimal(amount) {
			return core.Balance{}, fmt.Errorf("invalid token amount %q", amount)
		}
		return core.Balance{Token: &core.TokenAmount{Address: addr, Amount: amount}}, nil
	}
	coins, err := parseCoins(raw)
	if err != nil {
		return core.Balance{}, err
	}
	if len(coins) == 0 {
		return core.Balance{}, errors.New("empty ask leg")
	}
	return core.Balance{Native: coins}, nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func buildExpiration(height uint64, at string, never bool) (*core.Expiration, error) {
	set := 0
	exp := &core.Expiration{}
	if height > 0 {
		set++
		exp.AtHeight = &height
	}
	if at = strings.TrimSpace(at); at != "" {
		set++
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("invalid --expires-time: %w", err)
		}
		nanos := strconv.FormatInt(ts.UnixNano(), 10)
		exp.AtTime = &nanos
	}
	if never {
		set++
		exp.Never = &struct{}{}
	}
	switch set {
	case 0:
		return nil, nil
	case 1:
		return exp, nil
	default:
		return nil, errors.New("choose one of --expires-height, --expires-time or --never")
	}
}
