package rpc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"peerswap/crypto"
)

// JWTConfig describes how callers prove their identity. The token subject is
// the caller's bech32 address.
type JWTConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

type authenticator struct {
	secret []byte
	opts   []jwt.ParserOption
}

func newAuthenticator(cfg JWTConfig) *authenticator {
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 2 * time.Minute
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(skew),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &authenticator{secret: []byte(strings.TrimSpace(cfg.HMACSecret)), opts: opts}
}

// caller authenticates r and returns the address in the token subject, which
// must carry prefix.
func (a *authenticator) caller(r *http.Request, prefix crypto.AddressPrefix) ([20]byte, *RPCError) {
	var zero [20]byte
	if len(a.secret) == 0 {
		return zero, &RPCError{Code: codeUnauthorized, Message: "RPC authentication not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return zero, &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	tokenString := extractBearer(header)
	if tokenString == "" {
		return zero, &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	subject, err := a.subject(tokenString)
	if err != nil {
		return zero, &RPCError{Code: codeUnauthorized, Message: "invalid token", Data: err.Error()}
	}
	addr, err := crypto.DecodeWithPrefix(subject, prefix)
	if err != nil {
		return zero, &RPCError{Code: codeUnauthorized, Message: "token subject is not a " + string(prefix) + " address", Data: err.Error()}
	}
	return addr, nil
}

func (a *authenticator) subject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, a.opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token invalid")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", errors.New("token subject missing")
	}
	return sub, nil
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IssueToken signs a caller token for subject valid for ttl. It backs the CLI
// token command and tests.
func IssueToken(cfg JWTConfig, subject string, ttl time.Duration) (string, error) {
	secret := strings.TrimSpace(cfg.HMACSecret)
	if secret == "" {
		return "", errors.New("rpc: jwt secret required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}
	if cfg.Audience != "" {
		claims["aud"] = cfg.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
