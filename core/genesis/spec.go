// core/genesis/spec.go
package genesis

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"peerswap/crypto"
)

// GenesisSpec describes the initial engine configuration. Omitted fee rates
// fall back to the engine defaults and an omitted active flag means active.
type GenesisSpec struct {
	Admin       string  `yaml:"admin"`
	TakerFeeBps *uint16 `yaml:"takerFeeBps,omitempty"`
	MakerFeeBps *uint16 `yaml:"makerFeeBps,omitempty"`
	Active      *bool   `yaml:"active,omitempty"`

	adminAddr [20]byte
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML genesis document. Unknown
// fields are rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

// AdminAddress returns the decoded admin identity.
func (s *GenesisSpec) AdminAddress() [20]byte { return s.adminAddr }

// IsActive reports whether offer creation starts enabled.
func (s *GenesisSpec) IsActive() bool { return s.Active == nil || *s.Active }

func (s *GenesisSpec) validate() error {
	if strings.TrimSpace(s.Admin) == "" {
		return fmt.Errorf("admin must be provided")
	}
	addr, err := crypto.DecodeWithPrefix(strings.TrimSpace(s.Admin), crypto.PeerPrefix)
	if err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	s.adminAddr = addr
	if s.TakerFeeBps != nil && *s.TakerFeeBps > 10_000 {
		return fmt.Errorf("takerFeeBps must be <= 10000")
	}
	if s.MakerFeeBps != nil && *s.MakerFeeBps > 10_000 {
		return fmt.Errorf("makerFeeBps must be <= 10000")
	}
	return nil
}
