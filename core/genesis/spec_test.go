// core/genesis/spec_test.go
package genesis

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"peerswap/core/state"
	"peerswap/crypto"
	"peerswap/storage"
)

func adminAddress(t *testing.T) (string, [20]byte) {
	t.Helper()
	var raw [20]byte
	copy(raw[:], bytes.Repeat([]byte{0xAD}, 20))
	return crypto.FormatPeer(raw), raw
}

func TestLoadGenesisSpecAndInit(t *testing.T) {
	admin, raw := adminAddress(t)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	doc := "admin: " + admin + "\ntakerFeeBps: 5\nactive: false\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	spec, err := LoadGenesisSpec(path)
	require.NoError(t, err)
	require.Equal(t, raw, spec.AdminAddress())
	require.False(t, spec.IsActive())

	db := storage.NewMemDB()
	emitted, err := InitFromSpec(spec, db)
	require.NoError(t, err)
	require.Len(t, emitted, 2)

	cfg, ok, err := state.NewManager(db).ConfigGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, raw, cfg.Admin)
	require.Equal(t, uint16(5), cfg.TakerFeeBps)
	require.Equal(t, uint16(1), cfg.MakerFeeBps)
	require.False(t, cfg.Active)

	again, err := InitFromSpec(spec, db)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestParseGenesisSpecRejects(t *testing.T) {
	admin, _ := adminAddress(t)
	cases := map[string]string{
		"missing admin":  "takerFeeBps: 1\n",
		"bad prefix":     "admin: ptok1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq\n",
		"fee too high":   "admin: " + admin + "\nmakerFeeBps: 10001\n",
		"unknown field":  "admin: " + admin + "\nchainId: 3\n",
		"not a document": "admin: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenesisSpec([]byte(doc))
			require.Error(t, err)
		})
	}
}
