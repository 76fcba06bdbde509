package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"peerswap/core"
	"peerswap/core/genesis"
	"peerswap/crypto"
	"peerswap/native/peerswap"
	"peerswap/storage"
)

func fixedClock() time.Time { return time.Unix(1_700_000_000, 0) }

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func writeGenesis(t *testing.T, admin [20]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admin: "+crypto.FormatPeer(admin)+"\n"), 0o600))
	return path
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"launch"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Unknown command: launch")

	stderr.Reset()
	require.Equal(t, 0, run([]string{"help"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "export")
}

func TestResolveGenesisPath(t *testing.T) {
	require.Equal(t, "flag.yaml", resolveGenesisPath(" flag.yaml ", "cfg.yaml"))
	require.Equal(t, "cfg.yaml", resolveGenesisPath("", "cfg.yaml"))
}

func TestInitGenesisRequiresSpecOnFreshState(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	node, err := core.NewNode(storage.NewMemDB())
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	require.Error(t, initGenesis(node, missing, logger))

	require.NoError(t, initGenesis(node, writeGenesis(t, testAddress(0xAD)), logger))
	require.NoError(t, initGenesis(node, missing, logger))
	cfg, err := node.Config()
	require.NoError(t, err)
	require.Equal(t, crypto.FormatPeer(testAddress(0xAD)), cfg.Admin)
}

func TestExportOffersFromState(t *testing.T) {
	db := storage.NewMemDB()
	node, err := core.NewNode(db, core.WithClock(fixedClock))
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec([]byte("admin: " + crypto.FormatPeer(testAddress(0xAD)) + "\n"))
	require.NoError(t, err)
	require.NoError(t, node.InitGenesis(spec))

	create := &core.ExecuteMsg{Create: &core.CreateMsg{Ask: []core.Balance{
		{Native: []core.Coin{{Denom: "ubtc", Amount: "5000000"}}},
		{Native: []core.Coin{{Denom: "ueth", Amount: "70000"}}},
	}}}
	for i := 0; i < 2; i++ {
		_, err := node.Execute(context.Background(), testAddress(0x01), []peerswap.Coin{peerswap.NewCoin(10_000_000, "uatom")}, create)
		require.NoError(t, err)
	}

	out := filepath.Join(t.TempDir(), "offers.parquet")
	rows, err := exportOffers(db, out, fixedClock)
	require.NoError(t, err)
	require.Equal(t, 4, rows)
	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
