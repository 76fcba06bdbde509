package indexer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"peerswap/core"
	"peerswap/core/events"
	"peerswap/core/genesis"
	"peerswap/core/types"
	"peerswap/crypto"
	"peerswap/native/peerswap"
	"peerswap/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := Open(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func executed(height uint64, typ, offerID string, transfers ...events.Transfer) events.Executed {
	attrs := map[string]string{"method": "test"}
	if offerID != "" {
		attrs["offerId"] = offerID
	}
	return events.Executed{
		Height:    height,
		Time:      time.Unix(1_700_000_000+int64(height), 0),
		Sender:    crypto.FormatPeer(testAddress(0x01)),
		Payload:   &types.Event{Type: typ, Attributes: attrs},
		Transfers: transfers,
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("  ", nil)
	require.ErrorIs(t, err, ErrDSNRequired)
}

func TestDialectorSelection(t *testing.T) {
	require.Equal(t, "postgres", dialector("postgres://user@localhost/peerswap").Name())
	require.Equal(t, "postgres", dialector("host=localhost user=peerswap dbname=peerswap").Name())
	require.Equal(t, "sqlite", dialector("file:events.db").Name())
}

func TestRecordAndListEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, executed(1, peerswap.EventTypeOfferCreated, "0")))
	require.NoError(t, store.Record(ctx, executed(2, peerswap.EventTypeSwap, "0",
		events.Transfer{Recipient: "peer1seller", Asset: "ubtc", Amount: "999900"},
		events.Transfer{Recipient: "peer1admin", Asset: "ubtc", Amount: "100"},
	)))
	require.NoError(t, store.Record(ctx, executed(3, peerswap.EventTypeSetActive, "")))

	all, err := store.ListEvents(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Height)
	require.Equal(t, peerswap.EventTypeSwap, all[1].Type)
	require.Len(t, all[1].Transfers, 2)
	require.Equal(t, "999900", all[1].Transfers[0].Amount)
	require.Equal(t, "100", all[1].Transfers[1].Amount)
	require.NotNil(t, all[1].OfferID)
	require.Equal(t, uint32(0), *all[1].OfferID)
	require.Nil(t, all[2].OfferID)

	attrs, err := all[1].AttributeMap()
	require.NoError(t, err)
	require.Equal(t, "2", attrs["height"])
	require.Equal(t, "0", attrs["offerId"])

	swaps, err := store.ListEvents(ctx, ListQuery{Type: peerswap.EventTypeSwap})
	require.NoError(t, err)
	require.Len(t, swaps, 1)

	id := uint32(0)
	byOffer, err := store.ListEvents(ctx, ListQuery{OfferID: &id})
	require.NoError(t, err)
	require.Len(t, byOffer, 2)

	page, err := store.ListEvents(ctx, ListQuery{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, uint64(2), page[0].Height)

	n, err := store.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	n, err = store.Count(ctx, peerswap.EventTypeSetActive)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestListEventsRejectsNegativeBounds(t *testing.T) {
	store := openTestStore(t)
	_, err := store.ListEvents(context.Background(), ListQuery{Offset: -1})
	require.ErrorIs(t, err, ErrInvalidQuery)
	_, err = store.ListEvents(context.Background(), ListQuery{Limit: -1})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestStoreIndexesNodeExecutions(t *testing.T) {
	store := openTestStore(t)
	hub := events.NewHub(store)

	admin := testAddress(0xAD)
	seller := testAddress(0x01)
	node, err := core.NewNode(storage.NewMemDB(),
		core.WithEmitter(hub),
		core.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec([]byte("admin: " + crypto.FormatPeer(admin) + "\n"))
	require.NoError(t, err)
	require.NoError(t, node.InitGenesis(spec))

	create := &core.ExecuteMsg{Create: &core.CreateMsg{Ask: []core.Balance{{Native: []core.Coin{{Denom: "ubtc", Amount: "5000000"}}}}}}
	_, err = node.Execute(context.Background(), seller, []peerswap.Coin{peerswap.NewCoin(10_000_000, "uatom")}, create)
	require.NoError(t, err)
	_, err = node.Execute(context.Background(), seller, nil, &core.ExecuteMsg{Cancel: &core.CancelMsg{ID: 0}})
	require.NoError(t, err)

	got, err := store.ListEvents(context.Background(), ListQuery{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, peerswap.EventTypeInstantiated, got[0].Type)
	require.Equal(t, peerswap.EventTypeOfferCreated, got[1].Type)
	require.Equal(t, peerswap.EventTypeOfferCancelled, got[2].Type)
	require.Len(t, got[2].Transfers, 1)
	require.Equal(t, crypto.FormatPeer(seller), got[2].Transfers[0].Recipient)
	require.Equal(t, "10000000", got[2].Transfers[0].Amount)
}

func TestExportOffersWritesParquet(t *testing.T) {
	seller := testAddress(0x01)
	offer := &peerswap.Offer{
		Seller:            seller,
		Sell:              peerswap.NativeInfo("uatom"),
		SellAmount:        peerswap.NewCoin(8_000_000, "uatom").Amount,
		InitialSellAmount: peerswap.NewCoin(10_000_000, "uatom").Amount,
		AskFor: []peerswap.AskLeg{
			{Asset: peerswap.NativeInfo("ubtc"), InitialAmount: peerswap.NewCoin(5_000_000, "ubtc").Amount, Amount: peerswap.NewCoin(4_000_000, "ubtc").Amount},
			{Asset: peerswap.NativeInfo("ueth"), InitialAmount: peerswap.NewCoin(50, "ueth").Amount, Amount: peerswap.NewCoin(40, "ueth").Amount},
		},
		Expires: peerswap.AtHeight(10),
	}
	entries := []peerswap.OfferEntry{{ID: 7, Offer: offer}}

	block := peerswap.BlockInfo{Height: 12, Time: time.Unix(1_700_000_000, 0)}
	rows := offerRows(entries[0], block)
	require.Len(t, rows, 2)
	require.Equal(t, int64(7), rows[0].OfferID)
	require.Equal(t, "ubtc", rows[0].AskAsset)
	require.Equal(t, "4000000", rows[0].AskAmount)
	require.Equal(t, "8000000", rows[1].SellAmount)
	require.True(t, rows[1].Expired)

	path := filepath.Join(t.TempDir(), "offers.parquet")
	n, err := ExportOffers(path, entries, block)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte("PAR1")))
	require.True(t, bytes.HasSuffix(raw, []byte("PAR1")))
}
