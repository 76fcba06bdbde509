package indexer

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"peerswap/crypto"
	"peerswap/native/peerswap"
)

// offerRow is one ask leg of one offer. Offers with several legs produce
// several rows sharing the offer columns.
type offerRow struct {
	OfferID           int64  `parquet:"name=offer_id, type=INT64"`
	Seller            string `parquet:"name=seller, type=BYTE_ARRAY, convertedtype=UTF8"`
	SellAsset         string `parquet:"name=sell_asset, type=BYTE_ARRAY, convertedtype=UTF8"`
	SellAmount        string `parquet:"name=sell_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	InitialSellAmount string `parquet:"name=initial_sell_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	AskIndex          int32  `parquet:"name=ask_index, type=INT32"`
	AskAsset          string `parquet:"name=ask_asset, type=BYTE_ARRAY, convertedtype=UTF8"`
	AskAmount         string `parquet:"name=ask_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	AskInitialAmount  string `parquet:"name=ask_initial_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Expires           string `parquet:"name=expires, type=BYTE_ARRAY, convertedtype=UTF8"`
	Expired           bool   `parquet:"name=expired, type=BOOLEAN"`
	Description       string `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportOffers writes entries to a SNAPPY-compressed parquet file at path.
// block decides the expired column. It returns the number of rows written.
func ExportOffers(path string, entries []peerswap.OfferEntry, block peerswap.BlockInfo) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(offerRow), 1)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("export: parquet schema: %w", err)
	}
	pw.RowGroupSize = 64 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	rows := 0
	for _, entry := range entries {
		for _, row := range offerRows(entry, block) {
			if err := pw.Write(row); err != nil {
				pw.WriteStop()
				file.Close()
				return rows, fmt.Errorf("export: parquet write: %w", err)
			}
			rows++
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return rows, fmt.Errorf("export: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return rows, fmt.Errorf("export: close parquet file: %w", err)
	}
	return rows, nil
}

func offerRows(entry peerswap.OfferEntry, block peerswap.BlockInfo) []*offerRow {
	o := entry.Offer
	if o == nil {
		return nil
	}
	out := make([]*offerRow, 0, len(o.AskFor))
	for i, leg := range o.AskFor {
		out = append(out, &offerRow{
			OfferID:           int64(entry.ID),
			Seller:            crypto.FormatPeer(o.Seller),
			SellAsset:         o.Sell.String(),
			SellAmount:        o.SellAmount.Dec(),
			InitialSellAmount: o.InitialSellAmount.Dec(),
			AskIndex:          int32(i),
			AskAsset:          leg.Asset.String(),
			AskAmount:         leg.Amount.Dec(),
			AskInitialAmount:  leg.InitialAmount.Dec(),
			Expires:           o.Expires.String(),
			Expired:           o.Expires.IsExpired(block),
			Description:       o.Description,
		})
	}
	return out
}
