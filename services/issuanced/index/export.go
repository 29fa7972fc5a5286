package index

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRow struct {
	Asset       string `parquet:"name=asset, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Collection  string `parquet:"name=collection, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Role        string `parquet:"name=role, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Owner       string `parquet:"name=owner, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Number      uint64 `parquet:"name=number, type=UINT_64"`
	TreasuryFee uint64 `parquet:"name=treasury_fee, type=UINT_64"`
	AntiscamFee uint64 `parquet:"name=antiscam_fee, type=UINT_64"`
	MintedAt    string `parquet:"name=minted_at, type=UTF8"`
}

// ExportParquet writes every mint matching q (ignoring its paging) to path
// oldest first and returns the row count.
func (s *Store) ExportParquet(ctx context.Context, path string, q Query) (int, error) {
	var rows []Mint
	err := q.apply(s.db.WithContext(ctx).Model(&Mint{})).
		Order("minted_at ASC").Order("number ASC").
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("index: export query: %w", err)
	}
	if err := writeParquet(path, rows); err != nil {
		return 0, err
	}
	s.logger.Info("wrote mint export", "path", path, "rows", len(rows))
	return len(rows), nil
}

func writeParquet(path string, rows []Mint) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("index: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("index: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetRow{
			Asset:       row.Asset,
			Collection:  row.Collection,
			Role:        row.Role,
			Owner:       row.Owner,
			Number:      row.Number,
			TreasuryFee: row.TreasuryFee,
			AntiscamFee: row.AntiscamFee,
			MintedAt:    row.MintedAt.UTC().Format(time.RFC3339),
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("index: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("index: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("index: close parquet file: %w", err)
	}
	return nil
}
