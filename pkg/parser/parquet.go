package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// parquetBatchRows is the number of rows per Arrow record batch.
const parquetBatchRows = 4096

// parquetDecoder reads a Parquet file into an Arrow table and emits one row
// per table row. Nulls are missing values.
type parquetDecoder struct{}

func (parquetDecoder) decode(data []byte, sink RowSink) error {
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: parquet: %w", ErrContainer, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: parquetBatchRows}, memory.DefaultAllocator)
	if err != nil {
		return fmt.Errorf("%w: parquet schema: %w", ErrContainer, err)
	}

	table, err := fr.ReadTable(context.Background())
	if err != nil {
		return fmt.Errorf("%w: parquet data: %w", ErrContainer, err)
	}
	defer table.Release()

	schema := table.Schema()
	names := make([]string, schema.NumFields())

	for i, f := range schema.Fields() {
		names[i] = f.Name
	}

	if err := sink.DeclareColumns(names); err != nil {
		return err
	}

	tr := array.NewTableReader(table, parquetBatchRows)
	defer tr.Release()

	fields := make([]profile.Field, len(names))

	for tr.Next() {
		rec := tr.Record()

		for row := range int(rec.NumRows()) {
			for c, col := range rec.Columns() {
				fields[c] = profile.Field{Name: names[c]}

				if col.IsNull(row) {
					fields[c].Kind = profile.FieldNull
				} else {
					fields[c].Text = col.ValueStr(row)
				}
			}

			if err := sink.Row(fields); err != nil {
				return err
			}
		}
	}

	if err := tr.Err(); err != nil {
		return fmt.Errorf("%w: parquet data: %w", ErrContainer, err)
	}

	return nil
}
