package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// xlsxDecoder reads the first sheet of a workbook.
type xlsxDecoder struct {
	header bool
}

func (d *xlsxDecoder) decode(data []byte, sink RowSink) error {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: xlsx: %w", ErrContainer, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}

	rows, err := book.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("%w: xlsx sheet %q: %w", ErrContainer, sheets[0], err)
	}
	defer rows.Close()

	table := tabular{sink: sink, header: d.header, ragged: true}

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("%w: xlsx row: %w", ErrContainer, err)
		}

		if len(cells) == 0 {
			continue
		}

		if err := table.record(cells); err != nil {
			return err
		}
	}

	if err := rows.Error(); err != nil {
		return fmt.Errorf("%w: xlsx rows: %w", ErrContainer, err)
	}

	return nil
}
