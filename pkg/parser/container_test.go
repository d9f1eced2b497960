package parser_test

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/hamba/avro/v2/ocf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Sumatoshi-tech/datalens/pkg/parser"
)

const avroSchema = `{
  "type": "record", "name": "person",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "name", "type": ["null", "string"]},
    {"name": "geo", "type": {"type": "record", "name": "geo", "fields": [{"name": "lat", "type": "double"}]}}
  ]
}`

type avroGeo struct {
	Lat float64 `avro:"lat"`
}

type avroPerson struct {
	ID   int64   `avro:"id"`
	Name *string `avro:"name"`
	Geo  avroGeo `avro:"geo"`
}

func parquetFixture(t *testing.T) []byte {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"ann", "", "cy"}, []bool{true, false, true})

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer

	w, err := pqarrow.NewFileWriter(schema, &buf, nil, pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func avroFixture(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	enc, err := ocf.NewEncoder(avroSchema, &buf)
	require.NoError(t, err)

	ann := "ann"
	require.NoError(t, enc.Encode(avroPerson{ID: 1, Name: &ann, Geo: avroGeo{Lat: 1.5}}))
	require.NoError(t, enc.Encode(avroPerson{ID: 2, Geo: avroGeo{Lat: -2}}))
	require.NoError(t, enc.Close())

	return buf.Bytes()
}

func xlsxFixture(t *testing.T) []byte {
	t.Helper()

	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]any{"id", "name"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]any{1, "ann"}))
	require.NoError(t, book.SetSheetRow(sheet, "A3", &[]any{2}))

	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	return buf.Bytes()
}

func TestParquet(t *testing.T) {
	t.Parallel()

	sink := feedInChunks(t, parser.FormatParquet, parser.DefaultOptions(), parquetFixture(t), 100)

	assert.Equal(t, []string{"id", "name"}, sink.declared)
	assert.Equal(t, []string{"id=1 name=ann", "id=2 name=<null>", "id=3 name=cy"}, sink.texts())
}

func TestAvro(t *testing.T) {
	t.Parallel()

	sink := feedInChunks(t, parser.FormatAvro, parser.DefaultOptions(), avroFixture(t), 7)

	assert.Equal(t, []string{"id", "name", "geo"}, sink.declared)
	assert.Equal(t, []string{"id=1 name=ann geo.lat=1.5", "id=2 name=<null> geo.lat=-2"}, sink.texts())
}

func TestXLSX(t *testing.T) {
	t.Parallel()

	sink := feedInChunks(t, parser.FormatXLSX, parser.DefaultOptions(), xlsxFixture(t), 512)

	assert.Equal(t, []string{"id", "name"}, sink.declared)
	assert.Equal(t, []string{"id=1 name=ann", "id=2"}, sink.texts())
	assert.Zero(t, sink.malformed)
}

func TestWholeBuffer_Limit(t *testing.T) {
	t.Parallel()

	opts := parser.DefaultOptions()
	opts.MaxBufferBytes = 8

	p, err := parser.New(parser.FormatParquet, opts, &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, p.Feed([]byte("PAR1")))
	assert.Equal(t, 4, p.Buffered())
	assert.False(t, p.Streaming())
	require.ErrorIs(t, p.Feed([]byte("12345")), parser.ErrBufferLimit)
}

func TestWholeBuffer_Corrupt(t *testing.T) {
	t.Parallel()

	for _, format := range []parser.Format{parser.FormatParquet, parser.FormatAvro, parser.FormatXLSX} {
		p, err := parser.New(format, parser.DefaultOptions(), &recordingSink{})
		require.NoError(t, err)
		require.NoError(t, p.Feed([]byte("definitely not a container")))
		require.ErrorIs(t, p.Finish(), parser.ErrContainer, format)
	}
}

func TestWholeBuffer_Empty(t *testing.T) {
	t.Parallel()

	sink := feedInChunks(t, parser.FormatAvro, parser.DefaultOptions(), nil, 1)
	assert.Empty(t, sink.rows)
	assert.Empty(t, sink.declared)
}

func TestNew_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := parser.New("orc", parser.DefaultOptions(), &recordingSink{})

	var unknown *parser.UnknownFormatError
	require.ErrorAs(t, err, &unknown)
}
