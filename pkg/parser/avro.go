package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strconv"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// avroSchemaKey is the OCF metadata entry holding the writer schema.
const avroSchemaKey = "avro.schema"

// avroDecoder reads an Avro object container file. Records flatten like JSON
// objects, following the field order of the writer schema.
type avroDecoder struct {
	maxDepth int
	fields   []profile.Field
}

func (d *avroDecoder) decode(data []byte, sink RowSink) error {
	dec, err := ocf.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: avro header: %w", ErrContainer, err)
	}

	schema, err := avro.Parse(string(dec.Metadata()[avroSchemaKey]))
	if err != nil {
		return fmt.Errorf("%w: avro schema: %w", ErrContainer, err)
	}

	if rec, ok := schema.(*avro.RecordSchema); ok {
		names := make([]string, 0, len(rec.Fields()))
		for _, f := range rec.Fields() {
			names = append(names, f.Name())
		}

		if err := sink.DeclareColumns(names); err != nil {
			return err
		}
	}

	for dec.HasNext() {
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: avro record: %w", ErrContainer, err)
		}

		d.fields = d.fields[:0]

		if m, ok := value.(map[string]any); ok {
			d.record(m, schema, "", 1)
		} else {
			d.value(ValueColumn, value, schema, 0)
		}

		if err := sink.Row(d.fields); err != nil {
			return err
		}
	}

	if err := dec.Error(); err != nil {
		return fmt.Errorf("%w: avro blocks: %w", ErrContainer, err)
	}

	return nil
}

// record flattens a decoded record or map. Record fields follow the schema
// order; map keys are sorted.
func (d *avroDecoder) record(m map[string]any, schema avro.Schema, prefix string, depth int) {
	if rec, ok := unwrapUnion(schema).(*avro.RecordSchema); ok {
		for _, f := range rec.Fields() {
			d.value(prefix+f.Name(), m[f.Name()], f.Type(), depth)
		}

		return
	}

	var values avro.Schema
	if ms, ok := unwrapUnion(schema).(*avro.MapSchema); ok {
		values = ms.Values()
	}

	for _, k := range slices.Sorted(maps.Keys(m)) {
		d.value(prefix+k, m[k], values, depth)
	}
}

func (d *avroDecoder) value(name string, v any, schema avro.Schema, depth int) {
	switch x := v.(type) {
	case nil:
		d.fields = append(d.fields, profile.Field{Name: name, Kind: profile.FieldNull})
	case map[string]any:
		if inner, ok := unionBranch(x, schema); ok {
			d.value(name, inner, branchSchema(schema, x), depth)

			return
		}

		if depth < d.maxDepth {
			d.record(x, schema, name+nameSeparator, depth+1)

			return
		}

		d.text(name, fmt.Sprint(x))
	case []any:
		d.fields = append(d.fields, profile.Field{
			Name: name,
			Text: fmt.Sprintf(arraySentinel, len(x)),
			Kind: profile.FieldArray,
			Len:  len(x),
		})
	default:
		d.text(name, avroText(x))
	}
}

func (d *avroDecoder) text(name, value string) {
	d.fields = append(d.fields, profile.Field{Name: name, Text: value})
}

// avroText renders a decoded primitive.
func avroText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case *big.Rat:
		return x.FloatString(ratDigits)
	default:
		return fmt.Sprint(x)
	}
}

// ratDigits is the precision of decimal logical values.
const ratDigits = 6

// unwrapUnion returns the single non-null branch of a nullable union.
func unwrapUnion(schema avro.Schema) avro.Schema {
	u, ok := schema.(*avro.UnionSchema)
	if !ok || !u.Nullable() {
		return schema
	}

	for _, t := range u.Types() {
		if t.Type() != avro.Null {
			return t
		}
	}

	return schema
}

// unionBranch recognizes the {"type": value} wrapper generic decoding uses
// for unions that are not simply nullable.
func unionBranch(m map[string]any, schema avro.Schema) (any, bool) {
	u, ok := schema.(*avro.UnionSchema)
	if !ok || len(m) != 1 {
		return nil, false
	}

	for k, v := range m {
		if _, pos := u.Types().Get(k); pos >= 0 {
			return v, true
		}
	}

	return nil, false
}

func branchSchema(schema avro.Schema, m map[string]any) avro.Schema {
	u, ok := schema.(*avro.UnionSchema)
	if !ok {
		return schema
	}

	for k := range m {
		if t, pos := u.Types().Get(k); pos >= 0 {
			return t
		}
	}

	return schema
}
