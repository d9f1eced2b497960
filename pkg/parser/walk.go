package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// ValueColumn holds top-level elements that are not objects.
const ValueColumn = "value"

// nameSeparator joins nested object keys.
const nameSeparator = "."

// arraySentinel matches the text the accumulator records for arrays.
const arraySentinel = "[array:%d]"

// recordWalker flattens one JSON record into fields, preserving key order.
type recordWalker struct {
	maxDepth int
	fields   []profile.Field
	compact  bytes.Buffer
}

// walk returns the fields of raw, or false when raw is not valid JSON. The
// returned slice is reused by the next call.
func (w *recordWalker) walk(raw []byte) ([]profile.Field, bool) {
	if !json.Valid(raw) {
		return nil, false
	}

	w.fields = w.fields[:0]

	if raw[0] == '{' {
		if err := w.object(raw, "", 1); err != nil {
			return nil, false
		}

		return w.fields, true
	}

	if err := w.value(ValueColumn, raw, 0); err != nil {
		return nil, false
	}

	return w.fields, true
}

// object walks the members of an object token by token so that keys keep
// their document order.
func (w *recordWalker) object(raw []byte, prefix string, depth int) error {
	dec := json.NewDecoder(bytes.NewReader(raw))

	if _, err := dec.Token(); err != nil {
		return err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("object key %v is not a string", tok)
		}

		var member json.RawMessage
		if err := dec.Decode(&member); err != nil {
			return err
		}

		if err := w.value(prefix+key, member, depth); err != nil {
			return err
		}
	}

	return nil
}

func (w *recordWalker) value(name string, raw json.RawMessage, depth int) error {
	switch raw[0] {
	case '{':
		if depth < w.maxDepth {
			return w.object(raw, name+nameSeparator, depth+1)
		}

		w.compact.Reset()
		if err := json.Compact(&w.compact, raw); err != nil {
			return err
		}

		w.text(name, w.compact.String())
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return err
		}

		w.fields = append(w.fields, profile.Field{
			Name: name,
			Text: fmt.Sprintf(arraySentinel, len(elems)),
			Kind: profile.FieldArray,
			Len:  len(elems),
		})
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}

		w.text(name, s)
	case 'n':
		w.fields = append(w.fields, profile.Field{Name: name, Kind: profile.FieldNull})
	default:
		w.text(name, string(raw))
	}

	return nil
}

func (w *recordWalker) text(name, value string) {
	w.fields = append(w.fields, profile.Field{Name: name, Text: value})
}
