package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names the byte encoding of a text source.
type Encoding string

// Supported encodings.
const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF8BOM     Encoding = "utf-8-bom"
	EncodingWindows1252 Encoding = "windows-1252"
	EncodingISO88591    Encoding = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding resolves an encoding name. The empty name means UTF-8.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-8-bom", "utf8-bom":
		return EncodingUTF8BOM, nil
	case "windows-1252", "cp1252":
		return EncodingWindows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return EncodingISO88591, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
}

// DetectEncoding reports UTF-8 when sample is valid UTF-8, tolerating a
// multi-byte sequence cut by the end of the sample, and windows-1252
// otherwise. A leading byte order mark is reported as utf-8-bom.
func DetectEncoding(sample []byte) Encoding {
	bom := bytes.HasPrefix(sample, utf8BOM)
	if bom {
		sample = sample[len(utf8BOM):]
	}

	if !utf8.Valid(trimPartialRune(sample)) {
		return EncodingWindows1252
	}

	if bom {
		return EncodingUTF8BOM
	}

	return EncodingUTF8
}

// trimPartialRune drops an incomplete UTF-8 sequence at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}

			break
		}
	}

	return b
}

// TextDecoder turns raw chunks into UTF-8 text. It strips a leading byte
// order mark even when it is split across chunks.
type TextDecoder struct {
	charset  *encoding.Decoder
	bomDone  bool
	bomBytes []byte
}

// NewTextDecoder returns a decoder for enc. The empty encoding means UTF-8.
func NewTextDecoder(enc Encoding) (*TextDecoder, error) {
	d := &TextDecoder{}

	switch enc {
	case EncodingUTF8, EncodingUTF8BOM, "":
	case EncodingWindows1252:
		d.charset = charmap.Windows1252.NewDecoder()
		d.bomDone = true
	case EncodingISO88591:
		d.charset = charmap.ISO8859_1.NewDecoder()
		d.bomDone = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}

	return d, nil
}

// Decode returns the UTF-8 text of chunk. The result may alias chunk.
func (d *TextDecoder) Decode(chunk []byte) ([]byte, error) {
	if !d.bomDone {
		chunk = d.stripBOM(chunk)
	}

	if d.charset == nil || len(chunk) == 0 {
		return chunk, nil
	}

	out, err := d.charset.Bytes(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return out, nil
}

// Flush returns bytes held back while looking for a byte order mark.
func (d *TextDecoder) Flush() []byte {
	d.bomDone = true
	held := d.bomBytes
	d.bomBytes = nil

	return held
}

func (d *TextDecoder) stripBOM(chunk []byte) []byte {
	for len(chunk) > 0 && len(d.bomBytes) < len(utf8BOM) {
		if chunk[0] != utf8BOM[len(d.bomBytes)] {
			d.bomDone = true
			held := append(d.bomBytes, chunk...)
			d.bomBytes = nil

			return held
		}

		d.bomBytes = append(d.bomBytes, chunk[0])
		chunk = chunk[1:]
	}

	if len(d.bomBytes) == len(utf8BOM) {
		d.bomDone = true
		d.bomBytes = nil
	}

	return chunk
}
