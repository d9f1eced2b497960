package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// Delimiter detection bounds.
const (
	detectRows      = 10
	minDetectFields = 2
)

// delimiterCandidates in tie-break order.
var delimiterCandidates = []byte{',', '\t', ';', '|'}

// DetectDelimiter scores each candidate delimiter on the first complete rows
// of sample. A candidate scores rows × fields only when every row has the
// same number of fields and that number is above one. The best score wins;
// ties keep candidate order and an undecided sample yields a comma.
func DetectDelimiter(sample []byte) byte {
	best, bestScore := byte(','), 0

	for _, delim := range delimiterCandidates {
		if score := delimiterScore(sample, delim); score > bestScore {
			best, bestScore = delim, score
		}
	}

	return best
}

func delimiterScore(sample []byte, delim byte) int {
	var (
		rows   int
		fields = -1
		steady = true
	)

	collect := func(record []string) bool {
		if fields == -1 {
			fields = len(record)
		} else if len(record) != fields {
			steady = false
		}

		rows++

		return steady && rows < detectRows
	}

	sc := NewScanner(delim)
	if sc.Feed(sample, collect) && rows == 0 {
		sc.Flush(collect)
	}

	if !steady || rows == 0 || fields < minDetectFields {
		return 0
	}

	return rows * fields
}

// Format identifies a source format.
type Format string

// Supported formats. FormatJSON picks array or lines mode from the content.
const (
	FormatDelimited Format = "csv"
	FormatJSON      Format = "json"
	FormatJSONLines Format = "jsonl"
	FormatJSONArray Format = "json_array"
	FormatParquet   Format = "parquet"
	FormatAvro      Format = "avro"
	FormatXLSX      Format = "xlsx"
)

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatDelimited, FormatJSON, FormatJSONLines, FormatJSONArray, FormatParquet, FormatAvro, FormatXLSX:
		return f, nil
	case "tsv", "delimited":
		return FormatDelimited, nil
	case "ndjson":
		return FormatJSONLines, nil
	default:
		return "", &UnknownFormatError{Name: name}
	}
}

// Streaming reports whether the format is parsed chunk by chunk.
func (f Format) Streaming() bool {
	switch f {
	case FormatParquet, FormatAvro, FormatXLSX:
		return false
	default:
		return true
	}
}

var extensionFormats = map[string]Format{
	".csv":     FormatDelimited,
	".tsv":     FormatDelimited,
	".psv":     FormatDelimited,
	".tab":     FormatDelimited,
	".txt":     FormatDelimited,
	".json":    FormatJSON,
	".jsonl":   FormatJSONLines,
	".ndjson":  FormatJSONLines,
	".parquet": FormatParquet,
	".pq":      FormatParquet,
	".avro":    FormatAvro,
	".xlsx":    FormatXLSX,
}

var languageFormats = map[string]Format{
	"CSV":  FormatDelimited,
	"TSV":  FormatDelimited,
	"JSON": FormatJSON,
}

var magicFormats = []struct {
	magic  []byte
	format Format
}{
	{[]byte("PAR1"), FormatParquet},
	{[]byte("Obj\x01"), FormatAvro},
	{[]byte("PK\x03\x04"), FormatXLSX},
}

// DetectFormat guesses the format of a source from its name and a sample of
// its leading bytes: by extension, then by linguist language, then by magic
// bytes, then by the first non-space byte. Anything else is delimited text.
func DetectFormat(name string, sample []byte) Format {
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}

	if name != "" {
		if f, ok := languageFormats[enry.GetLanguage(filepath.Base(name), sample)]; ok {
			return f
		}
	}

	for _, m := range magicFormats {
		if bytes.HasPrefix(sample, m.magic) {
			return m.format
		}
	}

	trimmed := bytes.TrimLeft(bytes.TrimPrefix(sample, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '[':
			return FormatJSONArray
		case '{':
			return FormatJSONLines
		}
	}

	return FormatDelimited
}
