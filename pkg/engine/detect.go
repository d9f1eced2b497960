package engine

import "github.com/Sumatoshi-tech/datalens/pkg/parser"

// Detection is the best guess at how a source should be read.
type Detection struct {
	Format    parser.Format   `json:"format"              yaml:"format"`
	Delimiter string          `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Encoding  parser.Encoding `json:"encoding"            yaml:"encoding"`
}

// Detect guesses format, encoding, and (for delimited text) the delimiter
// from a source name and its leading bytes. name may be empty.
func Detect(name string, sample []byte) Detection {
	d := Detection{Format: parser.DetectFormat(name, sample)}

	if !d.Format.Streaming() {
		d.Encoding = parser.EncodingUTF8

		return d
	}

	d.Encoding = parser.DetectEncoding(sample)

	if d.Format == parser.FormatDelimited {
		d.Delimiter = string(parser.DetectDelimiter(sample))
	}

	return d
}

// SessionConfig returns a session config that reads the detected source.
func (d Detection) SessionConfig(hasHeader bool) SessionConfig {
	cfg := SessionConfig{Format: d.Format, Encoding: d.Encoding, HasHeader: hasHeader}
	if d.Delimiter != "" {
		cfg.Delimiter = d.Delimiter[0]
	}

	return cfg
}
