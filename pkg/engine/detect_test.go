package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		file   string
		sample string
		want   engine.Detection
	}{
		{"semicolon csv", "data.csv", "a;b\n1;2\n", engine.Detection{Format: parser.FormatDelimited, Delimiter: ";", Encoding: parser.EncodingUTF8}},
		{"latin1 tsv", "", "n\tv\ncaf\xe9\t1\n", engine.Detection{Format: parser.FormatDelimited, Delimiter: "\t", Encoding: parser.EncodingWindows1252}},
		{"bom csv", "x.csv", "\xef\xbb\xbfa,b\n1,2\n", engine.Detection{Format: parser.FormatDelimited, Delimiter: ",", Encoding: parser.EncodingUTF8BOM}},
		{"json lines", "", "{\"a\":1}\n", engine.Detection{Format: parser.FormatJSONLines, Encoding: parser.EncodingUTF8}},
		{"parquet magic", "", "PAR1\x00\x00", engine.Detection{Format: parser.FormatParquet, Encoding: parser.EncodingUTF8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, engine.Detect(tt.file, []byte(tt.sample)))
		})
	}
}

func TestDetection_SessionConfig(t *testing.T) {
	t.Parallel()

	d := engine.Detection{Format: parser.FormatDelimited, Delimiter: "|", Encoding: parser.EncodingISO88591}
	cfg := d.SessionConfig(true)

	assert.Equal(t, engine.SessionConfig{
		Format:    parser.FormatDelimited,
		Delimiter: '|',
		HasHeader: true,
		Encoding:  parser.EncodingISO88591,
	}, cfg)
}
