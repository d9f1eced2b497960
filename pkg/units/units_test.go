package units_test

import (
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/datalens/pkg/units"
)

func TestBinarySizesMatchHumanize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"KiB", units.KiB, humanize.KiByte},
		{"MiB", units.MiB, humanize.MiByte},
		{"GiB", units.GiB, humanize.GiByte},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got, tt.name)
	}
}
