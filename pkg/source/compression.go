package source

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression identifies a stream compression wrapper.
type Compression string

// Supported compressions.
const (
	CompressionNone  Compression = ""
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
	CompressionZstd  Compression = "zstd"
	CompressionXZ    Compression = "xz"
	CompressionLZ4   Compression = "lz4"
)

var compressionExts = map[string]Compression{
	".gz":   CompressionGzip,
	".gzip": CompressionGzip,
	".bz2":  CompressionBzip2,
	".zst":  CompressionZstd,
	".zstd": CompressionZstd,
	".xz":   CompressionXZ,
	".lz4":  CompressionLZ4,
}

var compressionMagic = []struct {
	magic []byte
	kind  Compression
}{
	{[]byte{0x1f, 0x8b}, CompressionGzip},
	{[]byte("BZh"), CompressionBzip2},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, CompressionZstd},
	{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, CompressionXZ},
	{[]byte{0x04, 0x22, 0x4d, 0x18}, CompressionLZ4},
}

// maxMagicLen is the longest compression magic number.
const maxMagicLen = 6

// CompressionFromName returns the compression implied by a file extension.
func CompressionFromName(name string) Compression {
	return compressionExts[strings.ToLower(filepath.Ext(name))]
}

// CompressionFromMagic returns the compression whose magic number prefixes head.
func CompressionFromMagic(head []byte) Compression {
	for _, m := range compressionMagic {
		if !bytes.HasPrefix(head, m.magic) {
			continue
		}

		// bzip2 follows "BZh" with the block size digit.
		if m.kind == CompressionBzip2 && (len(head) < 4 || head[3] < '1' || head[3] > '9') {
			continue
		}

		return m.kind
	}

	return CompressionNone
}

// TrimCompressionExt strips a compression extension, so "sales.csv.gz"
// becomes "sales.csv" for format detection.
func TrimCompressionExt(name string) string {
	if CompressionFromName(name) == CompressionNone {
		return name
	}

	return strings.TrimSuffix(name, filepath.Ext(name))
}

// decompress wraps r in a decoder for kind. The returned close releases the
// decoder, not r.
func decompress(kind Compression, r io.Reader) (io.Reader, func() error, error) {
	noClose := func() error { return nil }

	switch kind {
	case CompressionNone:
		return r, noClose, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: gzip: %w", ErrCompressed, err)
		}

		return gz, gz.Close, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), noClose, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: zstd: %w", ErrCompressed, err)
		}

		return dec, func() error { dec.Close(); return nil }, nil
	case CompressionXZ:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: xz: %w", ErrCompressed, err)
		}

		return xzr, noClose, nil
	case CompressionLZ4:
		return lz4.NewReader(r), noClose, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedCompression, kind)
	}
}
