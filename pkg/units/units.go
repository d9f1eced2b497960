// Package units holds the binary size multipliers used for chunk, sample,
// and buffer limits.
package units

// Binary size multipliers.
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)
