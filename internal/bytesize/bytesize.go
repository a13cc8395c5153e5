// Package bytesize parses human-readable byte sizes for configuration
// values like the maximum frame size.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize represents a size in bytes that can be unmarshaled from
// human-readable strings like "16Mi", "500Ki", "100MB", or plain numbers.
//
// Supported formats:
//   - Plain numbers: 1024, 16777216
//   - Binary units (×1024): Ki/KiB, Mi/MiB, Gi/GiB
//   - Decimal units (×1000): K/KB, M/MB, G/GB
//   - Bytes: B
type ByteSize uint64

// Common byte size constants
const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
)

// byteSizePattern matches a number followed by an optional unit suffix
var byteSizePattern = regexp.MustCompile(`(?i)^\s*(\d+)\s*([a-z]*)\s*$`)

// unitMultipliers maps unit suffixes to their byte multipliers
var unitMultipliers = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
}

// Parse parses a human-readable byte size string into a ByteSize value.
// It accepts formats like "16Mi", "500Ki", "100MB", "1024", etc.
func Parse(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	matches := byteSizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid byte size format: %q", s)
	}

	num, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in byte size: %q", matches[1])
	}

	multiplier, ok := unitMultipliers[strings.ToLower(matches[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", matches[2])
	}

	return ByteSize(num) * multiplier, nil
}

// UnmarshalText implements encoding.TextUnmarshaler for ByteSize.
// This allows ByteSize to be used directly in structs with mapstructure.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// String returns a human-readable representation of the byte size.
func (b ByteSize) String() string {
	switch {
	case b >= GiB:
		return fmt.Sprintf("%.2fGiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2fMiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2fKiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", b)
	}
}

// Uint64 returns the ByteSize as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Uint32 returns the ByteSize as a uint32, saturating at the maximum.
func (b ByteSize) Uint32() uint32 {
	if b > ByteSize(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(b)
}
