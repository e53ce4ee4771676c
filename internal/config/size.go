package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Size unit multipliers.
const (
	sizeKiB = 1 << 10
	sizeMiB = 1 << 20
	sizeGiB = 1 << 30
)

// ParseSize parses a human-readable size string like "256M", "1G", or a
// bare byte count. Empty input returns 0 (meaning "use the default").
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	upper := strings.ToUpper(s)

	switch {
	case strings.HasSuffix(upper, "K"), strings.HasSuffix(upper, "KB"):
		multiplier = sizeKiB
		upper = strings.TrimSuffix(strings.TrimSuffix(upper, "B"), "K")
	case strings.HasSuffix(upper, "M"), strings.HasSuffix(upper, "MB"):
		multiplier = sizeMiB
		upper = strings.TrimSuffix(strings.TrimSuffix(upper, "B"), "M")
	case strings.HasSuffix(upper, "G"), strings.HasSuffix(upper, "GB"):
		multiplier = sizeGiB
		upper = strings.TrimSuffix(strings.TrimSuffix(upper, "B"), "G")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing size %q: %w", s, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("size %q must not be negative", s)
	}

	return n * multiplier, nil
}
