package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses value as a time.Duration, using def when value is
// blank. A blank def is an error rather than a zero duration.
func DurationOrDefault(value, def string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(def)
	}
	if raw == "" {
		return 0, fmt.Errorf("no duration given")
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", raw, err)
	}
	return d, nil
}
