package client

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as PT1H2M3S, as used
// by YouTube contentDetails, into seconds. An empty string is zero.
func ParseISODuration(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}

	units := []int64{7 * 24 * 3600, 24 * 3600, 3600, 60, 1}
	var total int64
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
		}
		total += n * unit
	}
	return total, nil
}
