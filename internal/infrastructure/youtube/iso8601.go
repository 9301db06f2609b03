package youtube

import (
	"fmt"
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseDuration converts an ISO-8601 duration such as PT15M33S to seconds.
// The catalog API never emits year or month components for video lengths.
func parseDuration(value string) (int, error) {
	m := durationPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("malformed duration %q", value)
	}

	total := 0
	multipliers := []int{86400, 3600, 60, 1}
	for i, raw := range m[1:] {
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("malformed duration %q: %w", value, err)
		}
		total += n * multipliers[i]
	}

	return total, nil
}
