package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// durationPattern is anchored at the start only. Text after the last
// matched component is ignored, and a string with no leading component
// matches with every group empty.
var durationPattern = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?`)

var durationUnits = [...]time.Duration{time.Hour, time.Minute, time.Second}

// ParseDuration parses compact durations such as "1h30m", "45s" or "2h5s".
// Components must appear in h, m, s order and are summed.
// A string without any component ("" or "soon") yields a zero duration.
func ParseDuration(s string) (time.Duration, error) {
	groups := durationPattern.FindStringSubmatch(s)
	if groups == nil {
		return 0, fmt.Errorf("%w: %q, example format: '1h30m'", ErrInvalidDuration, s)
	}

	var total time.Duration
	for i, unit := range durationUnits {
		digits := groups[i+1]
		if digits == "" {
			continue
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || n > int64(math.MaxInt64/unit) {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidDuration, s)
		}
		part := time.Duration(n) * unit
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidDuration, s)
		}
		total += part
	}
	return total, nil
}
