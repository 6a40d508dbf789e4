package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTime parses "HH:MM" or "HH:MM:SS" into seconds after midnight.
// Hours may exceed 23 for service running past midnight.
func ParseTime(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var total int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		if i > 0 && v > 59 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total = total*60 + v
	}
	if len(parts) == 2 {
		total *= 60
	}
	return float64(total), nil
}

// FormatTime renders seconds after midnight as "HH:MM:SS", truncating fractions.
func FormatTime(seconds float64) string {
	if math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return "--:--:--"
	}
	s := int(math.Floor(seconds))
	sign := ""
	if s < 0 {
		sign = "-"
		s = -s
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, s/3600, (s/60)%60, s%60)
}
