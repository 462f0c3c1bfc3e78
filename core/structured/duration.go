package structured

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+(?:-\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// humanDuration renders an ISO-8601 duration such as PT1H30M as
// "1 hour 30 minutes". Minute ranges (PT15-20M) are kept as ranges.
// Zero durations render as "". Anything unparsable is returned unchanged.
func humanDuration(iso string) string {
	raw := strings.TrimSpace(iso)
	m := isoDuration.FindStringSubmatch(strings.ToUpper(raw))
	if m == nil || raw == "P" || raw == "PT" {
		return raw
	}

	days := atoi(m[1])
	hours := atoi(m[2])

	if strings.Contains(m[3], "-") {
		total := days*24 + hours
		if total > 0 {
			return plural(total, "hour") + " " + m[3] + " minutes"
		}
		return m[3] + " minutes"
	}

	minutes := days*24*60 + hours*60 + atoi(m[3])
	if m[4] != "" {
		secs, err := strconv.ParseFloat(m[4], 64)
		if err == nil {
			minutes += int(math.Round(secs / 60))
		}
	}
	return formatMinutes(minutes)
}

func formatMinutes(total int) string {
	h, m := total/60, total%60
	switch {
	case h > 0 && m > 0:
		return plural(h, "hour") + " " + plural(m, "minute")
	case h > 0:
		return plural(h, "hour")
	case m > 0:
		return plural(m, "minute")
	}
	return ""
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
