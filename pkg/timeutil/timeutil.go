package timeutil

import (
	"fmt"
	"time"
)

// Relative formats t relative to now ("5 minutes ago", "in 2 hours").
// Times within a second of now are reported as "just now".
func Relative(t time.Time) string {
	return RelativeTo(t, time.Now())
}

// RelativeTo formats t relative to the given reference time.
func RelativeTo(t, now time.Time) string {
	d := now.Sub(t)
	past := d >= 0
	if !past {
		d = -d
	}

	if d < time.Second {
		return "just now"
	}

	var phrase string
	switch {
	case d < time.Minute:
		phrase = plural(int(d.Seconds()), "second")
	case d < time.Hour:
		phrase = plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		phrase = plural(int(d.Hours()), "hour")
	default:
		phrase = plural(int(d.Hours()/24), "day")
	}

	if past {
		return phrase + " ago"
	}
	return "in " + phrase
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
