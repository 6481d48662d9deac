package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// All schedule comparisons happen on UTC minute-of-day offsets.
// A window whose end is earlier than its start spans midnight and is
// satisfied when now >= start OR now <= end.

type ScheduleMode string

const (
	ScheduleAll    ScheduleMode = "all"
	ScheduleCustom ScheduleMode = "custom"
)

type Schedule struct {
	Mode        ScheduleMode
	StartMinute int
	EndMinute   int
}

type BanRule struct {
	Enabled  bool
	Schedule Schedule
}

// ActiveAt reports whether the rule is in force at the given instant.
func (r BanRule) ActiveAt(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	if r.Schedule.Mode != ScheduleCustom {
		return true
	}
	return InWindow(r.Schedule.StartMinute, r.Schedule.EndMinute, MinuteOfDay(now))
}

// ParseClock converts "HH:MM" into a minute-of-day offset.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// InWindow tests a minute-of-day against a window, wrapping over midnight
// when start > end.
func InWindow(start, end, now int) bool {
	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}
