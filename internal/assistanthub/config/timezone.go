package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResolveTimezoneLocation accepts:
// - "" or "Local": the process local zone
// - IANA TZ name, e.g. "Europe/Madrid"
// - fixed offsets, e.g. "+08:00", "-07:00", "+0800", "UTC+8", "GMT+08:00"
func ResolveTimezoneLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, DefaultTimezone) {
		return time.Local, nil
	}
	if strings.EqualFold(tz, "UTC") || strings.EqualFold(tz, "GMT") || tz == "Z" {
		return time.UTC, nil
	}

	if loc, ok, err := parseFixedOffsetTimezone(tz); err != nil {
		return nil, err
	} else if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q (try \"+08:00\" or \"Europe/Madrid\"): %w", tz, err)
	}
	return loc, nil
}

func parseFixedOffsetTimezone(raw string) (*time.Location, bool, error) {
	s := strings.TrimSpace(raw)
	u := strings.ToUpper(s)
	if strings.HasPrefix(u, "UTC") || strings.HasPrefix(u, "GMT") {
		s = strings.TrimSpace(s[3:])
	}
	if s == "" {
		return time.UTC, true, nil
	}

	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	default:
		// Not an offset.
		return nil, false, nil
	}

	bad := fmt.Errorf("invalid timezone offset %q", raw)
	var hours, mins int
	var err error
	switch {
	case strings.Contains(s, ":"):
		parts := strings.Split(s, ":")
		if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
			return nil, false, bad
		}
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return nil, false, bad
		}
		if mins, err = strconv.Atoi(parts[1]); err != nil {
			return nil, false, bad
		}
	case len(s) == 1 || len(s) == 2:
		if hours, err = strconv.Atoi(s); err != nil {
			return nil, false, bad
		}
	case len(s) == 3 || len(s) == 4:
		// "800" or "0800" -> 8:00
		if len(s) == 3 {
			s = "0" + s
		}
		if hours, err = strconv.Atoi(s[:2]); err != nil {
			return nil, false, bad
		}
		if mins, err = strconv.Atoi(s[2:]); err != nil {
			return nil, false, bad
		}
	default:
		return nil, false, bad
	}

	if hours < 0 || hours > 14 || mins < 0 || mins > 59 {
		return nil, false, bad
	}

	offset := sign * (hours*60*60 + mins*60)
	name := fmt.Sprintf("UTC%+03d:%02d", sign*hours, mins)
	return time.FixedZone(name, offset), true, nil
}
