package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout of the stamp that opens each client line.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	timestampPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})`)
	sourcePattern    = regexp.MustCompile(`\]\s+(\w+\.\w+:\d+)`)
	messagePattern   = regexp.MustCompile(`\]\s+\w+\.\w+:\d+\s+(.+)$`)

	tzExplicitPattern = regexp.MustCompile(`(?i)TZ Offset\s*:\s*(-?)(\d{2}):(\d{2})`)
	tzTrailingPattern = regexp.MustCompile(`([+-]\d{2}:?\d{2})\s*$`)
	tzInlinePattern   = regexp.MustCompile(`\s([+-]\d{4})\s`)
)

// levelMarkers is checked in order; the first marker present wins.
var levelMarkers = []struct {
	marker string
	level  Level
}{
	{"[ERROR]", LevelError},
	{"[WARN]", LevelWarn},
	{"[AUDIT]", LevelAudit},
	{"[INFO]", LevelInfo},
	{"[DEBUG]", LevelDebug},
	{"[TRACE]", LevelTrace},
}

// Classify extracts timestamp, level, source and message from a raw line.
// It never fails: missing fields come back empty.
func Classify(line string) LogLine {
	return LogLine{
		Timestamp: ParseTimestamp(line),
		Level:     ParseLevel(line),
		Source:    ParseSource(line),
		Message:   ParseMessage(line),
	}
}

// ParseTimestamp reads the leading date and time of a line as UTC.
func ParseTimestamp(line string) *time.Time {
	m := timestampPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	ts, err := time.ParseInLocation(TimestampLayout, m[1]+" "+m[2], time.UTC)
	if err != nil {
		return nil
	}
	return &ts
}

// ParseLevel returns the first level marker found in the line.
func ParseLevel(line string) Level {
	for _, lm := range levelMarkers {
		if strings.Contains(line, lm.marker) {
			return lm.level
		}
	}
	return LevelUnknown
}

// ParseSource returns the "file.ext:line" token after the level marker.
func ParseSource(line string) string {
	if m := sourcePattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// ParseMessage returns the text after the source token, or the whole line.
func ParseMessage(line string) string {
	if m := messagePattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return line
}

// ParseTimezone extracts a UTC offset in "±HH:MM" form. An explicit
// "TZ Offset:" declaration is preferred over a trailing or inline offset.
// It returns "" when the line carries no offset.
func ParseTimezone(line string) string {
	if m := tzExplicitPattern.FindStringSubmatch(line); m != nil {
		sign := "+"
		if m[1] == "-" {
			sign = "-"
		}
		return sign + m[2] + ":" + m[3]
	}
	if m := tzTrailingPattern.FindStringSubmatch(line); m != nil {
		tz := m[1]
		if !strings.Contains(tz, ":") {
			tz = tz[:3] + ":" + tz[3:]
		}
		return tz
	}
	if m := tzInlinePattern.FindStringSubmatch(line); m != nil {
		return m[1][:3] + ":" + m[1][3:]
	}
	return ""
}

// IsExplicitTimezone reports whether the line declares its offset with
// "TZ Offset:", which overrides any offset seen earlier.
func IsExplicitTimezone(line string) bool {
	return strings.Contains(line, "TZ Offset")
}

// ParseTZOffset converts "+05:30", "-8" or "5.5" into a duration.
func ParseTZOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}

	sign := time.Duration(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return 0, fmt.Errorf("invalid offset hours %q: %w", h, err)
		}
		mins, err := strconv.Atoi(m)
		if err != nil {
			return 0, fmt.Errorf("invalid offset minutes %q: %w", m, err)
		}
		return sign * (time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute), nil
	}

	hours, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return sign * time.Duration(hours*float64(time.Hour)), nil
}

// FormatTZOffset renders a duration as "UTC±HH:MM".
func FormatTZOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("UTC%s%02d:%02d", sign, h, m)
}

// SplitLines splits text on LF, dropping a trailing CR from each line.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
