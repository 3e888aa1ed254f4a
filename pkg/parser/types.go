// Package parser provides log file reading, line classification and noise
// filtering for time-tracker client logs.
package parser

import "time"

// Level is the severity tag found in a bracketed marker such as "[ERROR]".
type Level string

// Recognised levels. Anything without a marker is LevelUnknown.
const (
	LevelError   Level = "ERROR"
	LevelWarn    Level = "WARN"
	LevelAudit   Level = "AUDIT"
	LevelInfo    Level = "INFO"
	LevelDebug   Level = "DEBUG"
	LevelTrace   Level = "TRACE"
	LevelUnknown Level = "UNKNOWN"
)

// LogLine is the result of classifying one raw line.
type LogLine struct {
	// Timestamp is the leading "YYYY-MM-DD HH:MM:SS" stamp, read as UTC.
	// Nil when the line has no stamp or the date is not a real date.
	Timestamp *time.Time

	// Level is the first bracketed level marker found in the line.
	Level Level

	// Source is the "file.ext:line" token following the level marker.
	Source string

	// Message is the text after the source token, or the whole line.
	Message string
}

// InputFile is one named log blob, as read from disk or received over the API.
type InputFile struct {
	// Name is the display name used in boundary markers.
	Name string

	// Content is the full text of the file.
	Content string
}

// Match is one hit returned by Search.
type Match struct {
	// LineNum is the 1-based line number within the searched text.
	LineNum int

	// Line is the matching line.
	Line string
}
