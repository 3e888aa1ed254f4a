package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// firstTimestampProbe is how many leading lines are inspected when ordering
// files by their first timestamp.
const firstTimestampProbe = 20

var boundaryPattern = regexp.MustCompile(`^// === FILE: (.+) \(starts ([^)]*)\) ===$`)

// FirstTimestamp returns the first timestamp found within the first few
// lines of content, or nil.
func FirstTimestamp(content string) *time.Time {
	lines := strings.SplitN(content, "\n", firstTimestampProbe+1)
	if len(lines) > firstTimestampProbe {
		lines = lines[:firstTimestampProbe]
	}
	for _, line := range lines {
		if ts := ParseTimestamp(line); ts != nil {
			return ts
		}
	}
	return nil
}

// BoundaryMarker renders the separator line placed before a merged file.
func BoundaryMarker(name string, start *time.Time) string {
	date := "unknown date"
	if start != nil {
		date = start.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("// === FILE: %s (starts %s) ===", name, date)
}

// IsBoundaryMarker reports whether line is a separator written by MergeFiles.
func IsBoundaryMarker(line string) bool {
	return strings.HasPrefix(line, "// === FILE: ") && boundaryPattern.MatchString(line)
}

// BoundaryName returns the file name carried by a boundary marker.
func BoundaryName(line string) (string, bool) {
	m := boundaryPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MergeFiles orders files oldest first by their first timestamp and joins
// them into one text, each preceded by a boundary marker. Files without a
// timestamp keep their relative order and go last. A single file is
// returned unchanged.
func MergeFiles(files []InputFile) string {
	switch len(files) {
	case 0:
		return ""
	case 1:
		return files[0].Content
	}

	type dated struct {
		file  InputFile
		start *time.Time
	}
	items := make([]dated, len(files))
	for i, f := range files {
		items[i] = dated{file: f, start: FirstTimestamp(f.Content)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].start, items[j].start
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = BoundaryMarker(it.file.Name, it.start) + "\n" + it.file.Content
	}
	return strings.Join(parts, "\n")
}
