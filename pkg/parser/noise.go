package parser

import (
	"regexp"
	"strings"
)

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`WindowsInput\.cpp`),
	regexp.MustCompile(`InputExtension\.h`),
	regexp.MustCompile(`(?i)Heart beat\s*:`),
	regexp.MustCompile(`Response:\s*20[014]\b`),
	regexp.MustCompile(`(?i)Check CURL Response`),
	regexp.MustCompile(`(?i)Storage\.h.*Read`),
}

var signalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[ERROR\]`),
	regexp.MustCompile(`(?i)\[WARN\]`),
	regexp.MustCompile(`(?i)\[AUDIT\]`),
	regexp.MustCompile(`(?i)main_watchdog hit`),
	regexp.MustCompile(`(?i)OS Memory`),
	regexp.MustCompile(`(?i)Helper died`),
	regexp.MustCompile(`(?i)Startup`),
	regexp.MustCompile(`(?i)Discard=`),
	regexp.MustCompile(`(?i)\bResume\b`),
	regexp.MustCompile(`(?i)\bIdle\b`),
	regexp.MustCompile(`(?i)Server Error`),
	regexp.MustCompile(`(?i)Possible traffic issue`),
	regexp.MustCompile(`Response:\s*4\d{2}`),
	regexp.MustCompile(`Response:\s*5\d{2}`),
	regexp.MustCompile(`(?i)Uploading Screen`),
	regexp.MustCompile(`(?i)Capture Screen`),
	regexp.MustCompile(`(?i)Wrote ScreenData`),
	regexp.MustCompile(`(?i)feed:\s*sites`),
	regexp.MustCompile(`(?i)LocationFeatureState`),
	regexp.MustCompile(`(?i)LocationManager`),
	regexp.MustCompile(`(?i)Simulating missed input`),
}

// lineFamily is a high-volume line family that is only worth keeping when
// it carries its keep marker.
type lineFamily struct {
	member *regexp.Regexp
	keep   *regexp.Regexp
}

func (f lineFamily) kept(line string) bool {
	return f.member.MatchString(line) && f.keep.MatchString(line)
}

func (f lineFamily) dropped(line string) bool {
	return f.member.MatchString(line) && !f.keep.MatchString(line)
}

var (
	appGrabberFamily = lineFamily{
		member: regexp.MustCompile(`(?i)ApplicationGrabber`),
		keep:   regexp.MustCompile(`(?i)(URL:|TITLE:)`),
	}
	helperClientFamily = lineFamily{
		member: regexp.MustCompile(`HelperClient\.cpp`),
		keep:   regexp.MustCompile(`(?i)(URL:|APP:|TITLE:)`),
	}
	storageWriteFamily = lineFamily{
		member: regexp.MustCompile(`(?i)StorageIO.*Wrote`),
		keep:   regexp.MustCompile(`(?i)(Location|TrackedActivity)`),
	}
)

// IsSignal reports whether a line is diagnostically significant and must
// survive noise filtering.
func IsSignal(line string) bool {
	for _, p := range signalPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return appGrabberFamily.kept(line) || helperClientFamily.kept(line)
}

// IsNoise reports whether a line belongs to a known high-volume,
// low-value family.
func IsNoise(line string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return helperClientFamily.dropped(line) || storageWriteFamily.dropped(line)
}

// FilterNoise drops blank and noise lines, keeping signal lines, file
// boundary markers and anything unrecognised. Order is preserved.
func FilterNoise(lines []string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if IsBoundaryMarker(line) {
			kept = append(kept, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if IsSignal(line) || !IsNoise(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

// Search returns every line containing term, compared case-insensitively.
func Search(text, term string) []Match {
	matches := []Match{}
	if term == "" {
		return matches
	}
	needle := strings.ToLower(term)
	for i, line := range SplitLines(text) {
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, Match{LineNum: i + 1, Line: line})
		}
	}
	return matches
}
