package analyzer

import (
	"regexp"
	"strings"
)

var (
	grabberURLPattern   = regexp.MustCompile(`URL:\s*(\S+)`)
	emptyTitlePattern   = regexp.MustCompile(`^\s*TITLE:\s*$`)
	titlePresentPattern = regexp.MustCompile(`TITLE:\s*\S+`)
	titlePattern        = regexp.MustCompile(`TITLE:\s*(.+)`)
	appTagPattern       = regexp.MustCompile(`APP:\s*(.+)`)
	switchedAppPattern  = regexp.MustCompile(`(?i)Switched to app\s*:\s*(.+?)\s+at\s+\d+`)
	forAppPattern       = regexp.MustCompile(`(?i)for App\s*:\s*(.+)`)
	grabberNamePattern  = regexp.MustCompile(`(?i)name:\s*(.+?)\s+binary:`)
	nameKeyPattern      = regexp.MustCompile(`^\s*name\s+["']?(.+?)["']?\s*$`)
)

// appRule is one step of the app extraction chain. The first rule whose
// match reports true ends the chain, even when extract finds nothing.
type appRule struct {
	kind    string
	match   func(line string) bool
	extract func(line string) string
}

// appRules are tried in priority order.
var appRules = []appRule{
	{
		kind: ExtractedURL,
		match: func(line string) bool {
			return strings.Contains(line, "ApplicationGrabber") && strings.Contains(line, "URL:")
		},
		extract: func(line string) string { return firstGroup(grabberURLPattern, line) },
	},
	{
		// Empty TITLE: continuation lines are noise.
		match:   emptyTitlePattern.MatchString,
		extract: func(string) string { return "" },
	},
	{
		kind: ExtractedTitle,
		match: func(line string) bool {
			return strings.Contains(line, "TITLE:") && titlePresentPattern.MatchString(line)
		},
		extract: func(line string) string { return trimmedGroup(titlePattern, line) },
	},
	{
		kind:    ExtractedApp,
		match:   func(line string) bool { return strings.Contains(line, "APP:") },
		extract: func(line string) string { return trimmedGroup(appTagPattern, line) },
	},
	{
		kind:  ExtractedApp,
		match: func(line string) bool { return strings.Contains(line, "Switched to app") },
		extract: func(line string) string {
			name := trimmedGroup(switchedAppPattern, line)
			if strings.Contains(name, "PII_HIDDEN") {
				return ""
			}
			return name
		},
	},
	{
		kind:    ExtractedApp,
		match:   func(line string) bool { return strings.Contains(line, "for App :") },
		extract: func(line string) string { return trimmedGroup(forAppPattern, line) },
	},
	{
		kind: ExtractedApp,
		match: func(line string) bool {
			return strings.Contains(line, "WindowsGrabber") && strings.Contains(line, "name:")
		},
		extract: func(line string) string { return trimmedGroup(grabberNamePattern, line) },
	},
	{
		// PutApplications blocks list one `name "App"` per line.
		kind:  ExtractedApp,
		match: nameKeyPattern.MatchString,
		extract: func(line string) string {
			name := strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(firstGroup(nameKeyPattern, line)))
			if name == "applications" || name == "platform" {
				return ""
			}
			return name
		},
	},
}

// extractApp runs the chain and returns the kind and value found.
func extractApp(line string) (kind, value string, ok bool) {
	for _, rule := range appRules {
		if !rule.match(line) {
			continue
		}
		value = rule.extract(line)
		if value == "" || rule.kind == "" {
			return "", "", false
		}
		return rule.kind, value, true
	}
	return "", "", false
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func trimmedGroup(re *regexp.Regexp, s string) string {
	return strings.TrimSpace(firstGroup(re, s))
}
