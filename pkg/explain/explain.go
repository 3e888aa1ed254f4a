// Package explain translates single log messages into plain English for
// support staff.
package explain

import (
	"strings"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// Severity grades an explanation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
)

// Explanation is the plain-English reading of one message.
type Explanation struct {
	Text     string   `json:"text"`
	Action   string   `json:"action,omitempty"`
	Severity Severity `json:"severity"`
}

// keyword is one substring rule over the lowercased message.
type keyword struct {
	match func(m string) bool
	Explanation
}

func has(subs ...string) func(string) bool {
	return func(m string) bool {
		for _, s := range subs {
			if !strings.Contains(m, s) {
				return false
			}
		}
		return true
	}
}

func hasAny(subs ...string) func(string) bool {
	return func(m string) bool {
		for _, s := range subs {
			if strings.Contains(m, s) {
				return true
			}
		}
		return false
	}
}

func rule(match func(string) bool, sev Severity, text, action string) keyword {
	return keyword{match: match, Explanation: Explanation{Text: text, Action: action, Severity: sev}}
}

var keywords = []keyword{
	rule(has("main_watchdog hit"), SeverityCritical, "The app froze or became unresponsive",
		"Ask the user if the app felt slow or frozen. They may need to restart it."),
	rule(hasAny("helper died", "helper crash"), SeverityCritical, "The browser extension crashed",
		"Ask the user to reinstall the browser extension and restart their browser."),
	rule(hasAny("os memory", "low memory"), SeverityWarning, "Computer is running low on memory (RAM)",
		"User may have too many apps open. Suggest closing unused programs."),

	rule(has("uploading screen"), SeverityInfo,
		"Screenshot data is uploading. This does not confirm the image is valid; it may be blank if permissions are missing", ""),
	rule(has("capture screen"), SeverityInfo,
		"Screenshot capture initiated. Image quality depends on screen recording permissions", ""),
	rule(func(m string) bool { return strings.Contains(m, "screenshot") && hasAny("fail", "error")(m) }, SeverityWarning,
		"Screenshot failed to capture or upload",
		"Check the internet connection and screen capture permissions. On macOS: System Settings > Privacy & Security > Screen Recording."),
	rule(has("wrote screendata"), SeverityInfo, "Screenshot data written locally: upload pending", ""),

	rule(hasAny("response: 401", "response: 403"), SeverityCritical, "Authentication failed: user may be logged out",
		"Ask the user to log out and log back in."),
	rule(has("response: 404"), SeverityWarning, "Server couldn't find the requested data",
		"The project or task may have been deleted. Check if it still exists."),
	rule(hasAny("response: 500", "response: 502", "response: 503"), SeverityCritical, "Server error occurred",
		"This is a server-side issue. Check the service status page for outages."),
	rule(has("server error"), SeverityWarning, "Couldn't connect to the servers",
		"Check the user's internet. If it works, check the service status page."),
	rule(hasAny("traffic issue", "network error"), SeverityWarning, "Network connection problem",
		"User may have unstable internet. Ask about WiFi or connection quality."),
	rule(has("timeout"), SeverityWarning, "Request timed out: server took too long",
		"Usually temporary. If persistent, check internet speed."),
}

// lateKeywords run after the discard and resume rules.
var lateKeywords = []keyword{
	rule(has("resume_ignored"), SeverityWarning, "Resume time was auto-discarded by policy",
		"User should open the app periodically to confirm the timer is intentional."),
	rule(has("resume_cancelled"), SeverityInfo, "User chose not to keep resumed time", ""),
	rule(has("resume_detected"), SeverityInfo, "Timer was left running when the app closed: recovering time", ""),
	rule(has("start_ignored"), SeverityWarning, "Timer start was blocked by a policy",
		"Check organization policies: location restriction, limit or schedule."),
	rule(has("tracking_stopped"), SeverityWarning, "Tracking was stopped by the system",
		"Check the surrounding lines for the reason (limit reached, policy, error)."),
	rule(has("resume"), SeverityInfo, "Tracking resumed after interruption", ""),
	rule(has("idle", "wake"), SeverityInfo, "User returned from being idle", ""),
	rule(has("idle"), SeverityInfo, "User went idle (no activity detected)", ""),

	rule(has("startup", "unclean"), SeverityWarning, "App restarted after a crash",
		"Check if time was recovered. Look for RESUME events after this."),
	rule(has("startup", "clean"), SeveritySuccess, "App started normally", ""),

	rule(hasAny("locationmanager", "locationfeature"), SeverityInfo, "Location or job site feature activity", ""),
	rule(has("geofence", "enter"), SeverityInfo, "User entered a job site location", ""),
	rule(has("geofence", "exit"), SeverityInfo, "User left a job site location", "If tracking stopped unexpectedly, this may be why."),
	rule(has("location", "denied"), SeverityWarning, "Location permission was denied",
		"User needs to enable location permissions for job sites to work."),

	rule(has("url:", "title:"), SeverityInfo, "Recorded active window or website", ""),
	rule(has("applicationgrabber"), SeverityInfo, "Detecting active application", ""),
}

var discardReasons = []keyword{
	rule(has("locked"), SeverityCritical, "Time rejected: timesheet is locked or approved", "An admin has locked this timesheet. Time cannot be added."),
	rule(has("future"), SeverityCritical, "Time rejected: computer clock is wrong", "The computer clock is set in the future. Fix the system time."),
	rule(has("duplicate"), SeverityInfo, "Time rejected: already recorded", "This time was already uploaded. No action needed."),
}

var discardDefault = Explanation{
	Text:     "Tracked time was rejected by the server",
	Action:   "Check the specific reason. A manual time entry may be needed.",
	Severity: SeverityCritical,
}

// Explain returns the plain-English reading of a message logged at level.
// ok is false when nothing is known about the message.
func Explain(message string, level parser.Level) (Explanation, bool) {
	if pt, ok := matchLocation(message, level); ok {
		return Explanation{Text: pt.text, Action: pt.action, Severity: levelSeverity(level)}, true
	}

	m := strings.ToLower(message)
	if e, ok := firstKeyword(keywords, m); ok {
		return e, true
	}
	if strings.Contains(m, "discard=1") || strings.Contains(m, "discard=true") {
		if e, ok := firstKeyword(discardReasons, m); ok {
			return e, true
		}
		return discardDefault, true
	}
	if e, ok := firstKeyword(lateKeywords, m); ok {
		return e, true
	}

	switch level {
	case parser.LevelError:
		return Explanation{Text: "An error occurred in the app", Action: "Review the technical details for more context.", Severity: SeverityCritical}, true
	case parser.LevelWarn:
		return Explanation{Text: "Something unexpected happened", Action: "Usually not critical, but worth noting if issues persist.", Severity: SeverityWarning}, true
	}
	return Explanation{}, false
}

// Line classifies a raw log line and explains its message.
func Line(line string) (Explanation, bool) {
	ll := parser.Classify(line)
	return Explain(ll.Message, ll.Level)
}

func matchLocation(message string, level parser.Level) (pattern, bool) {
	if own := levelPatterns(level); own != nil {
		if pt, ok := firstPattern(own, message); ok {
			return pt, true
		}
	}
	for _, table := range allPatterns {
		if pt, ok := firstPattern(table, message); ok {
			return pt, true
		}
	}
	return pattern{}, false
}

func levelPatterns(level parser.Level) []pattern {
	switch level {
	case parser.LevelError:
		return errorPatterns
	case parser.LevelAudit:
		return auditPatterns
	case parser.LevelInfo:
		return infoPatterns
	case parser.LevelTrace:
		return tracePatterns
	}
	return nil
}

func firstPattern(table []pattern, message string) (pattern, bool) {
	for _, pt := range table {
		if pt.re.MatchString(message) {
			return pt, true
		}
	}
	return pattern{}, false
}

func firstKeyword(rules []keyword, m string) (Explanation, bool) {
	for _, k := range rules {
		if k.match(m) {
			return k.Explanation, true
		}
	}
	return Explanation{}, false
}

func levelSeverity(level parser.Level) Severity {
	switch level {
	case parser.LevelError:
		return SeverityCritical
	case parser.LevelWarn:
		return SeverityWarning
	}
	return SeverityInfo
}
