package findings

import (
	"fmt"
	"strings"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
)

// shortSessionSeconds is the cutoff for a suspiciously short USER session.
const shortSessionSeconds = 30

func trackingFindings(in *input, out []Finding) []Finding {
	r := in.r
	tracked := r.TrackedSeconds()
	span := r.LogSpanSeconds()
	dur := analyzer.FormatDuration

	if len(r.Sessions) == 0 {
		return append(out, Finding{
			Severity: SeverityWarning,
			Title:    "No Tracking Sessions Found",
			Description: fmt.Sprintf("The log spans %s but no START_TRACKING/STOP_TRACKING pairs were detected. "+
				"This could mean the timer was never started during this period, or the log file doesn't contain the tracking events.", dur(span)),
			Action: "Check if this is the correct log file for the time period in question.",
		})
	}

	var crashed, idleStops, resumed int
	var userStops []analyzer.Session
	for _, s := range r.Sessions {
		switch s.StopReason {
		case analyzer.StopCrashed, analyzer.StopLogEnd:
			crashed++
		case analyzer.StopIdle:
			idleStops++
		case analyzer.StopUser:
			userStops = append(userStops, s)
		}
		if s.StartReason == analyzer.StartResumed {
			resumed++
		}
	}

	desc := fmt.Sprintf("Found %s totaling %s.", plural(len(r.Sessions), "tracking session"), dur(tracked))
	if resumed > 0 {
		desc += fmt.Sprintf(" %d session(s) were recovered after a crash.", resumed)
	}
	if idleStops > 0 {
		desc += fmt.Sprintf(" %d stopped due to idle timeout.", idleStops)
	}
	f := Finding{
		Severity:    SeverityInfo,
		Title:       "Tracked Time: " + dur(tracked),
		Description: desc,
	}
	if crashed > 0 {
		f.Severity = SeverityWarning
		f.Action = "Some sessions may have ended unexpectedly. Check the sessions table for details."
	}
	out = append(out, f)

	if span > 600 && tracked*10 < span {
		out = append(out, Finding{
			Severity: SeverityInfo,
			Title:    fmt.Sprintf("Log Duration: %s vs Tracked: %s", dur(span), dur(tracked)),
			Description: fmt.Sprintf("The log file spans %s, but only %s was actually tracked. "+
				"The app keeps logging background activity (app focus, URL detection, system monitoring) even when the timer is not running. "+
				"Only time between START and STOP events counts as tracked time.", dur(span), dur(tracked)),
			Action: "The difference does NOT mean time was lost. Background logs help with diagnostics but do not represent paid time.",
		})
	}

	var short []string
	for _, s := range userStops {
		if s.DurationSeconds < shortSessionSeconds {
			short = append(short, fmt.Sprintf("%s -> %s (%ds)", clock(s.Start), clock(s.Stop), s.DurationSeconds))
		}
	}
	if n := len(short); n > 0 {
		out = append(out, Finding{
			Severity: SeverityInfo,
			Title:    fmt.Sprintf("%s (Stopped by USER)", plural(n, "Very Short Session")),
			Description: fmt.Sprintf("Found %s under 30 seconds that ended with stop reason USER. "+
				"USER means the stop was logged as a normal user-initiated stop. A crash or error stop would show CRASHED, CONFIG or a missing stop event instead.",
				plural(n, "session")),
			Action: "If the user disputes stopping manually, this could indicate an accidental click, a mouse/trackpad issue, or another person/process interacting with the app. " +
				"Network errors, CPU usage and timezone issues do NOT cause USER stop events.",
			Detail: strings.Join(short, "\n"),
		})
	}

	crashMarkers := len(filterEvents(r.Errors, func(m string) bool {
		return containsAny(m, "crash", "watchdog", "unclean", "resume_detected")
	})) > 0
	resumeEvents := len(filterEvents(r.Tracking, func(m string) bool {
		return containsAny(m, "resume_detected", "resumed")
	})) > 0
	if !crashMarkers && !resumeEvents && crashed == 0 {
		out = append(out, Finding{
			Severity: SeveritySuccess,
			Title:    "No Crash Indicators Found",
			Description: "The logs show no signs of app crashes, force-quits or unexpected terminations. All sessions have proper START and STOP events. " +
				"A crash would normally leave STARTUP_UNCLEAN, RESUME_DETECTED, watchdog hits or a missing STOP event.",
		})
	}
	return out
}

func idleFinding(in *input, out []Finding) []Finding {
	r := in.r
	if r.IdleKeptSecs == 0 && r.IdleDiscardedSecs == 0 {
		return out
	}
	f := Finding{
		Severity: SeverityInfo,
		Title:    "Idle Time: " + analyzer.FormatDuration(int64(r.IdleKeptSecs+r.IdleDiscardedSecs)),
		Description: fmt.Sprintf("User went idle %d time(s). Kept %s, discarded %s.", len(r.IdleDecisions),
			analyzer.FormatDuration(int64(r.IdleKeptSecs)), analyzer.FormatDuration(int64(r.IdleDiscardedSecs))),
	}
	if r.IdleDiscardedSecs > 0 {
		f.Action = "Discarded idle time does not count toward tracked hours."
	}
	return append(out, f)
}

func timezoneFinding(in *input, out []Finding) []Finding {
	if in.r.Timezone == "" {
		return out
	}
	return append(out, Finding{
		Severity:    SeverityInfo,
		Title:       "Timezone: UTC" + in.r.Timezone,
		Description: "User's computer timezone offset detected from logs.",
	})
}
