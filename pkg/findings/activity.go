package findings

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
)

var (
	serverErrorPattern = regexp.MustCompile(`(?i)response:\s*5\d{2}`)
	authErrorPattern   = regexp.MustCompile(`(?i)response:\s*(401|403)`)
)

func injectedFindings(in *input, out []Finding) []Finding {
	inj := in.r.Injected
	if len(inj) == 0 {
		return out
	}

	var simulated, onlyInjected, regular, injectedDetail []string
	for _, e := range inj {
		lower := strings.ToLower(e.Message)
		if e.OnlyInjected || strings.Contains(lower, "only injected") {
			onlyInjected = append(onlyInjected, e.Message)
		}
		if e.InputType == analyzer.InputSimulated || strings.Contains(lower, "simulating missed input") {
			simulated = append(simulated, fmt.Sprintf("%s: %s", clock(e.Timestamp), clip(e.Message, 80)))
		}
		if e.InputType == analyzer.InputInjected {
			if !e.OnlyInjected {
				regular = append(regular, e.Message)
			}
			detail := e.Detail
			if detail == "" {
				detail = clip(e.Message, 80)
			}
			injectedDetail = append(injectedDetail, fmt.Sprintf("%s: %s", clock(e.Timestamp), detail))
		}
	}

	if n := len(simulated); n > 0 {
		f := Finding{
			Severity: SeverityInfo,
			Title:    fmt.Sprintf("Simulated Input: %d Events", n),
			Description: fmt.Sprintf(`Detected %s "Simulating missed input". The app detected activity but couldn't identify the source device. `+
				"This typically indicates a hardware recognition issue, not cheating.", plural(n, "event")),
			Action: "Some simulated input detected. If activity rates seem unusually high, check for drawing tablets, touchscreens or unusual peripherals.",
			Detail: "Common causes: drawing tablets, stylus/touchscreens, KVM switches, USB hubs, non-standard mice.\n\nSample events:\n" +
				strings.Join(simulated[:min(3, n)], "\n"),
		}
		if n > 50 {
			f.Severity = SeverityWarning
			f.Action = "Likely hardware issue causing high activity. Ask the user to list ALL connected devices, disconnect everything except mouse and keyboard, " +
				"monitor activity for 10 minutes, then reconnect devices one by one to isolate the problem device."
		}
		out = append(out, f)
	}

	if total := len(onlyInjected) + len(regular); total > 0 {
		desc := fmt.Sprintf("Detected %s.", plural(total, "injected input event"))
		if len(onlyInjected) > 0 {
			desc += fmt.Sprintf(" %d showed ONLY injected input (no real input alongside), which is more suspicious.", len(onlyInjected))
		}
		f := Finding{
			Severity:    SeverityInfo,
			Title:       fmt.Sprintf("Injected Input: %d Events", total),
			Description: desc + " Common legitimate causes: remote desktop, accessibility tools, automation software, gaming peripherals with macros.",
			Action:      "Some injected input detected. This is often normal; check the injected input section for details.",
			Detail:      strings.Join(injectedDetail[:min(5, len(injectedDetail))], "\n"),
		}
		if len(onlyInjected) > 10 {
			f.Severity = SeverityWarning
			f.Action = `High number of "only injected" events. Check if the user is running remote desktop or automation tools, and review screenshots for repeated patterns.`
		}
		out = append(out, f)
	}
	return out
}

func locationFindings(in *input, out []Finding) []Finding {
	locs := in.r.Locations
	nonPrimary := filterEvents(locs, func(m string) bool { return containsAny(m, "not primary", "non-primary") })
	unavailable := filterEvents(locs, func(m string) bool { return containsAny(m, "unavailable", "denied") })
	mustVisit := filterEvents(locs, func(m string) bool { return strings.Contains(m, "must visit") })
	simulated := filterEvents(locs, func(m string) bool { return strings.Contains(m, "simulated location") })

	var enters, exits, autoActions int
	for _, e := range locs {
		if strings.Contains(e.Message, "ENTER") {
			enters++
		}
		if strings.Contains(e.Message, "EXIT") {
			exits++
		}
		lower := strings.ToLower(e.Message)
		if strings.Contains(lower, "auto-start") {
			autoActions++
		}
		if strings.Contains(lower, "auto-stop") {
			autoActions++
		}
	}

	if n := len(nonPrimary); n > 0 {
		out = append(out, Finding{
			Severity: SeverityWarning,
			Title:    "Non-Primary Device Issues",
			Description: fmt.Sprintf("Found %s where actions were blocked because this isn't the primary device. "+
				"Only the primary device can record locations and trigger job site automations.", plural(n, "event")),
			Action: `Have the user tap the "Make Primary" banner on the Timer screen, or check which device is primary in Admin > User > Primary Device.`,
			Detail: eventLines(nonPrimary, 3, 100),
		})
	}
	if n := len(unavailable); n > 0 {
		out = append(out, Finding{
			Severity: SeverityCritical,
			Title:    "Location Unavailable",
			Description: fmt.Sprintf("Found %s where location was unavailable. This prevents job site features and may block tracking "+
				`if "Restrict timer to job sites" is enabled.`, plural(n, "event")),
			Action: "iOS: turn Location Services on and set the app to Always with Precise Location. " +
				`Android: grant location with "Allow all the time" and High Accuracy mode.`,
			Detail: eventLines(unavailable, 3, 100),
		})
	}
	if n := len(mustVisit); n > 0 {
		out = append(out, Finding{
			Severity: SeverityCritical,
			Title:    "Timer Blocked: Not At Job Site",
			Description: fmt.Sprintf("Found %s to start the timer that were blocked because the user wasn't at a job site. "+
				`The organization has "Restrict timer to job sites" enabled.`, plural(n, "attempt")),
			Action: "User must be physically at a configured job site to start tracking. If they ARE at the site, this could be a GPS accuracy issue; " +
				"consider increasing the job site radius to 100-150m.",
			Detail: eventLines(mustVisit, 3, 100),
		})
	}
	if n := len(simulated); n > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Fake/Simulated Locations Detected",
			Description: fmt.Sprintf("Found %s that were blocked. The user may be using a GPS spoofing app.", plural(n, "simulated (fake) location")),
			Action:      "Fake locations are blocked. If legitimate, the user may have a developer/mock location app enabled that needs to be disabled.",
			Detail:      eventLines(simulated, 3, 100),
		})
	}
	if enters > 0 || exits > 0 {
		var parts []string
		if enters > 0 {
			parts = append(parts, plural(enters, "site entry event"))
		}
		if exits > 0 {
			parts = append(parts, plural(exits, "site exit event"))
		}
		desc := strings.Join(parts, " and ")
		if autoActions > 0 {
			desc += fmt.Sprintf(". %s triggered.", plural(autoActions, "automation action"))
		}
		out = append(out, Finding{Severity: SeveritySuccess, Title: "Job Site Activity Detected", Description: desc})
	}
	return out
}

func errorFindings(in *input, out []Finding) []Finding {
	r := in.r

	if hits := filterEvents(r.Errors, func(m string) bool { return strings.Contains(m, "watchdog") }); len(hits) > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       fmt.Sprintf("App Froze %s", plural(len(hits), "Time")),
			Description: "The app became unresponsive and had to recover. This can cause gaps in tracking.",
			Action:      "Ask the user if the app felt slow or frozen. They may need to restart the app or their computer.",
			Detail:      eventLines(hits, 3, 100),
		})
	}
	if hits := filterEvents(r.Errors, func(m string) bool { return containsAny(m, "helper died", "helper crash") }); len(hits) > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Browser Extension Crashed",
			Description: "The browser extension helper stopped working. This affects URL and app tracking.",
			Action:      "Have the user reinstall the browser extension and restart their browser.",
			Detail:      eventLines(hits, 3, 100),
		})
	}

	server := matching(r.Network, serverErrorPattern)
	if n := len(server); n > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       fmt.Sprintf("%s Detected", plural(n, "Server Error")),
			Description: "The servers returned errors. This may have prevented data from uploading.",
			Action:      "Check the service status page for any reported outages during this time period.",
			Detail:      eventLines(server, 3, 100),
		})
	}
	if auth := matching(r.Network, authErrorPattern); len(auth) > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Authentication Problems",
			Description: "The user's login session may have expired or their permissions changed.",
			Action:      "Have the user log out completely and log back in.",
			Detail:      eventLines(auth, 3, 100),
		})
	}

	discards := filterEvents(r.Warnings, func(m string) bool { return strings.Contains(m, "discard=") })
	if locked := filterEvents(discards, func(m string) bool { return strings.Contains(m, "locked") }); len(locked) > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Time Rejected: Timesheet Locked",
			Description: "Some tracked time was rejected because the timesheet was already approved/locked.",
			Action:      "An admin needs to unlock the timesheet, or time must be added to a different date.",
			Detail:      eventLines(locked, 3, 100),
		})
	}
	if future := filterEvents(discards, func(m string) bool { return strings.Contains(m, "future") }); len(future) > 0 {
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Time Rejected: Clock Problem",
			Description: "Time was rejected because the computer's clock was set incorrectly (in the future).",
			Action:      "Have the user check their system date/time settings and enable automatic time.",
			Detail:      eventLines(future, 3, 100),
		})
	}

	if mem := filterEvents(r.Warnings, func(m string) bool { return strings.Contains(m, "memory") }); len(mem) > 0 {
		out = append(out, Finding{
			Severity:    SeverityWarning,
			Title:       "Low Memory Warnings",
			Description: "The computer was running low on memory (RAM), which can slow down the app.",
			Action:      "Suggest the user close unused programs or browser tabs.",
			Detail:      eventLines(mem, 3, 100),
		})
	}
	if denied := filterEvents(r.Locations, func(m string) bool { return containsAny(m, "denied", "restricted") }); len(denied) > 0 {
		out = append(out, Finding{
			Severity:    SeverityWarning,
			Title:       "Location Permission Issues",
			Description: "Location permissions were denied. Job site features won't work properly.",
			Action:      `Have the user enable "Always" location permission for the app in their device settings.`,
			Detail:      eventLines(denied, 3, 100),
		})
	}
	return out
}

func braveFinding(in *input, out []Finding) []Finding {
	var hits []string
	for _, e := range in.r.Apps {
		if containsAny(strings.ToLower(e.Extracted), "brave") ||
			containsAny(strings.ToLower(e.Raw), "brave") ||
			containsAny(strings.ToLower(e.Message), "brave") {
			name := e.Extracted
			if name == "" {
				name = "Brave Browser"
			}
			hits = append(hits, fmt.Sprintf("%s: %s", clock(e.Timestamp), name))
		}
	}
	if len(hits) == 0 && !in.p.BraveInLogs {
		return out
	}
	detail := "Detected in PutApplications block"
	if len(hits) > 0 {
		detail = strings.Join(hits[:min(3, len(hits))], "\n")
	}
	return append(out, Finding{
		Severity: SeverityWarning,
		Title:    "Brave Browser Detected: URL Tracking Not Supported",
		Description: "Brave Browser usage detected in logs. URL tracking is not supported in Brave Browser. " +
			"The app name will be tracked, but visited URLs will not appear in reports.",
		Action: "For URL tracking on Windows, switch to a supported browser: Google Chrome, Microsoft Edge, Firefox or Island Browser.",
		Detail: detail,
	})
}

func screenshotFinding(in *input, out []Finding) []Finding {
	r := in.r
	n := len(r.Screenshots)
	if n == 0 {
		return out
	}
	sh := r.ScreenshotHealth
	if sh == nil {
		sh = &analyzer.ScreenshotHealth{}
	}

	explicitFail := len(filterEvents(r.Screenshots, func(m string) bool { return containsAny(m, "fail", "error") })) > 0
	switch {
	case explicitFail:
		lines := make([]string, 0, 3)
		for i, f := range sh.Failures {
			if i == 3 {
				break
			}
			lines = append(lines, fmt.Sprintf("%s: %s", clock(f.Timestamp), f.Msg))
		}
		return append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Screenshot Capture/Upload Failures",
			Description: "Explicit screenshot errors found in the logs. Some screenshots may be missing from the dashboard.",
			Action:      "Check screen capture permissions and internet connection. On macOS: System Settings > Privacy & Security > Screen Recording.",
			Detail:      strings.Join(lines, "\n"),
		})
	case len(sh.BlankRiskFactors) > 0:
		reasons := make([]string, len(sh.BlankRiskFactors))
		details := make([]string, len(sh.BlankRiskFactors))
		for i, f := range sh.BlankRiskFactors {
			reasons[i] = f.Reason
			details[i] = fmt.Sprintf("%s: %s. %s", strings.ToUpper(string(f.Severity)), f.Reason, f.Detail)
		}
		sev := SeverityWarning
		if sh.HasCriticalRisk() {
			sev = SeverityCritical
		}
		return append(out, Finding{
			Severity: sev,
			Title:    fmt.Sprintf("%d Screenshots Uploading, But May Be Blank", n),
			Description: fmt.Sprintf("The logs show screenshot events, but %d risk factor(s) suggest the images may be blank or black: %s. "+
				"Check the Activity page in the dashboard to verify.", len(reasons), strings.Join(reasons, ", ")),
			Action: "Verify screenshots on the dashboard Activity page. If blank: on macOS, check Screen Recording permission. " +
				"On Windows, check for McAfee, Norton, Webroot or VirtualBox interference.",
			Detail: strings.Join(details, "\n"),
		})
	default:
		return append(out, Finding{
			Severity:    SeveritySuccess,
			Title:       fmt.Sprintf("%d Screenshots Captured", n),
			Description: "Screenshots were captured and uploaded successfully during this period. No blank screenshot risk factors detected.",
		})
	}
}

func matching(events []analyzer.Event, re *regexp.Regexp) []analyzer.Event {
	out := []analyzer.Event{}
	for _, e := range events {
		if re.MatchString(e.Message) {
			out = append(out, e)
		}
	}
	return out
}
