package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	securityMentionPattern = regexp.MustCompile(`(?i)mcafee|norton|webroot|avast|avg |bitdefender|kaspersky|sophos|malwarebytes|eset |trend micro|crowdstrike|sentinel|virtualbox|vmware|webshield|web.shield|firewall`)
	securityNamePattern    = regexp.MustCompile(`(?i)(McAfee|Norton|Webroot|Avast|AVG|Bitdefender|Kaspersky|Sophos|Malwarebytes|ESET|Trend Micro|CrowdStrike|SentinelOne|VirtualBox|VMware|WebShield|Firewall)`)
	permissionPattern      = regexp.MustCompile(`(?i)screen.?recording.?permission|screen.?capture.?permission|kTCCService|tcc.*screen|CGWindowList.*error|screen.?recording.*denied|cannot.?capture|capture.*denied|accessibility.*denied`)

	macFingerprintPattern = regexp.MustCompile(`(?i)macOS|darwin|CFBundle|NSApplication|kCLError|\.app/Contents`)
	permGrantedPattern    = regexp.MustCompile(`(?i)screen.?recording.*(granted|allowed|enabled|true)`)
)

// helperCrashWindow is how close a helper crash must be to a capture to
// implicate it.
const helperCrashWindow = 60 * time.Second

// excessiveHelperCrashes is the helper-died count treated as a screenshot
// risk on its own.
const excessiveHelperCrashes = 50

// screenshotStreams collects screenshot activity during extraction.
type screenshotStreams struct {
	h ScreenshotHealth
}

func newScreenshotStreams() *screenshotStreams {
	return &screenshotStreams{h: ScreenshotHealth{
		Captures:            []Message{},
		Uploads:             []Message{},
		WriteEvents:         []Message{},
		Failures:            []Message{},
		SleepDuringTracking: []Marker{},
		BlankRiskFactors:    []RiskFactor{},
		SecuritySoftware:    []SecuritySoftware{},
		PermissionIssues:    []Message{},
	}}
}

func (s *screenshotStreams) observe(line, msg string, ts *time.Time) {
	if containsAny(line, "Uploading Screen", "Capture Screen", "ScreenData", "screenshot", "Screenshot") {
		lower := strings.ToLower(line)
		m := Message{Timestamp: ts, Msg: msg}
		if strings.Contains(lower, "capture screen") {
			s.h.Captures = append(s.h.Captures, m)
		}
		if strings.Contains(lower, "uploading screen") {
			s.h.Uploads = append(s.h.Uploads, m)
		}
		if strings.Contains(lower, "screendata") {
			s.h.WriteEvents = append(s.h.WriteEvents, m)
		}
		if strings.Contains(lower, "screen") && containsAny(lower, "fail", "error", "denied", "permission") {
			s.h.Failures = append(s.h.Failures, m)
		}
	}

	if securityMentionPattern.MatchString(line) {
		if name := firstGroup(securityNamePattern, line); name != "" {
			s.h.SecuritySoftware = append(s.h.SecuritySoftware, SecuritySoftware{Timestamp: ts, Name: name})
		}
	}

	if permissionPattern.MatchString(line) {
		s.h.PermissionIssues = append(s.h.PermissionIssues, Message{Timestamp: ts, Msg: msg})
	}
}

func (s *screenshotStreams) health() *ScreenshotHealth {
	h := s.h
	return &h
}

// platformProbe looks at every line, regardless of level, for a macOS
// fingerprint and a screen-recording permission grant.
type platformProbe struct {
	mac           bool
	permConfirmed bool
}

func newPlatformProbe() *platformProbe { return &platformProbe{} }

func (p *platformProbe) Name() string { return "platform" }

func (p *platformProbe) Process(l *scanLine) {
	if !p.mac && macFingerprintPattern.MatchString(l.Raw) {
		p.mac = true
	}
	if !p.permConfirmed && permGrantedPattern.MatchString(l.Raw) {
		p.permConfirmed = true
	}
}

func (p *platformProbe) Finalize(*Result) {}

// window is a raw START_TRACKING..STOP_TRACKING interval.
type window struct {
	start, end time.Time
}

func (w window) contains(ts time.Time) bool {
	return !ts.Before(w.start) && !ts.After(w.end)
}

// assessScreenshots cross-references the screenshot streams with
// silent-app crash and sleep data and ranks blank-screenshot risks.
func assessScreenshots(r *Result, windows []window, probe *platformProbe) {
	sh := r.ScreenshotHealth
	sa := r.SilentApp

	if sa.Detected {
		for _, cd := range sa.CaptureDesktop {
			if cd.Timestamp == nil {
				continue
			}
			for _, w := range windows {
				if w.contains(*cd.Timestamp) {
					sh.SleepDuringTracking = append(sh.SleepDuringTracking, Marker{Timestamp: cd.Timestamp})
					break
				}
			}
		}

		for _, hd := range sa.HelperDiedEvents {
			for _, c := range sh.Captures {
				if hd.Timestamp == nil || c.Timestamp == nil {
					continue
				}
				if absDuration(c.Timestamp.Sub(*hd.Timestamp)) < helperCrashWindow {
					sh.HelperCrashNearCapture++
				}
			}
		}
	}

	sh.SecuritySoftware = dedupeSoftware(sh.SecuritySoftware)
	sh.BlankRiskFactors = blankRiskFactors(sh, sa, probe)
}

func dedupeSoftware(in []SecuritySoftware) []SecuritySoftware {
	seen := make(map[string]bool, len(in))
	out := make([]SecuritySoftware, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(s.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func blankRiskFactors(sh *ScreenshotHealth, sa *SilentApp, probe *platformProbe) []RiskFactor {
	factors := []RiskFactor{}
	add := func(sev Severity, reason, detail string, args ...any) {
		factors = append(factors, RiskFactor{Reason: reason, Detail: fmt.Sprintf(detail, args...), Severity: sev})
	}

	if len(sh.Uploads) > 0 && len(sh.Captures) == 0 {
		add(SeverityWarning, "Uploads Without Captures",
			"Found %d upload events but no capture events. The app may be uploading placeholder/blank images.",
			len(sh.Uploads))
	}
	if n := len(sh.SleepDuringTracking); n > 0 {
		add(SeverityWarning, "Screen Sleep During Tracking",
			"The monitor went to sleep %d time(s) while tracking was active. Screenshots captured during or after screen sleep will be blank/black.",
			n)
	}
	if len(sh.SecuritySoftware) > 0 {
		names := make([]string, len(sh.SecuritySoftware))
		for i, s := range sh.SecuritySoftware {
			names[i] = s.Name
		}
		add(SeverityWarning, "Security Software Detected",
			"Found %s in logs. Antivirus, web-shield, and internet security software are known to interfere with Hubstaff's screenshot function, causing blank or black images.",
			strings.Join(names, ", "))
	}
	if n := len(sh.PermissionIssues); n > 0 {
		add(SeverityCritical, "Screen Recording Permission Issue",
			"Found %d permission-related event(s). On macOS, if screen recording permission is not granted, all screenshots will appear as blank desktop backgrounds without any window content.",
			n)
	}
	if sa.Detected && sa.HelperDied >= excessiveHelperCrashes {
		add(SeverityWarning, "Excessive Helper Crashes",
			"The helper process (which captures screenshots) crashed %d times. This can cause missed or corrupted screenshots.",
			sa.HelperDied)
	}
	if sh.HelperCrashNearCapture > 0 {
		add(SeverityCritical, "Helper Crashes Near Capture",
			"The helper process crashed %d time(s) within 60 seconds of a screenshot capture. These screenshots are likely blank or missing.",
			sh.HelperCrashNearCapture)
	}
	if sa.Detected {
		n := 0
		for _, h := range sa.HTTP429s {
			if strings.Contains(h.Msg, "/screens") {
				n++
			}
		}
		if n > 0 {
			add(SeverityWarning, "Screenshot Upload Rate Limited",
				"%d HTTP 429 rate limit responses on the /screens endpoint. Rate-limited screenshots may fail to upload or appear as missing in the dashboard.",
				n)
		}
	}
	if n := len(sh.Failures); n > 0 {
		add(SeverityCritical, "Screenshot Capture/Upload Failures",
			"%d explicit screenshot failure(s) detected in the logs.", n)
	}
	if probe.mac && len(sh.Uploads) > 0 && !probe.permConfirmed && len(sh.PermissionIssues) == 0 {
		add(SeverityInfo, "macOS: No Screen Recording Permission Confirmation",
			"This appears to be a macOS device with screenshot uploads, but no log confirmation that screen recording permission was granted. "+
				"On macOS 10.15+ without this permission, Hubstaff captures screenshots that show only the desktop wallpaper with no windows or content. "+
				"The user or their IT admin needs to grant Screen Recording permission in System Settings > Privacy & Security.")
	}
	return factors
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
