package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ccollicutt/logdoctor/pkg/netblock"
)

var (
	enterprisePathPattern  = regexp.MustCompile(`installed:\s*(.+?)[\r\n]*$`)
	corporateUserPattern   = regexp.MustCompile(`for user:\s*(.+?)[\r\n]*$`)
	clientVersionPattern   = regexp.MustCompile(`Version:\s*([\d.]+[^\s\r\n]*)`)
	runningVersionPattern  = regexp.MustCompile(`Running Current Version:\s*([\d.]+[^\s\r\n]*)`)
	spacedVersionPattern   = regexp.MustCompile(`Version\s*:\s*([\d.]+[^\s\r\n]*)`)
	resumeDurationPattern  = regexp.MustCompile(`Duration:\s*([\d:]+)`)
	resumeStartPattern     = regexp.MustCompile(`Start time:\s*([^\r\n]+)`)
	resumeStartTimePattern = regexp.MustCompile(`StartTime:\s*([^\r\n]+)`)
	systemMemPattern       = regexp.MustCompile(`System Mem:\s*(\d+)\s*/\s*(\d+)`)
	pagefilePattern        = regexp.MustCompile(`Pagefile:\s*(\d+)\s*/\s*(\d+)`)
	workingSetPattern      = regexp.MustCompile(`WorkingSet:\s*(\d+)\s*/\s*(\d+)`)
	thresholdKeepPattern   = regexp.MustCompile(`keep\s+([\d:]+)`)
	thresholdDropPattern   = regexp.MustCompile(`discard\s+([\d:]+)`)
)

// excerptLen bounds, in runes, the message text kept for SSL, 429 and stop
// errors.
const excerptLen = 200

// silentScanner is the silent-app lifecycle pass. Detection is sticky:
// once a corporate marker is seen, every later line is examined.
type silentScanner struct {
	sa        SilentApp
	users     *userRegistry
	threshold thresholdLatch
	lastTs    *time.Time
}

func newSilentScanner() *silentScanner {
	return &silentScanner{
		sa: SilentApp{
			Startups:           []Startup{},
			Shutdowns:          []Shutdown{},
			AuthEvents:         []AuthEvent{},
			Resumes:            []Resume{},
			CaptureDesktop:     []Marker{},
			HelperDiedEvents:   []Marker{},
			StopErrors:         []Message{},
			SystemMemSnapshots: []MemorySnapshot{},
			AutoStartStops:     []AutoStartStop{},
			DoubleStarts:       []Marker{},
			SSLErrors:          []Message{},
			HTTP429s:           []Message{},
			PendingDetected:    []Marker{},
			NetworkBlocks:      netblock.NewBlocks(),
		},
		users: newUserRegistry(),
	}
}

func (s *silentScanner) Name() string { return "silent-app" }

func (s *silentScanner) Process(l *scanLine) {
	line := l.Raw
	ts := l.ts()
	if ts != nil {
		s.lastTs = ts
	}

	s.detect(line)
	if !s.sa.Detected {
		return
	}

	s.version(line)
	s.lifecycle(line, ts)
	s.auth(line, ts)
	s.resume(line, ts)
	s.memory(line, ts)
	s.threshold.observe(line)
	s.autoStartStop(line, ts)
	s.network(line, ts)
}

func (s *silentScanner) detect(line string) {
	sa := &s.sa
	if containsAny(line, "ENTERPRISE_INSTALL", "enterprise.profile", "Corporate") {
		sa.Detected = true
		if sa.EnterpriseProfile == "" && strings.Contains(line, "ENTERPRISE_INSTALL") {
			sa.EnterpriseProfile = "Detected"
			if p := trimmedGroup(enterprisePathPattern, line); p != "" {
				sa.EnterpriseProfile = p
			}
		}
	}
	if containsAny(line, "CORPORATE_LOGIN", "CORPORATE_PROVISION") {
		sa.Detected = true
		if strings.Contains(line, "CORPORATE_LOGIN") {
			if u := trimmedGroup(corporateUserPattern, line); u != "" {
				sa.CorporateUser = u
			}
		}
	}
	if strings.Contains(line, "profile") && strings.Contains(line, "corporate") {
		sa.Detected = true
	}
}

// version keeps the first version found across the three label styles.
func (s *silentScanner) version(line string) {
	if s.sa.Version != "" {
		return
	}
	switch {
	case strings.Contains(line, "Client Version:") || strings.Contains(line, "Core Version:"):
		s.sa.Version = firstGroup(clientVersionPattern, line)
	case strings.Contains(line, "Running Current Version:"):
		s.sa.Version = firstGroup(runningVersionPattern, line)
	case strings.Contains(line, "Version :"):
		s.sa.Version = firstGroup(spacedVersionPattern, line)
	}
}

func (s *silentScanner) lifecycle(line string, ts *time.Time) {
	sa := &s.sa
	switch {
	case strings.Contains(line, "STARTUP_CLEAN"):
		sa.Startups = append(sa.Startups, Startup{Timestamp: ts, Type: StartupClean})
	case strings.Contains(line, "STARTUP_UNCLEAN"):
		sa.Startups = append(sa.Startups, Startup{Timestamp: ts, Type: StartupUnclean})
	}

	if strings.Contains(line, "(SHUTDOWN)") {
		sa.Shutdowns = append(sa.Shutdowns, Shutdown{Timestamp: ts, Reason: "CLEAN"})
	}

	if strings.Contains(line, "CAPTURE_DESKTOP") && strings.Contains(line, "No monitors detected") {
		sa.CaptureDesktop = append(sa.CaptureDesktop, Marker{Timestamp: ts})
	}

	if strings.Contains(line, "Helper died") {
		sa.HelperDied++
		sa.HelperDiedEvents = append(sa.HelperDiedEvents, Marker{Timestamp: ts})
	}

	if strings.Contains(line, "STOP_ERROR") {
		sa.StopErrors = append(sa.StopErrors, Message{Timestamp: ts, Msg: excerpt(line)})
	}

	if strings.Contains(line, "PENDING_DETECTED") {
		sa.PendingDetected = append(sa.PendingDetected, Marker{Timestamp: ts})
	}
}

func (s *silentScanner) auth(line string, ts *time.Time) {
	sa := &s.sa
	switch {
	case strings.Contains(line, "AUTH_TOKEN"):
		email, id, ok := parseTokenUser(line)
		sa.AuthEvents = append(sa.AuthEvents, AuthEvent{Timestamp: ts, Type: AuthToken, User: email, UserID: id})
		if ok {
			s.users.observe(email, id, ts)
		}
	case strings.Contains(line, "AUTH_OFFLINE"):
		sa.AuthEvents = append(sa.AuthEvents, AuthEvent{Timestamp: ts, Type: AuthOffline})
	}

	if strings.Contains(line, "CORPORATE_PROVISION_ATTEMPT_FAILED") {
		sa.AuthEvents = append(sa.AuthEvents, AuthEvent{Timestamp: ts, Type: AuthProvisionFail})
	}
}

func (s *silentScanner) resume(line string, ts *time.Time) {
	sa := &s.sa
	switch {
	case strings.Contains(line, "RESUME_DETECTED"):
		sa.Resumes = append(sa.Resumes, Resume{
			Timestamp: ts,
			Type:      ResumeDetected,
			Duration:  trimmedGroup(resumeDurationPattern, line),
			StartTime: trimmedGroup(resumeStartPattern, line),
		})
	case strings.Contains(line, "RESUME_IGNORED"):
		sa.Resumes = append(sa.Resumes, Resume{
			Timestamp: ts,
			Type:      ResumeIgnored,
			StartTime: trimmedGroup(resumeStartTimePattern, line),
		})
	case strings.Contains(line, "RESUME_NEEDS_CONFIRMATION"):
		sa.Resumes = append(sa.Resumes, Resume{Timestamp: ts, Type: ResumeNeedsConfirm})
	case strings.Contains(line, "RESUME_TRACKING"):
		sa.Resumes = append(sa.Resumes, Resume{Timestamp: ts, Type: ResumeTrackingAgain})
	}
}

func (s *silentScanner) memory(line string, ts *time.Time) {
	if !strings.Contains(line, "Client MEM:") {
		return
	}
	m := systemMemPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	snap := MemorySnapshot{Timestamp: ts}
	snap.UsedBytes, _ = strconv.ParseInt(m[1], 10, 64)
	snap.TotalBytes, _ = strconv.ParseInt(m[2], 10, 64)
	snap.PagefileUsed, snap.PagefileTotal = bytePair(pagefilePattern, line)
	snap.WorkingSet, snap.WorkingSetPeak = bytePair(workingSetPattern, line)

	s.sa.SystemMemSnapshots = append(s.sa.SystemMemSnapshots, snap)
	if s.sa.SystemMem == nil {
		first := snap
		s.sa.SystemMem = &first
	}
}

func bytePair(re *regexp.Regexp, line string) (*int64, *int64) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	a, errA := strconv.ParseInt(m[1], 10, 64)
	b, errB := strconv.ParseInt(m[2], 10, 64)
	if errA != nil || errB != nil {
		return nil, nil
	}
	return &a, &b
}

func (s *silentScanner) autoStartStop(line string, ts *time.Time) {
	sa := &s.sa
	switch {
	case strings.Contains(line, "AUTO_START_STOP") && strings.Contains(line, "START_TRACKING"):
		sa.AutoStartStops = append(sa.AutoStartStops, AutoStartStop{Timestamp: ts, Type: "START", Detail: "Auto-start triggered by activity detection"})
	case strings.Contains(line, "AUTO_START_STOP") && strings.Contains(line, "STOP_TRACKING"):
		sa.AutoStartStops = append(sa.AutoStartStops, AutoStartStop{Timestamp: ts, Type: "STOP", Detail: "Auto-stop triggered by inactivity"})
	case strings.Contains(line, "AUTO_START_NO_ACTIVTY"):
		sa.AutoStartStops = append(sa.AutoStartStops, AutoStartStop{Timestamp: ts, Type: "NO_ACTIVITY", Detail: "Inactivity timeout while idle"})
	}
}

// network records SSL and rate-limit lines and clusters failed requests.
// Continuation lines without a timestamp borrow the last one seen.
func (s *silentScanner) network(line string, ts *time.Time) {
	sa := &s.sa
	if strings.Contains(line, "SSL") && containsAny(line, "error", "Error", "timeout") {
		sa.SSLErrors = append(sa.SSLErrors, Message{Timestamp: ts, Msg: strings.TrimSpace(excerpt(line))})
	}
	if strings.Contains(line, "Response: 429") || strings.Contains(line, "Too Many Requests") {
		sa.HTTP429s = append(sa.HTTP429s, Message{Timestamp: ts, Msg: strings.TrimSpace(excerpt(line))})
	}

	at := ts
	if at == nil {
		at = s.lastTs
	}
	sa.NetworkBlocks.ObserveLine(line, at)
	sa.NetworkBlocks.ObserveUploadFailure(line, ts)
}

func (s *silentScanner) Finalize(r *Result) {
	s.sa.AuthenticatedUsers = s.users.users
	s.sa.ResumeThreshold = s.threshold.result()
	sa := s.sa
	r.SilentApp = &sa
}

// excerpt returns the first excerptLen runes of s.
func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	n := 0
	for i := range s {
		if n == excerptLen {
			return s[:i]
		}
		n++
	}
	return s
}

// thresholdState is the state of the resume-threshold latch.
type thresholdState int

const (
	// thresholdIdle: no "resume_threshold" marker seen yet.
	thresholdIdle thresholdState = iota
	// thresholdArmed: marker seen, waiting for keep and discard values.
	thresholdArmed
	// thresholdResolved: discard captured; later lines are ignored.
	thresholdResolved
)

// thresholdLatch reads the keep/discard values that follow a
// "resume_threshold" marker. If discard never appears the latch stays
// armed and no threshold is reported.
type thresholdLatch struct {
	state   thresholdState
	keep    string
	discard string
}

func (t *thresholdLatch) observe(line string) {
	if t.state == thresholdIdle && strings.Contains(line, "resume_threshold") {
		t.state = thresholdArmed
	}
	if t.state != thresholdArmed {
		return
	}
	if t.keep == "" {
		t.keep = firstGroup(thresholdKeepPattern, line)
	}
	if d := firstGroup(thresholdDropPattern, line); d != "" {
		t.discard = d
		t.state = thresholdResolved
	}
}

func (t *thresholdLatch) result() *ResumeThreshold {
	if t.state != thresholdResolved {
		return nil
	}
	keep := t.keep
	if keep == "" {
		keep = "unknown"
	}
	return &ResumeThreshold{Keep: keep, Discard: t.discard}
}

// trackingOrder collects raw START/STOP_TRACKING markers from every line.
// It finds back-to-back starts and the windows used to place screen sleeps.
type trackingOrder struct {
	marks   []trackMark
	open    *time.Time
	windows []window
}

type trackMark struct {
	ts    *time.Time
	start bool
}

func newTrackingOrder() *trackingOrder { return &trackingOrder{} }

func (o *trackingOrder) Name() string { return "tracking-order" }

func (o *trackingOrder) Process(l *scanLine) {
	ts := l.ts()
	switch {
	case strings.Contains(l.Raw, "START_TRACKING"):
		o.marks = append(o.marks, trackMark{ts: ts, start: true})
		o.open = ts
	case strings.Contains(l.Raw, "STOP_TRACKING"):
		o.marks = append(o.marks, trackMark{ts: ts})
		if o.open != nil {
			if ts != nil {
				o.windows = append(o.windows, window{start: *o.open, end: *ts})
			}
			o.open = nil
		}
	}
}

// Finalize records every START whose chronological predecessor was also
// a START. Markers without a timestamp sort first.
func (o *trackingOrder) Finalize(r *Result) {
	sort.SliceStable(o.marks, func(i, j int) bool {
		return unixOrZero(o.marks[i].ts) < unixOrZero(o.marks[j].ts)
	})
	for i := 1; i < len(o.marks); i++ {
		if o.marks[i].start && o.marks[i-1].start {
			r.SilentApp.DoubleStarts = append(r.SilentApp.DoubleStarts, Marker{Timestamp: o.marks[i].ts})
		}
	}
}

func unixOrZero(ts *time.Time) int64 {
	if ts == nil {
		return 0
	}
	return ts.UnixMilli()
}
