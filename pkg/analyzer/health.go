package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Health ratings by score.
const (
	RatingHealthy        = "Healthy"
	RatingNeedsAttention = "Needs Attention"
	RatingDegraded       = "Degraded"
	RatingCritical       = "Critical"
)

// Rating maps a score to its rating band.
func Rating(score int) string {
	switch {
	case score >= 80:
		return RatingHealthy
	case score >= 60:
		return RatingNeedsAttention
	case score >= 40:
		return RatingDegraded
	default:
		return RatingCritical
	}
}

// healthScorer accumulates checks and penalties.
type healthScorer struct {
	score  int
	checks []HealthCheck
}

func (h *healthScorer) add(status CheckStatus, penalty int, label, detail string) {
	h.score -= penalty
	h.checks = append(h.checks, HealthCheck{Status: status, Label: label, Detail: detail, Penalty: penalty})
}

// healthIfDetected scores the result only when a silent-app install was
// detected. Other logs carry no health report.
func healthIfDetected(r *Result, latestVersion string) *HealthReport {
	if r.SilentApp == nil || !r.SilentApp.Detected {
		return nil
	}
	return ScoreHealth(r, latestVersion)
}

// ScoreHealth computes the silent-app health report. It is a pure function
// of the result: checks always run in the same order and the score is
// clamped to [0, 100].
func ScoreHealth(r *Result, latestVersion string) *HealthReport {
	sa := r.SilentApp
	if sa == nil {
		sa = &SilentApp{}
	}
	h := &healthScorer{score: 100, checks: []HealthCheck{}}

	checkVersion(h, sa, latestVersion)
	checkAuth(h, sa)
	gaps := multiDayGaps(sa)
	checkGaps(h, gaps)
	checkCrashes(h, sa)
	checkHelper(h, sa)

	if n := len(sa.CaptureDesktop); n > 0 {
		status := CheckPass
		if n > 10 {
			status = CheckWarn
		}
		h.add(status, 0, fmt.Sprintf("%d Screen Sleep(s)", n),
			"PC went to sleep/hibernate, triggering shutdown. This is expected for end-of-day.")
	}
	if n := len(sa.StopErrors); n > 0 {
		h.add(CheckFail, 10, fmt.Sprintf("%d Stop Error(s)", n),
			"Tracking stopped due to errors, potential data loss")
	}

	checkLongResumes(h, sa)
	checkMemory(h, sa)

	if n := len(sa.DoubleStarts); n > 0 {
		status := CheckWarn
		if n > 3 {
			status = CheckFail
		}
		h.add(status, min(10, n*3), fmt.Sprintf("%d Double-Start(s)", n),
			"Back-to-back START_TRACKING without a STOP in between indicates crash-restart cycles")
	}
	if t := sa.ResumeThreshold; t != nil {
		h.add(CheckPass, 0, "Resume Config", fmt.Sprintf("Keep: %s / Discard: %s", t.Keep, t.Discard))
	}
	if n := len(sa.SSLErrors); n > 0 {
		status := CheckWarn
		if n > 5 {
			status = CheckFail
		}
		h.add(status, min(10, n*2), fmt.Sprintf("%d SSL Error(s)", n),
			"SSL/TLS connection errors detected, may affect data sync")
	}
	if n := len(sa.HTTP429s); n > 0 {
		status, penalty := CheckWarn, 5
		if n > 20 {
			status, penalty = CheckFail, 15
		}
		h.add(status, penalty, fmt.Sprintf("%d Rate Limit(s)", n),
			`HTTP 429 "Too Many Requests": server throttling the app`)
	}
	if n := len(sa.PendingDetected); n > 0 {
		h.add(CheckWarn, 0, fmt.Sprintf("%d Pending Event(s)", n),
			"Unsent data detected on startup, previous session had sync issues")
	}

	checkScreenshots(h, r)

	score := max(0, min(100, h.score))
	return &HealthReport{
		Score:        score,
		Rating:       Rating(score),
		Checks:       h.checks,
		MultiDayGaps: gaps,
	}
}

func checkVersion(h *healthScorer, sa *SilentApp, latest string) {
	if sa.Version == "" {
		h.add(CheckWarn, 5, "Version Unknown", "Could not extract version from logs")
		return
	}
	current, _, _ := strings.Cut(sa.Version, "-")
	if CompareVersions(current, latest) < 0 {
		h.add(CheckFail, 20, "Version Outdated",
			fmt.Sprintf("Running %s, latest is %s. Update recommended.", sa.Version, latest))
		return
	}
	h.add(CheckPass, 0, "Version Current", "Running "+sa.Version)
}

// CompareVersions compares dotted numeric versions. Missing or
// non-numeric components count as zero.
func CompareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < max(len(pa), len(pb)); i++ {
		na, nb := versionPart(pa, i), versionPart(pb, i)
		switch {
		case na > nb:
			return 1
		case na < nb:
			return -1
		}
	}
	return 0
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(parts[i])
	return n
}

func checkAuth(h *healthScorer, sa *SilentApp) {
	var provision, token, offline int
	for _, a := range sa.AuthEvents {
		switch a.Type {
		case AuthProvisionFail:
			provision++
		case AuthToken:
			token++
		case AuthOffline:
			offline++
		}
	}
	switch {
	case provision > 0:
		h.add(CheckFail, 25, "Provisioning Failed",
			fmt.Sprintf("%d CORPORATE_PROVISION_ATTEMPT_FAILED event(s). App may fail to track.", provision))
	case token > 0:
		h.add(CheckPass, 0, "Authentication OK",
			fmt.Sprintf("%d successful token auth(s), %d offline auth(s)", token, offline))
	case offline > 0:
		h.add(CheckWarn, 5, "Offline Auth Only",
			fmt.Sprintf("%d offline auth(s) but no token auth, check network", offline))
	}
}

// multiDayGaps pairs each shutdown with the first later startup and keeps
// the pairs more than a day apart.
func multiDayGaps(sa *SilentApp) []MultiDayGap {
	startups := make([]time.Time, 0, len(sa.Startups))
	for _, s := range sa.Startups {
		if s.Timestamp != nil {
			startups = append(startups, *s.Timestamp)
		}
	}
	shutdowns := make([]time.Time, 0, len(sa.Shutdowns))
	for _, s := range sa.Shutdowns {
		if s.Timestamp != nil {
			shutdowns = append(shutdowns, *s.Timestamp)
		}
	}
	sort.Slice(startups, func(i, j int) bool { return startups[i].Before(startups[j]) })
	sort.Slice(shutdowns, func(i, j int) bool { return shutdowns[i].Before(shutdowns[j]) })

	gaps := []MultiDayGap{}
	for _, down := range shutdowns {
		i := sort.Search(len(startups), func(i int) bool { return startups[i].After(down) })
		if i == len(startups) {
			continue
		}
		gap := startups[i].Sub(down)
		if gap <= MultiDayThreshold {
			continue
		}
		hours := gap.Hours()
		gaps = append(gaps, MultiDayGap{
			ShutdownTs: down,
			StartupTs:  startups[i],
			GapHours:   round1(hours),
			GapDays:    round1(hours / 24),
		})
	}
	return gaps
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func checkGaps(h *healthScorer, gaps []MultiDayGap) {
	if len(gaps) == 0 {
		h.add(CheckPass, 0, "No Multi-Day Gaps", "App came back each day after shutdown")
		return
	}
	longest := 0.0
	for _, g := range gaps {
		longest = max(longest, g.GapDays)
	}
	h.add(CheckFail, min(30, len(gaps)*15), fmt.Sprintf("%d Multi-Day Gap(s)", len(gaps)),
		fmt.Sprintf("App was offline for extended periods. Longest: %s days. Total gaps: %d",
			strconv.FormatFloat(longest, 'f', -1, 64), len(gaps)))
}

func checkCrashes(h *healthScorer, sa *SilentApp) {
	n := 0
	for _, s := range sa.Startups {
		if s.Type == StartupUnclean {
			n++
		}
	}
	if n == 0 {
		h.add(CheckPass, 0, "No Crashes", "All startups were clean")
		return
	}
	status := CheckWarn
	if n > 3 {
		status = CheckFail
	}
	h.add(status, min(15, n*5), fmt.Sprintf("%d Crash(es)", n),
		fmt.Sprintf("%d STARTUP_UNCLEAN: app crashed or was force-killed", n))
}

func checkHelper(h *healthScorer, sa *SilentApp) {
	n := sa.HelperDied
	label := fmt.Sprintf("Helper Crashed %d×", n)
	switch {
	case n > 50:
		h.add(CheckFail, 10, label, "Excessive helper process crashes may affect app detection and screenshots")
	case n > 10:
		h.add(CheckWarn, 5, label, "Elevated helper crashes, monitor for screenshot/app detection issues")
	case n > 0:
		h.add(CheckPass, 0, label, "Low count, within normal range")
	default:
		h.add(CheckPass, 0, "Helper Stable", "No helper process crashes detected")
	}
}

func checkLongResumes(h *healthScorer, sa *SilentApp) {
	n := 0
	longest := ""
	longestSecs := -1
	for _, r := range sa.Resumes {
		if r.Type != ResumeDetected || r.Duration == "" {
			continue
		}
		hours, _ := strconv.Atoi(strings.SplitN(r.Duration, ":", 2)[0])
		if hours <= 24 {
			continue
		}
		n++
		if secs := clockSeconds(r.Duration); secs > longestSecs {
			longest, longestSecs = r.Duration, secs
		}
	}
	if n == 0 {
		return
	}
	h.add(CheckFail, 10, fmt.Sprintf("%d Long Resume Gap(s)", n),
		fmt.Sprintf("App detected resume after extended downtime (longest: %s). Time was discarded.", longest))
}

// clockSeconds converts "H:MM:SS" (or any colon-separated prefix) to
// seconds.
func clockSeconds(s string) int {
	total := 0
	for _, p := range strings.Split(s, ":") {
		n, _ := strconv.Atoi(p)
		total = total*60 + n
	}
	return total
}

func checkMemory(h *healthScorer, sa *SilentApp) {
	if sa.SystemMem == nil {
		return
	}
	pct, ok := sa.SystemMem.UsedPercent()
	if !ok {
		return
	}
	const gib = 1 << 30
	usage := fmt.Sprintf("%d%% used (%.1fGB / %.1fGB)", pct,
		float64(sa.SystemMem.UsedBytes)/gib, float64(sa.SystemMem.TotalBytes)/gib)
	switch {
	case pct > 90:
		h.add(CheckFail, 10, "Memory Critical", usage+", may cause crashes")
	case pct > 75:
		h.add(CheckWarn, 5, "Memory Elevated", usage)
	default:
		h.add(CheckPass, 0, "Memory OK", usage)
	}
}

func checkScreenshots(h *healthScorer, r *Result) {
	sh := r.ScreenshotHealth
	if sh == nil {
		return
	}
	if n := len(sh.BlankRiskFactors); n > 0 {
		reasons := make([]string, n)
		for i, f := range sh.BlankRiskFactors {
			reasons[i] = f.Reason
		}
		status, penalty := CheckWarn, 5
		if sh.HasCriticalRisk() {
			status, penalty = CheckFail, 15
		}
		h.add(status, penalty, "Screenshot Blank Risk",
			fmt.Sprintf("%d factor(s): %s", n, strings.Join(reasons, ", ")))
		return
	}
	if n := len(r.Screenshots); n > 0 {
		h.add(CheckPass, 0, "Screenshots Healthy",
			fmt.Sprintf("%d screenshot events, no blank risk factors", n))
	}
}
