package analyzer

import (
	"testing"
	"time"
)

func TestScoreHealth_SilentLog(t *testing.T) {
	r := mustAnalyze(t, silentLog())
	h := r.Health

	wantLabels := []string{
		"Version Outdated",
		"Authentication OK",
		"1 Multi-Day Gap(s)",
		"1 Crash(es)",
		"Helper Stable",
		"Memory Critical",
		"Resume Config",
	}
	if len(h.Checks) != len(wantLabels) {
		t.Fatalf("Checks = %+v, want %d checks", h.Checks, len(wantLabels))
	}
	for i, want := range wantLabels {
		if h.Checks[i].Label != want {
			t.Errorf("check %d = %q, want %q", i, h.Checks[i].Label, want)
		}
	}
	if h.Score != 50 {
		t.Errorf("Score = %d, want 50", h.Score)
	}
	if h.Rating != RatingDegraded {
		t.Errorf("Rating = %q, want %q", h.Rating, RatingDegraded)
	}
	if len(h.MultiDayGaps) != 1 || h.MultiDayGaps[0].GapHours != 40 || h.MultiDayGaps[0].GapDays != 1.7 {
		t.Errorf("MultiDayGaps = %+v", h.MultiDayGaps)
	}
}

func TestScoreHealth_LatestVersionOption(t *testing.T) {
	r := mustAnalyze(t, silentLog(), WithLatestVersion("1.7.9"))
	if r.Health.Checks[0].Label != "Version Current" {
		t.Errorf("first check = %q, want Version Current", r.Health.Checks[0].Label)
	}
	if r.Health.Score != 70 {
		t.Errorf("Score = %d, want 70", r.Health.Score)
	}
}

func TestScoreHealth_Empty(t *testing.T) {
	h := ScoreHealth(&Result{SilentApp: &SilentApp{}}, DefaultLatestVersion)
	if h.Score != 95 {
		t.Errorf("Score = %d, want 95", h.Score)
	}
	if h.Checks[0].Label != "Version Unknown" || h.Checks[0].Penalty != 5 {
		t.Errorf("first check = %+v", h.Checks[0])
	}
}

func TestScoreHealth_ClampsToZero(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sa := &SilentApp{
		Version:    "1.0",
		AuthEvents: []AuthEvent{{Type: AuthProvisionFail}},
		HelperDied: 60,
		StopErrors: []Message{{}},
		SystemMem:  &MemorySnapshot{UsedBytes: 99, TotalBytes: 100},
	}
	for i := 0; i < 5; i++ {
		sa.Startups = append(sa.Startups, Startup{Timestamp: &now, Type: StartupUnclean})
	}
	for i := 0; i < 10; i++ {
		sa.SSLErrors = append(sa.SSLErrors, Message{})
	}
	for i := 0; i < 25; i++ {
		sa.HTTP429s = append(sa.HTTP429s, Message{})
	}

	h := ScoreHealth(&Result{SilentApp: sa}, DefaultLatestVersion)
	if h.Score != 0 {
		t.Errorf("Score = %d, want 0", h.Score)
	}
	if h.Rating != RatingCritical {
		t.Errorf("Rating = %q, want Critical", h.Rating)
	}
}

func TestScoreHealth_Tiers(t *testing.T) {
	tests := []struct {
		name    string
		sa      SilentApp
		label   string
		status  CheckStatus
		penalty int
	}{
		{"helper elevated", SilentApp{HelperDied: 11}, "Helper Crashed 11×", CheckWarn, 5},
		{"helper low", SilentApp{HelperDied: 3}, "Helper Crashed 3×", CheckPass, 0},
		{"rate limit few", SilentApp{HTTP429s: make([]Message, 3)}, "3 Rate Limit(s)", CheckWarn, 5},
		{"rate limit many", SilentApp{HTTP429s: make([]Message, 21)}, "21 Rate Limit(s)", CheckFail, 15},
		{"double starts capped", SilentApp{DoubleStarts: make([]Marker, 5)}, "5 Double-Start(s)", CheckFail, 10},
		{"ssl few", SilentApp{SSLErrors: make([]Message, 2)}, "2 SSL Error(s)", CheckWarn, 4},
		{"memory elevated", SilentApp{SystemMem: &MemorySnapshot{UsedBytes: 80, TotalBytes: 100}}, "Memory Elevated", CheckWarn, 5},
		{"memory ok", SilentApp{SystemMem: &MemorySnapshot{UsedBytes: 50, TotalBytes: 100}}, "Memory OK", CheckPass, 0},
		{"offline only", SilentApp{AuthEvents: []AuthEvent{{Type: AuthOffline}}}, "Offline Auth Only", CheckWarn, 5},
		{"pending", SilentApp{PendingDetected: make([]Marker, 2)}, "2 Pending Event(s)", CheckWarn, 0},
		{"screen sleeps", SilentApp{CaptureDesktop: make([]Marker, 11)}, "11 Screen Sleep(s)", CheckWarn, 0},
		{"long resume", SilentApp{Resumes: []Resume{
			{Type: ResumeDetected, Duration: "30:00:00"},
			{Type: ResumeDetected, Duration: "100:00:00"},
			{Type: ResumeDetected, Duration: "2:00:00"},
		}}, "2 Long Resume Gap(s)", CheckFail, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa := tt.sa
			h := ScoreHealth(&Result{SilentApp: &sa}, DefaultLatestVersion)
			for _, c := range h.Checks {
				if c.Label != tt.label {
					continue
				}
				if c.Status != tt.status || c.Penalty != tt.penalty {
					t.Errorf("check = %+v, want status %s penalty %d", c, tt.status, tt.penalty)
				}
				return
			}
			t.Errorf("no check labelled %q in %+v", tt.label, h.Checks)
		})
	}
}

func TestScoreHealth_LongestResume(t *testing.T) {
	sa := &SilentApp{Resumes: []Resume{
		{Type: ResumeDetected, Duration: "100:00:00"},
		{Type: ResumeDetected, Duration: "30:00:00"},
	}}
	h := ScoreHealth(&Result{SilentApp: sa}, DefaultLatestVersion)
	for _, c := range h.Checks {
		if c.Label == "2 Long Resume Gap(s)" {
			want := "App detected resume after extended downtime (longest: 100:00:00). Time was discarded."
			if c.Detail != want {
				t.Errorf("Detail = %q, want %q", c.Detail, want)
			}
			return
		}
	}
	t.Error("long resume check missing")
}

func TestScoreHealth_ScreenshotRisk(t *testing.T) {
	r := &Result{
		SilentApp: &SilentApp{Version: DefaultLatestVersion},
		ScreenshotHealth: &ScreenshotHealth{BlankRiskFactors: []RiskFactor{
			{Reason: "A", Severity: SeverityWarning},
			{Reason: "B", Severity: SeverityCritical},
		}},
	}
	h := ScoreHealth(r, DefaultLatestVersion)
	last := h.Checks[len(h.Checks)-1]
	if last.Label != "Screenshot Blank Risk" || last.Penalty != 15 || last.Detail != "2 factor(s): A, B" {
		t.Errorf("screenshot check = %+v", last)
	}

	r.ScreenshotHealth.BlankRiskFactors = nil
	r.Screenshots = []Event{{}, {}}
	h = ScoreHealth(r, DefaultLatestVersion)
	last = h.Checks[len(h.Checks)-1]
	if last.Label != "Screenshots Healthy" || last.Penalty != 0 {
		t.Errorf("screenshot check = %+v", last)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.7.10", "1.7.10", 0},
		{"1.7.9", "1.7.10", -1},
		{"1.8", "1.7.10", 1},
		{"1.7", "1.7.0", 0},
		{"2", "10", -1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, RatingHealthy},
		{80, RatingHealthy},
		{79, RatingNeedsAttention},
		{60, RatingNeedsAttention},
		{59, RatingDegraded},
		{40, RatingDegraded},
		{39, RatingCritical},
		{0, RatingCritical},
	}
	for _, tt := range tests {
		if got := Rating(tt.score); got != tt.want {
			t.Errorf("Rating(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
