package analyzer

import "testing"

func TestParseDateRange(t *testing.T) {
	dr, err := ParseDateRange("2024-01-02", "")
	if err != nil {
		t.Fatalf("ParseDateRange: %v", err)
	}
	if dr.From == nil || dr.To != nil || dr.IsZero() {
		t.Errorf("range = %+v", dr)
	}

	if _, err := ParseDateRange("01/02/2024", ""); err == nil {
		t.Error("expected error for bad from date")
	}
	if _, err := ParseDateRange("", "tomorrow"); err == nil {
		t.Error("expected error for bad to date")
	}

	empty, _ := ParseDateRange("", "")
	if !empty.IsZero() {
		t.Error("empty range IsZero = false")
	}
}

func idleTwoDays() string {
	return logText(
		"2024-01-01 09:00:00 [INFO] idle.cpp:1 IDLE_WAKE after 100 seconds",
		"2024-01-01 09:00:05 [INFO] idle.cpp:2 KeepIdle: 1 / StopTracking: 0",
		"2024-01-01 10:00:00 [AUDIT] trk.cpp:3 START_TRACKING",
		"2024-01-01 11:00:00 [AUDIT] trk.cpp:4 STOP_TRACKING",
		"2024-01-02 09:00:00 [INFO] idle.cpp:1 IDLE_WAKE after 200 seconds",
		"2024-01-02 09:00:05 [INFO] idle.cpp:2 KeepIdle: 0 / StopTracking: 1",
		"2024-01-02 10:00:00 [ERROR] net.cpp:5 request failed with error 500",
	)
}

func TestFilterByDate(t *testing.T) {
	r := mustAnalyze(t, idleTwoDays())
	dr, _ := ParseDateRange("2024-01-02", "2024-01-02")

	f := FilterByDate(r, dr, DefaultLatestVersion)

	if len(f.IdleDecisions) != 1 || f.IdleKeptSecs != 0 || f.IdleDiscardedSecs != 200 {
		t.Errorf("idle = %d decisions, %d/%d", len(f.IdleDecisions), f.IdleKeptSecs, f.IdleDiscardedSecs)
	}
	if len(f.Sessions) != 0 {
		t.Errorf("Sessions = %d, want 0", len(f.Sessions))
	}
	for _, e := range f.Errors {
		if e.Timestamp != nil && e.Timestamp.Day() != 2 {
			t.Errorf("error outside range kept: %v", e.Timestamp)
		}
	}
	if f.DateRange != dr {
		t.Error("DateRange not recorded on the filtered result")
	}

	// the input is left alone
	if len(r.IdleDecisions) != 2 || r.IdleKeptSecs != 100 || len(r.Sessions) != 1 || r.DateRange != nil {
		t.Errorf("input modified: %d decisions, kept %d, %d sessions", len(r.IdleDecisions), r.IdleKeptSecs, len(r.Sessions))
	}
}

func TestFilterByDate_FromOnlyAndZero(t *testing.T) {
	r := mustAnalyze(t, idleTwoDays())

	if got := FilterByDate(r, &DateRange{}, DefaultLatestVersion); got != r {
		t.Error("zero range should return the input unchanged")
	}

	dr, _ := ParseDateRange("", "2024-01-01")
	f := FilterByDate(r, dr, DefaultLatestVersion)
	if len(f.Sessions) != 1 || f.IdleKeptSecs != 100 || f.IdleDiscardedSecs != 0 {
		t.Errorf("to-only filter = %d sessions, idle %d/%d", len(f.Sessions), f.IdleKeptSecs, f.IdleDiscardedSecs)
	}
	if f.Health != nil {
		t.Error("Health set for a log without a silent app")
	}
}

func TestFilterByDate_RescoresSilentApp(t *testing.T) {
	r := mustAnalyze(t, silentLog())
	dr, _ := ParseDateRange("2024-03-03", "")

	f := FilterByDate(r, dr, DefaultLatestVersion)
	if f.Health == nil {
		t.Fatal("Health = nil for a silent-app log")
	}
	if f.Health == r.Health {
		t.Error("Health not recomputed for the filtered result")
	}
	if len(f.Sessions) != 0 {
		t.Errorf("Sessions = %d, want 0", len(f.Sessions))
	}
}
