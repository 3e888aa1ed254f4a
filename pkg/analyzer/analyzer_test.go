package analyzer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

func logText(lines ...string) string {
	return strings.Join(lines, "\n")
}

func mustAnalyze(t *testing.T, text string, opts ...AnalyzerOption) *Result {
	t.Helper()
	r, err := NewAnalyzer(opts...).Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return r
}

func ts(s string) time.Time {
	t, err := time.ParseInLocation(parser.TimestampLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAnalyze_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "\n\n   \n\r\n"} {
		r := mustAnalyze(t, text)
		if r.TotalLines != 0 {
			t.Errorf("TotalLines = %d, want 0", r.TotalLines)
		}
		if r.Errors == nil || r.Warnings == nil || r.Screenshots == nil || r.Network == nil ||
			r.Locations == nil || r.Apps == nil || r.Tracking == nil || r.Injected == nil ||
			r.Sessions == nil || r.IdleDecisions == nil || r.AuthenticatedUsers == nil ||
			r.JobSites == nil || r.UserLocations == nil || r.CurrentlyEnteredSites == nil ||
			r.GeofenceEvents == nil || r.Cycles == nil || r.Files == nil {
			t.Fatalf("nil collection in empty result: %+v", r)
		}
		if r.SilentApp == nil || r.ScreenshotHealth == nil || r.NetworkBlocks == nil {
			t.Fatal("nil sub-model in empty result")
		}
		if r.SilentApp.Detected {
			t.Error("SilentApp.Detected = true for empty input")
		}
		if r.Health != nil {
			t.Errorf("Health = %+v, want nil without a silent app", r.Health)
		}
		if r.StartTime != nil || r.EndTime != nil {
			t.Error("expected nil time range")
		}
	}
}

func TestAnalyze_SessionShutdown(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING",
		"2024-01-01 12:00:00 [INFO] x.cpp:2 STOP_TRACKING [SHUTDOWN]",
	))

	if len(r.Sessions) != 1 {
		t.Fatalf("Sessions = %d, want 1", len(r.Sessions))
	}
	s := r.Sessions[0]
	if s.DurationSeconds != 14400 {
		t.Errorf("DurationSeconds = %d, want 14400", s.DurationSeconds)
	}
	if s.StopReason != StopShutdown || s.StartReason != StartUser {
		t.Errorf("reasons = %s/%s, want USER/SHUTDOWN", s.StartReason, s.StopReason)
	}
	if r.TotalLines != 2 {
		t.Errorf("TotalLines = %d, want 2", r.TotalLines)
	}
}

func TestAnalyze_DoubleStartCrashesFirstSession(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING",
		"2024-01-01 09:30:00 [INFO] x.cpp:1 START_TRACKING [RESUMED]",
	))

	if len(r.Sessions) != 2 {
		t.Fatalf("Sessions = %d, want 2", len(r.Sessions))
	}
	first, second := r.Sessions[0], r.Sessions[1]
	if first.StopReason != StopCrashed {
		t.Errorf("first StopReason = %s, want CRASHED", first.StopReason)
	}
	if !first.Stop.Equal(ts("2024-01-01 09:30:00")) {
		t.Errorf("first Stop = %v, want second start", first.Stop)
	}
	if first.DurationSeconds != 5400 {
		t.Errorf("first DurationSeconds = %d, want 5400", first.DurationSeconds)
	}
	if second.StartReason != StartResumed || second.StopReason != StopLogEnd {
		t.Errorf("second reasons = %s/%s, want RESUMED/LOG_END", second.StartReason, second.StopReason)
	}
	if len(r.SilentApp.DoubleStarts) != 1 {
		t.Errorf("DoubleStarts = %d, want 1", len(r.SilentApp.DoubleStarts))
	}
}

func TestAnalyze_IdleKept(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 09:00:00 [INFO] idle.cpp:5 IDLE_WAKE after 120 seconds",
		"2024-01-01 09:00:05 [INFO] idle.cpp:9 KeepIdle: 1 / StopTracking: 0",
	))

	if len(r.IdleDecisions) != 1 {
		t.Fatalf("IdleDecisions = %d, want 1", len(r.IdleDecisions))
	}
	d := r.IdleDecisions[0]
	if d.Seconds != 120 || d.Decision != IdleKept {
		t.Errorf("decision = %+v, want 120s KEPT", d)
	}
	if r.IdleKeptSecs != 120 || r.IdleDiscardedSecs != 0 {
		t.Errorf("kept/discarded = %d/%d, want 120/0", r.IdleKeptSecs, r.IdleDiscardedSecs)
	}
}

func TestAnalyze_NetworkBlockSSL(t *testing.T) {
	r := mustAnalyze(t, "2024-01-01 10:00:00 [ERROR] net.cpp:3 SSL failure [Exception::tag_http_request_url*] = https://client-api.hubstaff.com/v3/foo/bar")

	d, ok := r.NetworkBlocks.BlockedDomains["client-api.hubstaff.com"]
	if !ok {
		t.Fatal("expected client-api.hubstaff.com in blocked domains")
	}
	if d.Count != 1 || !d.ErrorTypes.Has("ssl") {
		t.Errorf("domain = count %d types %v, want 1 [ssl]", d.Count, d.ErrorTypes.Values())
	}
}

func TestAnalyze_NoLifecycleMarkers(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING",
		"2024-01-01 08:05:00 [WARN] x.cpp:2 OS Memory low",
		"2024-01-01 09:00:00 [INFO] x.cpp:3 STOP_TRACKING",
	))
	if r.SilentApp.Detected {
		t.Error("SilentApp.Detected = true, want false")
	}
	if len(r.Cycles) != 0 {
		t.Errorf("Cycles = %d, want 0", len(r.Cycles))
	}
}

func TestAnalyze_DesktopLogHasNoHealth(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 08:00:00 [INFO] app.cpp:1 Client Version: 1.7.10",
		"2024-01-01 08:00:05 [AUDIT] trk.cpp:2 START_TRACKING",
		"2024-01-01 12:00:00 [AUDIT] trk.cpp:3 STOP_TRACKING",
	))
	if r.SilentApp.Detected {
		t.Fatal("SilentApp.Detected = true, want false")
	}
	if r.Health != nil {
		t.Errorf("Health = %+v, want nil", r.Health)
	}
	if len(r.Sessions) != 1 {
		t.Errorf("Sessions = %d, want 1", len(r.Sessions))
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	text := silentLog()
	a := NewAnalyzer()
	first, err := a.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated analysis produced different results")
	}
}

func TestAnalyze_ChunkedMatchesSinglePass(t *testing.T) {
	text := silentLog()
	single := mustAnalyze(t, text)

	for _, size := range []int{1, 2, 3, 7, 1000} {
		var calls int
		chunked := mustAnalyze(t, text, WithChunkSize(size), WithProgress(func(done, total int) { calls++ }))
		if !reflect.DeepEqual(single, chunked) {
			t.Errorf("chunk size %d: result differs from single pass", size)
		}
		if calls == 0 {
			t.Errorf("chunk size %d: progress never called", size)
		}
	}
}

func TestAnalyze_CancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(WithChunkSize(1)).Analyze(ctx, silentLog())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Analyze() error = %v, want context.Canceled", err)
	}
}

func TestAnalyze_DebugGate(t *testing.T) {
	text := logText(
		"2024-01-01 08:00:00 [DEBUG] x.cpp:1 Server Error from upstream",
		"2024-01-01 08:00:01 [DEBUG] w.cpp:2 Switched to app: Chrome at 1704096001",
		"2024-01-01 08:00:02 [TRACE] x.cpp:3 Server Error trace",
	)

	r := mustAnalyze(t, text)
	if len(r.Warnings) != 0 {
		t.Errorf("Warnings = %d, want 0 with DEBUG/TRACE hidden", len(r.Warnings))
	}
	if len(r.Apps) != 1 || r.Apps[0].Extracted != "Chrome" {
		t.Errorf("Apps = %+v, want Chrome even when DEBUG hidden", r.Apps)
	}
	if r.StartTime == nil || !r.EndTime.Equal(ts("2024-01-01 08:00:02")) {
		t.Errorf("time range must include hidden lines, got %v..%v", r.StartTime, r.EndTime)
	}

	r = mustAnalyze(t, text, WithDebug(true))
	if len(r.Warnings) != 1 {
		t.Errorf("Warnings with debug = %d, want 1", len(r.Warnings))
	}

	r = mustAnalyze(t, text, WithDebug(true), WithTrace(true))
	if len(r.Warnings) != 2 {
		t.Errorf("Warnings with debug+trace = %d, want 2", len(r.Warnings))
	}
}

func TestAnalyze_Timezone(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 08:00:00 [INFO] x.cpp:1 boot +02:00",
		"2024-01-01 08:00:01 [INFO] x.cpp:2 TZ Offset: -05:00",
		"2024-01-01 08:00:02 [INFO] x.cpp:3 later +03:00",
	))
	if r.Timezone != "-05:00" {
		t.Errorf("Timezone = %q, want -05:00", r.Timezone)
	}
}

func TestAnalyze_BoundaryMarkers(t *testing.T) {
	merged := parser.MergeFiles([]parser.InputFile{
		{Name: "a.log", Content: "2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING"},
		{Name: "b.log", Content: "2024-01-01 09:00:00 [INFO] x.cpp:2 STOP_TRACKING"},
	})
	r := mustAnalyze(t, merged)

	if !reflect.DeepEqual(r.Files, []string{"a.log", "b.log"}) {
		t.Errorf("Files = %v, want [a.log b.log]", r.Files)
	}
	if r.TotalLines != 2 {
		t.Errorf("TotalLines = %d, want 2", r.TotalLines)
	}
	if len(r.Sessions) != 1 || r.Sessions[0].DurationSeconds != 3600 {
		t.Errorf("Sessions = %+v, want one 3600s session", r.Sessions)
	}
}

func TestAnalyze_NoiseFilterStats(t *testing.T) {
	text := logText(
		"2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING",
		"2024-01-01 09:00:00 [INFO] x.cpp:2 STOP_TRACKING",
	)
	r := mustAnalyze(t, text, WithNoiseFilter(true))
	if r.Filter == nil {
		t.Fatal("Filter stats missing")
	}
	if r.Filter.InputLines != 2 || r.Filter.Removed() < 0 {
		t.Errorf("Filter = %+v", r.Filter)
	}
	if mustAnalyze(t, text).Filter != nil {
		t.Error("Filter stats present without noise filter")
	}
}

func TestAnalyze_CategoriesOverlap(t *testing.T) {
	r := mustAnalyze(t, "2024-01-01 10:00:00 [ERROR] net.cpp:1 Server Error Response: 503")
	if len(r.Errors) != 1 || len(r.Warnings) != 1 || len(r.Network) != 1 {
		t.Errorf("errors/warnings/network = %d/%d/%d, want 1/1/1", len(r.Errors), len(r.Warnings), len(r.Network))
	}
	e := r.Errors[0]
	if e.Level != parser.LevelError || e.Source != "net.cpp:1" {
		t.Errorf("event = %+v", e)
	}
}

func TestAnalyze_AuthenticatedUsers(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 08:00:00 [INFO] a.cpp:1 AUTH_TOKEN authenticated via token: jane@example.com || 42",
		"2024-01-01 09:00:00 [INFO] a.cpp:1 AUTH_TOKEN authenticated via token: jane@example.com",
		"2024-01-01 10:00:00 [INFO] a.cpp:1 AUTH_TOKEN authenticated via token: bob@example.com || 7",
	))
	if len(r.AuthenticatedUsers) != 2 {
		t.Fatalf("AuthenticatedUsers = %+v, want 2", r.AuthenticatedUsers)
	}
	jane := r.AuthenticatedUsers[0]
	if jane.Email != "jane@example.com" || jane.UserID != "42" || jane.AuthCount != 2 {
		t.Errorf("jane = %+v", jane)
	}
	if !jane.LastSeen.Equal(ts("2024-01-01 09:00:00")) {
		t.Errorf("jane.LastSeen = %v", jane.LastSeen)
	}
}

func TestAnalyze_Injected(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 10:00:00 [INFO] WindowsInput.cpp:88 Mouse: 5/R0/I3/LI0 Keyboard: 2/R0/I1/LI0",
		"2024-01-01 10:01:00 [INFO] WindowsInput.cpp:88 Mouse: 5/R2/I0/LI0 Keyboard: 2/R1/I0/LI0",
		"2024-01-01 10:02:00 [INFO] WindowsInput.cpp:90 Simulating missed input (HID keyboard)",
	))
	if len(r.Injected) != 2 {
		t.Fatalf("Injected = %d, want 2", len(r.Injected))
	}
	if !r.Injected[0].OnlyInjected || r.Injected[0].InputType != InputInjected {
		t.Errorf("first = %+v, want only-injected", r.Injected[0])
	}
	if r.Injected[1].InputType != InputSimulated || r.Injected[1].Detail != "HID keyboard" {
		t.Errorf("second = %+v, want simulated HID keyboard", r.Injected[1])
	}
}

func TestAnalyze_Geo(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 10:00:00 [INFO] geo.kt:1 creating geofence id=12, name=Main Yard, loc (40.7128, -74.0060, 100)",
		"2024-01-01 10:00:01 [INFO] geo.kt:1 creating geofence id=-, name=Draft, loc (1, 1, 10)",
		"2024-01-01 10:00:02 [INFO] geo.kt:2 current location is AppLocation(latitude=40.1, longitude=-74.2, hAccuracy=15.0)",
		"2024-01-01 10:00:03 [INFO] geo.kt:3 currently entered sites are: [12]",
		"2024-01-01 10:00:04 [INFO] geo.kt:4 handling geofence event transitionType=ENTER latitude=40.7128 longitude=-74.0060 hAccuracy=12.5",
		"2024-01-01 10:00:05 [INFO] geo.kt:4 handling geofence event transitionType=DWELL latitude=40.7128 longitude=-74.0060",
		"2024-01-01 10:00:06 [INFO] geo.kt:4 handling geofence event transitionType=EXIT latitude=40.7128",
	))

	if len(r.JobSites) != 1 || r.JobSites[0].Name != "Main Yard" || r.JobSites[0].Radius != 100 {
		t.Errorf("JobSites = %+v", r.JobSites)
	}
	if len(r.UserLocations) != 1 || r.UserLocations[0].Accuracy != 15.0 {
		t.Errorf("UserLocations = %+v", r.UserLocations)
	}
	if len(r.CurrentlyEnteredSites) != 1 || r.CurrentlyEnteredSites[0].Sites != "12" {
		t.Errorf("CurrentlyEnteredSites = %+v", r.CurrentlyEnteredSites)
	}
	if len(r.GeofenceEvents) != 1 {
		t.Fatalf("GeofenceEvents = %+v, want 1", r.GeofenceEvents)
	}
	if g := r.GeofenceEvents[0]; g.Type != "ENTER" || g.Accuracy == nil || *g.Accuracy != 12.5 {
		t.Errorf("geofence = %+v", g)
	}
	if len(r.Locations) == 0 {
		t.Error("expected location events")
	}
}

func TestAnalyze_JobSitesUniqueByID(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 10:00:00 [INFO] geo.kt:1 creating geofence id=12, name=Main Yard, loc (40.7128, -74.0060, 100)",
		"2024-01-01 11:00:00 [INFO] geo.kt:1 creating geofence id=7, name=Depot, loc (40.8, -74.1, 50)",
		"2024-01-01 12:00:00 [INFO] geo.kt:1 creating geofence id=12, name=Main Yard, loc (40.7128, -74.0060, 150)",
	))

	if len(r.JobSites) != 2 {
		t.Fatalf("JobSites = %+v, want 2", r.JobSites)
	}
	if r.JobSites[0].ID != "12" || r.JobSites[0].Radius != 100 || r.JobSites[1].ID != "7" {
		t.Errorf("JobSites = %+v, want first sighting of each ID in order", r.JobSites)
	}
}

func TestAnalyze_UntimestampedStartOpensSession(t *testing.T) {
	r := mustAnalyze(t, logText(
		"START_TRACKING",
		"2024-01-01 09:00:00 [INFO] x.cpp:2 STOP_TRACKING",
	))

	if len(r.Sessions) != 1 {
		t.Fatalf("Sessions = %d, want 1", len(r.Sessions))
	}
	s := r.Sessions[0]
	if s.Start != nil || s.Stop == nil {
		t.Errorf("session = %+v, want unknown start and a timestamped stop", s)
	}
	if s.DurationSeconds != 0 {
		t.Errorf("DurationSeconds = %d, want 0", s.DurationSeconds)
	}
}

func TestSessionDurationNeverNegative(t *testing.T) {
	r := mustAnalyze(t, logText(
		"2024-01-01 12:00:00 [INFO] x.cpp:1 START_TRACKING",
		"2024-01-01 08:00:00 [INFO] x.cpp:2 STOP_TRACKING",
		"START_TRACKING without a stamp",
		"2024-01-01 13:00:00 [INFO] x.cpp:3 STOP_TRACKING",
	))
	for i, s := range r.Sessions {
		if s.DurationSeconds < 0 {
			t.Errorf("session %d duration %d < 0", i, s.DurationSeconds)
		}
		if s.Start != nil && s.Stop != nil && !s.Stop.Before(*s.Start) {
			want := int64(s.Stop.Sub(*s.Start) / time.Second)
			if s.DurationSeconds != want {
				t.Errorf("session %d duration %d, want %d", i, s.DurationSeconds, want)
			}
		}
	}
	if len(r.Sessions) != 2 {
		t.Errorf("Sessions = %d, want 2", len(r.Sessions))
	}
	if r.Sessions[1].Start != nil || r.Sessions[1].DurationSeconds != 0 {
		t.Errorf("unstamped session = %+v, want nil start and zero duration", r.Sessions[1])
	}
}
