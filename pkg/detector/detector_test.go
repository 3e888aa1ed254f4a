package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

func TestDetector_Version(t *testing.T) {
	tests := []struct {
		name         string
		lines        []string
		wantPlatform string
		wantVersion  string
		wantBuild    string
	}{
		{
			name:         "iOS build string",
			lines:        []string{"2024-01-15 10:30:00 [INFO] app.swift:1 Launching 2.2.72-100174-main-g77190d27"},
			wantPlatform: PlatformIOS,
			wantVersion:  "2.2.72",
			wantBuild:    "100174",
		},
		{
			name:         "iOS user agent",
			lines:        []string{"User-Agent: Hubstaff/2.2.70 (iPhone)"},
			wantPlatform: PlatformIOS,
			wantVersion:  "2.2.70",
		},
		{
			name:         "Android build",
			lines:        []string{"app started 2.2.75-63528"},
			wantPlatform: PlatformAndroid,
			wantVersion:  "2.2.75",
			wantBuild:    "63528",
		},
		{
			name:         "Android versionName",
			lines:        []string{"versionName=2.2.68"},
			wantPlatform: PlatformAndroid,
			wantVersion:  "2.2.68",
		},
		{
			name:         "desktop on windows",
			lines:        []string{"Hubstaff Desktop 1.6.8 starting", "loaded win32 helper"},
			wantPlatform: PlatformWindows,
			wantVersion:  "1.6.8",
		},
		{
			name:         "desktop without hints",
			lines:        []string{"Desktop Version 1.6.9"},
			wantPlatform: PlatformDesktop,
			wantVersion:  "1.6.9",
		},
		{
			name:         "chrome extension",
			lines:        []string{"Extension Version: 1.5.2", "Chrome 120"},
			wantPlatform: PlatformChromeExtension,
			wantVersion:  "1.5.2",
		},
		{
			name:         "web timer",
			lines:        []string{"web-timer build 3.1.0"},
			wantPlatform: PlatformWebTimer,
			wantVersion:  "3.1.0",
		},
		{
			name:         "generic with fallback platform",
			lines:        []string{"Client Version: 1.7.10", "NSApplication did finish launching"},
			wantPlatform: PlatformMac,
			wantVersion:  "1.7.10",
		},
		{
			name:         "no version",
			lines:        []string{"kCLErrorDomain error 0"},
			wantPlatform: PlatformIOS,
		},
		{
			name:  "nothing",
			lines: []string{"hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New().DetectFromLines(tt.lines)
			if p.Platform != tt.wantPlatform {
				t.Errorf("Platform = %q, want %q", p.Platform, tt.wantPlatform)
			}
			if p.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", p.Version, tt.wantVersion)
			}
			if p.Build != tt.wantBuild {
				t.Errorf("Build = %q, want %q", p.Build, tt.wantBuild)
			}
		})
	}
}

func TestDetector_FirstVersionWins(t *testing.T) {
	p := New().DetectFromLines([]string{
		"Client Version: 1.7.10",
		"Hubstaff/2.2.70",
	})
	if p.Version != "1.7.10" {
		t.Errorf("Version = %q, want the first version line", p.Version)
	}
	if p.VersionLine != "Client Version: 1.7.10" {
		t.Errorf("VersionLine = %q", p.VersionLine)
	}
}

func TestDetector_KnownIssue(t *testing.T) {
	p := New().DetectFromLines([]string{"Hubstaff/2.2.68"})
	if p.KnownIssue == "" {
		t.Fatal("expected a known issue for iOS 2.2.68")
	}
	if p.FullVersion() != "2.2.68" {
		t.Errorf("FullVersion = %q", p.FullVersion())
	}

	p = New(WithKnownIssues(nil)).DetectFromLines([]string{"Hubstaff/2.2.68"})
	if p.KnownIssue != "" {
		t.Errorf("KnownIssue = %q with an empty table", p.KnownIssue)
	}
}

func TestDetector_AndroidDevice(t *testing.T) {
	lines := []string{
		"props {user_id=42, user_name=Jane Doe, user_email=jane@example.com, organization_name=Acme, organization_id=7}",
		"device manufacturer: samsung model: SM-G991B OS: 33",
		"locationState is [SERVICES_ENABLED, PERMISSIONS_ENABLED] locationEnabled = true",
		"device primary: false",
		"permission state is State(NOTIFICATION, enabled=true) State(FOREGROUND_LOCATION, enabled=true) State(BACKGROUND_LOCATION, enabled=false)",
		"isIgnoringBatteryOptimization: =false isPowerSaveMode: =true isWifiEnabled: =true",
		"STARTUP_UNCLEAN",
		"STARTUP_UNCLEAN",
		"java.net.UnknownHostException: Could not resolve host",
		"TRACKING_NOT_STARTED requires being at a job site",
	}
	p := New().DetectFromLines(lines)

	if p.Platform != PlatformAndroid {
		t.Errorf("Platform = %q, want Android", p.Platform)
	}
	if p.User.ID != "42" || p.User.Name != "Jane Doe" || p.User.Email != "jane@example.com" {
		t.Errorf("User = %+v", p.User)
	}
	if p.Org.ID != "7" || p.Org.Name != "Acme" {
		t.Errorf("Org = %+v", p.Org)
	}
	if p.Device != (Device{Manufacturer: "samsung", Model: "SM-G991B", OSVersion: "33"}) {
		t.Errorf("Device = %+v", p.Device)
	}

	checks := []struct {
		name string
		got  *bool
		want bool
	}{
		{"services", p.Location.ServicesEnabled, true},
		{"accuracy", p.Location.AccuracyEnabled, false},
		{"location enabled", p.Location.LocationEnabled, true},
		{"primary", p.Location.IsPrimary, false},
		{"notification", p.Permissions.Notification, true},
		{"background location", p.Permissions.BackgroundLocation, false},
		{"battery opt disabled", p.DeviceState.BatteryOptDisabled, false},
		{"power save", p.DeviceState.PowerSaveMode, true},
		{"wifi", p.DeviceState.WifiEnabled, true},
	}
	for _, c := range checks {
		if c.got == nil || *c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if p.Issues.UncleanStartups != 2 || p.Issues.DNSErrors != 1 || p.Issues.JobSiteBlocks != 1 {
		t.Errorf("Issues = %+v", p.Issues)
	}
}

func TestDetector_UnknownStateStaysNil(t *testing.T) {
	p := New().DetectFromLines([]string{"nothing here"})
	if p.Location.IsPrimary != nil || p.DeviceState.BatteryOptDisabled != nil || p.Permissions.Motion != nil {
		t.Errorf("expected unknown state to be nil: %+v", p)
	}
	if p.Issues.DNSErrorLines == nil || p.Issues.JobSiteBlockLines == nil {
		t.Error("issue line slices must be non-nil")
	}
}

func TestDetector_IOSPermissions(t *testing.T) {
	p := New().DetectFromLines([]string{
		"SESSION: device_locations=denied precise=false",
		"consents: {locations: true}",
		"[Position] request denied",
	})
	if p.IOSLocationPermission != "denied" {
		t.Errorf("IOSLocationPermission = %q", p.IOSLocationPermission)
	}
	if !p.IOSLocationBlocked {
		t.Error("IOSLocationBlocked = false")
	}
	if p.LocationConsentLine == "" || p.LocationDeniedLine == "" {
		t.Errorf("consent %q denied %q", p.LocationConsentLine, p.LocationDeniedLine)
	}
}

func TestDetector_Brave(t *testing.T) {
	p := New().DetectFromLines([]string{`    name "Brave Browser"`})
	if !p.BraveInLogs {
		t.Error("BraveInLogs = false")
	}
}

func TestDetector_SampleSize(t *testing.T) {
	lines := []string{"hello", "Client Version: 1.7.10"}
	if p := New(WithSampleSize(1)).DetectFromLines(lines); p.Version != "" {
		t.Errorf("Version = %q, want none within the sample", p.Version)
	}
	if p := New(WithSampleSize(0)).DetectFromLines(lines); p.Version != "1.7.10" {
		t.Errorf("Version = %q, want 1.7.10", p.Version)
	}
}

func TestDetector_DetectFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.log")
	content := strings.Join([]string{
		"2024-01-15 10:30:00 [INFO] app.cpp:1 Client Version: 1.7.9",
		"2024-01-15 10:30:01 [INFO] app.cpp:2 loaded win32 helper",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := New().DetectFromFile(context.Background(), path, parser.Limits{})
	if err != nil {
		t.Fatalf("DetectFromFile: %v", err)
	}
	if p.Version != "1.7.9" || p.Platform != PlatformWindows {
		t.Errorf("profile = %s %s", p.Platform, p.Version)
	}

	if _, err := New().DetectFromFile(context.Background(), filepath.Join(dir, "missing.log"), parser.Limits{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a", 199) + "é"
	if got := excerpt(long); got != strings.Repeat("a", 199) {
		t.Errorf("excerpt split a rune: len %d", len(got))
	}
}
