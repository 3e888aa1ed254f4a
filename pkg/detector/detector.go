// Package detector identifies the client platform, app version and device
// state described by a time-tracker log.
package detector

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

var (
	manufacturerPattern = regexp.MustCompile(`(?i)manufacturer\s*:`)
	mfgPattern          = regexp.MustCompile(`(?i)manufacturer\s*:\s*(\w+)`)
	modelPattern        = regexp.MustCompile(`(?i)model:\s*([\w-]+)`)
	osPattern           = regexp.MustCompile(`(?i)OS:\s*(\d+)`)

	userIDPattern    = regexp.MustCompile(`user_id=(\d+)`)
	userNamePattern  = regexp.MustCompile(`user_name=([^,}]+)`)
	userEmailPattern = regexp.MustCompile(`user_email=([^,}]+)`)
	orgNamePattern   = regexp.MustCompile(`organization_name=([^,}]+)`)
	orgIDPattern     = regexp.MustCompile(`organization_id=(\d+)`)

	devicePermPattern = regexp.MustCompile(`device_locations=(\w+)`)
)

// lineExcerpt is how much of a matched line a Profile keeps.
const lineExcerpt = 200

// Profile is everything the detector learned about the client and device.
type Profile struct {
	Platform    string `json:"platform,omitempty"`
	Version     string `json:"version,omitempty"`
	Build       string `json:"build,omitempty"`
	VersionLine string `json:"versionLine,omitempty"`
	KnownIssue  string `json:"knownIssue,omitempty"`

	User   Identity `json:"user"`
	Org    Identity `json:"org"`
	Device Device   `json:"device"`

	Location    LocationState `json:"location"`
	Permissions Permissions   `json:"permissions"`
	DeviceState DeviceState   `json:"deviceState"`

	// IOSLocationPermission is the device_locations value of an iOS
	// SESSION line, e.g. "denied" or "authorizedWhenInUse".
	IOSLocationPermission string `json:"iosLocationPermission,omitempty"`
	IOSPermissionLine     string `json:"-"`

	// LocationDeniedLine is the first line where iOS refused a location request.
	LocationDeniedLine string `json:"-"`

	// LocationConsentLine is the first line showing in-app location consent.
	LocationConsentLine string `json:"-"`

	// IOSLocationBlocked is set when any line shows iOS blocking location.
	IOSLocationBlocked bool `json:"iosLocationBlocked"`

	BatteryOptLine string `json:"-"`
	BraveInLogs    bool   `json:"braveInLogs"`

	Issues IssueCounts `json:"issues"`
}

// FullVersion returns "version-build", or just the version.
func (p *Profile) FullVersion() string {
	if p.Build == "" {
		return p.Version
	}
	return p.Version + "-" + p.Build
}

// Identity is a user or organisation reference.
type Identity struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Device is the hardware reported by a mobile client.
type Device struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	OSVersion    string `json:"osVersion,omitempty"`
}

// LocationState is the device location configuration. Nil means unknown.
type LocationState struct {
	IsPrimary          *bool `json:"isPrimary"`
	ServicesEnabled    *bool `json:"servicesEnabled"`
	PermissionsEnabled *bool `json:"permissionsEnabled"`
	AccuracyEnabled    *bool `json:"accuracyEnabled"`
	LocationEnabled    *bool `json:"locationEnabled"`
}

// Permissions are the Android runtime permissions. Nil means unknown.
type Permissions struct {
	Notification       *bool `json:"notification"`
	ForegroundLocation *bool `json:"foregroundLocation"`
	BackgroundLocation *bool `json:"backgroundLocation"`
	Motion             *bool `json:"motion"`
}

// DeviceState is the Android power and connectivity state. Nil means unknown.
type DeviceState struct {
	BatteryOptDisabled *bool `json:"batteryOptDisabled"`
	PowerSaveMode      *bool `json:"powerSaveMode"`
	DeviceIdle         *bool `json:"deviceIdle"`
	WifiEnabled        *bool `json:"wifiEnabled"`
	IsInteractive      *bool `json:"isInteractive"`
}

// IssueCounts are whole-log counters of common failure lines.
type IssueCounts struct {
	DNSErrors       int `json:"dnsErrors"`
	UncleanStartups int `json:"uncleanStartups"`
	JobSiteBlocks   int `json:"jobSiteBlocks"`

	DNSErrorLines     []string `json:"-"`
	JobSiteBlockLines []string `json:"-"`
}

// Detector builds a Profile from log lines.
type Detector struct {
	formats     []*VersionFormat
	knownIssues map[string]map[string]string
	sampleSize  int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize limits detection to the first n lines (default: all).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithKnownIssues replaces the known-problematic version table.
func WithKnownIssues(issues map[string]map[string]string) Option {
	return func(d *Detector) {
		d.knownIssues = issues
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:     DefaultFormats(),
		knownIssues: DefaultKnownIssues(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile reads a (possibly compressed) log file and profiles it.
func (d *Detector) DetectFromFile(_ context.Context, path string, limits parser.Limits) (*Profile, error) {
	f, err := parser.ReadFile(path, limits)
	if err != nil {
		return nil, err
	}
	return d.DetectFromText(f.Content), nil
}

// DetectFromText profiles a whole log blob.
func (d *Detector) DetectFromText(text string) *Profile {
	return d.DetectFromLines(parser.SplitLines(text))
}

// DetectFromLines profiles a slice of log lines. It never fails; anything
// not found is left empty.
func (d *Detector) DetectFromLines(lines []string) *Profile {
	if d.sampleSize > 0 && len(lines) > d.sampleSize {
		lines = lines[:d.sampleSize]
	}
	p := &Profile{
		Issues: IssueCounts{DNSErrorLines: []string{}, JobSiteBlockLines: []string{}},
	}

	seen := scanMarkers(lines)
	d.detectVersion(p, lines, seen)
	if p.Platform == "" {
		p.Platform = seen.fallback()
	}
	if p.Version != "" {
		p.KnownIssue = d.knownIssues[p.Platform][p.Version]
	}

	b := &builder{p: p}
	for _, line := range lines {
		b.observe(line)
	}
	return p
}

func (d *Detector) detectVersion(p *Profile, lines []string, seen *markers) {
	for _, line := range lines {
		for _, f := range d.formats {
			if !f.Match(line) {
				continue
			}
			for _, re := range f.Patterns {
				m := re.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				p.Version = m[1]
				if len(m) > 2 {
					p.Build = m[2]
				}
				p.Platform = f.Platform(line, seen)
				p.VersionLine = excerpt(line)
				return
			}
		}
	}
}

// builder applies the first-line-wins and counting rules line by line.
type builder struct {
	p          *Profile
	userSeen   bool
	deviceSeen bool
}

func (b *builder) observe(line string) {
	p := b.p
	if !b.userSeen && strings.Contains(line, "user_id=") && strings.Contains(line, "user_name=") {
		b.userSeen = true
		p.User = Identity{
			ID:    group(userIDPattern, line),
			Name:  group(userNamePattern, line),
			Email: group(userEmailPattern, line),
		}
		p.Org = Identity{
			ID:   group(orgIDPattern, line),
			Name: group(orgNamePattern, line),
		}
	}

	if !b.deviceSeen && strings.Contains(line, "device manufacturer") {
		b.deviceSeen = true
		p.Device = Device{
			Manufacturer: group(mfgPattern, line),
			Model:        group(modelPattern, line),
			OSVersion:    group(osPattern, line),
		}
	}

	if p.Location.ServicesEnabled == nil && strings.Contains(line, "locationState is") {
		p.Location.ServicesEnabled = has(line, "SERVICES_ENABLED")
		p.Location.PermissionsEnabled = has(line, "PERMISSIONS_ENABLED")
		p.Location.AccuracyEnabled = has(line, "ACCURACY_ENABLED")
		p.Location.LocationEnabled = has(line, "locationEnabled = true")
	}
	if p.Location.IsPrimary == nil && strings.Contains(line, "primary:") {
		p.Location.IsPrimary = has(line, "primary: true")
	}

	if p.Permissions.Notification == nil && strings.Contains(line, "permission state is State") {
		p.Permissions = Permissions{
			Notification:       has(line, "NOTIFICATION, enabled=true"),
			ForegroundLocation: has(line, "FOREGROUND_LOCATION, enabled=true"),
			BackgroundLocation: has(line, "BACKGROUND_LOCATION, enabled=true"),
			Motion:             has(line, "USER_MOTION, enabled=true"),
		}
	}

	if p.BatteryOptLine == "" && strings.Contains(line, "isIgnoringBatteryOptimization") {
		p.BatteryOptLine = excerpt(line)
		p.DeviceState = DeviceState{
			BatteryOptDisabled: has(line, "isIgnoringBatteryOptimization: =true"),
			PowerSaveMode:      has(line, "isPowerSaveMode: =true"),
			DeviceIdle:         has(line, "isDeviceIdle: =true"),
			WifiEnabled:        has(line, "isWifiEnabled: =true"),
			IsInteractive:      has(line, "isInteractive: =true"),
		}
	}

	if p.IOSPermissionLine == "" && strings.Contains(line, "SESSION:") && strings.Contains(line, "device_locations=") {
		if v := group(devicePermPattern, line); v != "" {
			p.IOSPermissionLine = line
			p.IOSLocationPermission = v
		}
	}
	if p.LocationDeniedLine == "" &&
		(strings.Contains(line, "kCLErrorDomain Code=1") || (strings.Contains(line, "[Position]") && strings.Contains(line, "denied"))) {
		p.LocationDeniedLine = excerpt(line)
	}
	if p.LocationConsentLine == "" && strings.Contains(line, "consents") && strings.Contains(line, "locations") && strings.Contains(line, "true") {
		p.LocationConsentLine = line
	}
	if containsAny(line, "device_locations=denied", "device_locations=undetermined") ||
		(strings.Contains(line, "kCLErrorDomain") && strings.Contains(line, "Code=1")) {
		p.IOSLocationBlocked = true
	}

	if strings.Contains(line, "name") && strings.Contains(strings.ToLower(line), "brave") {
		p.BraveInLogs = true
	}

	if containsAny(line, "Could not resolve host", "UnknownHostException") {
		p.Issues.DNSErrors++
		p.Issues.DNSErrorLines = append(p.Issues.DNSErrorLines, line)
	}
	if strings.Contains(line, "STARTUP_UNCLEAN") {
		p.Issues.UncleanStartups++
	}
	if containsAny(line, "TRACKING_NOT_STARTED", "requires being at a job site") {
		p.Issues.JobSiteBlocks++
		p.Issues.JobSiteBlockLines = append(p.Issues.JobSiteBlockLines, line)
	}
}

func has(line, marker string) *bool {
	b := strings.Contains(line, marker)
	return &b
}

func group(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func excerpt(line string) string {
	if len(line) <= lineExcerpt {
		return line
	}
	cut := lineExcerpt
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut]
}
