package detector

import (
	"regexp"
	"strings"
)

// Platform names reported in a Profile.
const (
	PlatformIOS              = "iOS"
	PlatformAndroid          = "Android"
	PlatformWindows          = "Windows"
	PlatformMac              = "Mac"
	PlatformLinux            = "Linux"
	PlatformDesktop          = "Desktop"
	PlatformChromeExtension  = "Chrome Extension"
	PlatformFirefoxExtension = "Firefox Extension"
	PlatformBrowserExtension = "Browser Extension"
	PlatformChromebook       = "Chromebook"
	PlatformWebTimer         = "Web Timer"
)

var (
	semverPattern       = regexp.MustCompile(`(\d+\.\d+\.\d+)`)
	androidBuildPattern = regexp.MustCompile(`\d+\.\d+\.\d+-\d{4,}`)
)

// VersionFormat recognises the version line of one client family.
type VersionFormat struct {
	// Name is a human-readable label.
	Name string

	// Match reports whether a line is a candidate version line.
	Match func(line string) bool

	// Patterns are tried in order. Group 1 is the version, group 2 (when
	// present) the build number.
	Patterns []*regexp.Regexp

	// Platform names the platform for a matched line.
	Platform func(line string, seen *markers) string
}

// markers records platform hints seen anywhere in the log.
type markers struct {
	windows, mac, linux bool
	chrome, firefox     bool

	ios, android  bool
	windowsNative bool
	macNative     bool
	linuxNative   bool
}

func scanMarkers(lines []string) *markers {
	m := &markers{}
	for _, l := range lines {
		m.windows = m.windows || strings.Contains(l, "Windows") || strings.Contains(l, "win32")
		m.mac = m.mac || strings.Contains(l, "macOS") || strings.Contains(l, "darwin")
		m.linux = m.linux || strings.Contains(l, "Linux") || strings.Contains(l, "linux")
		m.chrome = m.chrome || strings.Contains(l, "Chrome")
		m.firefox = m.firefox || strings.Contains(l, "Firefox")

		m.ios = m.ios || containsAny(l, "UIKit", "kCLErrorDomain", "CoreLocation")
		m.android = m.android || strings.Contains(l, "android.") || manufacturerPattern.MatchString(l) ||
			strings.Contains(l, "Xiaomi") || strings.Contains(l, "Samsung")
		m.windowsNative = m.windowsNative || containsAny(l, "WindowsInput", "win32", "Windows")
		m.macNative = m.macNative || containsAny(l, "macOS", "darwin", "NSApplication")
		m.linuxNative = m.linuxNative || (strings.Contains(l, "Linux") && !strings.Contains(l, "linux-"))
	}
	return m
}

// fallback picks a platform from indirect hints when no version line
// named one.
func (m *markers) fallback() string {
	switch {
	case m.ios:
		return PlatformIOS
	case m.android:
		return PlatformAndroid
	case m.windowsNative:
		return PlatformWindows
	case m.macNative:
		return PlatformMac
	case m.linuxNative:
		return PlatformLinux
	}
	return ""
}

func fixed(name string) func(string, *markers) string {
	return func(string, *markers) string { return name }
}

// DefaultFormats returns the built-in version formats.
// Order matters: the first format to yield a version wins.
func DefaultFormats() []*VersionFormat {
	return []*VersionFormat{
		{
			Name: "iOS build",
			Match: func(l string) bool {
				return containsAny(l, "Hubstaff/", "CFBundle", "-main-g")
			},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(\d+\.\d+\.\d+)-(\d+)-main-g[a-f0-9]+`),
				regexp.MustCompile(`Hubstaff/(\d+\.\d+\.\d+)`),
				regexp.MustCompile(`CFBundleShortVersionString[:\s]+(\d+\.\d+\.\d+)`),
			},
			Platform: fixed(PlatformIOS),
		},
		{
			Name: "Android build",
			Match: func(l string) bool {
				return strings.Contains(l, "versionName") || androidBuildPattern.MatchString(l)
			},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(\d+\.\d+\.\d+)-(\d{4,})`),
				regexp.MustCompile(`versionName[=:\s]+(\d+\.\d+\.\d+)`),
			},
			Platform: fixed(PlatformAndroid),
		},
		{
			Name: "Desktop",
			Match: func(l string) bool {
				return containsAny(l, "Hubstaff Desktop", "Desktop Version")
			},
			Patterns: []*regexp.Regexp{semverPattern},
			Platform: func(l string, m *markers) string {
				lower := strings.ToLower(l)
				switch {
				case strings.Contains(lower, "windows") || m.windows:
					return PlatformWindows
				case strings.Contains(lower, "mac") || m.mac:
					return PlatformMac
				case strings.Contains(lower, "linux") || m.linux:
					return PlatformLinux
				}
				return PlatformDesktop
			},
		},
		{
			Name: "Browser extension",
			Match: func(l string) bool {
				return strings.Contains(l, "Extension") && strings.Contains(l, "Version")
			},
			Patterns: []*regexp.Regexp{semverPattern},
			Platform: func(l string, m *markers) string {
				lower := strings.ToLower(l)
				switch {
				case strings.Contains(lower, "chrome") || m.chrome:
					return PlatformChromeExtension
				case strings.Contains(lower, "firefox") || m.firefox:
					return PlatformFirefoxExtension
				}
				return PlatformBrowserExtension
			},
		},
		{
			Name:     "Chromebook",
			Match:    func(l string) bool { return containsAny(l, "Chromebook", "ChromeOS", "CrOS") },
			Patterns: []*regexp.Regexp{semverPattern},
			Platform: fixed(PlatformChromebook),
		},
		{
			Name:     "Web Timer",
			Match:    func(l string) bool { return containsAny(l, "Web Timer", "web-timer") },
			Patterns: []*regexp.Regexp{semverPattern},
			Platform: fixed(PlatformWebTimer),
		},
		{
			Name: "Generic",
			Match: func(l string) bool {
				return containsAny(l, "App Version", "Client Version", "APPLICATION_VERSION")
			},
			Patterns: []*regexp.Regexp{semverPattern},
			Platform: fixed(""),
		},
	}
}

// DefaultKnownIssues lists versions with known defects, by platform.
func DefaultKnownIssues() map[string]map[string]string {
	return map[string]map[string]string{
		PlatformIOS: {
			"2.2.68": "Known bug causing locations to temporarily stop uploading.",
			"2.2.65": "Issues with background location tracking on some devices.",
		},
		PlatformAndroid: {
			"2.2.68": "Geofence detection reliability issues.",
		},
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
