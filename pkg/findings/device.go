package findings

import (
	"fmt"
	"strings"
)

func versionFinding(in *input, out []Finding) []Finding {
	p := in.p
	if p.Version == "" {
		return append(out, Finding{
			Severity:    SeverityInfo,
			Title:       "App Version: Not Detected",
			Description: "Could not find app version in logs. This may be a partial log or the version info was not captured.",
			Action:      "Ask the user for their app version from Settings > About, or check the device info in the Admin panel.",
		})
	}

	platform := p.Platform
	if platform == "" {
		platform = "App"
	}
	if p.KnownIssue != "" {
		return append(out, Finding{
			Severity:    SeverityCritical,
			Title:       fmt.Sprintf("%s Version: %s (KNOWN ISSUES)", platform, p.FullVersion()),
			Description: p.KnownIssue,
			Action:      "Have the user update to the latest version immediately.",
			Detail:      p.VersionLine,
		})
	}
	return append(out, Finding{
		Severity:    SeverityInfo,
		Title:       fmt.Sprintf("%s Version: %s", platform, p.FullVersion()),
		Description: "Detected from logs. Check the releases page to verify if current.",
		Detail:      p.VersionLine,
	})
}

const iosLocationSettings = "iOS Settings > Privacy & Security > Location Services > Hubstaff"

func iosPermissionFindings(in *input, out []Finding) []Finding {
	p := in.p
	denied := false

	switch p.IOSLocationPermission {
	case "undetermined":
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Location Permission Not Yet Granted",
			Description: "iOS location permission is undetermined: the user has not responded to the location permission prompt, or it was never shown.",
			Action:      "Open the app and approve the location prompt if shown, or go to " + iosLocationSettings + ", select Always and enable Precise Location.",
			Detail:      p.IOSPermissionLine,
		})
	case "denied":
		denied = true
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Location Permission Denied",
			Description: "iOS location permission is denied. The app cannot access location at all.",
			Action:      "Go to " + iosLocationSettings + " and select Always. The prompt may have been denied by accident.",
			Detail:      p.IOSPermissionLine,
		})
	case "restricted":
		out = append(out, Finding{
			Severity:    SeverityCritical,
			Title:       "Location Permission Restricted",
			Description: "iOS location permission is restricted by device management (MDM) or parental controls.",
			Action:      "Contact the IT administrator who manages this device to allow location access in the MDM profile.",
			Detail:      p.IOSPermissionLine,
		})
	case "authorizedWhenInUse":
		out = append(out, Finding{
			Severity: SeverityWarning,
			Title:    `Location Set to "While Using": Insufficient`,
			Description: `iOS location permission is set to "While Using App". This is NOT sufficient for background location tracking. ` +
				"Locations will only be recorded while the app is open and on screen.",
			Action: `Change the location permission from "While Using the App" to "Always". Background tracking requires Always.`,
			Detail: p.IOSPermissionLine,
		})
	}

	if p.LocationDeniedLine != "" && !denied {
		out = append(out, Finding{
			Severity: SeverityCritical,
			Title:    "iOS Blocked Location Request",
			Description: "Found iOS error kCLErrorDomain Code=1, which means iOS actively denied a location request. " +
				"Even if the app has internal consent, iOS is blocking location access.",
			Action: "Change the iOS location permission: " + iosLocationSettings + " > Always.",
			Detail: p.LocationDeniedLine,
		})
	}

	if p.LocationConsentLine != "" && p.IOSLocationBlocked {
		out = append(out, Finding{
			Severity: SeverityCritical,
			Title:    "Permission Mismatch Detected",
			Description: "The app has location consent enabled (consents.locations: true), but iOS is blocking location access. " +
				"The user agreed to tracking in the app but the iOS permission is wrong.",
			Action: "Fix the iOS permission: " + iosLocationSettings + " > Always.",
			Detail: "App consent: " + clip(p.LocationConsentLine, 100),
		})
	}
	return out
}

func batteryFinding(in *input, out []Finding) []Finding {
	p := in.p
	if p.BatteryOptLine == "" || (p.DeviceState.BatteryOptDisabled != nil && *p.DeviceState.BatteryOptDisabled) {
		return out
	}
	return append(out, Finding{
		Severity: SeverityWarning,
		Title:    "Battery Optimization NOT Disabled",
		Description: "Android battery optimization is active for the app. Android may kill it in the background to save battery, " +
			"causing tracking gaps and missed notifications.",
		Action: "Settings > Apps > Hubstaff > Battery > Unrestricted. Samsung: also check Device Care > Battery > App power management.",
		Detail: p.BatteryOptLine,
	})
}

func crashCountFinding(in *input, out []Finding) []Finding {
	n := in.p.Issues.UncleanStartups
	switch {
	case n > 5:
		return append(out, Finding{
			Severity: SeverityCritical,
			Title:    fmt.Sprintf("App Killed/Crashed %d Times", n),
			Description: fmt.Sprintf("Found %d unclean startup events. The app is being repeatedly killed by Android or crashing. "+
				"This is very likely caused by aggressive battery optimization.", n),
			Action: "Disable battery optimization for the app. On Samsung, remove it from the Sleeping apps and Deep sleeping apps lists. " +
				"Enable Autostart if the device offers it.",
			Detail: fmt.Sprintf("Found %d STARTUP_UNCLEAN events in logs", n),
		})
	case n > 0:
		return append(out, Finding{
			Severity:    SeverityWarning,
			Title:       fmt.Sprintf("App Crashed/Force-Closed %s", plural(n, "Time")),
			Description: fmt.Sprintf("The app detected %s from previous sessions.", plural(n, "unclean shutdown")),
			Action:      "Check if the user is force-closing the app or if battery optimization is killing it in the background.",
		})
	}
	return out
}

func jobSiteBlockFinding(in *input, out []Finding) []Finding {
	issues := in.p.Issues
	if issues.JobSiteBlocks == 0 {
		return out
	}
	return append(out, Finding{
		Severity: SeverityCritical,
		Title:    fmt.Sprintf("Timer Blocked %d Times: Not At Job Site", issues.JobSiteBlocks),
		Description: fmt.Sprintf("User attempted to start the timer %s but was blocked because they were not at a job site. "+
			`The organization has "Restrict timer to job sites" enabled.`, plural(issues.JobSiteBlocks, "time")),
		Action: "User must be physically at a configured job site to start tracking. If they ARE at a site, check GPS accuracy outdoors, " +
			"increase the job site radius to 100-150m, or verify the job site pin on the map.",
		Detail: clipLines(issues.JobSiteBlockLines, 3, 120),
	})
}

func dnsFinding(in *input, out []Finding) []Finding {
	issues := in.p.Issues
	if issues.DNSErrors == 0 {
		return out
	}
	return append(out, Finding{
		Severity: SeverityCritical,
		Title:    fmt.Sprintf("Network/DNS Failures Detected (%d errors)", issues.DNSErrors),
		Description: fmt.Sprintf("Found %d DNS resolution failures. The device could not reach the servers because there was no working internet connection.",
			issues.DNSErrors),
		Action: "Check that WiFi or mobile data is on and airplane mode is off, try switching between WiFi and cellular, or restart the device. Data cannot sync without internet.",
		Detail: clipLines(issues.DNSErrorLines, 2, 100),
	})
}

// manufacturerAdvice holds battery-management advice for aggressive OEMs.
var manufacturerAdvice = map[string]string{
	"samsung": `Samsung devices have aggressive battery optimization. Ensure the app is set to "Unrestricted" and NOT in "Sleeping apps" or "Deep sleeping apps".`,
	"xiaomi":  `Xiaomi/MIUI has very aggressive battery management. Enable "Autostart" for the app and disable all battery restrictions.`,
	"redmi":   `Xiaomi/MIUI has very aggressive battery management. Enable "Autostart" for the app and disable all battery restrictions.`,
	"huawei":  `Huawei restricts background apps heavily. Add the app to "Protected Apps" and disable power-saving for it.`,
	"oppo":    `OPPO/Realme has aggressive app killing. Enable "Allow Auto-start" and disable battery optimization for the app.`,
	"realme":  `OPPO/Realme has aggressive app killing. Enable "Allow Auto-start" and disable battery optimization for the app.`,
	"oneplus": "OnePlus: Settings > Battery > Battery Optimization > Hubstaff > Don't optimize.",
}

func androidDeviceFinding(in *input, out []Finding) []Finding {
	d := in.p.Device
	if d.Manufacturer == "" && d.Model == "" {
		return out
	}
	orUnknown := func(s string) string {
		if s == "" {
			return "Unknown"
		}
		return s
	}
	return append(out, Finding{
		Severity:    SeverityInfo,
		Title:       fmt.Sprintf("Android Device: %s %s (API %s)", orUnknown(d.Manufacturer), orUnknown(d.Model), orUnknown(d.OSVersion)),
		Description: "Detected Android device from logs.",
		Action:      manufacturerAdvice[strings.ToLower(d.Manufacturer)],
	})
}

func clipLines(lines []string, n, width int) string {
	out := make([]string, 0, n)
	for i, l := range lines {
		if i == n {
			break
		}
		out = append(out, clip(l, width))
	}
	return strings.Join(out, "\n")
}
