package explain

import "regexp"

// pattern pairs a case-insensitive expression with its explanation.
type pattern struct {
	re     *regexp.Regexp
	text   string
	action string
}

func p(expr, text, action string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)` + expr), text: text, action: action}
}

const (
	iosAlways     = "Settings > Privacy & Security > Location Services > Hubstaff > Always"
	makePrimary   = "User needs to make this device primary."
	checkInternet = "Check internet connectivity."
)

var errorPatterns = []pattern{
	p(`\[Position\] Couldn't obtain location.*denied.*Code=1`, "Location permission DENIED at iOS level",
		"Go to iOS "+iosAlways+". The app requested location but iOS blocked it because permission is set to Never or While Using."),
	p(`\[Position\] Couldn't obtain location.*Code=0`, "Location unknown: device couldn't determine position",
		"GPS signal may be weak. Have the user try outdoors with a clear sky view, or check that Location Services are enabled globally."),
	p(`\[Position\] Couldn't obtain location`, "Device cannot access the user's location",
		"Check that location services are enabled and permissions are set to Always."),
	p(`\[Site\] Region issue`, "Problem monitoring job site region", "May affect job site detection. Check location permissions and GPS signal."),
	p(`\[LocationResolution\].*error`, "Failed to resolve location name", "Geocoding issue: may show coordinates instead of address names."),
	p(`kCLErrorDomain Code=1`, "iOS location permission denied (kCLErrorDomain)", "This iOS error means location permission is denied. Go to "+iosAlways+"."),
	p(`kCLErrorDomain Code=0`, "iOS location unknown (kCLErrorDomain)", "iOS couldn't determine location. Check GPS signal and make sure Location Services are on globally."),
	p(`Could not resolve host`, "DNS resolution failed: no internet",
		"Device cannot reach the servers. Check that WiFi or mobile data is on, airplane mode is off, and try switching networks."),
	p(`Network Error.*code=6`, "Network error code 6: cannot resolve DNS", "Device has no working internet connection. WiFi may be connected but not working."),
	p(`UnknownHostException`, "Java DNS error: no internet", "Android cannot resolve server addresses. "+checkInternet),
	p(`Unable to update the tokens`, "Token refresh failed: network issue", "Could not refresh the login session. Usually caused by no internet connection."),
	p(`failed to request current location.*cancelled`, "Location request cancelled", "Location update was cancelled, possibly because the app was backgrounded or a permission issue."),
}

var auditPatterns = []pattern{
	p(`Locations needed but non-primary device`, "Can't track: this isn't the primary device", "User needs to tap the banner to make this device primary, or use their primary device."),
	p(`Locations needed but unavailable`, "Can't track: location not available", "Check that Location Services are on, the app permission is Always and Precise Location is on."),
	p(`Must visit.*currently at`, "Can't start timer: not at a job site", "User must be physically at a job site to start tracking (Restrict timer to job sites is on)."),
	p(`\[Site\] Handle.*ENTER.*passive`, "Entered job site (detected in background)", ""),
	p(`\[Site\] Handle.*ENTER.*active`, "Entered job site (while tracking)", ""),
	p(`\[Site\] Handle.*EXIT.*passive`, "Left job site (detected in background)", ""),
	p(`\[Site\] Handle.*EXIT.*active`, "Left job site (while tracking)", ""),
	p(`auto-start project`, "Timer auto-started by job site rule", ""),
	p(`auto-stop project`, "Timer auto-stopped by job site rule", ""),
	p(`DID NOT auto-start.*was prevented`, "Job site tried to auto-start but was blocked", "Check the lines above this one for the specific reason."),
	p(`DID NOT auto-start.*already tracking`, "Job site didn't auto-start: already tracking another project", "Normal behavior: it won't interrupt current work."),
	p(`WILL NOT auto-start.*not primary`, "Job site won't auto-start: not primary device", makePrimary),
	p(`DID NOT auto-stop.*is tracking project`, "Job site didn't auto-stop: tracking a different project", "Normal: it only stops when tracking the site's configured project."),
	p(`WILL NOT auto-stop.*not primary`, "Job site won't auto-stop: not primary device", makePrimary),
	p(`notify reminder`, "Sent reminder notification to user", ""),
	p(`TRACKING_NOT_STARTED.*requires being at a job site`, "Timer blocked: not at required job site",
		"User tried to start the timer away from any configured job site. The organization has Restrict timer to job sites enabled."),
	p(`Timer could not be started.*requires being at a job site`, "Timer blocked: job site restriction",
		"The organization requires users to be physically at a job site to start tracking."),
	p(`STARTUP_UNCLEAN`, "App crashed or was force-closed last time",
		"The app didn't shut down properly. Check if the user force-closed it or if Android killed it."),
	p(`STARTUP_CLEAN`, "App started normally after clean shutdown", ""),
	p(`\(FOREGROUNDED\)`, "App brought to foreground", ""),
	p(`\(BACKGROUNDED\)`, "App sent to background", ""),
}

var infoPatterns = []pattern{
	p(`\[LocationRequest\].*not the user's primary device`, "Location request ignored: not primary device", "Only the primary device reports locations."),
	p(`\[LocationRequest\].*locations are not available`, "Location request failed: unavailable", "Check location permissions and services."),
	p(`\[LocationRequest\].*neither active or passive`, "Location request ignored: not recording", "Track Locations may be off, or the timer is not running."),
	p(`Discarding simulated locations`, "Fake or simulated location detected and ignored", "User may be using a location spoofing app. These are blocked."),
	p(`\[Site\] REGION STOP`, "Stopped monitoring a job site region", ""),
	p(`\[Site\] REGION START`, "Started monitoring a job site region", ""),
	p(`suspicious movement`, "Fast movement detected: rechecking job sites", "User may be driving away from the site."),
	p(`permission state is State.*BACKGROUND_LOCATION.*enabled=false`, "Android background location permission DENIED",
		"Enable Allow all the time: Settings > Apps > Hubstaff > Permissions > Location."),
	p(`permission state is State.*BACKGROUND_LOCATION.*enabled=true`, "Android background location granted", ""),
	p(`locationState is \[SERVICES_ENABLED, PERMISSIONS_ENABLED, ACCURACY_ENABLED\]`, "Android location services fully enabled", ""),
	p(`isIgnoringBatteryOptimization.*=false`, "Battery optimization ENABLED: may kill the app", "Disable battery optimization: Settings > Apps > Hubstaff > Battery > Unrestricted."),
	p(`isIgnoringBatteryOptimization.*=true`, "Battery optimization correctly disabled", ""),
	p(`handling geofence event.*transitionType=ENTER`, "Entered geofence area", ""),
	p(`handling geofence event.*transitionType=EXIT`, "Exited geofence area", ""),
	p(`updated \d+ geofences succesfully`, "Job site geofences registered", ""),
	p(`sites count:.*wrappers count:`, "Job sites loaded", ""),
	p(`motion event.*VEHICLE`, "Driving activity detected", ""),
	p(`motion event.*STILL`, "Stationary activity detected", ""),
}

var tracePatterns = []pattern{
	p(`Primary changed`, "Primary device status changed", ""),
	p(`Location Availability changed`, "Location availability changed", ""),
	p(`Recording changed`, "Location recording state changed", ""),
	p(`AccuracyLimited changed`, "Location accuracy limited (low power or hot device)", ""),
}

var permissionPatterns = []pattern{
	p(`device_locations=undetermined`, "Location permission NOT YET REQUESTED",
		"User hasn't responded to the location prompt. Open the app and answer it, or go to "+iosAlways+"."),
	p(`device_locations=denied`, "Location permission DENIED", "User denied location permission. Go to iOS "+iosAlways+"."),
	p(`device_locations=restricted`, "Location permission RESTRICTED",
		"Location is restricted by device management (MDM) or parental controls. Contact the IT admin to allow location access."),
	p(`device_locations=authorizedWhenInUse`, "Location set to While Using: NOT SUFFICIENT",
		"While Using won't work for background tracking. Change it to Always in iOS Settings."),
	p(`device_locations=authorizedAlways`, "Location permission correctly set to Always", ""),
	p(`status=notDetermined`, "iOS location permission not yet determined", "User needs to respond to the location prompt, or enable it manually: "+iosAlways+"."),
}

// allPatterns is the fallback search order when the level's own table has
// no match.
var allPatterns = [][]pattern{errorPatterns, auditPatterns, infoPatterns, tracePatterns, permissionPatterns}
