package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logdoctor/pkg/geo"
	"github.com/ccollicutt/logdoctor/pkg/netblock"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

var (
	httpErrorPattern = regexp.MustCompile(`Response:\s*[45]\d{2}`)

	sitePattern          = regexp.MustCompile(`id=(\d+),\s*name=([^,]+),\s*loc\s*\(([^,]+),\s*([^,]+),\s*(\d+)\)`)
	userLocationPattern  = regexp.MustCompile(`latitude=([^,]+),\s*longitude=([^,]+),\s*hAccuracy=([^)]+)`)
	enteredSitesPattern  = regexp.MustCompile(`currently entered sites are:\s*\[([^\]]*)\]`)
	transitionPattern    = regexp.MustCompile(`transitionType=(\w+)`)
	transitionLatPattern = regexp.MustCompile(`latitude=([\d.-]+)`)
	transitionLngPattern = regexp.MustCompile(`longitude=([\d.-]+)`)
	transitionAccPattern = regexp.MustCompile(`hAccuracy=([\d.]+)`)
)

// category routes matching lines into one event stream.
type category struct {
	name   string
	match  func(l *scanLine) bool
	stream func(r *Result) *[]Event
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// categories are independent; a line may land in several streams.
var categories = []category{
	{
		name: "errors",
		match: func(l *scanLine) bool {
			return l.Level == parser.LevelError ||
				containsAny(l.Raw, "main_watchdog hit", "Helper died", "crash", "FATAL")
		},
		stream: func(r *Result) *[]Event { return &r.Errors },
	},
	{
		name: "warnings",
		match: func(l *scanLine) bool {
			return l.Level == parser.LevelWarn ||
				containsAny(l.Raw, "Discard=", "OS Memory", "Server Error", "traffic issue")
		},
		stream: func(r *Result) *[]Event { return &r.Warnings },
	},
	{
		name: "screenshots",
		match: func(l *scanLine) bool {
			return containsAny(l.Raw, "Uploading Screen", "Capture Screen", "ScreenData", "screenshot", "Screenshot")
		},
		stream: func(r *Result) *[]Event { return &r.Screenshots },
	},
	{
		name: "network",
		match: func(l *scanLine) bool {
			return httpErrorPattern.MatchString(l.Raw) ||
				containsAny(l.Raw, "Server Error", "Network", "CURL", "traffic issue")
		},
		stream: func(r *Result) *[]Event { return &r.Network },
	},
	{
		name:   "locations",
		match:  func(l *scanLine) bool { return isLocationLine(l.Raw) },
		stream: func(r *Result) *[]Event { return &r.Locations },
	},
	{
		name: "tracking",
		match: func(l *scanLine) bool {
			return containsAny(l.Raw, "Resume", "Idle", "Discard=", "Startup", "START_TRACKING", "STOP_TRACKING")
		},
		stream: func(r *Result) *[]Event { return &r.Tracking },
	},
}

func isLocationLine(line string) bool {
	if containsAny(line,
		"feed: sites", "LocationFeatureState", "LocationManager", "geofence", "Geofence",
		"Job Site", "[Site]", "[Position]", "[LocationRequest]", "[LocationResolution]",
		"primary device", "Primary changed") {
		return true
	}
	return strings.Contains(strings.ToLower(line), "location") &&
		containsAny(line, "permission", "unavailable", "denied")
}

// extractor is the event extraction pass. It sees every line for time
// range and timezone bookkeeping, and runs category extraction on the
// lines the DEBUG/TRACE gate leaves visible.
type extractor struct {
	includeDebug bool
	includeTrace bool

	start, end *time.Time
	timezone   string

	events   map[string][]Event
	injected []InjectedInput
	apps     []Event
	sessions *sessionTracker
	idle     *idleTracker
	users    *userRegistry
	shots    *screenshotStreams
	blocks   *netblock.Blocks

	jobSites  []geo.Site
	locations []geo.Fix
	entered   []EnteredSites
	geofences []geo.Transition
}

func newExtractor(includeDebug, includeTrace bool) *extractor {
	return &extractor{
		includeDebug: includeDebug,
		includeTrace: includeTrace,
		events:       make(map[string][]Event, len(categories)),
		injected:     []InjectedInput{},
		apps:         []Event{},
		sessions:     newSessionTracker(),
		idle:         newIdleTracker(),
		users:        newUserRegistry(),
		shots:        newScreenshotStreams(),
		blocks:       netblock.NewBlocks(),
		jobSites:     []geo.Site{},
		locations:    []geo.Fix{},
		entered:      []EnteredSites{},
		geofences:    []geo.Transition{},
	}
}

func (x *extractor) Name() string { return "extract" }

// visible applies the DEBUG/TRACE gate. App activity lines are always
// processed because the app list depends on them.
func (x *extractor) visible(l *scanLine) bool {
	switch l.Level {
	case parser.LevelDebug:
		return x.includeDebug || isAppActivity(l.Raw)
	case parser.LevelTrace:
		return x.includeTrace
	default:
		return true
	}
}

func isAppActivity(line string) bool {
	return (strings.Contains(line, "ApplicationGrabber") && strings.Contains(line, "URL:")) ||
		strings.Contains(line, "Switched to app") ||
		strings.Contains(line, "for App :") ||
		(strings.Contains(line, "WindowsGrabber") && strings.Contains(line, "name:")) ||
		strings.Contains(line, "PutApplications")
}

func (x *extractor) Process(l *scanLine) {
	x.observeTime(l)
	if !l.Visible {
		return
	}

	line := l.Raw
	ts := l.ts()
	e := Event{Timestamp: ts, Level: l.Level, Source: l.Source, Message: l.Message, Raw: line}

	if strings.Contains(line, "AUTH_TOKEN") && strings.Contains(line, "via token:") {
		if email, id, ok := parseTokenUser(line); ok {
			x.users.observe(email, id, ts)
		}
	}

	x.sessions.observe(line, ts)
	x.idle.observe(line, ts)

	for _, c := range categories {
		if c.match(l) {
			x.events[c.name] = append(x.events[c.name], e)
		}
	}

	x.shots.observe(line, l.Message, ts)
	x.blocks.ObserveLine(line, ts)

	if kind, value, ok := extractApp(line); ok {
		app := e
		app.ExtractedType = kind
		app.Extracted = value
		x.apps = append(x.apps, app)
	}

	x.injected = append(x.injected, extractInjected(e)...)
	x.observeGeo(line, ts)
}

// observeTime tracks the log's time span and the client's UTC offset.
// An explicit "TZ Offset" line overrides any offset seen earlier.
func (x *extractor) observeTime(l *scanLine) {
	if ts := l.ts(); ts != nil {
		if x.start == nil || ts.Before(*x.start) {
			x.start = ts
		}
		if x.end == nil || ts.After(*x.end) {
			x.end = ts
		}
	}
	if x.timezone == "" || parser.IsExplicitTimezone(l.Raw) {
		if tz := parser.ParseTimezone(l.Raw); tz != "" {
			x.timezone = tz
		}
	}
}

func (x *extractor) observeGeo(line string, ts *time.Time) {
	if strings.Contains(line, "creating geofence") && !strings.Contains(line, "id=-") {
		if m := sitePattern.FindStringSubmatch(line); m != nil {
			lat, errLat := parseFloat(m[3])
			lng, errLng := parseFloat(m[4])
			radius, errRad := strconv.Atoi(m[5])
			if errLat == nil && errLng == nil && errRad == nil {
				x.jobSites = append(x.jobSites, geo.Site{
					ID:        m[1],
					Name:      strings.TrimSpace(m[2]),
					Lat:       lat,
					Lng:       lng,
					Radius:    radius,
					Timestamp: ts,
				})
			}
		}
	}

	if strings.Contains(line, "current location is AppLocation") {
		if m := userLocationPattern.FindStringSubmatch(line); m != nil {
			lat, errLat := parseFloat(m[1])
			lng, errLng := parseFloat(m[2])
			acc, errAcc := parseFloat(m[3])
			if errLat == nil && errLng == nil && errAcc == nil {
				x.locations = append(x.locations, geo.Fix{Timestamp: ts, Lat: lat, Lng: lng, Accuracy: acc})
			}
		}
	}

	if strings.Contains(line, "currently entered sites are:") {
		if m := enteredSitesPattern.FindStringSubmatch(line); m != nil {
			x.entered = append(x.entered, EnteredSites{Timestamp: ts, Sites: strings.TrimSpace(m[1])})
		}
	}

	if strings.Contains(line, "handling geofence event") && strings.Contains(line, "transitionType=") {
		if tr, ok := parseTransition(line, ts); ok {
			x.geofences = append(x.geofences, tr)
		}
	}
}

// parseTransition reads a geofence ENTER/EXIT. Both coordinates are
// required; accuracy is optional.
func parseTransition(line string, ts *time.Time) (geo.Transition, bool) {
	kind := firstGroup(transitionPattern, line)
	if kind != geo.Enter && kind != geo.Exit {
		return geo.Transition{}, false
	}
	lat, errLat := parseFloat(firstGroup(transitionLatPattern, line))
	lng, errLng := parseFloat(firstGroup(transitionLngPattern, line))
	if errLat != nil || errLng != nil {
		return geo.Transition{}, false
	}
	tr := geo.Transition{Timestamp: ts, Type: kind, Lat: lat, Lng: lng}
	if acc, err := parseFloat(firstGroup(transitionAccPattern, line)); err == nil {
		tr.Accuracy = &acc
	}
	return tr, true
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func (x *extractor) Finalize(r *Result) {
	r.StartTime = x.start
	r.EndTime = x.end
	r.Timezone = x.timezone

	for _, c := range categories {
		if evs := x.events[c.name]; evs != nil {
			*c.stream(r) = evs
		}
	}
	r.Apps = x.apps
	r.Injected = x.injected

	r.Sessions = x.sessions.finish(x.end)
	r.IdleDecisions = x.idle.decisions
	r.IdleKeptSecs = x.idle.keptSecs
	r.IdleDiscardedSecs = x.idle.discardedSecs
	r.AuthenticatedUsers = x.users.users

	r.JobSites = geo.UniqueSites(x.jobSites)
	r.UserLocations = x.locations
	r.CurrentlyEnteredSites = x.entered
	r.GeofenceEvents = x.geofences
	r.NetworkBlocks = x.blocks
	r.ScreenshotHealth = x.shots.health()
}
