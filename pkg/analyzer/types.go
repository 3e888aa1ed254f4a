// Package analyzer reconstructs tracking sessions, idle decisions, app
// lifecycle cycles and a health score from time-tracker client logs.
package analyzer

import (
	"time"

	"github.com/ccollicutt/logdoctor/pkg/geo"
	"github.com/ccollicutt/logdoctor/pkg/netblock"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// Event is one classified line placed into a category stream.
type Event struct {
	Timestamp *time.Time   `json:"ts"`
	Level     parser.Level `json:"level"`
	Source    string       `json:"src"`
	Message   string       `json:"msg"`
	Raw       string       `json:"raw"`

	// ExtractedType is set on app events: URL, Title or App.
	ExtractedType string `json:"extractedType,omitempty"`

	// Extracted is the URL, window title or application name.
	Extracted string `json:"extracted,omitempty"`
}

// Kinds of extracted app activity.
const (
	ExtractedURL   = "URL"
	ExtractedTitle = "Title"
	ExtractedApp   = "App"
)

// Input types for InjectedInput.
const (
	InputSimulated = "simulated"
	InputInjected  = "injected"
)

// InjectedInput is a line reporting synthetic or unrecognised input.
type InjectedInput struct {
	Event

	InputType string `json:"inputType"`
	Detail    string `json:"inputDetail"`

	MouseReal            int `json:"mouseReal"`
	MouseInjected        int `json:"mouseInjected"`
	MouseLowIntegrity    int `json:"mouseLowIntegrity"`
	KeyboardReal         int `json:"kbReal"`
	KeyboardInjected     int `json:"kbInjected"`
	KeyboardLowIntegrity int `json:"kbLowIntegrity"`

	// OnlyInjected is true when both devices reported injected input and
	// neither reported real input.
	OnlyInjected bool `json:"onlyInjected"`
}

// StartReason explains why a tracking session began.
type StartReason string

const (
	StartUser    StartReason = "USER"
	StartResumed StartReason = "RESUMED"
	StartIdle    StartReason = "IDLE"
)

// StopReason explains why a tracking session ended.
type StopReason string

const (
	StopUser        StopReason = "USER"
	StopIdle        StopReason = "IDLE"
	StopConfig      StopReason = "CONFIG"
	StopLeftJobsite StopReason = "LEFT_JOBSITE"
	StopShutdown    StopReason = "SHUTDOWN"
	StopCrashed     StopReason = "CRASHED"
	StopLogEnd      StopReason = "LOG_END"
)

// Session is one START..STOP tracking interval.
type Session struct {
	Start       *time.Time  `json:"start"`
	StartReason StartReason `json:"startReason"`
	Stop        *time.Time  `json:"stop"`
	StopReason  StopReason  `json:"stopReason"`

	// DurationSeconds is stop minus start, never negative.
	DurationSeconds int64 `json:"duration"`
}

// IdleOutcome is the user's answer to the idle prompt.
type IdleOutcome string

const (
	IdleKept               IdleOutcome = "KEPT"
	IdleDiscardedStopped   IdleOutcome = "DISCARDED_STOPPED"
	IdleDiscardedContinued IdleOutcome = "DISCARDED_CONTINUED"
)

// IdleDecision pairs an idle wake-up with the user's keep/discard choice.
type IdleDecision struct {
	Timestamp      *time.Time  `json:"ts"`
	Seconds        int         `json:"seconds"`
	Decision       IdleOutcome `json:"decision"`
	DecisionDetail string      `json:"decisionDetail"`
	KeepIdle       bool        `json:"keepIdle"`
	StopTracking   bool        `json:"stopTracking"`

	// ResponseTimeSeconds is how long the prompt was open, when logged.
	ResponseTimeSeconds *int `json:"responseTimeSecs"`

	Exceeds1Hour bool   `json:"exceeds1Hour"`
	RawValues    string `json:"rawValues"`
}

// AuthenticatedUser is a user seen authenticating via token.
type AuthenticatedUser struct {
	Email     string     `json:"email"`
	UserID    string     `json:"userId"`
	FirstSeen *time.Time `json:"firstSeen"`
	LastSeen  *time.Time `json:"lastSeen"`
	AuthCount int        `json:"authCount"`
}

// EnteredSites is a snapshot of the sites the device believes it is inside.
type EnteredSites struct {
	Timestamp *time.Time `json:"ts"`
	Sites     string     `json:"sites"`
}

// StartupType distinguishes clean from crash-recovery startups.
type StartupType string

const (
	StartupClean   StartupType = "CLEAN"
	StartupUnclean StartupType = "UNCLEAN"
)

// AuthType classifies a silent-app authentication event.
type AuthType string

const (
	AuthToken         AuthType = "TOKEN"
	AuthOffline       AuthType = "OFFLINE"
	AuthProvisionFail AuthType = "PROVISION_FAIL"
)

// ResumeType classifies a silent-app resume event.
type ResumeType string

const (
	ResumeDetected      ResumeType = "DETECTED"
	ResumeIgnored       ResumeType = "IGNORED"
	ResumeNeedsConfirm  ResumeType = "NEEDS_CONFIRM"
	ResumeTrackingAgain ResumeType = "TRACKING"
)

// Startup is a silent-app process start.
type Startup struct {
	Timestamp *time.Time  `json:"ts"`
	Type      StartupType `json:"type"`
}

// Shutdown is a silent-app process exit.
type Shutdown struct {
	Timestamp *time.Time `json:"ts"`
	Reason    string     `json:"reason"`
}

// AuthEvent is a silent-app authentication attempt.
type AuthEvent struct {
	Timestamp *time.Time `json:"ts"`
	Type      AuthType   `json:"type"`
	User      string     `json:"user,omitempty"`
	UserID    string     `json:"userId,omitempty"`
}

// Resume is a silent-app attempt to reconcile a tracking gap.
type Resume struct {
	Timestamp *time.Time `json:"ts"`
	Type      ResumeType `json:"type"`
	Duration  string     `json:"duration,omitempty"`
	StartTime string     `json:"startTime,omitempty"`
}

// Marker is a timestamp-only occurrence.
type Marker struct {
	Timestamp *time.Time `json:"ts"`
}

// Message is a timestamped excerpt of a log line.
type Message struct {
	Timestamp *time.Time `json:"ts"`
	Msg       string     `json:"msg"`
}

// MemorySnapshot is one "Client MEM:" reading.
type MemorySnapshot struct {
	Timestamp      *time.Time `json:"ts"`
	UsedBytes      int64      `json:"usedBytes"`
	TotalBytes     int64      `json:"totalBytes"`
	PagefileUsed   *int64     `json:"pagefileUsed"`
	PagefileTotal  *int64     `json:"pagefileTotal"`
	WorkingSet     *int64     `json:"workingSet"`
	WorkingSetPeak *int64     `json:"workingSetPeak"`
}

// UsedPercent returns the rounded share of memory in use, and false when
// the total is unknown.
func (m MemorySnapshot) UsedPercent() (int, bool) {
	if m.TotalBytes <= 0 {
		return 0, false
	}
	return int(float64(m.UsedBytes)/float64(m.TotalBytes)*100 + 0.5), true
}

// ResumeThreshold is the organisation's keep/discard resume policy.
type ResumeThreshold struct {
	Keep    string `json:"keep"`
	Discard string `json:"discard"`
}

// AutoStartStop is an automatic start or stop of tracking.
type AutoStartStop struct {
	Timestamp *time.Time `json:"ts"`
	Type      string     `json:"type"`
	Detail    string     `json:"detail"`
}

// SilentApp holds facts about the unattended corporate client variant.
type SilentApp struct {
	Detected          bool   `json:"detected"`
	Version           string `json:"version"`
	EnterpriseProfile string `json:"enterpriseProfile"`
	CorporateUser     string `json:"corporateUser"`

	Startups           []Startup           `json:"startups"`
	Shutdowns          []Shutdown          `json:"shutdowns"`
	AuthEvents         []AuthEvent         `json:"authEvents"`
	AuthenticatedUsers []AuthenticatedUser `json:"authenticatedUsers"`
	Resumes            []Resume            `json:"resumes"`
	CaptureDesktop     []Marker            `json:"captureDesktop"`
	HelperDied         int                 `json:"helperDied"`
	HelperDiedEvents   []Marker            `json:"helperDiedEvents"`
	StopErrors         []Message           `json:"stopErrors"`
	SystemMem          *MemorySnapshot     `json:"systemMem"`
	SystemMemSnapshots []MemorySnapshot    `json:"systemMemSnapshots"`
	ResumeThreshold    *ResumeThreshold    `json:"resumeThreshold"`
	AutoStartStops     []AutoStartStop     `json:"autoStartStops"`
	DoubleStarts       []Marker            `json:"doubleStarts"`
	SSLErrors          []Message           `json:"sslErrors"`
	HTTP429s           []Message           `json:"http429s"`
	PendingDetected    []Marker            `json:"pendingDetected"`
	NetworkBlocks      *netblock.Blocks    `json:"networkBlocks"`
}

// Severity ranks screenshot risk factors.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// RiskFactor is one reason screenshots may come out blank.
type RiskFactor struct {
	Reason   string   `json:"reason"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

// SecuritySoftware is a security or virtualisation product named in the log.
type SecuritySoftware struct {
	Timestamp *time.Time `json:"ts"`
	Name      string     `json:"name"`
}

// ScreenshotHealth collects screenshot activity and blank-screenshot risks.
type ScreenshotHealth struct {
	Captures               []Message          `json:"captures"`
	Uploads                []Message          `json:"uploads"`
	WriteEvents            []Message          `json:"writeEvents"`
	Failures               []Message          `json:"failures"`
	SleepDuringTracking    []Marker           `json:"sleepDuringTracking"`
	HelperCrashNearCapture int                `json:"helperCrashNearCapture"`
	BlankRiskFactors       []RiskFactor       `json:"blankRiskFactors"`
	SecuritySoftware       []SecuritySoftware `json:"securitySoftware"`
	PermissionIssues       []Message          `json:"permissionIssues"`
}

// HasCriticalRisk reports whether any risk factor is critical.
func (s *ScreenshotHealth) HasCriticalRisk() bool {
	for _, f := range s.BlankRiskFactors {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ShutdownReason says how a lifecycle cycle ended.
type ShutdownReason string

const (
	ShutdownClean   ShutdownReason = "CLEAN"
	ShutdownCrashed ShutdownReason = "CRASHED"
	ShutdownRunning ShutdownReason = "RUNNING"
)

// CycleSession is a tracking session as seen from inside a lifecycle cycle.
type CycleSession struct {
	Start           *time.Time  `json:"start"`
	Reason          StartReason `json:"reason"`
	Stop            *time.Time  `json:"stop"`
	StopReason      StopReason  `json:"stopReason,omitempty"`
	DurationSeconds int64       `json:"duration"`
}

// LifecycleCycle is one continuous client run from startup to shutdown.
type LifecycleCycle struct {
	StartupTs      *time.Time     `json:"startupTs"`
	StartupType    StartupType    `json:"startupType"`
	ShutdownTs     *time.Time     `json:"shutdownTs"`
	ShutdownReason ShutdownReason `json:"shutdownReason"`
	UptimeMs       int64          `json:"uptime"`

	TrackingSessions    []CycleSession `json:"trackingSessions"`
	TotalTrackedSeconds int64          `json:"totalTrackedSecs"`

	HadScreenSleep bool       `json:"hadScreenSleep"`
	HadResume      bool       `json:"hadResume"`
	ResumeType     ResumeType `json:"resumeType,omitempty"`
	ResumeDuration string     `json:"resumeDuration,omitempty"`
	AuthOK         bool       `json:"authOk"`
	AuthFailed     bool       `json:"authFailed"`
	HadStopError   bool       `json:"hadStopError"`

	// GapAfterMs is the offline time before the next cycle's startup.
	GapAfterMs  *int64 `json:"gapAfterMs"`
	MultiDayGap bool   `json:"multiDayGap"`
}

// CheckStatus is the outcome of one health check.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// HealthCheck is one scored line of the health report.
type HealthCheck struct {
	Status CheckStatus `json:"status"`
	Label  string      `json:"label"`
	Detail string      `json:"detail"`

	// Penalty is the number of points this check subtracted.
	Penalty int `json:"penalty"`
}

// MultiDayGap is a shutdown followed by more than a day of downtime.
type MultiDayGap struct {
	ShutdownTs time.Time `json:"shutdownTs"`
	StartupTs  time.Time `json:"startupTs"`
	GapHours   float64   `json:"gapHours"`
	GapDays    float64   `json:"gapDays"`
}

// HealthReport is the composite silent-app health score.
type HealthReport struct {
	Score        int           `json:"score"`
	Rating       string        `json:"rating"`
	Checks       []HealthCheck `json:"checks"`
	MultiDayGaps []MultiDayGap `json:"multiDayGaps"`
}

// DateRange is an inclusive calendar-day window.
type DateRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// FilterStats records how much the noise filter removed.
type FilterStats struct {
	InputLines int `json:"inputLines"`
	KeptLines  int `json:"keptLines"`
}

// Removed is the number of lines the noise filter dropped.
func (f FilterStats) Removed() int { return f.InputLines - f.KeptLines }

// Result is everything derived from one analysis.
type Result struct {
	TotalLines int `json:"total"`

	Errors      []Event         `json:"errors"`
	Warnings    []Event         `json:"warnings"`
	Screenshots []Event         `json:"screenshots"`
	Network     []Event         `json:"network"`
	Locations   []Event         `json:"locations"`
	Apps        []Event         `json:"apps"`
	Tracking    []Event         `json:"tracking"`
	Injected    []InjectedInput `json:"injected"`

	Sessions           []Session           `json:"sessions"`
	AuthenticatedUsers []AuthenticatedUser `json:"authenticatedUsers"`
	IdleDecisions      []IdleDecision      `json:"idleDecisions"`
	IdleKeptSecs       int                 `json:"idleKeptSecs"`
	IdleDiscardedSecs  int                 `json:"idleDiscardedSecs"`

	// Timezone is the client's UTC offset as "±HH:MM", or "".
	Timezone  string     `json:"timezone"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`

	JobSites              []geo.Site       `json:"jobSites"`
	UserLocations         []geo.Fix        `json:"userLocations"`
	CurrentlyEnteredSites []EnteredSites   `json:"currentlyEnteredSites"`
	GeofenceEvents        []geo.Transition `json:"geofenceEvents"`

	NetworkBlocks    *netblock.Blocks  `json:"networkBlocks"`
	SilentApp        *SilentApp        `json:"silentApp"`
	ScreenshotHealth *ScreenshotHealth `json:"screenshotHealth"`
	Cycles           []LifecycleCycle  `json:"cycles"`
	// Health is set only when SilentApp.Detected.
	Health *HealthReport `json:"health,omitempty"`

	// Files lists the names from boundary markers of a merged input.
	Files []string `json:"files"`

	Filter    *FilterStats `json:"filter,omitempty"`
	DateRange *DateRange   `json:"dateRange,omitempty"`
}

// TrackedSeconds sums the duration of all sessions.
func (r *Result) TrackedSeconds() int64 {
	var total int64
	for _, s := range r.Sessions {
		total += s.DurationSeconds
	}
	return total
}

// LogSpanSeconds is the time between the first and last timestamps.
func (r *Result) LogSpanSeconds() int64 {
	if r.StartTime == nil || r.EndTime == nil {
		return 0
	}
	return int64(r.EndTime.Sub(*r.StartTime) / time.Second)
}
