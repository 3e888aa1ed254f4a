package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	idleWakePattern     = regexp.MustCompile(`(?i)(?:after|for)\s+(\d+)\s+seconds?`)
	keepIdlePattern     = regexp.MustCompile(`(?i)KeepIdle[:\s]+(\d+)`)
	stopTrackingPattern = regexp.MustCompile(`(?i)StopTracking[:\s]+(\d+)`)
	responseTimePattern = regexp.MustCompile(`(?i)after\s+(\d+)\s+seconds?\s+with`)
)

// idleState is the state of the wake/decision protocol.
type idleState int

const (
	// idleWaiting: no wake-up is pending.
	idleWaiting idleState = iota
	// idleArmed: a wake-up was seen and the next decision consumes it.
	idleArmed
)

// idleTracker pairs idle wake-up lines with the keep/discard decision that
// follows them.
type idleTracker struct {
	state       idleState
	pendingSecs int

	decisions     []IdleDecision
	keptSecs      int
	discardedSecs int
}

func newIdleTracker() *idleTracker {
	return &idleTracker{decisions: []IdleDecision{}}
}

func (t *idleTracker) observe(line string, ts *time.Time) {
	if strings.Contains(line, "IDLE_WAKE") || (strings.Contains(line, "Idle") && strings.Contains(line, "wake")) {
		if m := idleWakePattern.FindStringSubmatch(line); m != nil {
			if secs, err := strconv.Atoi(m[1]); err == nil {
				t.state = idleArmed
				t.pendingSecs = secs
			}
		}
	}

	if strings.Contains(line, "KeepIdle") && strings.Contains(line, "StopTracking") {
		t.decide(line, ts)
	}
}

func (t *idleTracker) decide(line string, ts *time.Time) {
	keep := flagSet(keepIdlePattern, line)
	stop := flagSet(stopTrackingPattern, line)

	secs := 0
	if t.state == idleArmed {
		secs = t.pendingSecs
	}

	d := IdleDecision{
		Timestamp:    ts,
		Seconds:      secs,
		KeepIdle:     keep,
		StopTracking: stop,
		Exceeds1Hour: secs > 3600,
		RawValues:    fmt.Sprintf("KeepIdle: %s / StopTracking: %s", bit(keep), bit(stop)),
	}
	d.Decision, d.DecisionDetail = classifyIdle(keep, stop)

	if m := responseTimePattern.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			d.ResponseTimeSeconds = &n
		}
	}

	t.decisions = append(t.decisions, d)
	if keep {
		t.keptSecs += secs
	} else {
		t.discardedSecs += secs
	}

	t.state = idleWaiting
	t.pendingSecs = 0
}

// classifyIdle maps the two decision flags to an outcome.
func classifyIdle(keep, stop bool) (IdleOutcome, string) {
	switch {
	case keep:
		return IdleKept, "User clicked YES to keep idle time"
	case stop:
		return IdleDiscardedStopped, "User clicked NO and stopped tracking"
	default:
		return IdleDiscardedContinued, "User clicked NO but continued tracking"
	}
}

// IdleTotals sums kept and discarded idle seconds over decisions.
func IdleTotals(decisions []IdleDecision) (kept, discarded int) {
	for _, d := range decisions {
		if d.Decision == IdleKept {
			kept += d.Seconds
		} else {
			discarded += d.Seconds
		}
	}
	return kept, discarded
}

func flagSet(re *regexp.Regexp, line string) bool {
	m := re.FindStringSubmatch(line)
	return m != nil && m[1] == "1"
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
