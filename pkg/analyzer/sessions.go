package analyzer

import (
	"strings"
	"time"
)

// sessionTracker rebuilds tracking sessions from START/STOP lines.
// At most one session is open at a time.
type sessionTracker struct {
	open     *Session
	sessions []Session
}

func newSessionTracker() *sessionTracker {
	return &sessionTracker{sessions: []Session{}}
}

func isTrackingStart(line string) bool {
	return strings.Contains(line, "START_TRACKING") || strings.Contains(line, "Tracking Started")
}

func isTrackingStop(line string) bool {
	return strings.Contains(line, "STOP_TRACKING") || strings.Contains(line, "Tracking Stopped")
}

func startReason(line string) StartReason {
	switch {
	case strings.Contains(line, "[RESUMED]") || strings.Contains(strings.ToLower(line), "resumed"):
		return StartResumed
	case strings.Contains(line, "[IDLE]"):
		return StartIdle
	default:
		return StartUser
	}
}

func stopReason(line string) StopReason {
	switch {
	case strings.Contains(line, "[IDLE]"):
		return StopIdle
	case strings.Contains(line, "[CONFIGURATION]"):
		return StopConfig
	case strings.Contains(line, "[PROJECT_CONFIGURATION_LOCATION]"):
		return StopLeftJobsite
	case strings.Contains(line, "[SHUTDOWN]"):
		return StopShutdown
	default:
		return StopUser
	}
}

// observe feeds one visible line. A line may both start and stop a
// session; the start is handled first.
func (t *sessionTracker) observe(line string, ts *time.Time) {
	if isTrackingStart(line) {
		if t.open != nil {
			t.close(ts, StopCrashed)
		}
		t.open = &Session{Start: ts, StartReason: startReason(line)}
	}
	if isTrackingStop(line) && t.open != nil {
		t.close(ts, stopReason(line))
	}
}

func (t *sessionTracker) close(ts *time.Time, reason StopReason) {
	s := *t.open
	s.Stop = ts
	s.StopReason = reason
	s.DurationSeconds = durationSeconds(s.Start, s.Stop)
	t.sessions = append(t.sessions, s)
	t.open = nil
}

// finish closes a session still open at the end of the log.
func (t *sessionTracker) finish(end *time.Time) []Session {
	if t.open != nil {
		t.close(end, StopLogEnd)
	}
	return t.sessions
}

// durationSeconds is stop minus start in whole seconds, zero when either
// end is unknown or the interval is negative.
func durationSeconds(start, stop *time.Time) int64 {
	if start == nil || stop == nil {
		return 0
	}
	d := int64(stop.Sub(*start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
