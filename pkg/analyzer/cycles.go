package analyzer

import (
	"sort"
	"time"
)

// MultiDayThreshold is the offline gap above which a restart is flagged.
const MultiDayThreshold = 24 * time.Hour

type cycleEventKind int

const (
	evStartup cycleEventKind = iota
	evShutdown
	evResume
	evScreenSleep
	evAuth
	evStopError
	evTrackStart
	evTrackStop
)

type cycleEvent struct {
	ts   *time.Time
	kind cycleEventKind

	startupType StartupType
	resumeType  ResumeType
	duration    string
	authType    AuthType
	startReason StartReason
	stopReason  StopReason
	trackedSecs int64
}

// BuildCycles groups silent-app events into startup-to-shutdown cycles.
// Every startup begins a cycle; a startup while a cycle is still open
// closes it as CRASHED. A cycle still open at the end of the log is
// RUNNING until end.
func BuildCycles(sa *SilentApp, sessions []Session, end *time.Time) []LifecycleCycle {
	cycles := []LifecycleCycle{}
	if sa == nil {
		return cycles
	}

	var cur *LifecycleCycle
	closeCycle := func(ts *time.Time, reason ShutdownReason) {
		cur.ShutdownTs = ts
		cur.ShutdownReason = reason
		cur.UptimeMs = spanMs(cur.StartupTs, ts)
		cycles = append(cycles, *cur)
		cur = nil
	}

	for _, ev := range cycleEvents(sa, sessions) {
		if ev.kind == evStartup {
			if cur != nil {
				closeCycle(ev.ts, ShutdownCrashed)
			}
			cur = &LifecycleCycle{
				StartupTs:        ev.ts,
				StartupType:      ev.startupType,
				TrackingSessions: []CycleSession{},
			}
			continue
		}
		if cur == nil {
			continue
		}

		switch ev.kind {
		case evShutdown:
			closeCycle(ev.ts, ShutdownClean)
		case evScreenSleep:
			cur.HadScreenSleep = true
		case evResume:
			cur.HadResume = true
			cur.ResumeType = ev.resumeType
			cur.ResumeDuration = ev.duration
		case evAuth:
			switch ev.authType {
			case AuthToken:
				cur.AuthOK = true
			case AuthProvisionFail:
				cur.AuthFailed = true
			}
		case evStopError:
			cur.HadStopError = true
		case evTrackStart:
			cur.TrackingSessions = append(cur.TrackingSessions, CycleSession{Start: ev.ts, Reason: ev.startReason})
		case evTrackStop:
			if n := len(cur.TrackingSessions); n > 0 && cur.TrackingSessions[n-1].Stop == nil {
				last := &cur.TrackingSessions[n-1]
				last.Stop = ev.ts
				last.StopReason = ev.stopReason
				last.DurationSeconds = ev.trackedSecs
				cur.TotalTrackedSeconds += ev.trackedSecs
			}
		}
	}

	if cur != nil {
		cur.ShutdownReason = ShutdownRunning
		cur.UptimeMs = spanMs(cur.StartupTs, end)
		cycles = append(cycles, *cur)
	}

	for i := 0; i+1 < len(cycles); i++ {
		curr, next := &cycles[i], cycles[i+1]
		if curr.ShutdownTs == nil || next.StartupTs == nil {
			continue
		}
		gap := next.StartupTs.Sub(*curr.ShutdownTs)
		ms := gap.Milliseconds()
		curr.GapAfterMs = &ms
		curr.MultiDayGap = gap > MultiDayThreshold
	}
	return cycles
}

// cycleEvents merges all lifecycle inputs into one stable chronological
// stream. Events without a timestamp sort first.
func cycleEvents(sa *SilentApp, sessions []Session) []cycleEvent {
	var evs []cycleEvent
	for _, s := range sa.Startups {
		evs = append(evs, cycleEvent{ts: s.Timestamp, kind: evStartup, startupType: s.Type})
	}
	for _, s := range sa.Shutdowns {
		evs = append(evs, cycleEvent{ts: s.Timestamp, kind: evShutdown})
	}
	for _, r := range sa.Resumes {
		evs = append(evs, cycleEvent{ts: r.Timestamp, kind: evResume, resumeType: r.Type, duration: r.Duration})
	}
	for _, c := range sa.CaptureDesktop {
		evs = append(evs, cycleEvent{ts: c.Timestamp, kind: evScreenSleep})
	}
	for _, a := range sa.AuthEvents {
		evs = append(evs, cycleEvent{ts: a.Timestamp, kind: evAuth, authType: a.Type})
	}
	for _, e := range sa.StopErrors {
		evs = append(evs, cycleEvent{ts: e.Timestamp, kind: evStopError})
	}
	for _, s := range sessions {
		evs = append(evs, cycleEvent{ts: s.Start, kind: evTrackStart, startReason: s.StartReason})
		if s.Stop != nil {
			evs = append(evs, cycleEvent{ts: s.Stop, kind: evTrackStop, stopReason: s.StopReason, trackedSecs: s.DurationSeconds})
		}
	}

	sort.SliceStable(evs, func(i, j int) bool {
		return unixOrZero(evs[i].ts) < unixOrZero(evs[j].ts)
	})
	return evs
}

func spanMs(from, to *time.Time) int64 {
	if from == nil || to == nil {
		return 0
	}
	return to.Sub(*from).Milliseconds()
}
