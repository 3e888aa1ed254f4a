package analyzer

import "testing"

func TestIdleTracker_Outcomes(t *testing.T) {
	tests := []struct {
		line   string
		want   IdleOutcome
		detail string
	}{
		{"KeepIdle: 1 / StopTracking: 0", IdleKept, "User clicked YES to keep idle time"},
		{"KeepIdle: 1 / StopTracking: 1", IdleKept, "User clicked YES to keep idle time"},
		{"KeepIdle: 0 / StopTracking: 1", IdleDiscardedStopped, "User clicked NO and stopped tracking"},
		{"KeepIdle: 0 / StopTracking: 0", IdleDiscardedContinued, "User clicked NO but continued tracking"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			it := newIdleTracker()
			it.observe("IDLE_WAKE after 90 seconds", nil)
			it.observe(tt.line, nil)
			if len(it.decisions) != 1 {
				t.Fatalf("decisions = %d, want 1", len(it.decisions))
			}
			d := it.decisions[0]
			if d.Decision != tt.want || d.DecisionDetail != tt.detail {
				t.Errorf("decision = %s (%q), want %s", d.Decision, d.DecisionDetail, tt.want)
			}
			if d.Seconds != 90 {
				t.Errorf("Seconds = %d, want 90", d.Seconds)
			}
			if d.RawValues != tt.line {
				t.Errorf("RawValues = %q, want %q", d.RawValues, tt.line)
			}
		})
	}
}

func TestIdleTracker_PendingConsumedOnce(t *testing.T) {
	it := newIdleTracker()
	it.observe("Idle wake-up for 4000 seconds", nil)
	it.observe("KeepIdle: 1 / StopTracking: 0", nil)
	it.observe("KeepIdle: 0 / StopTracking: 1", nil)

	if len(it.decisions) != 2 {
		t.Fatalf("decisions = %d, want 2", len(it.decisions))
	}
	if first := it.decisions[0]; first.Seconds != 4000 || !first.Exceeds1Hour {
		t.Errorf("first = %+v, want 4000s exceeding an hour", first)
	}
	if second := it.decisions[1]; second.Seconds != 0 {
		t.Errorf("second Seconds = %d, want 0 once the wake-up is consumed", second.Seconds)
	}
	if it.keptSecs != 4000 || it.discardedSecs != 0 {
		t.Errorf("kept/discarded = %d/%d, want 4000/0", it.keptSecs, it.discardedSecs)
	}
}

func TestIdleTracker_ResponseTime(t *testing.T) {
	it := newIdleTracker()
	it.observe("IDLE_WAKE after 300 seconds", nil)
	it.observe("dialog closed after 45 seconds with KeepIdle: 0 StopTracking: 0", nil)

	d := it.decisions[0]
	if d.ResponseTimeSeconds == nil || *d.ResponseTimeSeconds != 45 {
		t.Errorf("ResponseTimeSeconds = %v, want 45", d.ResponseTimeSeconds)
	}
	if d.Seconds != 300 {
		t.Errorf("Seconds = %d, want 300", d.Seconds)
	}
}

func TestIdleTotals(t *testing.T) {
	kept, discarded := IdleTotals([]IdleDecision{
		{Seconds: 10, Decision: IdleKept},
		{Seconds: 20, Decision: IdleDiscardedStopped},
		{Seconds: 30, Decision: IdleDiscardedContinued},
	})
	if kept != 10 || discarded != 50 {
		t.Errorf("IdleTotals = %d/%d, want 10/50", kept, discarded)
	}
}
