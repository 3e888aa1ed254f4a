package analyzer

import (
	"time"

	"github.com/ccollicutt/logdoctor/pkg/geo"
)

// DateLayout is the layout of date-range bounds.
const DateLayout = "2006-01-02"

// ParseDateRange parses inclusive "YYYY-MM-DD" bounds. Either may be empty.
func ParseDateRange(from, to string) (*DateRange, error) {
	dr := &DateRange{}
	if from != "" {
		t, err := time.ParseInLocation(DateLayout, from, time.UTC)
		if err != nil {
			return nil, err
		}
		dr.From = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(DateLayout, to, time.UTC)
		if err != nil {
			return nil, err
		}
		dr.To = &t
	}
	return dr, nil
}

// IsZero reports whether neither bound is set.
func (d *DateRange) IsZero() bool {
	return d == nil || (d.From == nil && d.To == nil)
}

// bounds widens the range to cover the whole of both days.
func (d *DateRange) bounds() (from, to *time.Time) {
	if d.From != nil {
		f := time.Date(d.From.Year(), d.From.Month(), d.From.Day(), 0, 0, 0, 0, time.UTC)
		from = &f
	}
	if d.To != nil {
		t := time.Date(d.To.Year(), d.To.Month(), d.To.Day(), 23, 59, 59, 0, time.UTC)
		to = &t
	}
	return from, to
}

// FilterByDate returns a copy of r restricted to the given days. Items
// without a timestamp are kept. Job sites and silent-app facts are not
// filtered; cycles and health are recomputed from the filtered sessions.
// r itself is never modified.
func FilterByDate(r *Result, dr *DateRange, latestVersion string) *Result {
	if dr.IsZero() {
		return r
	}
	from, to := dr.bounds()
	in := func(ts *time.Time) bool {
		if ts == nil {
			return true
		}
		return (from == nil || !ts.Before(*from)) && (to == nil || !ts.After(*to))
	}

	out := *r
	out.Errors = filterEvents(r.Errors, in)
	out.Warnings = filterEvents(r.Warnings, in)
	out.Screenshots = filterEvents(r.Screenshots, in)
	out.Network = filterEvents(r.Network, in)
	out.Locations = filterEvents(r.Locations, in)
	out.Apps = filterEvents(r.Apps, in)
	out.Tracking = filterEvents(r.Tracking, in)
	out.Injected = filterSlice(r.Injected, func(i InjectedInput) bool { return in(i.Timestamp) })

	out.Sessions = filterSlice(r.Sessions, func(s Session) bool {
		if from != nil && (s.Start == nil || s.Start.Before(*from)) {
			return false
		}
		return to == nil || s.Stop == nil || !s.Stop.After(*to)
	})

	out.IdleDecisions = filterSlice(r.IdleDecisions, func(d IdleDecision) bool { return in(d.Timestamp) })
	out.IdleKeptSecs, out.IdleDiscardedSecs = IdleTotals(out.IdleDecisions)

	out.UserLocations = filterSlice(r.UserLocations, func(f geo.Fix) bool { return in(f.Timestamp) })
	out.CurrentlyEnteredSites = filterSlice(r.CurrentlyEnteredSites, func(e EnteredSites) bool { return in(e.Timestamp) })
	out.GeofenceEvents = filterSlice(r.GeofenceEvents, func(t geo.Transition) bool { return in(t.Timestamp) })

	out.Cycles = BuildCycles(r.SilentApp, out.Sessions, r.EndTime)
	out.Health = healthIfDetected(&out, latestVersion)
	out.DateRange = dr
	return &out
}

func filterEvents(events []Event, keep func(*time.Time) bool) []Event {
	return filterSlice(events, func(e Event) bool { return keep(e.Timestamp) })
}

func filterSlice[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
