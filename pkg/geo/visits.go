package geo

// Accuracy classes for a transition's reported GPS accuracy.
const (
	AccuracyGood = "good"
	AccuracyFair = "fair"
	AccuracyPoor = "poor"
)

// PoorAccuracyMeters is the accuracy above which a fix is considered poor.
const PoorAccuracyMeters = 50

// SmallRadiusMeters is the radius at or below which a site is hard to hit.
const SmallRadiusMeters = 50

// Visit is a transition annotated with the nearest job site.
type Visit struct {
	Transition
	Nearest       *Nearest `json:"nearestSite"`
	Inside        bool     `json:"isInside"`
	AccuracyClass string   `json:"accuracyClass"`
}

// VisitHistory summarises all geofence transitions of a log.
type VisitHistory struct {
	Visits []Visit `json:"visits"`

	Enters int `json:"enters"`
	Exits  int `json:"exits"`

	// EntersOutside counts ENTER events whose position lies outside the
	// nearest site's radius (or where no site is known).
	EntersOutside int `json:"entersOutside"`

	// OutsideRadius counts events of either type that lie outside the
	// nearest site's radius.
	OutsideRadius int `json:"outsideRadius"`

	PoorAccuracy     int `json:"poorAccuracy"`
	SmallRadiusSites int `json:"smallRadiusSites"`
	UniqueSites      int `json:"uniqueSites"`
}

// BuildVisits matches every transition with its nearest unique site.
func BuildVisits(transitions []Transition, sites []Site) VisitHistory {
	unique := UniqueSites(sites)
	h := VisitHistory{
		Visits:      make([]Visit, 0, len(transitions)),
		UniqueSites: len(unique),
	}
	for _, s := range unique {
		if s.Radius <= SmallRadiusMeters {
			h.SmallRadiusSites++
		}
	}

	for _, tr := range transitions {
		v := Visit{Transition: tr, AccuracyClass: accuracyClass(tr.Accuracy)}
		if n, ok := NearestSite(tr.Lat, tr.Lng, unique); ok {
			v.Nearest = &n
			v.Inside = n.Distance <= n.Radius
			if !v.Inside {
				h.OutsideRadius++
			}
		}

		switch tr.Type {
		case Enter:
			h.Enters++
			if !v.Inside {
				h.EntersOutside++
			}
		case Exit:
			h.Exits++
		}
		if tr.Accuracy != nil && *tr.Accuracy > PoorAccuracyMeters {
			h.PoorAccuracy++
		}
		h.Visits = append(h.Visits, v)
	}
	return h
}

func accuracyClass(acc *float64) string {
	switch {
	case acc == nil:
		return AccuracyGood
	case *acc > 50:
		return AccuracyPoor
	case *acc > 20:
		return AccuracyFair
	default:
		return AccuracyGood
	}
}
