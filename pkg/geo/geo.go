// Package geo matches reported device positions against configured job
// sites.
package geo

import (
	"math"
	"time"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000

// Site is a configured job site with a circular geofence.
type Site struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Radius    int        `json:"radius"`
	Timestamp *time.Time `json:"ts"`
}

// Fix is a device position report.
type Fix struct {
	Timestamp *time.Time `json:"ts"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Accuracy  float64    `json:"accuracy"`
}

// Transition types.
const (
	Enter = "ENTER"
	Exit  = "EXIT"
)

// Transition is a geofence enter or exit reported by the device.
type Transition struct {
	Timestamp *time.Time `json:"ts"`
	Type      string     `json:"type"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Accuracy  *float64   `json:"accuracy"`
}

// Haversine returns the great-circle distance in metres between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Nearest is a site together with its rounded distance from a point.
type Nearest struct {
	Site
	Distance int `json:"distance"`
}

// NearestSite returns the closest site to the point. Ties go to the site
// seen first. ok is false when sites is empty.
func NearestSite(lat, lng float64, sites []Site) (Nearest, bool) {
	best := -1
	minDist := math.Inf(1)
	for i, s := range sites {
		if d := Haversine(lat, lng, s.Lat, s.Lng); d < minDist {
			minDist = d
			best = i
		}
	}
	if best < 0 {
		return Nearest{}, false
	}
	return Nearest{Site: sites[best], Distance: int(math.Round(minDist))}, true
}

// UniqueSites keeps the first site for each ID, preserving order.
func UniqueSites(sites []Site) []Site {
	seen := make(map[string]bool, len(sites))
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}
