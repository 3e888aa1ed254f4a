package findings

import (
	"fmt"
	"strings"

	"github.com/ccollicutt/logdoctor/pkg/geo"
)

func networkBlockFinding(in *input, out []Finding) []Finding {
	nb := in.r.NetworkBlocks
	if nb == nil || nb.Empty() {
		return out
	}
	ranked := nb.Ranked()
	lines := make([]string, 0, 5)
	for i, dc := range ranked {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %d failure(s) [%s]", dc.Host, dc.Domain.Count,
			strings.Join(dc.Domain.ErrorTypes.Values(), ", ")))
	}
	sev := SeverityWarning
	if len(ranked) > 1 {
		sev = SeverityCritical
	}
	return append(out, Finding{
		Severity: sev,
		Title:    fmt.Sprintf("Network Blocks: %s", plural(len(ranked), "Domain")),
		Description: fmt.Sprintf("Found %d failed request(s) across %s. A firewall, proxy or TLS inspection "+
			"appliance may be blocking the app.", nb.TotalFailures(), plural(len(ranked), "domain")),
		Action: "Ask the user's IT team to allowlist the listed domains and exclude them from SSL inspection.",
		Detail: strings.Join(lines, "\n"),
	})
}

func geofenceFinding(in *input, out []Finding) []Finding {
	r := in.r
	if len(r.GeofenceEvents) == 0 {
		return out
	}
	h := geo.BuildVisits(r.GeofenceEvents, r.JobSites)

	var parts []string
	if h.EntersOutside > 0 {
		parts = append(parts, fmt.Sprintf("%d entry event(s) were reported outside every job site radius", h.EntersOutside))
	}
	if h.PoorAccuracy > 0 {
		parts = append(parts, fmt.Sprintf("%d event(s) had poor GPS accuracy (over %dm)", h.PoorAccuracy, geo.PoorAccuracyMeters))
	}
	if h.SmallRadiusSites > 0 {
		parts = append(parts, fmt.Sprintf("%d job site(s) use a radius of %dm or less", h.SmallRadiusSites, geo.SmallRadiusMeters))
	}
	if len(parts) == 0 {
		return out
	}
	return append(out, Finding{
		Severity:    SeverityWarning,
		Title:       "Geofence Accuracy Problems",
		Description: strings.Join(parts, "; ") + ". Entries and exits may be missed or triggered late.",
		Action:      "Increase small job site radii to 100-150m and have the user enable precise, high-accuracy location.",
		Detail:      fmt.Sprintf("Enters: %d, Exits: %d, Unique sites: %d", h.Enters, h.Exits, h.UniqueSites),
	})
}
