// Package netblock groups failed outbound requests by destination host so
// that firewalls, proxies and TLS interception show up as clusters.
package netblock

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Error types recorded per failure.
const (
	ErrorSSL        = "ssl"
	ErrorTimeout    = "timeout"
	ErrorNetwork    = "network"
	ErrorUploadFail = "upload_fail"
)

// UploadHost is the API host blamed for "Network Error uploading" lines.
const UploadHost = "client-api.hubstaff.com"

var (
	urlTagPattern     = regexp.MustCompile(`\[Exception::tag_http_request_url\*\]\s*=\s*(https?://[^\s\r\n]+)`)
	connectionPattern = regexp.MustCompile(`connection to ([a-zA-Z0-9._-]+\.(?:com|net|org|io|amazonaws\.com)):(\d+)`)
	uploadErrPattern  = regexp.MustCompile(`Network Error uploading (\w+)`)

	hexSegmentPattern = regexp.MustCompile(`/[a-f0-9]{20,}[^\s/]*`)
	datedTailPattern  = regexp.MustCompile(`/\d{4}/\d{2}/\d+/[^/]+/[^/]+$`)
)

// FailedURL is one failed request.
type FailedURL struct {
	Timestamp *time.Time `json:"ts"`
	URL       *string    `json:"url"`
	ErrorType string     `json:"errorType"`
	Domain    string     `json:"domain"`
	Endpoint  string     `json:"endpoint"`
}

// Domain aggregates every failure seen for one host.
type Domain struct {
	Count      int        `json:"count"`
	Endpoints  OrderedSet `json:"endpoints"`
	ErrorTypes OrderedSet `json:"errorTypes"`
	FirstSeen  *time.Time `json:"firstSeen"`
	LastSeen   *time.Time `json:"lastSeen"`
}

func (d *Domain) seen(ts *time.Time) {
	if ts == nil {
		return
	}
	if d.FirstSeen == nil || ts.Before(*d.FirstSeen) {
		t := *ts
		d.FirstSeen = &t
	}
	if d.LastSeen == nil || ts.After(*d.LastSeen) {
		t := *ts
		d.LastSeen = &t
	}
}

// Blocks is the aggregated view of network failures.
type Blocks struct {
	FailedURLs     []FailedURL        `json:"failedUrls"`
	BlockedDomains map[string]*Domain `json:"blockedDomains"`
}

// NewBlocks returns an empty aggregate.
func NewBlocks() *Blocks {
	return &Blocks{
		FailedURLs:     []FailedURL{},
		BlockedDomains: map[string]*Domain{},
	}
}

// Empty reports whether nothing was recorded.
func (b *Blocks) Empty() bool {
	return len(b.BlockedDomains) == 0 && len(b.FailedURLs) == 0
}

// TotalFailures sums the per-domain counts.
func (b *Blocks) TotalFailures() int {
	n := 0
	for _, d := range b.BlockedDomains {
		n += d.Count
	}
	return n
}

// DomainCount pairs a host name with its aggregate.
type DomainCount struct {
	Host   string
	Domain *Domain
}

// Ranked returns domains by descending count, then host name.
func (b *Blocks) Ranked() []DomainCount {
	out := make([]DomainCount, 0, len(b.BlockedDomains))
	for host, d := range b.BlockedDomains {
		out = append(out, DomainCount{Host: host, Domain: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain.Count != out[j].Domain.Count {
			return out[i].Domain.Count > out[j].Domain.Count
		}
		return out[i].Host < out[j].Host
	})
	return out
}

func (b *Blocks) domain(host string) *Domain {
	d, ok := b.BlockedDomains[host]
	if !ok {
		d = &Domain{}
		b.BlockedDomains[host] = d
	}
	return d
}

// ObserveLine applies the request-URL and connection probes to one line.
func (b *Blocks) ObserveLine(line string, ts *time.Time) {
	if m := urlTagPattern.FindStringSubmatch(line); m != nil {
		b.observeURL(strings.TrimSpace(m[1]), classifyError(line), ts)
	}
	if m := connectionPattern.FindStringSubmatch(line); m != nil {
		d := b.domain(m[1])
		d.Count++
		d.ErrorTypes.Add(ErrorSSL)
		d.seen(ts)
	}
}

// ObserveUploadFailure records "Network Error uploading <kind>" lines
// against the upload API host.
func (b *Blocks) ObserveUploadFailure(line string, ts *time.Time) {
	m := uploadErrPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	b.FailedURLs = append(b.FailedURLs, FailedURL{
		Timestamp: ts,
		ErrorType: ErrorUploadFail,
		Domain:    UploadHost,
		Endpoint:  m[1],
	})
	d := b.domain(UploadHost)
	d.Count++
	d.ErrorTypes.Add(ErrorUploadFail)
	d.seen(ts)
}

func (b *Blocks) observeURL(raw, errType string, ts *time.Time) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return
	}
	host := u.Hostname()
	endpoint := NormalizeEndpoint(u.Path)

	b.FailedURLs = append(b.FailedURLs, FailedURL{
		Timestamp: ts,
		URL:       &raw,
		ErrorType: errType,
		Domain:    host,
		Endpoint:  endpoint,
	})

	d := b.domain(host)
	d.Count++
	d.Endpoints.Add(endpoint)
	d.ErrorTypes.Add(errType)
	d.seen(ts)
}

// NormalizeEndpoint collapses long hex identifiers to "*" and dated upload
// paths to a trailing ellipsis so that similar requests group together.
func NormalizeEndpoint(path string) string {
	path = hexSegmentPattern.ReplaceAllString(path, "/*")
	return datedTailPattern.ReplaceAllString(path, "/…")
}

func classifyError(line string) string {
	switch {
	case strings.Contains(line, "SSL") || strings.Contains(line, "ssl"):
		return ErrorSSL
	case strings.Contains(line, "Timeout") || strings.Contains(line, "timeout"):
		return ErrorTimeout
	default:
		return ErrorNetwork
	}
}
