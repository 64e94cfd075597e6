package resolver

import (
	"net/url"
	"strings"
)

// genericPathTails are final path segments that mark a URL as a section or
// landing page rather than a specific article or document.
var genericPathTails = map[string]struct{}{
	"press":   {},
	"about":   {},
	"index":   {},
	"contact": {},
	"news":    {},
	"home":    {},
}

// agencyHosts are domains whose documents live behind deep permalinks; a
// shallow path on one of these is a landing page, not a record.
var agencyHosts = []string{
	"osha.gov",
	"epa.gov",
	"nlrb.gov",
	"fec.gov",
}

// IsGenericResult reports whether a resolved URL is itself generic, which
// would replace one homepage link with another. Guarded at persistence so a
// discovery false-positive never reaches the citation row.
func IsGenericResult(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	segments := pathSegments(u.Path)
	if len(segments) == 0 {
		return true
	}

	tail := strings.ToLower(segments[len(segments)-1])
	if idx := strings.LastIndex(tail, "."); idx > 0 {
		tail = tail[:idx]
	}
	if _, generic := genericPathTails[tail]; generic {
		return true
	}

	// Agency record pages keyed by query parameters (ECHO facility reports,
	// FEC filing images) are specific despite their shallow paths.
	if isAgencyHost(u.Hostname()) && len(segments) < 2 && u.RawQuery == "" {
		return true
	}
	return false
}

func isAgencyHost(host string) bool {
	host = strings.ToLower(host)
	for _, agency := range agencyHosts {
		if host == agency || strings.HasSuffix(host, "."+agency) {
			return true
		}
	}
	return false
}

func pathSegments(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
