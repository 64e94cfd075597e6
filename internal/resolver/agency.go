package resolver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// agencyRule maps a structured identifier in an event's raw data bag to a
// permalink into that agency's public records system. Each agency exposes
// the same concept under several historical field names, so every synonym
// is checked before moving to the next rule.
type agencyRule struct {
	agency string
	fields []string
	build  func(id string) string
	title  func(id string) string
}

// agencyRules are evaluated in priority order; the first field that carries
// a value wins and only one result is ever returned per citation.
var agencyRules = []agencyRule{
	{
		agency: "osha",
		fields: []string{"activity_nr", "insp_nr", "inspection_nr"},
		build: func(id string) string {
			return "https://www.osha.gov/ords/imis/establishment.inspection_detail?id=" + url.QueryEscape(id)
		},
		title: func(id string) string { return "OSHA Inspection " + id },
	},
	{
		agency: "epa-echo",
		fields: []string{"registry_id", "frs_id"},
		build: func(id string) string {
			return "https://echo.epa.gov/detailed-facility-report?fid=" + url.QueryEscape(id)
		},
		title: func(id string) string { return "EPA ECHO Facility Report " + id },
	},
	{
		agency: "nlrb",
		fields: []string{"case_number", "case_nr"},
		build: func(id string) string {
			return "https://www.nlrb.gov/case/" + url.PathEscape(id)
		},
		title: func(id string) string { return "NLRB Case " + id },
	},
	{
		agency: "fec",
		fields: []string{"image_number", "file_number"},
		build: func(id string) string {
			return "https://docquery.fec.gov/cgi-bin/fecimg/?" + url.QueryEscape(id)
		},
		title: func(id string) string { return "FEC Filing " + id },
	},
}

// ResolveAgencyPermalink synthesizes a canonical document URL from the
// event's structured identifiers. Pure function: no network, no side
// effects. The boolean is false when no known identifier is present.
func ResolveAgencyPermalink(ev Event) (Resolution, bool) {
	if len(ev.RawData) == 0 {
		return Resolution{}, false
	}
	for _, rule := range agencyRules {
		for _, field := range rule.fields {
			id := identifierValue(ev.RawData[field])
			if id == "" {
				continue
			}
			return Resolution{
				URL:    rule.build(id),
				Title:  rule.title(id),
				Method: MethodAgency,
			}, true
		}
	}
	return Resolution{}, false
}

// identifierValue stringifies a raw_data value. JSON decoding hands numbers
// back as float64, so integer identifiers must not pick up an exponent or a
// trailing fraction.
func identifierValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
