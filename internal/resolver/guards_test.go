package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsGenericResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		generic bool
	}{
		{"bare homepage", "https://www.example.com/", true},
		{"no path", "https://www.example.com", true},
		{"press landing page", "https://outlet.example.com/press", true},
		{"about page with extension", "https://outlet.example.com/company/about.html", true},
		{"news section", "https://outlet.example.com/news", true},
		{"unparseable", "://not-a-url", true},
		{"relative only", "/2024/05/story", true},
		{"dated article", "https://outlet.example.com/2024/05/plant-closure-announced", false},
		{"slug article", "https://outlet.example.com/story/plant-closure-announced", false},
		{"nlrb case record", "https://www.nlrb.gov/case/01-CA-345678", false},
		{"osha landing", "https://www.osha.gov/enforcement", true},
		{"osha record", "https://www.osha.gov/ords/imis/establishment.inspection_detail?id=317465329", false},
		{"echo record keyed by query", "https://echo.epa.gov/detailed-facility-report?fid=110000450328", false},
		{"fec record keyed by query", "https://docquery.fec.gov/cgi-bin/fecimg/?202301159999999", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.generic, IsGenericResult(tc.url), tc.url)
		})
	}
}

func TestIsGenericResultAgencyPermalinksPass(t *testing.T) {
	t.Parallel()

	// Every URL the agency resolver can synthesize must clear the guard.
	events := []map[string]any{
		{"activity_nr": "317465329"},
		{"registry_id": "110000450328"},
		{"case_number": "01-CA-345678"},
		{"image_number": "202301159999999"},
	}
	for _, raw := range events {
		res, ok := ResolveAgencyPermalink(Event{ID: "ev", RawData: raw})
		require.True(t, ok)
		require.False(t, IsGenericResult(res.URL), res.URL)
	}
}
