package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAgencyPermalinkOSHA(t *testing.T) {
	t.Parallel()

	res, ok := ResolveAgencyPermalink(Event{
		ID:      "ev-1",
		RawData: map[string]any{"activity_nr": "317465329"},
	})
	require.True(t, ok)
	require.Equal(t, "https://www.osha.gov/ords/imis/establishment.inspection_detail?id=317465329", res.URL)
	require.Equal(t, "OSHA Inspection 317465329", res.Title)
	require.Equal(t, MethodAgency, res.Method)
}

func TestResolveAgencyPermalinkFieldSynonyms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rawData map[string]any
		wantURL string
	}{
		{
			name:    "osha insp_nr",
			rawData: map[string]any{"insp_nr": "100200300"},
			wantURL: "https://www.osha.gov/ords/imis/establishment.inspection_detail?id=100200300",
		},
		{
			name:    "osha inspection_nr",
			rawData: map[string]any{"inspection_nr": "100200300"},
			wantURL: "https://www.osha.gov/ords/imis/establishment.inspection_detail?id=100200300",
		},
		{
			name:    "echo registry_id",
			rawData: map[string]any{"registry_id": "110000450328"},
			wantURL: "https://echo.epa.gov/detailed-facility-report?fid=110000450328",
		},
		{
			name:    "echo frs_id",
			rawData: map[string]any{"frs_id": "110000450328"},
			wantURL: "https://echo.epa.gov/detailed-facility-report?fid=110000450328",
		},
		{
			name:    "nlrb case_number",
			rawData: map[string]any{"case_number": "01-CA-345678"},
			wantURL: "https://www.nlrb.gov/case/01-CA-345678",
		},
		{
			name:    "nlrb case_nr",
			rawData: map[string]any{"case_nr": "01-CA-345678"},
			wantURL: "https://www.nlrb.gov/case/01-CA-345678",
		},
		{
			name:    "fec image_number",
			rawData: map[string]any{"image_number": "202301159999999"},
			wantURL: "https://docquery.fec.gov/cgi-bin/fecimg/?202301159999999",
		},
		{
			name:    "fec file_number",
			rawData: map[string]any{"file_number": "202301159999999"},
			wantURL: "https://docquery.fec.gov/cgi-bin/fecimg/?202301159999999",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, ok := ResolveAgencyPermalink(Event{ID: "ev", RawData: tc.rawData})
			require.True(t, ok)
			require.Equal(t, tc.wantURL, res.URL)
		})
	}
}

func TestResolveAgencyPermalinkPriorityOrder(t *testing.T) {
	t.Parallel()

	// An event with identifiers for multiple agencies yields exactly one
	// result: the first rule in priority order wins.
	res, ok := ResolveAgencyPermalink(Event{
		ID: "ev-multi",
		RawData: map[string]any{
			"case_number": "01-CA-111111",
			"activity_nr": "555666777",
		},
	})
	require.True(t, ok)
	require.Contains(t, res.URL, "osha.gov")
}

func TestResolveAgencyPermalinkNumericIdentifier(t *testing.T) {
	t.Parallel()

	// JSON decoding hands numbers back as float64; the identifier must not
	// pick up an exponent or trailing fraction.
	res, ok := ResolveAgencyPermalink(Event{
		ID:      "ev-num",
		RawData: map[string]any{"activity_nr": float64(317465329)},
	})
	require.True(t, ok)
	require.Equal(t, "https://www.osha.gov/ords/imis/establishment.inspection_detail?id=317465329", res.URL)
}

func TestResolveAgencyPermalinkNoIdentifiers(t *testing.T) {
	t.Parallel()

	_, ok := ResolveAgencyPermalink(Event{ID: "ev-none", RawData: map[string]any{"city": "Toledo"}})
	require.False(t, ok)

	_, ok = ResolveAgencyPermalink(Event{ID: "ev-empty"})
	require.False(t, ok)

	_, ok = ResolveAgencyPermalink(Event{
		ID:      "ev-blank",
		RawData: map[string]any{"activity_nr": "   "},
	})
	require.False(t, ok)
}
