package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

const pendingBaseSQL = `SELECT id, event_id, source_name, source_url, link_kind, evidence_status ` +
	`FROM citations WHERE evidence_status = $1 AND (link_kind IS NULL OR link_kind IN ('', 'homepage')) LIMIT 50`

func newMockStore(t *testing.T) (*CitationStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewCitationStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestListPendingScansRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	// ListPending scans link_kind into a *string, so the mock row must carry
	// a *string for the non-null case; pgxmock does not coerce string to it.
	homepage := "homepage"
	rows := pgxmock.NewRows([]string{"id", "event_id", "source_name", "source_url", "link_kind", "evidence_status"}).
		AddRow("cit-1", "ev-1", "Outlet", "https://outlet.example.com/", &homepage, "pending").
		AddRow("cit-2", "ev-2", "Other Outlet", "https://other.example.com/", nil, "pending")
	mock.ExpectQuery(regexp.QuoteMeta(pendingBaseSQL)).
		WithArgs("pending").
		WillReturnRows(rows)

	citations, err := store.ListPending(context.Background(), resolver.PendingQuery{})
	require.NoError(t, err)
	require.Len(t, citations, 2)
	require.Equal(t, "cit-1", citations[0].ID)
	require.Equal(t, resolver.LinkKindHomepage, citations[0].LinkKind)
	require.Equal(t, resolver.LinkKind(""), citations[1].LinkKind)
	require.Equal(t, resolver.EvidencePending, citations[1].EvidenceStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingAppliesFilters(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	query := `SELECT id, event_id, source_name, source_url, link_kind, evidence_status ` +
		`FROM citations WHERE evidence_status = $1 AND (link_kind IS NULL OR link_kind IN ('', 'homepage')) ` +
		`AND event_id = $2 AND id = $3 LIMIT 10`
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("pending", "ev-1", "cit-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "event_id", "source_name", "source_url", "link_kind", "evidence_status"}))

	citations, err := store.ListPending(context.Background(), resolver.PendingQuery{
		EventID:    "ev-1",
		CitationID: "cit-1",
		Limit:      10,
	})
	require.NoError(t, err)
	require.Empty(t, citations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkResolvedWritesOnce(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE citations")).
		WithArgs("cit-1", "https://outlet.example.com/2024/05/story",
			"https://web.archive.org/web/story", "A headline", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	wrote, err := store.MarkResolved(context.Background(), "cit-1", resolver.ResolvedFields{
		CanonicalURL: "https://outlet.example.com/2024/05/story",
		ArchiveURL:   "https://web.archive.org/web/story",
		Title:        "A headline",
		Notes:        map[string]any{"method": "rss"},
	})
	require.NoError(t, err)
	require.True(t, wrote)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkResolvedLosesRace(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	// canonical_url was set by another run; zero rows affected means the
	// guard held and the caller records a skip.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE citations")).
		WithArgs("cit-1", "https://outlet.example.com/2024/05/story", "", "",
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	wrote, err := store.MarkResolved(context.Background(), "cit-1", resolver.ResolvedFields{
		CanonicalURL: "https://outlet.example.com/2024/05/story",
	})
	require.NoError(t, err)
	require.False(t, wrote)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasCanonical(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("ev-1", "https://outlet.example.com/2024/05/story").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.HasCanonical(context.Background(), "ev-1", "https://outlet.example.com/2024/05/story")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
