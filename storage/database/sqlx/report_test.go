package sqlxrepos

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/report"
)

func Test_selectQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := "SELECT " + reportColumns + " FROM report"

	tests := []struct {
		name     string
		filter   *report.QueryFilter
		ordering []core.DBOrdering
		wantQ    string
		wantArgs int
	}{
		{name: "no filter", wantQ: base + " ORDER BY created_at DESC, id ASC"},
		{name: "empty filter", filter: &report.QueryFilter{}, wantQ: base + " ORDER BY created_at DESC, id ASC"},
		{
			name:     "search",
			filter:   &report.QueryFilter{Search: "fees"},
			wantQ:    base + " WHERE title ILIKE ? ESCAPE '\\' ORDER BY created_at DESC, id ASC",
			wantArgs: 1,
		},
		{
			name:     "all fields",
			filter:   &report.QueryFilter{Search: "fees", Types: []string{"financial"}, CreatedFrom: from, CreatedTo: from.AddDate(0, 1, 0)},
			wantQ:    base + " WHERE title ILIKE ? ESCAPE '\\' AND type = ANY(?) AND created_at >= ? AND created_at <= ? ORDER BY created_at DESC, id ASC",
			wantArgs: 4,
		},
		{
			name:     "ordering",
			ordering: []core.DBOrdering{{Field: "title", Ascending: true}, {Field: "created_at"}},
			wantQ:    base + " ORDER BY title ASC, created_at DESC, id ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := selectQuery(tt.filter, tt.ordering)
			assert.Equal(t, tt.wantQ, q)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func Test_selectQuery_searchIsLiteral(t *testing.T) {
	tests := []struct {
		search  string
		wantArg string
	}{
		{search: "fees", wantArg: "%fees%"},
		{search: "100%", wantArg: `%100\%%`},
		{search: "term_1", wantArg: `%term\_1%`},
		{search: `a\b`, wantArg: `%a\\b%`},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			_, args := selectQuery(&report.QueryFilter{Search: tt.search}, nil)
			require.Len(t, args, 1)
			assert.Equal(t, tt.wantArg, args[0])
		})
	}
}

func Test_toRow_fromRow(t *testing.T) {
	by := "user-1"
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := report.Report{
		ID:          "0b0c6b3e-8f59-4f1a-9a53-0d6d4c1b8f11",
		GeneratedBy: &by,
		Type:        report.TypeFinancial,
		Title:       "Fees",
		Parameters:  map[string]interface{}{"term": "1"},
		Data:        json.RawMessage(`{"zeta": 1, "alpha": 2}`),
		Format:      report.FormatExcel,
		PeriodStart: &start,
		GeneratedAt: start,
		CreatedAt:   start,
	}

	row, err := toRow(r)
	require.NoError(t, err)
	assert.True(t, row.GeneratedBy.Valid)
	assert.False(t, row.FilePath.Valid)
	assert.False(t, row.PeriodEnd.Valid)
	assert.JSONEq(t, `{"term": "1"}`, row.Parameters.String)

	got, err := fromRow(row)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, `{"zeta": 1, "alpha": 2}`, string(got.Data))

	// null data is not stored
	row, err = toRow(report.Report{Data: json.RawMessage("null")})
	require.NoError(t, err)
	assert.False(t, row.Data.Valid)
}
