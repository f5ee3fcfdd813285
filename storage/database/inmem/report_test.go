package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/report"
	"github.com/trezcool/masomo-reports/tests"
)

func titles(reports []report.Report) []string {
	res := make([]string, 0, len(reports))
	for _, r := range reports {
		res = append(res, r.Title)
	}
	return res
}

func Test_reportRepository_GetReport(t *testing.T) {
	repo := NewReportRepository(Open())
	created := testutil.CreateReport(t, repo, "Attendance", report.TypeAttendance, `{"total": 1}`, time.Now())
	assert.NotEmpty(t, created.ID)

	got, err := repo.GetReport(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// stored data is detached from returned copies
	got.Data[2] = 'X'
	again, err := repo.GetReport(context.Background(), created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 1}`, string(again.Data))

	_, err = repo.GetReport(context.Background(), "lol")
	assert.Equal(t, report.ErrNotFound, err)
}

func Test_reportRepository_detachedCopies(t *testing.T) {
	repo := NewReportRepository(Open())
	ctx := context.Background()
	by, path := "user-1", "/tmp/fees.pdf"
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := report.Report{
		Type:        report.TypeFinancial,
		Title:       "Fees",
		GeneratedBy: &by,
		FilePath:    &path,
		PeriodStart: &start,
		Parameters:  map[string]interface{}{"class": "5A", "terms": []interface{}{"Fall"}, "range": map[string]interface{}{"from": "2024-01"}},
	}
	created, err := repo.CreateReport(ctx, in)
	require.NoError(t, err)

	// mutating the input or a returned copy must not reach the store
	by = "lol"
	in.Parameters["class"] = "lol"
	got, err := repo.GetReport(ctx, created.ID)
	require.NoError(t, err)
	*got.FilePath = "lol"
	*got.PeriodStart = start.AddDate(1, 0, 0)
	got.Parameters["terms"].([]interface{})[0] = "lol"
	got.Parameters["range"].(map[string]interface{})["from"] = "lol"

	again, err := repo.GetReport(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", *again.GeneratedBy)
	assert.Equal(t, "/tmp/fees.pdf", *again.FilePath)
	assert.Equal(t, start, *again.PeriodStart)
	assert.Nil(t, again.PeriodEnd)
	assert.Equal(t, map[string]interface{}{
		"class": "5A",
		"terms": []interface{}{"Fall"},
		"range": map[string]interface{}{"from": "2024-01"},
	}, again.Parameters)
}

func Test_reportRepository_QueryReports(t *testing.T) {
	repo := NewReportRepository(Open())

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	testutil.CreateReport(t, repo, "Fees Term 1", report.TypeFinancial, `{"total": 1}`, now)
	testutil.CreateReport(t, repo, "attendance week 2", report.TypeAttendance, `{"total": 1}`, now.Add(1*time.Hour))
	testutil.CreateReport(t, repo, "Attendance week 1", report.TypeAttendance, `{"total": 1}`, now.Add(2*time.Hour))
	testutil.CreateReport(t, repo, "Grades", report.TypePerformance, `{"total": 1}`, now.Add(3*time.Hour))

	tests := []struct {
		name     string
		filter   *report.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all, newest first", want: []string{"Grades", "Attendance week 1", "attendance week 2", "Fees Term 1"}},
		{name: "search", filter: &report.QueryFilter{Search: "ATTEND"}, want: []string{"Attendance week 1", "attendance week 2"}},
		{name: "search (unknown)", filter: &report.QueryFilter{Search: "lol"}, want: []string{}},
		{
			name:   "types",
			filter: &report.QueryFilter{Types: []string{report.TypeFinancial, report.TypePerformance}},
			want:   []string{"Grades", "Fees Term 1"},
		},
		{
			name:   "created range",
			filter: &report.QueryFilter{CreatedFrom: now.Add(1 * time.Hour), CreatedTo: now.Add(2 * time.Hour)},
			want:   []string{"Attendance week 1", "attendance week 2"},
		},
		{
			name:     "title ascending",
			ordering: []core.DBOrdering{{Field: "title", Ascending: true}},
			want:     []string{"Attendance week 1", "attendance week 2", "Fees Term 1", "Grades"},
		},
		{
			name:     "type then oldest",
			ordering: []core.DBOrdering{{Field: "type", Ascending: true}, {Field: "created_at", Ascending: true}},
			want:     []string{"attendance week 2", "Attendance week 1", "Fees Term 1", "Grades"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryReports(context.Background(), tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func Test_reportRepository_DeleteReports(t *testing.T) {
	repo := NewReportRepository(Open())
	r1 := testutil.CreateReport(t, repo, "One", report.TypeAttendance, `{"total": 1}`, time.Now())
	r2 := testutil.CreateReport(t, repo, "Two", report.TypeAttendance, `{"total": 1}`, time.Now())

	n, err := repo.DeleteReports(context.Background(), r1.ID, "lol")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetReport(context.Background(), r1.ID)
	assert.Equal(t, report.ErrNotFound, err)
	_, err = repo.GetReport(context.Background(), r2.ID)
	assert.NoError(t, err)
}
