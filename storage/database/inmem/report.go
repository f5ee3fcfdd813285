package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/report"
)

type reportRepository struct {
	db *reportTable
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db.report}
}

func (repo *reportRepository) query(filter *report.QueryFilter) []report.Report {
	reports := make([]report.Report, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		if filter.Match(*r) {
			reports = append(reports, clone(*r))
		}
	}
	return reports
}

func (repo *reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r.ID = uuid.New().String()
	stored := clone(r)
	repo.db.table[r.ID] = &stored
	return r, nil
}

// QueryReports orders by `ordering`, newest first by default.
func (repo *reportRepository) QueryReports(ctx context.Context, filter *report.QueryFilter, ordering []core.DBOrdering) ([]report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reports := repo.query(filter)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(reports[i], reports[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return reports[i].ID < reports[j].ID
	})
	return reports, nil
}

func (repo *reportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return clone(*r), nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) DeleteReports(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func compare(a, b report.Report, field string) int {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "type":
		return strings.Compare(a.Type, b.Type)
	case "generated_at":
		return a.GeneratedAt.Compare(b.GeneratedAt)
	default: // created_at
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// clone deep-copies every reference field so callers never share memory with the store.
func clone(r report.Report) report.Report {
	if r.Data != nil {
		r.Data = append([]byte(nil), r.Data...)
	}
	if r.Parameters != nil {
		r.Parameters = cloneValue(r.Parameters).(map[string]interface{})
	}
	r.GeneratedBy = clonePtr(r.GeneratedBy)
	r.FilePath = clonePtr(r.FilePath)
	r.PeriodStart = clonePtr(r.PeriodStart)
	r.PeriodEnd = clonePtr(r.PeriodEnd)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneValue copies the maps and slices of a decoded JSON value.
func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[k] = cloneValue(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, e := range v {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
