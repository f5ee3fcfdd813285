package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/report"
)

const (
	reportTable   = "report"
	reportColumns = "id, generated_by, type, title, parameters, data, format, file_path, period_start, period_end, generated_at, created_at"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type reportRow struct {
	ID          string         `db:"id"`
	GeneratedBy sql.NullString `db:"generated_by"`
	Type        string         `db:"type"`
	Title       string         `db:"title"`
	Parameters  sql.NullString `db:"parameters"`
	Data        sql.NullString `db:"data"` // JSON (not JSONB) keeps key order
	Format      string         `db:"format"`
	FilePath    sql.NullString `db:"file_path"`
	PeriodStart sql.NullTime   `db:"period_start"`
	PeriodEnd   sql.NullTime   `db:"period_end"`
	GeneratedAt time.Time      `db:"generated_at"`
	CreatedAt   time.Time      `db:"created_at"`
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func toRow(r report.Report) (reportRow, error) {
	row := reportRow{
		ID:          r.ID,
		Type:        r.Type,
		Title:       r.Title,
		Format:      r.Format,
		GeneratedAt: r.GeneratedAt.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.GeneratedBy != nil {
		row.GeneratedBy = sql.NullString{String: *r.GeneratedBy, Valid: true}
	}
	if r.FilePath != nil {
		row.FilePath = sql.NullString{String: *r.FilePath, Valid: true}
	}
	if r.PeriodStart != nil {
		row.PeriodStart = sql.NullTime{Time: r.PeriodStart.UTC(), Valid: true}
	}
	if r.PeriodEnd != nil {
		row.PeriodEnd = sql.NullTime{Time: r.PeriodEnd.UTC(), Valid: true}
	}
	if r.Parameters != nil {
		params, err := jsonAPI.Marshal(r.Parameters)
		if err != nil {
			return reportRow{}, errors.Wrap(err, "encoding parameters")
		}
		row.Parameters = sql.NullString{String: string(params), Valid: true}
	}
	if r.HasData() {
		row.Data = sql.NullString{String: string(r.Data), Valid: true}
	}
	return row, nil
}

func fromRow(row reportRow) (report.Report, error) {
	r := report.Report{
		ID:          row.ID,
		Type:        row.Type,
		Title:       row.Title,
		Format:      row.Format,
		GeneratedAt: row.GeneratedAt,
		CreatedAt:   row.CreatedAt,
	}
	if row.GeneratedBy.Valid {
		r.GeneratedBy = &row.GeneratedBy.String
	}
	if row.FilePath.Valid {
		r.FilePath = &row.FilePath.String
	}
	if row.Data.Valid {
		r.Data = json.RawMessage(row.Data.String)
	}
	if row.PeriodStart.Valid {
		r.PeriodStart = &row.PeriodStart.Time
	}
	if row.PeriodEnd.Valid {
		r.PeriodEnd = &row.PeriodEnd.Time
	}
	if row.Parameters.Valid {
		if err := jsonAPI.UnmarshalFromString(row.Parameters.String, &r.Parameters); err != nil {
			return report.Report{}, errors.Wrap(err, "decoding parameters")
		}
	}
	return r, nil
}

// trapNoRowsErr maps psql "no rows" err to report.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return report.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	r.ID = uuid.New().String()
	row, err := toRow(r)
	if err != nil {
		return report.Report{}, err
	}

	q := "INSERT INTO " + reportTable + " (" + reportColumns + ") VALUES " +
		"(:id, :generated_by, :type, :title, :parameters, :data, :format, :file_path, :period_start, :period_end, :generated_at, :created_at)"
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return report.Report{}, errors.Wrap(err, "inserting report")
	}
	return r, nil
}

// likeEscaper makes ILIKE match the search term literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// selectQuery builds the SELECT statement for `filter` and `ordering`, with "?" bind vars.
// `ordering` fields are expected to be filtered with core.AllowedOrderings.
func selectQuery(filter *report.QueryFilter, ordering []core.DBOrdering) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			where = append(where, `title ILIKE ? ESCAPE '\'`)
			args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		}
		if len(filter.Types) > 0 {
			where = append(where, "type = ANY(?)")
			args = append(args, pq.Array(filter.Types))
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	q := new(strings.Builder)
	q.WriteString("SELECT " + reportColumns + " FROM " + reportTable)
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderBy = append(orderBy, ord.String())
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "created_at DESC")
	}
	orderBy = append(orderBy, "id ASC")
	q.WriteString(" ORDER BY " + strings.Join(orderBy, ", "))
	return q.String(), args
}

func (repo *reportRepository) QueryReports(ctx context.Context, filter *report.QueryFilter, ordering []core.DBOrdering) ([]report.Report, error) {
	q, args := selectQuery(filter, ordering)

	var rows []reportRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting reports")
	}

	reports := make([]report.Report, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (repo *reportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return report.Report{}, report.ErrNotFound
	}

	var row reportRow
	q := "SELECT " + reportColumns + " FROM " + reportTable + " WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return report.Report{}, trapNoRowsErr(err, "selecting report")
	}
	return fromRow(row)
}

func (repo *reportRepository) DeleteReports(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	res, err := repo.db.ExecContext(ctx, "DELETE FROM "+reportTable+" WHERE id = ANY($1)", pq.Array(valid))
	if err != nil {
		return 0, errors.Wrap(err, "deleting reports")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting reports")
}
