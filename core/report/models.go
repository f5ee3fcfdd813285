package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-reports/core"
)

// Types
const (
	TypeAttendance  = "attendance"
	TypeFinancial   = "financial"
	TypePerformance = "performance"
	TypeComparison  = "comparison"
)

// Formats
const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
	FormatJSON  = "json"
)

var (
	Types   = []string{TypeAttendance, TypeFinancial, TypePerformance, TypeComparison}
	Formats = []string{FormatPDF, FormatExcel, FormatJSON}
)

type Report struct {
	ID          string                 `json:"id"`
	GeneratedBy *string                `json:"generated_by,omitempty"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Data        json.RawMessage        `json:"data,omitempty"`
	Format      string                 `json:"format"`
	FilePath    *string                `json:"file_path,omitempty"`
	PeriodStart *time.Time             `json:"period_start,omitempty"` // UTC
	PeriodEnd   *time.Time             `json:"period_end,omitempty"`   // UTC
	GeneratedAt time.Time              `json:"generated_at"`           // UTC
	CreatedAt   time.Time              `json:"created_at"`             // UTC
}

// HasData reports whether the report carries a JSON payload other than null.
func (r Report) HasData() bool {
	data := bytes.TrimSpace(r.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// NewReport contains information needed to create a new Report.
type NewReport struct {
	Type        string                 `json:"type" validate:"required,oneof=attendance financial performance comparison"`
	Title       string                 `json:"title" validate:"required,max=255"`
	Parameters  map[string]interface{} `json:"parameters"`
	Data        json.RawMessage        `json:"data"`
	Format      string                 `json:"format" validate:"omitempty,oneof=pdf excel json"`
	PeriodStart *time.Time             `json:"period_start"`
	PeriodEnd   *time.Time             `json:"period_end"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.Format = core.CleanString(nr.Format, true /* lower */)
	if nr.Format == "" {
		nr.Format = FormatPDF
	}

	if err := validate.Struct(nr); err != nil {
		return err
	}
	if len(bytes.TrimSpace(nr.Data)) > 0 && !json.Valid(nr.Data) {
		return core.NewFieldValidationError("data", "data must be valid JSON")
	}
	if nr.PeriodStart != nil && nr.PeriodEnd != nil && nr.PeriodEnd.Before(*nr.PeriodStart) {
		return core.NewFieldValidationError("period_end", "period_end must not be before period_start")
	}
	return nil
}

// ExportRequest asks for a report to be rendered to a file.
type ExportRequest struct {
	Format string `query:"format" json:"format" validate:"required,exportformat"`
}

func (er *ExportRequest) Validate(validate *validator.Validate) error {
	er.Format = core.CleanString(er.Format, true /* lower */)
	return validate.Struct(er)
}

// SendRequest asks for a report to be rendered and e-mailed.
type SendRequest struct {
	Format     string   `json:"format" validate:"required,exportformat"`
	Recipients []string `json:"recipients" validate:"required,min=1,dive,required,email"`
	Message    string   `json:"message"`
}

func (sr *SendRequest) Validate(validate *validator.Validate) error {
	sr.Format = core.CleanString(sr.Format, true /* lower */)
	for i, r := range sr.Recipients {
		sr.Recipients[i] = core.CleanString(r, true /* lower */)
	}
	return validate.Struct(sr)
}

type QueryFilter struct {
	Search      string
	Types       []string
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Types == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	for i, typ := range qf.Types {
		qf.Types[i] = core.CleanString(typ, true /* lower */)
	}
}

// Match applies the filter to `r` the way the repositories do: all set fields must match,
// Search is a case-insensitive match on the title.
func (qf *QueryFilter) Match(r Report) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(qf.Search)) {
		return false
	}
	if len(qf.Types) > 0 && !contains(qf.Types, r.Type) {
		return false
	}
	if !qf.CreatedFrom.IsZero() && r.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && r.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}

// OrderingColumns maps the `ordering` query fields to their columns.
var OrderingColumns = map[string]string{
	"title":        "title",
	"type":         "type",
	"created_at":   "created_at",
	"generated_at": "generated_at",
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
