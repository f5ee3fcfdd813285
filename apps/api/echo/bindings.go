package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/report"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// reportQuery holds the raw `GET /v1/reports` query params.
type reportQuery struct {
	Search      string   `query:"search"`
	Types       []string `query:"type"`
	CreatedFrom string   `query:"created_from"`
	CreatedTo   string   `query:"created_to"`
}

// Filter parses the dates (RFC 3339) into a report.QueryFilter.
func (q reportQuery) Filter() (*report.QueryFilter, error) {
	filter := &report.QueryFilter{Search: q.Search, Types: q.Types}
	var err error
	if filter.CreatedFrom, err = parseTime("created_from", q.CreatedFrom); err != nil {
		return nil, err
	}
	if filter.CreatedTo, err = parseTime("created_to", q.CreatedTo); err != nil {
		return nil, err
	}
	filter.Clean()
	return filter, nil
}

func parseTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, core.NewFieldValidationError(field, field+" must be an RFC 3339 date-time")
	}
	return t, nil
}
