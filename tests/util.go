package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/trezcool/masomo-reports/core/report"
)

// CreateReport stores a PDF report straight through `repo`, bypassing the service validation.
func CreateReport(
	t *testing.T,
	repo report.Repository,
	title, typ, data string,
	createdAt ...time.Time,
) report.Report {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	r := report.Report{
		Type:        typ,
		Title:       title,
		Format:      report.FormatPDF,
		GeneratedAt: tstamp,
		CreatedAt:   tstamp,
	}
	if data != "" {
		r.Data = json.RawMessage(data)
	}
	r, err := repo.CreateReport(context.Background(), r)
	if err != nil {
		t.Fatalf("CreateReport() failed: %v", err)
	}
	return r
}
