package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/export"
)

const (
	baseNameMaxLen   = 50
	baseNameFallback = "report"
)

var (
	// errors
	ErrNotFound         = errors.New("report not found")
	ErrNoData           = errors.New("no JSON data available to export")
	ErrExportInProgress = errors.New("an export of this report is already in progress")
)

type (
	Repository interface {
		CreateReport(ctx context.Context, r Report) (Report, error)
		// QueryReports applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Report.Title.
		QueryReports(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Report, error)
		GetReport(ctx context.Context, id string) (Report, error)
		DeleteReports(ctx context.Context, ids ...string) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nr NewReport, generatedBy string) (Report, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Report, error)
		GetByID(ctx context.Context, id string) (Report, error)
		Delete(ctx context.Context, ids ...string) error
		Export(ctx context.Context, id, format string) (*export.File, error)
		ExportData(ctx context.Context, req export.Request) (*export.File, error)
		Send(ctx context.Context, id string, req SendRequest) error
	}

	Service struct {
		repo     Repository
		exporter *export.Exporter
		mailSvc  core.EmailService
		validate *validator.Validate
		clock    clockwork.Clock

		mu       sync.Mutex
		inFlight map[string]struct{}
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	exporter *export.Exporter,
	mailSvc core.EmailService,
	validate *validator.Validate,
	clock clockwork.Clock,
) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:     repo,
		exporter: exporter,
		mailSvc:  mailSvc,
		validate: validate,
		clock:    clock,
		inFlight: make(map[string]struct{}),
	}
}

// FileBaseName derives the name of an exported file from the report title:
// lowercased, whitespace runs turned into "-", unsafe characters dropped, capped at 50 characters, then suffixed with the id.
func FileBaseName(title, id string) string {
	return core.SafeFileName(title, baseNameMaxLen, baseNameFallback) + "-" + id
}

func (svc *Service) Create(ctx context.Context, nr NewReport, generatedBy string) (Report, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Report{}, err
	}

	now := svc.clock.Now().UTC()
	r := Report{
		Type:        nr.Type,
		Title:       nr.Title,
		Parameters:  nr.Parameters,
		Data:        nr.Data,
		Format:      nr.Format,
		PeriodStart: utcPtr(nr.PeriodStart),
		PeriodEnd:   utcPtr(nr.PeriodEnd),
		GeneratedAt: now,
		CreatedAt:   now,
	}
	if generatedBy != "" {
		r.GeneratedBy = &generatedBy
	}

	r, err := svc.repo.CreateReport(ctx, r)
	return r, errors.Wrap(err, "creating report")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Report, error) {
	return svc.repo.QueryReports(ctx, filter, core.AllowedOrderings(ordering, OrderingColumns))
}

func (svc *Service) GetByID(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReport(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteReports(ctx, ids...)
	return errors.Wrap(err, "deleting reports")
}

// Export renders the data of report `id`.
// Only one export of a given report may run at a time; a concurrent attempt gets ErrExportInProgress.
func (svc *Service) Export(ctx context.Context, id, format string) (*export.File, error) {
	r, err := svc.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.export(ctx, r, format)
}

func (svc *Service) export(ctx context.Context, r Report, format string) (*export.File, error) {
	if _, err := export.ParseFormat(format); err != nil {
		return nil, err
	}
	if !r.HasData() {
		return nil, ErrNoData
	}

	release, err := svc.acquire(r.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	return svc.exporter.Export(ctx, export.Request{
		Format:       format,
		Title:        r.Title,
		Data:         r.Data,
		FileBaseName: FileBaseName(r.Title, r.ID),
	})
}

// ExportData renders an ad-hoc payload. Without a base name, one is derived from the title and a random suffix.
func (svc *Service) ExportData(ctx context.Context, req export.Request) (*export.File, error) {
	if raw, ok := req.Data.(json.RawMessage); req.Data == nil || (ok && !(Report{Data: raw}).HasData()) {
		return nil, ErrNoData
	}
	if req.FileBaseName == "" {
		req.FileBaseName = FileBaseName(req.Title, uuid.New().String()[:8])
	} else {
		req.FileBaseName = core.SafeFileName(req.FileBaseName, 0, baseNameFallback)
	}
	return svc.exporter.Export(ctx, req)
}

// Send renders report `id` and e-mails it to the recipients as an attachment.
func (svc *Service) Send(ctx context.Context, id string, req SendRequest) error {
	if err := req.Validate(svc.validate); err != nil {
		return err
	}
	to := make([]mail.Address, 0, len(req.Recipients))
	for _, rcpt := range req.Recipients {
		addr, err := mail.ParseAddress(rcpt)
		if err != nil {
			return core.NewFieldValidationError("recipients", fmt.Sprintf("invalid e-mail address: %s", rcpt))
		}
		to = append(to, *addr)
	}

	r, err := svc.repo.GetReport(ctx, id)
	if err != nil {
		return err
	}
	file, err := svc.export(ctx, r, req.Format)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      r.Title,
		TemplateName: "report_export",
		TemplateData: map[string]interface{}{
			"Title":    r.Title,
			"FileName": file.Name,
			"Message":  req.Message,
		},
	}
	if err := msg.Attach(bytes.NewReader(file.Content), file.Name, file.ContentType); err != nil {
		return errors.Wrap(err, "attaching export")
	}
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering message")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) acquire(id string) (release func(), err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, busy := svc.inFlight[id]; busy {
		return nil, ErrExportInProgress
	}
	svc.inFlight[id] = struct{}{}
	return func() {
		svc.mu.Lock()
		delete(svc.inFlight, id)
		svc.mu.Unlock()
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
