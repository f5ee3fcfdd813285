package export

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-reports/core"
)

// TimestampLayout is the layout of the "Generated: ..." line.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

const defaultBaseName = "report"

type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatExcel, FormatPDF:
		return f, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
}

func (f Format) Extension() string {
	if f == FormatPDF {
		return ".pdf"
	}
	return ".xlsx"
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

type (
	// Request describes a single export. Data is any JSON value: raw JSON, decoded JSON or a value that can be encoded to JSON.
	Request struct {
		Format       string
		Title        string
		Data         any
		FileBaseName string
	}

	// File is a rendered export.
	File struct {
		Name        string
		ContentType string
		Content     []byte
	}

	Options struct {
		Clock    clockwork.Clock
		Location *time.Location
		Columns  ColumnStrategy
		MaxDepth int
		Theme    Theme // overrides the default theme of every format
		Compress bool
		Logger   core.Logger
		Metrics  *Metrics
	}

	Exporter struct {
		opts Options
	}
)

func NewExporter(opts Options) *Exporter {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Exporter{opts: opts}
}

// Export renders `req.Data` in the requested format. Either the whole file is returned, or an *Error.
func (e *Exporter) Export(ctx context.Context, req Request) (*File, error) {
	format, err := ParseFormat(req.Format)
	if err != nil {
		return nil, e.fail(Format(req.Format), req, err)
	}
	baseName := req.FileBaseName
	if baseName == "" {
		baseName = defaultBaseName
	}
	if err := ctx.Err(); err != nil {
		return nil, e.fail(format, req, err)
	}

	start := e.opts.Clock.Now()
	file, structure, err := e.render(format, baseName, req)
	e.opts.Metrics.observe(format, structure, e.opts.Clock.Since(start), len(contentOf(file)), err)
	if err != nil {
		return nil, e.fail(format, req, err)
	}

	e.opts.Logger.Debug("report exported", map[string]interface{}{
		"file":      file.Name,
		"structure": structure,
		"bytes":     len(file.Content),
	})
	return file, nil
}

func (e *Exporter) render(format Format, baseName string, req Request) (*File, string, error) {
	data, err := Normalize(req.Data, WithMaxDepth(e.opts.MaxDepth))
	if err != nil {
		return nil, "", err
	}
	t, err := BuildTable(data, TableOptions{Columns: e.opts.Columns, MaxDepth: e.opts.MaxDepth})
	if err != nil {
		return nil, DetectStructure(data).String(), err
	}

	generated := e.opts.Clock.Now()
	ro := RenderOptions{Theme: e.opts.Theme, Location: e.opts.Location, Compress: e.opts.Compress}
	var buf bytes.Buffer
	switch format {
	case FormatExcel:
		err = RenderSpreadsheet(&buf, firstNonEmpty(req.FileBaseName, req.Title, baseName), t, generated, ro)
	case FormatPDF:
		err = RenderPDF(&buf, firstNonEmpty(req.Title, baseName), t, generated, ro)
	}
	if err != nil {
		return nil, t.Structure.String(), err
	}

	return &File{
		Name:        baseName + format.Extension(),
		ContentType: format.ContentType(),
		Content:     buf.Bytes(),
	}, t.Structure.String(), nil
}

func (e *Exporter) fail(format Format, req Request, err error) error {
	e.opts.Logger.Warn("report export failed", err, map[string]interface{}{
		"file":   req.FileBaseName,
		"format": string(format),
	})
	return &Error{Format: format, FileBaseName: req.FileBaseName, Err: err}
}

func contentOf(f *File) []byte {
	if f == nil {
		return nil
	}
	return f.Content
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
