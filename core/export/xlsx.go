package export

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName = "Report"

	minColWidth = 10
	maxColWidth = 50

	// 1-based grid rows
	titleRow     = 1
	timestampRow = 3
	headerRow    = 5
)

// RenderOptions are shared by all renderers. Zero values select the renderer's defaults.
type RenderOptions struct {
	Theme    Theme
	Location *time.Location
	// Compress the PDF page streams.
	Compress bool
}

func (o RenderOptions) generated(t time.Time) string {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	return "Generated: " + t.In(loc).Format(TimestampLayout)
}

// RenderSpreadsheet writes `t` as a single sheet xlsx workbook, under a title row and a timestamp row.
func RenderSpreadsheet(w io.Writer, title string, t *Table, generated time.Time, opts RenderOptions) error {
	f, err := buildWorkbook(title, t, generated, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

type sheetWriter struct {
	f      *excelize.File
	theme  Theme
	styles map[CellStyle]int
	widths []int
}

func buildWorkbook(title string, t *Table, generated time.Time, opts RenderOptions) (*excelize.File, error) {
	theme := opts.Theme
	if theme == nil {
		theme = SpreadsheetTheme()
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "naming sheet")
	}

	sw := &sheetWriter{f: f, theme: theme, styles: make(map[CellStyle]int)}
	if err := sw.fill(title, t, opts.generated(generated)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (sw *sheetWriter) fill(title string, t *Table, generated string) error {
	if err := sw.set(1, titleRow, title, sw.theme.Style(RoleTitle)); err != nil {
		return err
	}
	if err := sw.set(1, timestampRow, generated, sw.theme.Style(RoleTimestamp)); err != nil {
		return err
	}

	header := sw.theme.Style(RoleHeader)
	for c, h := range t.Headers {
		if err := sw.set(c+1, headerRow, h, header); err != nil {
			return err
		}
	}

	label := t.KeyValue()
	for r, row := range t.Rows {
		style := sw.theme.Style(RoleBody)
		if r%2 == 1 {
			style = sw.theme.Style(RoleAlternate)
		}
		for c, v := range row {
			cs := style
			if label && c == 0 {
				cs = sw.theme.Style(RoleLabel)
			}
			if err := sw.set(c+1, headerRow+1+r, v, cs); err != nil {
				return err
			}
		}
	}

	for c, width := range sw.widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return errors.Wrap(err, "naming column")
		}
		if err := sw.f.SetColWidth(SheetName, col, col, float64(width)); err != nil {
			return errors.Wrapf(err, "sizing column %s", col)
		}
	}
	return nil
}

func (sw *sheetWriter) set(col, row int, v any, style CellStyle) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrap(err, "addressing cell")
	}
	if err := sw.f.SetCellValue(SheetName, cell, v); err != nil {
		return errors.Wrapf(err, "setting cell %s", cell)
	}

	id, err := sw.style(style)
	if err != nil {
		return err
	}
	if err := sw.f.SetCellStyle(SheetName, cell, cell, id); err != nil {
		return errors.Wrapf(err, "styling cell %s", cell)
	}

	sw.measure(col, cellText(v))
	return nil
}

// measure grows the width of column `col` to fit `text`, within [minColWidth, maxColWidth].
func (sw *sheetWriter) measure(col int, text string) {
	for len(sw.widths) < col {
		sw.widths = append(sw.widths, minColWidth)
	}
	if text == "" {
		return
	}
	width := runeLen(text) + 2
	if width > maxColWidth {
		width = maxColWidth
	}
	if width > sw.widths[col-1] {
		sw.widths[col-1] = width
	}
}

func (sw *sheetWriter) style(cs CellStyle) (int, error) {
	if id, ok := sw.styles[cs]; ok {
		return id, nil
	}
	id, err := sw.f.NewStyle(excelStyle(cs))
	if err != nil {
		return 0, errors.Wrap(err, "creating cell style")
	}
	sw.styles[cs] = id
	return id, nil
}

func excelStyle(cs CellStyle) *excelize.Style {
	s := &excelize.Style{
		Font: &excelize.Font{
			Bold:   cs.Bold,
			Italic: cs.Italic,
			Size:   cs.FontSize,
			Color:  cs.FontColor,
		},
		Alignment: &excelize.Alignment{
			Horizontal: excelAlign(cs.Align),
			Vertical:   "center",
		},
	}
	if cs.FillColor != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{cs.FillColor}}
	}
	if cs.BorderColor != "" {
		for _, side := range []string{"left", "top", "right", "bottom"} {
			s.Border = append(s.Border, excelize.Border{Type: side, Color: cs.BorderColor, Style: 1})
		}
	}
	return s
}

func excelAlign(a Align) string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return "left"
}
