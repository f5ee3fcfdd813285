package export

import (
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const (
	pdfMargin      = 15.0
	pdfTitleY      = 20.0
	pdfTimestampY  = 28.0
	pdfHeadingY    = 40.0
	pdfTableY      = 45.0
	pdfCellPadding = 1.5
	pdfLineSpacing = 1.2

	pdfLabelWidth   = 75.0
	pdfKeyValueSize = 11.0
	pdfMinColWidth  = 12.0
	pdfMaxColWidth  = 80.0
	pdfFontFamily   = "Helvetica"
	pdfCreator      = "Masomo"
	headingTable    = "Report Data"
	headingKeyValue = "Report Summary"
)

// RenderPDF writes `t` as an A4 portrait document. The table flows over as many pages as it needs,
// repeating its header row at the top of every page.
func RenderPDF(w io.Writer, title string, t *Table, generated time.Time, opts RenderOptions) error {
	doc, _, err := buildPDF(title, t, generated, opts)
	if err != nil {
		return err
	}
	if err := doc.Output(w); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}

type pdfTable struct {
	doc    *fpdf.Fpdf
	tr     func(string) string
	theme  Theme
	table  *Table
	widths []float64
	header CellStyle

	// number of times the header row was drawn
	headerDraws int
}

func buildPDF(title string, t *Table, generated time.Time, opts RenderOptions) (*fpdf.Fpdf, *pdfTable, error) {
	theme := opts.Theme
	if theme == nil {
		theme = PDFTheme()
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(opts.Compress)
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(false, pdfMargin)
	doc.SetTitle(title, true)
	doc.SetCreator(pdfCreator, true)
	doc.SetCreationDate(generated)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	pt := &pdfTable{doc: doc, tr: tr, theme: theme, table: t, header: theme.Style(RoleHeader)}

	// a title wrapped over several lines pushes everything below it down
	titleStyle := theme.Style(RoleTitle)
	offset := pt.block(titleStyle, pdfTitleY, title) - pdfTitleY - pt.lineHeight(titleStyle)
	pt.block(theme.Style(RoleTimestamp), pdfTimestampY+offset, opts.generated(generated))
	heading := headingKeyValue
	if t.Structure == StructureTable && !t.Empty {
		heading = headingTable
	}
	pt.block(theme.Style(RoleHeading), pdfHeadingY+offset, heading)

	if t.KeyValue() {
		pt.header.FontSize = pdfKeyValueSize
	}
	pt.layout()
	pt.draw(pdfTableY + offset)

	if err := doc.Error(); err != nil {
		return nil, nil, errors.Wrap(err, "building pdf")
	}
	return doc, pt, nil
}

// block draws `s` from baseline `y`, wrapped to the printable width, and returns the baseline after it.
func (pt *pdfTable) block(cs CellStyle, y float64, s string) float64 {
	applyFont(pt.doc, cs)
	lh := pt.lineHeight(cs)
	for _, line := range pt.wrap(s, printableWidth(pt.doc)) {
		pt.doc.Text(pdfMargin, y, line)
		y += lh
	}
	return y
}

func applyFont(doc *fpdf.Fpdf, cs CellStyle) {
	style := ""
	if cs.Bold {
		style += "B"
	}
	if cs.Italic {
		style += "I"
	}
	doc.SetFont(pdfFontFamily, style, cs.FontSize)
	r, g, b, ok := rgb(cs.FontColor)
	if !ok {
		r, g, b = 0, 0, 0
	}
	doc.SetTextColor(r, g, b)
}

func printableWidth(doc *fpdf.Fpdf) float64 {
	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	return pageW - left - right
}

// layout computes the column widths. Key-value tables get a fixed label column,
// other tables get widths proportional to their content, stretched to the printable width.
func (pt *pdfTable) layout() {
	width := printableWidth(pt.doc)
	if pt.table.KeyValue() {
		pt.widths = []float64{pdfLabelWidth, width - pdfLabelWidth}
		return
	}

	cols := len(pt.table.Headers)
	natural := make([]float64, cols)
	applyFont(pt.doc, pt.header)
	for c, h := range pt.table.Headers {
		natural[c] = pt.doc.GetStringWidth(pt.tr(h))
	}
	applyFont(pt.doc, pt.theme.Style(RoleBody))
	for _, row := range pt.table.Rows {
		for c := 0; c < cols && c < len(row); c++ {
			if w := pt.doc.GetStringWidth(pt.tr(cellText(row[c]))); w > natural[c] {
				natural[c] = w
			}
		}
	}

	var total float64
	for c := range natural {
		natural[c] += 2 * pdfCellPadding
		if natural[c] < pdfMinColWidth {
			natural[c] = pdfMinColWidth
		}
		if natural[c] > pdfMaxColWidth {
			natural[c] = pdfMaxColWidth
		}
		total += natural[c]
	}
	for c := range natural {
		natural[c] *= width / total
	}
	pt.widths = natural
}

// pdfCell is a cell wrapped to its column.
type pdfCell struct {
	lines []string
	style CellStyle
}

// draw lays out the header and body rows from `y`. A row that does not fit the rest of the page moves to
// the next one; a row taller than a whole page is split across pages instead.
func (pt *pdfTable) draw(y float64) {
	_, pageH := pt.doc.GetPageSize()
	_, top, _, bottom := pt.doc.GetMargins()
	limit := pageH - bottom

	y = pt.drawHeader(y)
	bodyTop := top + pt.height(pt.headerCells())
	for r, row := range pt.table.Rows {
		cells := pt.cells(row, pt.rowStyles(r))
		for {
			h := pt.height(cells)
			if y+h <= limit {
				y = pt.drawCells(y, cells, h)
				break
			}
			if h > limit-bodyTop {
				if head, rest, ok := pt.split(cells, limit-y); ok {
					pt.drawCells(y, head, limit-y)
					cells = rest
				}
			}
			pt.doc.AddPage()
			y = pt.drawHeader(top)
		}
	}
}

func (pt *pdfTable) drawHeader(y float64) float64 {
	pt.headerDraws++
	cells := pt.headerCells()
	return pt.drawCells(y, cells, pt.height(cells))
}

func (pt *pdfTable) headerCells() []pdfCell {
	row := make([]any, len(pt.table.Headers))
	styles := make([]CellStyle, len(row))
	for c, h := range pt.table.Headers {
		row[c] = h
		styles[c] = pt.header
	}
	return pt.cells(row, styles)
}

// rowStyles returns the style of every cell of body row `r`.
func (pt *pdfTable) rowStyles(r int) []CellStyle {
	base := pt.theme.Style(RoleBody)
	if r%2 == 0 {
		base = pt.theme.Style(RoleAlternate)
	}
	styles := make([]CellStyle, len(pt.widths))
	for c := range styles {
		styles[c] = base
	}
	if pt.table.KeyValue() {
		styles[0] = pt.theme.Style(RoleLabel)
	}
	return styles
}

func (pt *pdfTable) lineHeight(cs CellStyle) float64 {
	return cs.FontSize / pt.doc.GetConversionRatio() * pdfLineSpacing
}

func (pt *pdfTable) cells(row []any, styles []CellStyle) []pdfCell {
	cells := make([]pdfCell, len(pt.widths))
	for c, w := range pt.widths {
		applyFont(pt.doc, styles[c])
		cells[c] = pdfCell{lines: pt.wrap(cellAt(row, c), w-2*pdfCellPadding), style: styles[c]}
	}
	return cells
}

func (pt *pdfTable) height(cells []pdfCell) float64 {
	var h float64
	for _, cell := range cells {
		if ch := float64(len(cell.lines))*pt.lineHeight(cell.style) + 2*pdfCellPadding; ch > h {
			h = ch
		}
	}
	return h
}

// split cuts `cells` after the lines that fit within `space`. It fails when not a single line fits.
func (pt *pdfTable) split(cells []pdfCell, space float64) (head, rest []pdfCell, ok bool) {
	head = make([]pdfCell, len(cells))
	rest = make([]pdfCell, len(cells))
	for c, cell := range cells {
		n := int((space - 2*pdfCellPadding) / pt.lineHeight(cell.style))
		if n < 0 {
			n = 0
		}
		if n > len(cell.lines) {
			n = len(cell.lines)
		}
		if n > 0 {
			ok = true
		}
		head[c] = pdfCell{lines: cell.lines[:n], style: cell.style}
		rest[c] = pdfCell{lines: cell.lines[n:], style: cell.style}
	}
	return head, rest, ok
}

func (pt *pdfTable) drawCells(y float64, cells []pdfCell, h float64) float64 {
	x := pdfMargin
	for c, w := range pt.widths {
		cs := cells[c].style
		applyFont(pt.doc, cs)

		rectStyle := "D"
		if r, g, b, ok := rgb(cs.FillColor); ok {
			pt.doc.SetFillColor(r, g, b)
			rectStyle = "DF"
		}
		if r, g, b, ok := rgb(cs.BorderColor); ok {
			pt.doc.SetDrawColor(r, g, b)
		} else {
			pt.doc.SetDrawColor(255, 255, 255)
		}
		pt.doc.Rect(x, y, w, h, rectStyle)

		lh := pt.lineHeight(cs)
		for i, line := range cells[c].lines {
			pt.doc.SetXY(x+pdfCellPadding, y+pdfCellPadding+float64(i)*lh)
			pt.doc.CellFormat(w-2*pdfCellPadding, lh, line, "", 0, pdfAlign(cs.Align)+"M", false, 0, "")
		}
		x += w
	}
	return y + h
}

func cellAt(row []any, c int) string {
	if c >= len(row) {
		return ""
	}
	return cellText(row[c])
}

// wrap splits `s` into lines no wider than `width` with the current font.
// The returned lines are already translated to the font's code page.
func (pt *pdfTable) wrap(s string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(pt.tr(s), "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if pt.doc.GetStringWidth(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			// break words that are wider than the column on their own
			for pt.doc.GetStringWidth(word) > width && len(word) > 1 {
				n := pt.fit(word, width)
				lines = append(lines, word[:n])
				word = word[n:]
			}
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// fit returns how many leading bytes of `s` fit within `width`, at least 1.
func (pt *pdfTable) fit(s string, width float64) int {
	n := 1
	for n < len(s) && pt.doc.GetStringWidth(s[:n+1]) <= width {
		n++
	}
	return n
}

func pdfAlign(a Align) string {
	switch a {
	case AlignCenter:
		return "C"
	case AlignRight:
		return "R"
	}
	return "L"
}
