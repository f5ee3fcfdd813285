package export

import (
	"strconv"
	"strings"
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// CellStyle describes how a cell looks, independently of the output format.
// Colors are RRGGBB hex strings; an empty color means none.
type CellStyle struct {
	Bold        bool
	Italic      bool
	FontSize    float64
	FontColor   string
	FillColor   string
	BorderColor string
	Align       Align
}

// Role is the part of the document a cell belongs to.
type Role int

const (
	RoleTitle Role = iota
	RoleTimestamp
	RoleHeading
	RoleHeader
	RoleBody
	RoleAlternate
	RoleLabel
)

// Theme maps every Role to its style.
type Theme map[Role]CellStyle

const (
	colorAccent    = "1F4E78"
	colorHeader    = "366092"
	colorMuted     = "666666"
	colorBorder    = "D3D3D3"
	colorZebra     = "F2F2F2"
	colorZebraSoft = "F9F9F9"
	colorWhite     = "FFFFFF"
	colorText      = "000000"
)

// SpreadsheetTheme is the default theme of spreadsheet exports.
func SpreadsheetTheme() Theme {
	return Theme{
		RoleTitle:     {Bold: true, FontSize: 14, FontColor: colorAccent},
		RoleTimestamp: {Italic: true, FontSize: 9, FontColor: colorMuted},
		RoleHeading:   {Bold: true, FontSize: 12, FontColor: colorAccent},
		RoleHeader:    {Bold: true, FontSize: 11, FontColor: colorWhite, FillColor: colorHeader, BorderColor: colorBorder, Align: AlignCenter},
		RoleBody:      {FontSize: 10, BorderColor: colorBorder},
		RoleAlternate: {FontSize: 10, FillColor: colorZebra, BorderColor: colorBorder},
		RoleLabel:     {Bold: true, FontSize: 10, FontColor: colorAccent, FillColor: colorZebra, BorderColor: colorBorder},
	}
}

// PDFTheme is the default theme of PDF exports.
func PDFTheme() Theme {
	return Theme{
		RoleTitle:     {Bold: true, FontSize: 24, FontColor: colorAccent},
		RoleTimestamp: {Italic: true, FontSize: 10, FontColor: colorMuted},
		RoleHeading:   {Bold: true, FontSize: 14, FontColor: colorAccent},
		RoleHeader:    {Bold: true, FontSize: 10, FontColor: colorWhite, FillColor: colorHeader, BorderColor: colorBorder, Align: AlignCenter},
		RoleBody:      {FontSize: 9, FontColor: colorText, BorderColor: colorBorder},
		RoleAlternate: {FontSize: 9, FontColor: colorText, FillColor: colorZebraSoft, BorderColor: colorBorder},
		RoleLabel:     {Bold: true, FontSize: 9, FontColor: colorAccent, FillColor: colorZebra, BorderColor: colorBorder},
	}
}

// Style returns the style of `role`, falling back to RoleBody.
func (t Theme) Style(role Role) CellStyle {
	if s, ok := t[role]; ok {
		return s
	}
	return t[RoleBody]
}

// rgb parses a RRGGBB color. ok is false for empty or malformed colors.
func rgb(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff), true
}
