package draw

import (
	"strings"
	"unicode/utf8"
)

// ANSI styles. Wrap plain text with Style so width math stays on the plain
// string.
const (
	Reset           = "\033[0m"
	Bold            = "\033[1m"
	Dim             = "\033[2m"
	Reverse         = "\033[7m"
	ColorRed        = "\033[31m"
	ColorGreen      = "\033[32m"
	ColorYellow     = "\033[33m"
	ColorCyan       = "\033[36m"
	ColorBrightCyan = "\033[96m"
)

// Shade characters from lightest to darkest.
var Shades = []rune{' ', '░', '▒', '▓', '█'}

// Style wraps s in the given ANSI codes followed by Reset. No codes returns
// s unchanged.
func Style(s string, codes ...string) string {
	if len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + Reset
}

// Fit pads s with spaces or truncates it so it is exactly width runes wide.
// Truncated text ends with an ellipsis.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n == width {
		return s
	}
	if n < width {
		return s + strings.Repeat(" ", width-n)
	}
	runes := []rune(s)
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}

// Center returns the 1-based column that centers s within width.
func Center(s string, width int) int {
	col := (width-utf8.RuneCountInString(s))/2 + 1
	if col < 1 {
		return 1
	}
	return col
}

// Bar renders a progress bar of width cells for fraction in [0,1], using
// shade characters for the partial cell.
func Bar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := fraction * float64(width)
	full := int(filled)

	var b strings.Builder
	b.WriteString(strings.Repeat(string(Shades[len(Shades)-1]), full))
	if full < width {
		partial := int((filled - float64(full)) * float64(len(Shades)-1))
		b.WriteRune(Shades[partial])
		b.WriteString(strings.Repeat(" ", width-full-1))
	}
	return b.String()
}
