package display

import (
	"strings"
	"unicode/utf8"
)

// Glyph metrics of the panel's built-in 5x7 font (6x8 cell) scaled by the
// text size.
func GlyphWidth(size int) int  { return 6 * size }
func GlyphHeight(size int) int { return 8 * size }

// TextWidth is the pixel width of s at the given text size
func TextWidth(s string, size int) int {
	return utf8.RuneCountInString(s) * GlyphWidth(size)
}

// CenterX returns the x origin that centers text of width w inside r
func CenterX(r Rect, w int) int {
	return r.X + (r.W-w)/2
}

// Wrap greedily packs the space-separated words of text into lines no
// wider than maxWidth pixels. A word that does not fit on an empty line is
// split at the glyph boundary.
func Wrap(text string, maxWidth, glyphW int) []string {
	if glyphW <= 0 {
		return nil
	}
	maxChars := maxWidth / glyphW
	if maxChars <= 0 {
		return nil
	}

	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > maxChars {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:maxChars]))
			w = w[maxChars:]
		}
		if len(w) == 0 {
			continue
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, w...)
		case len(cur)+1+len(w) <= maxChars:
			cur = append(cur, ' ')
			cur = append(cur, w...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), w...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// Fit keeps the lines that fit in maxHeight pixels at lineH per line. The
// rest are dropped without any marker.
func Fit(lines []string, maxHeight, lineH int) []string {
	if lineH <= 0 || maxHeight < lineH {
		return nil
	}
	n := maxHeight / lineH
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}
