// Package layout groups timed words into subtitle lines.
//
// Words are packed into blocks bounded by a word count and an optional time
// span; each block becomes one subtitle cue. Inside a block, words wrap onto
// additional rows when the estimated rendered width would overflow the usable
// frame width. Width estimation is a glyph-class heuristic (wide East Asian
// glyphs, narrow glyphs, whitespace), not a font-metrics measurement.
package layout
