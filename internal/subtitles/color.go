package subtitles

import (
	"fmt"
	"strconv"
	"strings"

	"karaoke/internal/services"
)

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

var (
	White   = Color{R: 0xFF, G: 0xFF, B: 0xFF}
	Black   = Color{}
	Yellow  = Color{R: 0xFF, G: 0xFF}
	Orange  = Color{R: 0xFF, G: 0x8C}
	Magenta = Color{R: 0xFF, B: 0xFF}
	Gold    = Color{R: 0xFF, G: 0xD7}
	Cyan    = Color{G: 0xFF, B: 0xFF}
)

// ASS returns the fully opaque ASS color literal.
func (c Color) ASS() string {
	return c.ASSWithAlpha(0)
}

// ASSWithAlpha returns the ASS literal &HAABBGGRR. Alpha 0 is opaque and 0xFF
// fully transparent.
func (c Color) ASSWithAlpha(alpha uint8) string {
	return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, c.B, c.G, c.R)
}

// Hex returns the color as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex parses #RRGGBB or RRGGBB.
func ParseHex(value string) (Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(raw) != 6 {
		return Color{}, services.Wrap(services.ErrValidation, "subtitles", "parse color", fmt.Sprintf("%q is not #RRGGBB", value), nil)
	}
	n, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return Color{}, services.Wrap(services.ErrValidation, "subtitles", "parse color", fmt.Sprintf("%q is not #RRGGBB", value), nil)
	}
	return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}
