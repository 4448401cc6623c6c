package render

import (
	"fmt"
	"math"
	"strings"
)

// Option-level escaping inside a filter argument.
var optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)

// Graph-level escaping of an already option-escaped value.
var graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)

// EscapeFilterPath escapes a path for use as a filtergraph option value.
func EscapeFilterPath(path string) string {
	return graphEscaper.Replace(optionEscaper.Replace(path))
}

func scaleFilter(d Dimensions) string {
	return fmt.Sprintf("scale=%d:%d:flags=lanczos", d.Width, d.Height)
}

func cropFilter(r Rect) string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y)
}

func eqFilter(p UniquenessParams) string {
	return fmt.Sprintf("eq=saturation=%.4f:brightness=%.4f:contrast=%.4f", p.Saturation, (p.Brightness-1)*0.1, p.Contrast)
}

func noiseFilter(p UniquenessParams) string {
	return fmt.Sprintf("noise=alls=%d:allf=t", NoiseLevel(p.NoiseStrength))
}

// NoiseLevel maps a strength in 0..1 to the integer noise filter amount.
func NoiseLevel(strength float64) int {
	return max(1, int(math.Round(strength*1000)))
}

func assFilter(path string) string {
	return "ass=" + EscapeFilterPath(path)
}
