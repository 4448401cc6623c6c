package subtitles

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"karaoke/internal/services"
)

// Template names one of the built-in karaoke styles.
type Template string

const (
	TemplateClassic Template = "classic"
	TemplateModern  Template = "modern"
	TemplateNeon    Template = "neon"
	TemplateElegant Template = "elegant"
	TemplateAnime   Template = "anime"

	DefaultTemplate = TemplateClassic
	DefaultFontName = "Microsoft YaHei"
)

// Row is the vertical band of an ASS numpad alignment.
type Row int

const (
	RowBottom Row = iota
	RowMiddle
	RowTop
)

// Style is a fully resolved ASS style record.
type Style struct {
	Name         string
	FontName     string
	FontSize     int
	Base         Color
	Highlight    Color
	Outline      Color
	Back         Color
	BackAlpha    uint8
	Bold         bool
	ScaleX       int
	ScaleY       int
	Spacing      int
	OutlineWidth int
	Shadow       int
	Alignment    int
	MarginL      int
	MarginR      int
	MarginV      int
}

// Row reports which vertical band the style's alignment places text in.
func (s Style) Row() Row {
	switch {
	case s.Alignment >= 7:
		return RowTop
	case s.Alignment >= 4:
		return RowMiddle
	default:
		return RowBottom
	}
}

// Line returns the [V4+ Styles] record. The \k sweep fills SecondaryColour
// towards PrimaryColour, so the highlight is the primary color.
func (s Style) Line() string {
	bold := 0
	if s.Bold {
		bold = -1
	}
	return fmt.Sprintf("Style: %s,%s,%d,%s,%s,%s,%s,%d,0,0,0,%d,%d,%d,0,1,%d,%d,%d,%d,%d,%d,1",
		s.Name, s.FontName, s.FontSize,
		s.Highlight.ASS(), s.Base.ASS(), s.Outline.ASS(), s.Back.ASSWithAlpha(s.BackAlpha),
		bold, s.ScaleX, s.ScaleY, s.Spacing,
		s.OutlineWidth, s.Shadow, s.Alignment, s.MarginL, s.MarginR, s.MarginV)
}

type templateInfo struct {
	style       Style
	description string
}

var templates = map[Template]templateInfo{
	TemplateClassic: {
		style:       newStyle("Classic", 48, Yellow, Black, Black, 3, 2, 2, 120, 100, 0),
		description: "Traditional KTV yellow highlight",
	},
	TemplateModern: {
		style:       newStyle("Modern", 52, Orange, Black, Black, 2, 1, 8, 30, 100, 2),
		description: "Minimal orange highlight at the top of the frame",
	},
	TemplateNeon: {
		style:       newStyle("Neon", 50, Magenta, Magenta, Magenta, 4, 4, 5, 80, 100, 1),
		description: "Cyberpunk magenta glow",
	},
	TemplateElegant: {
		style:       newStyle("Elegant", 46, Gold, Black, Black, 2, 2, 2, 100, 105, 1),
		description: "Soft gold with widened glyphs",
	},
	TemplateAnime: {
		style:       newStyle("Anime", 44, Cyan, Black, Black, 4, 3, 2, 110, 100, 0),
		description: "Cyan highlight with a heavy outline",
	},
}

func newStyle(name string, size int, highlight, outline, back Color, outlineWidth, shadow, alignment, marginV, scaleX, spacing int) Style {
	return Style{
		Name:         name,
		FontName:     DefaultFontName,
		FontSize:     size,
		Base:         White,
		Highlight:    highlight,
		Outline:      outline,
		Back:         back,
		BackAlpha:    0x80,
		Bold:         true,
		ScaleX:       scaleX,
		ScaleY:       100,
		Spacing:      spacing,
		OutlineWidth: outlineWidth,
		Shadow:       shadow,
		Alignment:    alignment,
		MarginL:      30,
		MarginR:      30,
		MarginV:      marginV,
	}
}

// ParseTemplate resolves a template name case-insensitively. An empty name
// selects the default template.
func ParseTemplate(name string) (Template, error) {
	key := Template(strings.ToLower(strings.TrimSpace(name)))
	if key == "" {
		return DefaultTemplate, nil
	}
	if _, ok := templates[key]; !ok {
		return "", services.Wrap(services.ErrValidation, "subtitles", "style", fmt.Sprintf("unknown style %q (available: %s)", name, strings.Join(TemplateNames(), ", ")), nil)
	}
	return key, nil
}

// StyleFor returns the template's style record.
func StyleFor(t Template) (Style, error) {
	info, ok := templates[t]
	if !ok {
		return Style{}, services.Wrap(services.ErrValidation, "subtitles", "style", fmt.Sprintf("unknown style %q", t), nil)
	}
	return info.style, nil
}

// TemplateNames lists template names in sorted order.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for t := range templates {
		names = append(names, string(t))
	}
	slices.Sort(names)
	return names
}

// TemplateInfo describes a template for listings.
type TemplateInfo struct {
	ID          string `json:"id"`
	Title       string `json:"name"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended"`
}

// Templates lists every template with a display title.
func Templates() []TemplateInfo {
	caser := cases.Title(language.English)
	names := TemplateNames()
	out := make([]TemplateInfo, 0, len(names))
	for _, name := range names {
		info := templates[Template(name)]
		out = append(out, TemplateInfo{
			ID:          name,
			Title:       caser.String(name),
			Description: info.description,
			Recommended: Template(name) == DefaultTemplate,
		})
	}
	return out
}

// Overrides are user adjustments merged onto a template. Zero values leave
// the template untouched.
type Overrides struct {
	FontName       string
	FontSize       int
	VerticalMargin *int
	BaseColor      *Color
	HighlightColor *Color
}

// Apply returns a copy of style with the overrides merged in.
func (o Overrides) Apply(style Style) Style {
	if name := strings.TrimSpace(o.FontName); name != "" {
		style.FontName = name
	}
	if o.FontSize > 0 {
		style.FontSize = o.FontSize
	}
	if o.VerticalMargin != nil && *o.VerticalMargin >= 0 {
		style.MarginV = *o.VerticalMargin
	}
	if o.BaseColor != nil {
		style.Base = *o.BaseColor
	}
	if o.HighlightColor != nil {
		style.Highlight = *o.HighlightColor
	}
	return style
}

// ResolveStyle parses the template name and applies overrides.
func ResolveStyle(name string, overrides Overrides) (Style, error) {
	t, err := ParseTemplate(name)
	if err != nil {
		return Style{}, err
	}
	style, err := StyleFor(t)
	if err != nil {
		return Style{}, err
	}
	return overrides.Apply(style), nil
}
