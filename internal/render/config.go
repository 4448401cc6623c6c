package render

import (
	"fmt"
	"strconv"
	"strings"

	"karaoke/internal/services"
)

const (
	DefaultCRF           = 18
	DefaultPreset        = "medium"
	DefaultVideoCodec    = "libx264"
	DefaultMinResolution = 1080
)

// Config is the immutable per-file render request.
type Config struct {
	SourcePath    string
	OutputPath    string
	AspectRatio   string
	MinResolution int
	CRF           int
	Preset        string
	VideoCodec    string
	Uniqueness    bool
	// UniquenessIndex is the file's position in its batch.
	UniquenessIndex int
}

func (c Config) withDefaults() Config {
	if c.MinResolution <= 0 {
		c.MinResolution = DefaultMinResolution
	}
	if strings.TrimSpace(c.Preset) == "" {
		c.Preset = DefaultPreset
	}
	if strings.TrimSpace(c.VideoCodec) == "" {
		c.VideoCodec = DefaultVideoCodec
	}
	return c
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.SourcePath) == "":
		return services.Wrap(services.ErrValidation, "render", "config", "source path required", nil)
	case strings.TrimSpace(c.OutputPath) == "":
		return services.Wrap(services.ErrValidation, "render", "config", "output path required", nil)
	case c.CRF < 0 || c.CRF > 51:
		return services.Wrap(services.ErrValidation, "render", "config", fmt.Sprintf("crf %d outside 0..51", c.CRF), nil)
	}
	if c.AspectRatio != "" {
		if _, _, err := ParseAspect(c.AspectRatio); err != nil {
			return err
		}
	}
	return nil
}

// ParseAspect parses a W:H ratio.
func ParseAspect(value string) (int, int, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, 0, services.Wrap(services.ErrValidation, "render", "aspect ratio", fmt.Sprintf("%q is not W:H", value), nil)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(left))
	h, errH := strconv.Atoi(strings.TrimSpace(right))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, services.Wrap(services.ErrValidation, "render", "aspect ratio", fmt.Sprintf("%q is not W:H", value), nil)
	}
	return w, h, nil
}

// Ratio describes a preset output aspect ratio.
type Ratio struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Resolution  string `json:"resolution"`
	Description string `json:"description"`
}

// Ratios lists the preset aspect ratios. Any other W:H is accepted as well.
func Ratios() []Ratio {
	return []Ratio{
		{ID: "16:9", Name: "16:9 landscape", Resolution: "1920x1080", Description: "YouTube, Bilibili"},
		{ID: "9:16", Name: "9:16 portrait", Resolution: "1080x1920", Description: "Douyin, Kuaishou, Shorts"},
		{ID: "1:1", Name: "1:1 square", Resolution: "1080x1080", Description: "Instagram"},
		{ID: "4:3", Name: "4:3 classic", Resolution: "1440x1080", Description: "Traditional TV"},
		{ID: "21:9", Name: "21:9 ultrawide", Resolution: "2560x1080", Description: "Cinematic"},
	}
}
