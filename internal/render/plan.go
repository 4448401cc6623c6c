package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"karaoke/internal/media/ffprobe"
	"karaoke/internal/services"
)

const creationTimeLayout = "2006-01-02T15:04:05.000000Z"

// Plan is a fully resolved encoder invocation.
type Plan struct {
	Source   string
	Output   string
	Subtitle string
	// Duration is the source duration used for progress estimation.
	Duration time.Duration
	Rotation int
	Logical  Dimensions
	Scaled   Dimensions
	Crop     *Rect
	Frame    Dimensions
	Filters  []string
	// Uniqueness is nil when uniqueness is disabled.
	Uniqueness *UniquenessParams
	Args       []string
}

// FilterChain joins the filters in order.
func (p Plan) FilterChain() string {
	return strings.Join(p.Filters, ",")
}

// Build derives the render plan for one file. ref anchors the uniqueness
// creation timestamp and is normally the job's creation time.
func Build(meta ffprobe.Result, subtitlePath string, cfg Config, ref time.Time) (Plan, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Plan{}, err
	}
	if strings.TrimSpace(subtitlePath) == "" {
		return Plan{}, services.Wrap(services.ErrValidation, "render", "plan", "subtitle path required", nil)
	}

	video, ok := meta.PrimaryVideo()
	if !ok {
		return Plan{}, services.Wrap(services.ErrValidation, "render", "probe", "streams: no video stream", nil)
	}
	if video.Width <= 0 {
		return Plan{}, services.Wrap(services.ErrValidation, "render", "probe", fmt.Sprintf("streams[%d].width: must be positive, got %d", video.Index, video.Width), nil)
	}
	if video.Height <= 0 {
		return Plan{}, services.Wrap(services.ErrValidation, "render", "probe", fmt.Sprintf("streams[%d].height: must be positive, got %d", video.Index, video.Height), nil)
	}
	rotation, err := video.Rotation()
	if err != nil {
		return Plan{}, services.Wrap(services.ErrValidation, "render", "probe", fmt.Sprintf("streams[%d]", video.Index), err)
	}

	plan := Plan{
		Source:   cfg.SourcePath,
		Output:   cfg.OutputPath,
		Subtitle: subtitlePath,
		Rotation: rotation,
		Logical:  Oriented(video.Width, video.Height, rotation),
	}
	if seconds := meta.DurationSeconds(); seconds > 0 {
		plan.Duration = time.Duration(seconds * float64(time.Second))
	}

	plan.Scaled = plan.Logical
	if scaled, ok := ScaleToMinimum(plan.Logical, cfg.MinResolution); ok {
		plan.Scaled = scaled
		plan.Filters = append(plan.Filters, scaleFilter(scaled))
	}

	plan.Frame = plan.Scaled
	if crop, ok := planCrop(plan.Scaled, cfg.AspectRatio); ok {
		plan.Crop = &crop
		plan.Frame = Dimensions{Width: crop.Width, Height: crop.Height}
		plan.Filters = append(plan.Filters, cropFilter(crop))
	}

	if cfg.Uniqueness {
		params := DeriveUniqueness(cfg.SourcePath, cfg.UniquenessIndex, ref)
		plan.Uniqueness = &params
		plan.Filters = append(plan.Filters, eqFilter(params), noiseFilter(params))
	}
	plan.Filters = append(plan.Filters, assFilter(subtitlePath))
	plan.Args = buildArgs(plan, cfg)
	return plan, nil
}

// planCrop returns the aspect crop, or an even-dimension trim when the frame
// is odd-sized and no ratio is requested.
func planCrop(d Dimensions, aspect string) (Rect, bool) {
	if aspect != "" {
		rw, rh, err := ParseAspect(aspect)
		if err == nil {
			return CenterCrop(d, rw, rh)
		}
	}
	if d.Width%2 == 0 && d.Height%2 == 0 {
		return Rect{}, false
	}
	return Rect{Width: evenFloor(d.Width), Height: evenFloor(d.Height)}, true
}

func buildArgs(plan Plan, cfg Config) []string {
	args := make([]string, 0, 48)
	args = append(args, "-hide_banner", "-nostdin", "-y", "-i", plan.Source)
	args = append(args, "-vf", plan.FilterChain())
	args = append(args, "-map", "0:v:0", "-map", "0:a?")

	crf, preset := cfg.CRF, cfg.Preset
	if u := plan.Uniqueness; u != nil {
		crf, preset = u.CRF, u.Preset
	}
	args = append(args, "-c:v", cfg.VideoCodec, "-crf", strconv.Itoa(crf), "-preset", preset)
	if u := plan.Uniqueness; u != nil && cfg.VideoCodec == DefaultVideoCodec {
		args = append(args, "-x264-params", u.X264.String())
	}
	args = append(args, "-pix_fmt", "yuv420p")

	if u := plan.Uniqueness; u != nil {
		args = append(args, "-c:a", "aac", "-b:a", u.AudioBitrate, "-ar", strconv.Itoa(u.AudioSampleRate))
		args = append(args,
			"-map_metadata", "-1",
			"-metadata", "creation_time="+u.CreationTime.Format(creationTimeLayout),
			"-metadata", "encoder="+u.EncoderTag,
			"-metadata", "title=",
			"-metadata", "comment=",
		)
	} else {
		args = append(args, "-c:a", "copy")
	}
	args = append(args, "-movflags", "+faststart", plan.Output)
	return args
}
