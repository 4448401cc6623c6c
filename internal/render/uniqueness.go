package render

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// X264Params are the motion-estimation knobs varied per file.
type X264Params struct {
	ME    string `json:"me"`
	Subme int    `json:"subme"`
	Ref   int    `json:"ref"`
}

func (p X264Params) String() string {
	return fmt.Sprintf("me=%s:subme=%d:ref=%d", p.ME, p.Subme, p.Ref)
}

// UniquenessParams are small per-file perturbations derived from a seed.
type UniquenessParams struct {
	CRF             int        `json:"crf"`
	Preset          string     `json:"preset"`
	Saturation      float64    `json:"saturation"`
	Brightness      float64    `json:"brightness"`
	Contrast        float64    `json:"contrast"`
	NoiseStrength   float64    `json:"noise_strength"`
	AudioBitrate    string     `json:"audio_bitrate"`
	AudioSampleRate int        `json:"audio_sample_rate"`
	CreationTime    time.Time  `json:"creation_time"`
	EncoderTag      string     `json:"encoder_tag"`
	X264            X264Params `json:"x264"`
}

var (
	uniquePresets     = []string{"slow", "slower", "veryslow"}
	uniqueME          = []string{"umh", "hex"}
	uniqueSubme       = []int{7, 8, 9}
	uniqueRef         = []int{3, 4, 5}
	uniqueBitrates    = []string{"192k", "224k", "256k"}
	uniqueSampleRates = []int{44100, 48000}
	uniqueEncoderTags = []string{"Lavf60.3.100", "Lavf59.27.100", "Lavf58.76.100", "Lavf60.16.100", "Lavf59.16.100"}
)

// Seed derives the generator seed from the source path and batch index.
func Seed(sourcePath string, index int) (uint64, uint64) {
	h := sha256.New()
	h.Write([]byte(sourcePath))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// DeriveUniqueness draws the parameters in a fixed order so the same seed and
// reference time always yield the same result. ref is the job's creation time;
// CreationTime is offset back from it, so the same file submitted in two jobs
// differs only in CreationTime.
func DeriveUniqueness(sourcePath string, index int, ref time.Time) UniquenessParams {
	s1, s2 := Seed(sourcePath, index)
	rng := rand.New(rand.NewPCG(s1, s2))

	var p UniquenessParams
	p.NoiseStrength = uniform(rng, 0.0008, 0.0025)
	p.Saturation = uniform(rng, 0.98, 1.02)
	p.Brightness = uniform(rng, 0.985, 1.015)
	p.Contrast = uniform(rng, 0.99, 1.01)
	p.CRF = 15 + rng.IntN(5)
	p.Preset = pick(rng, uniquePresets)
	p.X264 = X264Params{
		ME:    pick(rng, uniqueME),
		Subme: pick(rng, uniqueSubme),
		Ref:   pick(rng, uniqueRef),
	}
	p.AudioBitrate = pick(rng, uniqueBitrates)
	p.AudioSampleRate = pick(rng, uniqueSampleRates)
	days := 1 + rng.IntN(30)
	hours := rng.IntN(24)
	p.CreationTime = ref.UTC().Add(-time.Duration(days)*24*time.Hour - time.Duration(hours)*time.Hour).Truncate(time.Second)
	p.EncoderTag = pick(rng, uniqueEncoderTags)
	return p
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func pick[T any](rng *rand.Rand, options []T) T {
	return options[rng.IntN(len(options))]
}
