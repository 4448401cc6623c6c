package render

import (
	"testing"
	"time"
)

var refTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDeriveUniquenessDeterministic(t *testing.T) {
	a := DeriveUniqueness("/videos/a.mp4", 0, refTime)
	b := DeriveUniqueness("/videos/a.mp4", 0, refTime)
	if a != b {
		t.Fatalf("same seed produced different params:\n%+v\n%+v", a, b)
	}

	// The reference time only moves CreationTime.
	later := DeriveUniqueness("/videos/a.mp4", 0, refTime.Add(48*time.Hour))
	if later.CreationTime.Sub(a.CreationTime) != 48*time.Hour {
		t.Fatalf("creation time should shift with ref: %v vs %v", a.CreationTime, later.CreationTime)
	}
	later.CreationTime = a.CreationTime
	if later != a {
		t.Fatalf("ref changed more than CreationTime:\n%+v\n%+v", a, later)
	}
}

func TestDeriveUniquenessVaries(t *testing.T) {
	distinct := map[UniquenessParams]struct{}{}
	for i := 0; i < 10; i++ {
		distinct[DeriveUniqueness("/videos/a.mp4", i, refTime)] = struct{}{}
	}
	if len(distinct) < 2 {
		t.Fatalf("expected params to vary across batch indices")
	}
	if DeriveUniqueness("/videos/a.mp4", 0, refTime) == DeriveUniqueness("/videos/b.mp4", 0, refTime) {
		t.Fatalf("expected params to vary across paths")
	}
}

func TestDeriveUniquenessRanges(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := DeriveUniqueness("/videos/clip.mov", i, refTime)
		if p.NoiseStrength < 0.0008 || p.NoiseStrength > 0.0025 {
			t.Fatalf("noise %f out of range", p.NoiseStrength)
		}
		if p.Saturation < 0.98 || p.Saturation > 1.02 {
			t.Fatalf("saturation %f out of range", p.Saturation)
		}
		if p.Brightness < 0.985 || p.Brightness > 1.015 {
			t.Fatalf("brightness %f out of range", p.Brightness)
		}
		if p.Contrast < 0.99 || p.Contrast > 1.01 {
			t.Fatalf("contrast %f out of range", p.Contrast)
		}
		if p.CRF < 15 || p.CRF > 19 {
			t.Fatalf("crf %d out of range", p.CRF)
		}
		age := refTime.Sub(p.CreationTime)
		if age < 24*time.Hour || age > 30*24*time.Hour+23*time.Hour {
			t.Fatalf("creation time %v is %v before reference", p.CreationTime, age)
		}
		if level := NoiseLevel(p.NoiseStrength); level < 1 || level > 3 {
			t.Fatalf("noise level %d out of range", level)
		}
	}
}
