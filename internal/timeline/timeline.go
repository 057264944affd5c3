package timeline

import (
	"sort"
)

// Keyframe pins the scroll progress at a moment of the preview.
type Keyframe struct {
	Time     float64 `yaml:"time"`           // Time offset in seconds
	Progress float64 `yaml:"progress"`       // Scroll progress, 0..1
	Ease     string  `yaml:"ease,omitempty"` // Easing towards the next keyframe: linear (default) or inOutCubic
}

// Timeline is an ordered list of keyframes describing how a scroll
// progresses over time.
type Timeline struct {
	Keyframes []Keyframe
}

// New sorts a copy of the keyframes by time.
func New(keyframes []Keyframe) *Timeline {
	sorted := make([]Keyframe, len(keyframes))
	copy(sorted, keyframes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})
	return &Timeline{Keyframes: sorted}
}

// Sweep scrolls from 0 to 1 over duration seconds with smooth in/out.
func Sweep(duration float64) *Timeline {
	return New([]Keyframe{
		{Time: 0, Progress: 0, Ease: "inOutCubic"},
		{Time: duration, Progress: 1},
	})
}

// Duration is the time of the last keyframe.
func (t *Timeline) Duration() float64 {
	if len(t.Keyframes) == 0 {
		return 0
	}
	return t.Keyframes[len(t.Keyframes)-1].Time
}

// ProgressAt calculates the scroll progress at a given time by interpolating
// between keyframes. The result is always within [0,1].
func (t *Timeline) ProgressAt(currentTime float64) float64 {
	kfs := t.Keyframes
	if len(kfs) == 0 {
		return 0
	}

	if currentTime <= kfs[0].Time {
		return clamp01(kfs[0].Progress)
	}
	if currentTime >= kfs[len(kfs)-1].Time {
		return clamp01(kfs[len(kfs)-1].Progress)
	}

	// Find surrounding keyframes
	var prevKf, nextKf Keyframe
	for i := 0; i < len(kfs)-1; i++ {
		if currentTime >= kfs[i].Time && currentTime < kfs[i+1].Time {
			prevKf = kfs[i]
			nextKf = kfs[i+1]
			break
		}
	}

	timeDelta := nextKf.Time - prevKf.Time
	if timeDelta == 0 {
		timeDelta = 0.001 // Avoid division by zero
	}
	f := (currentTime - prevKf.Time) / timeDelta

	if prevKf.Ease == "inOutCubic" {
		f = easeInOutCubic(f)
	}

	return clamp01(lerp(prevKf.Progress, nextKf.Progress, f))
}

// Samples returns the progress for every output frame at fps.
func (t *Timeline) Samples(fps int) []float64 {
	if fps <= 0 {
		return nil
	}
	n := int(t.Duration()*float64(fps)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = t.ProgressAt(float64(i) / float64(fps))
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
