package config

import (
	"errors"
	"fmt"
	"strings"
)

type Orient string

const (
	OrientNone      Orient = "none"
	OrientFlipY     Orient = "flipY"
	OrientFlipX     Orient = "flipX"
	OrientRotate180 Orient = "rotate180"
)

type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
)

// Defaults applied by WithDefaults when a field is left at its zero value.
const (
	DefaultFPS           = 60.0
	DefaultPad           = 3
	DefaultStart         = 1
	DefaultExt           = "webp"
	DefaultMaxCache      = 3
	DefaultPrefetchLimit = 1
	DefaultPrefetchSlow  = 1
	DefaultPrefetchFast  = 2
)

var ErrInvalid = errors.New("invalid sequence config")

// Sequence configures one frame sequence player. It is immutable once the
// player has been constructed.
type Sequence struct {
	Count         int        `yaml:"count"`
	FPS           float64    `yaml:"fps,omitempty"`
	Dir           string     `yaml:"dir"`
	Base          string     `yaml:"base"`
	Pad           int        `yaml:"pad,omitempty"`
	Start         *int       `yaml:"start,omitempty"`
	Ext           string     `yaml:"ext,omitempty"`
	ExtCandidates []string   `yaml:"extCandidates,omitempty"`
	MaxCache      int        `yaml:"maxCache,omitempty"`
	Orient        Orient     `yaml:"orient,omitempty"`
	Fit           Fit        `yaml:"fit,omitempty"`
	YPct          float64    `yaml:"yPct,omitempty"`
	Zoom          float64    `yaml:"zoom,omitempty"`
	Loops         int        `yaml:"loops,omitempty"`
	Plane         [2]float64 `yaml:"plane,omitempty,flow"`

	// Prefetch tuning. PrefetchLimit caps in-flight requests for prefetch
	// admission; Slow/Fast are the window sizes for the two quality tiers.
	PrefetchLimit int `yaml:"prefetchLimit,omitempty"`
	PrefetchSlow  int `yaml:"prefetchSlow,omitempty"`
	PrefetchFast  int `yaml:"prefetchFast,omitempty"`

	Debug bool `yaml:"debug,omitempty"`
}

// WithDefaults returns a copy with every unset field filled in.
func (s Sequence) WithDefaults() Sequence {
	if s.FPS <= 0 {
		s.FPS = DefaultFPS
	}
	if s.Pad <= 0 {
		s.Pad = DefaultPad
	}
	if s.Start == nil {
		start := DefaultStart
		s.Start = &start
	}
	if s.Ext == "" {
		s.Ext = DefaultExt
	}
	s.Ext = strings.TrimPrefix(s.Ext, ".")
	if len(s.ExtCandidates) > 0 {
		exts := make([]string, len(s.ExtCandidates))
		for i, ext := range s.ExtCandidates {
			exts[i] = strings.TrimPrefix(ext, ".")
		}
		s.ExtCandidates = exts
	}
	if s.MaxCache <= 0 {
		s.MaxCache = DefaultMaxCache
	}
	s.Orient = ParseOrient(string(s.Orient))
	s.Fit = ParseFit(string(s.Fit))
	if s.Zoom <= 0 {
		s.Zoom = 1
	}
	if s.Loops < 1 {
		s.Loops = 1
	}
	if s.Plane[0] <= 0 || s.Plane[1] <= 0 {
		s.Plane = [2]float64{16, 9}
	}
	if s.PrefetchLimit <= 0 {
		s.PrefetchLimit = DefaultPrefetchLimit
	}
	if s.PrefetchSlow <= 0 {
		s.PrefetchSlow = DefaultPrefetchSlow
	}
	if s.PrefetchFast <= 0 {
		s.PrefetchFast = DefaultPrefetchFast
	}
	return s
}

// StartIndex is the number of the first frame file.
func (s Sequence) StartIndex() int {
	if s.Start == nil {
		return DefaultStart
	}
	return *s.Start
}

// Candidates is the ordered list of extensions the loader tries.
func (s Sequence) Candidates() []string {
	if len(s.ExtCandidates) > 0 {
		return s.ExtCandidates
	}
	if s.Ext == "" {
		return []string{DefaultExt}
	}
	return []string{s.Ext}
}

// PrefetchWindow maps a connection quality hint (an effective type such as
// "4g" or "3g") to the number of frames to prefetch ahead.
func (s Sequence) PrefetchWindow(hint string) int {
	slow, fast := s.PrefetchSlow, s.PrefetchFast
	if slow <= 0 {
		slow = DefaultPrefetchSlow
	}
	if fast <= 0 {
		fast = DefaultPrefetchFast
	}
	switch {
	case hint == "":
		return slow
	case strings.Contains(hint, "2g"), strings.Contains(hint, "3g"):
		return slow
	default:
		return fast
	}
}

func (s Sequence) Validate() error {
	if s.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalid, s.Count)
	}
	if s.Base == "" {
		return fmt.Errorf("%w: base name is empty", ErrInvalid)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %g", ErrInvalid, s.FPS)
	}
	if s.MaxCache < 1 {
		return fmt.Errorf("%w: maxCache must be at least 1, got %d", ErrInvalid, s.MaxCache)
	}
	switch s.Orient {
	case OrientNone, OrientFlipY, OrientFlipX, OrientRotate180:
	default:
		return fmt.Errorf("%w: unknown orient %q", ErrInvalid, s.Orient)
	}
	switch s.Fit {
	case FitCover, FitContain:
	default:
		return fmt.Errorf("%w: unknown fit %q", ErrInvalid, s.Fit)
	}
	return nil
}

// ParseOrient accepts both the short names and the descriptive aliases
// (flip-vertical, flip-horizontal, rotate-180). Empty means none.
func ParseOrient(v string) Orient {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none":
		return OrientNone
	case "flipy", "flip-vertical", "flip-y":
		return OrientFlipY
	case "flipx", "flip-horizontal", "flip-x":
		return OrientFlipX
	case "rotate180", "rotate-180":
		return OrientRotate180
	}
	return Orient(v)
}

// ParseFit accepts cover/contain and their fill/letterbox aliases.
func ParseFit(v string) Fit {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "cover", "fill":
		return FitCover
	case "contain", "letterbox":
		return FitContain
	}
	return Fit(v)
}
