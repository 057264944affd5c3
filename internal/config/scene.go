package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/seqscroll/internal/timeline"
)

type Mode string

const (
	ModeLoop      Mode = "loop"      // time driven, one sequence
	ModeScroll    Mode = "scroll"    // progress driven, one sequence
	ModeComposite Mode = "composite" // progress driven, two sequences over a split range
)

// DefaultRatio is the share of the scroll given to the first sequence of a
// composite scene.
const DefaultRatio = 0.35

// Scene describes what a viewer or preview renders.
type Scene struct {
	Name      string              `yaml:"name"`
	Mode      Mode                `yaml:"mode"`
	Ratio     float64             `yaml:"ratio,omitempty"`
	Sequences []Sequence          `yaml:"sequences"`
	Timeline  []timeline.Keyframe `yaml:"timeline,omitempty"`
}

func (s *Scene) Validate() error {
	want := 1
	switch s.Mode {
	case ModeLoop, ModeScroll:
	case ModeComposite:
		want = 2
	default:
		return fmt.Errorf("%w: unknown scene mode %q", ErrInvalid, s.Mode)
	}
	if len(s.Sequences) != want {
		return fmt.Errorf("%w: scene %q in %s mode needs %d sequence(s), got %d",
			ErrInvalid, s.Name, s.Mode, want, len(s.Sequences))
	}
	for i, seq := range s.Sequences {
		if err := seq.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
	}
	return nil
}

// SplitRatio is the composite split, defaulted when unset.
func (s *Scene) SplitRatio() float64 {
	if s.Ratio <= 0 {
		return DefaultRatio
	}
	return s.Ratio
}

// WriteScene writes a scene to a YAML file
func WriteScene(scene *Scene, path string) error {
	data, err := yaml.Marshal(scene)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadScene reads a scene from a YAML file
func ReadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scene Scene
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	return &scene, nil
}

func intPtr(v int) *int { return &v }

// heroLoop is the conveyor belt sequence of the landing page hero.
func heroLoop() Sequence {
	return Sequence{
		Count:  83,
		FPS:    60,
		Dir:    "/AnimationHero/seq-loop",
		Base:   "HERO_LOOP",
		Pad:    3,
		Start:  intPtr(1),
		Ext:    "webp",
		Orient: OrientFlipY,
		Fit:    FitContain,
	}
}

// heroQueda is the falling cubes sequence scrubbed by the page scroll.
func heroQueda() Sequence {
	return Sequence{
		Count:  214,
		FPS:    24,
		Dir:    "/AnimationHero/seq-scroll",
		Base:   "HERO_QUEDA",
		Pad:    3,
		Start:  intPtr(1),
		Ext:    "webp",
		Orient: OrientFlipY,
		Fit:    FitContain,
		Zoom:   1,
	}
}

var presets = map[string]func() Scene{
	"hero-loop": func() Scene {
		return Scene{Name: "hero-loop", Mode: ModeLoop, Sequences: []Sequence{heroLoop()}}
	},
	"hero-queda": func() Scene {
		return Scene{
			Name:      "hero-queda",
			Mode:      ModeScroll,
			Sequences: []Sequence{heroQueda()},
			Timeline:  timeline.Sweep(6).Keyframes,
		}
	},
	"hero-composite": func() Scene {
		first, second := heroLoop(), heroQueda()
		for _, seq := range []*Sequence{&first, &second} {
			seq.ExtCandidates = []string{"webp", "png"}
			seq.MaxCache = 2
			seq.Loops = 1
			seq.Fit = FitCover
			seq.YPct = 15
			seq.Zoom = 1.1
		}
		first.FPS = 18
		return Scene{
			Name:      "hero-composite",
			Mode:      ModeComposite,
			Ratio:     DefaultRatio,
			Sequences: []Sequence{first, second},
			Timeline:  timeline.Sweep(10).Keyframes,
		}
	},
}

// Preset returns one of the built-in scenes.
func Preset(name string) (*Scene, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (known: %v)", name, PresetNames())
	}
	scene := build()
	return &scene, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadScene resolves either a preset name or a path to a YAML scene file.
func LoadScene(nameOrPath string) (*Scene, error) {
	if _, ok := presets[nameOrPath]; ok {
		return Preset(nameOrPath)
	}
	return ReadScene(nameOrPath)
}
