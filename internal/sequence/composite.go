package sequence

import "math"

// Split bounds for the composite ratio; neither phase may vanish.
const (
	MinSplit = 0.05
	MaxSplit = 0.95
)

// Phases is how one progress value is shared between the two players of a
// Composite.
type Phases struct {
	First      float64
	ShowFirst  bool
	Second     float64
	ShowSecond bool
	SplitAt    float64
}

// SplitProgress partitions progress into [0,split) for the first sequence
// and [split,1] for the second, each rescaled to [0,1].
func SplitProgress(progress, ratio float64) Phases {
	p := clamp01(progress)
	split := math.Min(MaxSplit, math.Max(MinSplit, ratio))

	ph := Phases{SplitAt: split}
	ph.First = clamp01(p / split)
	ph.ShowFirst = p < split
	if p > split {
		ph.Second = clamp01((p - split) / (1 - split))
	}
	ph.ShowSecond = p >= split
	return ph
}

// Composite plays two sequences back to back over one scroll range. Both
// players are scrubbed on every update so each keeps its cache warm, but at
// most one is visible.
type Composite struct {
	first  *Player
	second *Player
	ratio  float64
}

func NewComposite(first, second *Player, ratio float64) *Composite {
	return &Composite{first: first, second: second, ratio: ratio}
}

func (c *Composite) Update(progress float64, visible bool) Phases {
	ph := SplitProgress(progress, c.ratio)
	c.first.Update(Input{Drive: Scrub{Progress: ph.First}, Visible: visible && ph.ShowFirst})
	c.second.Update(Input{Drive: Scrub{Progress: ph.Second}, Visible: visible && ph.ShowSecond})
	return ph
}

// Players returns the players in draw order.
func (c *Composite) Players() []*Player {
	return []*Player{c.first, c.second}
}

func (c *Composite) Close() {
	c.first.Close()
	c.second.Close()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
