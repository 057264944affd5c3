package main

import (
	"math"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/sequence"
)

// Game drives a scene from the mouse wheel and the keyboard: the wheel and
// arrow keys move the scroll progress, space toggles a loop scene.
type Game struct {
	mode      config.Mode
	players   []*sequence.Player
	composite *sequence.Composite
	surface   *screenSurface

	step     float64
	progress float64
	active   bool
	focused  atomic.Bool

	width, height int
	dirtyInput    bool
	views         []sequence.View
}

func (g *Game) visible() bool { return g.focused.Load() }

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	g.surface.collect()

	focused := ebiten.IsFocused()
	if g.focused.Swap(focused) != focused {
		g.dirtyInput = true
	}

	progress := g.progress
	_, dy := ebiten.Wheel()
	progress -= dy * g.step
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		progress += g.step / 4
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		progress -= g.step / 4
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyHome) {
		progress = 0
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnd) {
		progress = 1
	}
	progress = math.Min(1, math.Max(0, progress))
	if progress != g.progress {
		g.progress = progress
		g.dirtyInput = true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.active = !g.active
		g.dirtyInput = true
	}

	if g.dirtyInput {
		g.dirtyInput = false
		g.apply()
	}
	return nil
}

func (g *Game) apply() {
	visible := g.focused.Load()
	switch g.mode {
	case config.ModeComposite:
		g.composite.Update(g.progress, visible)
	case config.ModeLoop:
		g.players[0].Update(sequence.Input{Drive: sequence.Loop{}, Active: g.active, Visible: visible})
	default:
		g.players[0].Update(sequence.Input{Drive: sequence.Scrub{Progress: g.progress}, Visible: visible})
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	for i, pl := range g.players {
		g.views[i] = pl.Presenter().View()
	}
	g.surface.draw(screen, g.views)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		for _, pl := range g.players {
			pl.Presenter().Resize(float64(outsideWidth), float64(outsideHeight))
		}
	}
	return outsideWidth, outsideHeight
}

func (g *Game) Close() {
	if g.composite != nil {
		g.composite.Close()
		return
	}
	for _, pl := range g.players {
		pl.Close()
	}
}
