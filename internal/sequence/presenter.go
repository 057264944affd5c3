package sequence

import (
	"math"
	"sync"

	"github.com/ivlev/seqscroll/internal/config"
)

// UV is a texture coordinate transform around the texture centre with
// repeat wrapping: uv' = rotate(repeat * (uv - 0.5)) + 0.5 + offset.
type UV struct {
	RepeatX, RepeatY float64
	OffsetX, OffsetY float64
	Rotation         float64 // radians
}

func IdentityUV() UV {
	return UV{RepeatX: 1, RepeatY: 1}
}

// OrientUV is the identity transform with one orientation treatment applied.
func OrientUV(o config.Orient) UV {
	uv := IdentityUV()
	switch o {
	case config.OrientFlipY:
		uv.RepeatY = -1
		uv.OffsetY = 1
	case config.OrientFlipX:
		uv.RepeatX = -1
		uv.OffsetX = 1
	case config.OrientRotate180:
		uv.Rotation = math.Pi
	}
	return uv
}

// Apply maps a texture coordinate, wrapping the result into [0,1).
func (uv UV) Apply(u, v float64) (float64, float64) {
	x := (u - 0.5) * uv.RepeatX
	y := (v - 0.5) * uv.RepeatY
	sin, cos := math.Sincos(uv.Rotation)
	rx := x*cos - y*sin
	ry := x*sin + y*cos
	return wrap(rx + 0.5 + uv.OffsetX), wrap(ry + 0.5 + uv.OffsetY)
}

// Flips reports which axes the transform mirrors. Surfaces that can only
// scale and translate draw with these.
func (uv UV) Flips() (x, y bool) {
	u, _ := uv.Apply(0.25, 0.5)
	_, v := uv.Apply(0.5, 0.25)
	return u > 0.5, v > 0.5
}

func wrap(v float64) float64 {
	v = math.Mod(v, 1)
	if v < 0 {
		v++
	}
	// Keep values within rounding error of 1 from wrapping to the far edge.
	if v > 1-1e-9 {
		v = 0
	}
	return v
}

// Placement is where the frame plane sits in the viewport, in viewport units
// with the origin at the centre and y up.
type Placement struct {
	Scale   float64
	OffsetY float64
	PlaneW  float64
	PlaneH  float64
	ViewW   float64
	ViewH   float64
}

// Width and Height are the on-screen size of the plane.
func (pl Placement) Width() float64  { return pl.PlaneW * pl.Scale }
func (pl Placement) Height() float64 { return pl.PlaneH * pl.Scale }

// ComputePlacement sizes a planeW x planeH plane into a viewW x viewH view.
// Cover fills the view, contain letterboxes; zoom multiplies either. The
// vertical offset is yPct percent of half the view height, clamped so the
// plane never moves past the visible area.
func ComputePlacement(fit config.Fit, planeW, planeH, viewW, viewH, zoom, yPct float64) Placement {
	pl := Placement{PlaneW: planeW, PlaneH: planeH, ViewW: viewW, ViewH: viewH}
	if planeW <= 0 || planeH <= 0 || viewW <= 0 || viewH <= 0 {
		return pl
	}

	sCover := math.Max(viewW/planeW, viewH/planeH)
	sContain := math.Min(viewW/planeW, viewH/planeH)
	s := sCover
	if fit == config.FitContain {
		s = sContain
	}
	pl.Scale = s * zoom

	maxYOffset := math.Max(0, (viewH-planeH*pl.Scale)/2)
	desiredY := (yPct / 100) * (viewH / 2)
	pl.OffsetY = math.Min(maxYOffset, math.Max(-maxYOffset, desiredY))
	return pl
}

// View is everything a surface needs to draw the player's current state.
type View struct {
	Texture   Texture
	UV        UV
	Placement Placement
	Visible   bool
}

// Presenter binds frames to the surface and owns the static orientation
// and fit parameters.
type Presenter struct {
	surface Surface
	orient  config.Orient
	fit     config.Fit
	planeW  float64
	planeH  float64
	zoom    float64
	yPct    float64

	mu        sync.Mutex
	tex       Texture
	uv        UV
	placement Placement
	visible   bool
	redraws   int
}

func NewPresenter(cfg config.Sequence, surface Surface) *Presenter {
	return &Presenter{
		surface: surface,
		orient:  cfg.Orient,
		fit:     cfg.Fit,
		planeW:  cfg.Plane[0],
		planeH:  cfg.Plane[1],
		zoom:    cfg.Zoom,
		yPct:    cfg.YPct,
		uv:      IdentityUV(),
		visible: true,
	}
}

// Present binds tex. Binding the texture that is already bound does nothing
// and reports false; otherwise the UV transform is rebuilt and a redraw is
// requested.
func (p *Presenter) Present(tex Texture) bool {
	p.mu.Lock()
	if tex == nil || tex == p.tex {
		p.mu.Unlock()
		return false
	}
	p.tex = tex
	p.uv = OrientUV(p.orient)
	p.redraws++
	p.mu.Unlock()

	p.surface.Invalidate()
	return true
}

// Resize recomputes the placement for a new viewport size.
func (p *Presenter) Resize(viewW, viewH float64) {
	p.mu.Lock()
	p.placement = ComputePlacement(p.fit, p.planeW, p.planeH, viewW, viewH, p.zoom, p.yPct)
	p.mu.Unlock()

	p.surface.Invalidate()
}

func (p *Presenter) SetVisible(visible bool) {
	p.mu.Lock()
	changed := p.visible != visible
	p.visible = visible
	p.mu.Unlock()

	if changed {
		p.surface.Invalidate()
	}
}

// Unbind drops the bound texture; used on teardown.
func (p *Presenter) Unbind() {
	p.mu.Lock()
	p.tex = nil
	p.mu.Unlock()

	p.surface.Invalidate()
}

func (p *Presenter) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{Texture: p.tex, UV: p.uv, Placement: p.placement, Visible: p.visible}
}

// Texture is the currently bound frame, nil before the first one arrives.
func (p *Presenter) Texture() Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tex
}

// Redraws counts frame changes that requested a redraw.
func (p *Presenter) Redraws() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.redraws
}
