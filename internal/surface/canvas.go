package surface

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/seqscroll/internal/sequence"
)

// Texture is a frame uploaded to a Canvas. It references the decode buffer
// it was created from; the buffer must stay untouched until Release.
type Texture struct {
	img      *image.RGBA
	interp   draw.Interpolator
	released atomic.Bool
	canvas   *Canvas
}

func (t *Texture) Size() image.Point { return t.img.Rect.Size() }

func (t *Texture) Release() {
	if t.released.CompareAndSwap(false, true) {
		t.canvas.live.Add(-1)
	}
}

func (t *Texture) Released() bool { return t.released.Load() }

// Canvas is an offscreen software surface. Frames are composed with an
// affine raster of each presenter view, back to front.
type Canvas struct {
	mu         sync.Mutex
	frame      *image.RGBA
	background image.Image
	dirty      bool

	live    atomic.Int64
	uploads atomic.Int64
}

func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		frame:      image.NewRGBA(image.Rect(0, 0, width, height)),
		background: image.NewUniform(color.RGBA{A: 255}),
		dirty:      true,
	}
}

func (c *Canvas) Bounds() image.Rectangle { return c.frame.Rect }

func (c *Canvas) SetBackground(col color.Color) {
	c.mu.Lock()
	c.background = image.NewUniform(col)
	c.dirty = true
	c.mu.Unlock()
}

func (c *Canvas) NewTexture(img *image.RGBA, opts sequence.TextureOptions) (sequence.Texture, error) {
	src := img
	if opts.FlipY {
		src = flipRows(img)
	}

	var interp draw.Interpolator = draw.BiLinear
	if opts.Filter == sequence.FilterNearest {
		interp = draw.NearestNeighbor
	}

	c.live.Add(1)
	c.uploads.Add(1)
	return &Texture{img: src, interp: interp, canvas: c}, nil
}

func (c *Canvas) Invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Dirty reports whether a redraw was requested since the last Render.
func (c *Canvas) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Live is the number of textures uploaded and not yet released.
func (c *Canvas) Live() int64 { return c.live.Load() }

func (c *Canvas) Uploads() int64 { return c.uploads.Load() }

// Render composes views into the canvas frame and returns it. The returned
// image is reused by the next Render.
func (c *Canvas) Render(views ...sequence.View) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	draw.Draw(c.frame, c.frame.Rect, c.background, image.Point{}, draw.Src)
	for _, v := range views {
		c.drawView(v)
	}
	c.dirty = false
	return c.frame
}

func (c *Canvas) drawView(v sequence.View) {
	if !v.Visible || v.Texture == nil {
		return
	}
	tex, ok := v.Texture.(*Texture)
	if !ok || tex.Released() {
		return
	}
	pl := v.Placement
	if pl.Scale <= 0 {
		return
	}

	s2d := Transform(tex.Size(), pl, v.UV, c.frame.Rect.Size())
	tex.interp.Transform(c.frame, s2d, tex.img, tex.img.Rect, draw.Over, nil)
}

// Transform maps texture pixels to canvas pixels. The plane is centred in
// the canvas, shifted up by the placement offset and mirrored on the axes
// the UV transform flips.
func Transform(size image.Point, pl sequence.Placement, uv sequence.UV, canvas image.Point) f64.Aff3 {
	w, h := pl.Width(), pl.Height()
	left := float64(canvas.X)/2 - w/2
	top := float64(canvas.Y)/2 - pl.OffsetY - h/2

	sx := w / float64(size.X)
	sy := h / float64(size.Y)

	flipX, flipY := uv.Flips()
	a, c := sx, left
	if flipX {
		a, c = -sx, left+w
	}
	e, f := sy, top
	if flipY {
		e, f = -sy, top+h
	}
	return f64.Aff3{a, 0, c, 0, e, f}
}

func flipRows(img *image.RGBA) *image.RGBA {
	b := img.Rect
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rowBytes := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		src := img.PixOffset(b.Min.X, b.Max.Y-1-y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rowBytes], img.Pix[src:src+rowBytes])
	}
	return out
}
