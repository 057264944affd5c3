package main

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ivlev/seqscroll/internal/sequence"
	"github.com/ivlev/seqscroll/internal/surface"
)

// screenTexture is a frame waiting for, or holding, its GPU image. Uploads
// and deallocations happen on the game thread only.
type screenTexture struct {
	s        *screenSurface
	src      *image.RGBA
	img      *ebiten.Image
	released bool
}

func (t *screenTexture) Size() image.Point { return t.src.Rect.Size() }

func (t *screenTexture) Release() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	if t.img != nil {
		t.s.trash = append(t.s.trash, t.img)
		t.img = nil
	}
}

// screenSurface is the window surface of the viewer.
type screenSurface struct {
	mu    sync.Mutex
	trash []*ebiten.Image
	dirty atomic.Bool
}

func newScreenSurface() *screenSurface {
	s := &screenSurface{}
	s.dirty.Store(true)
	return s
}

func (s *screenSurface) NewTexture(img *image.RGBA, opts sequence.TextureOptions) (sequence.Texture, error) {
	return &screenTexture{s: s, src: img}, nil
}

func (s *screenSurface) Invalidate() {
	s.dirty.Store(true)
}

// image uploads tex on first use. Released textures have no image.
func (s *screenSurface) image(tex sequence.Texture) *ebiten.Image {
	t, ok := tex.(*screenTexture)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.released {
		return nil
	}
	if t.img == nil {
		t.img = ebiten.NewImageFromImage(t.src)
	}
	return t.img
}

// collect frees the GPU images of released textures.
func (s *screenSurface) collect() {
	s.mu.Lock()
	trash := s.trash
	s.trash = nil
	s.mu.Unlock()

	for _, img := range trash {
		img.Deallocate()
	}
}

// draw renders the player views back to front. The screen is kept as is
// when nothing changed since the last call.
func (s *screenSurface) draw(screen *ebiten.Image, views []sequence.View) {
	if !s.dirty.Swap(false) {
		return
	}

	screen.Clear()
	size := screen.Bounds().Size()
	for _, v := range views {
		if !v.Visible || v.Texture == nil || v.Placement.Scale <= 0 {
			continue
		}
		img := s.image(v.Texture)
		if img == nil {
			continue
		}

		m := surface.Transform(v.Texture.Size(), v.Placement, v.UV, size)
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear, DisableMipmaps: true}
		op.GeoM.SetElement(0, 0, m[0])
		op.GeoM.SetElement(0, 1, m[1])
		op.GeoM.SetElement(0, 2, m[2])
		op.GeoM.SetElement(1, 0, m[3])
		op.GeoM.SetElement(1, 1, m[4])
		op.GeoM.SetElement(1, 2, m[5])
		screen.DrawImage(img, op)
	}
}
