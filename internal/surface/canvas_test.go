package surface

import (
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/sequence"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// marker is a 2x2 frame with a red top-left pixel and blue elsewhere.
func marker() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, blue)
		}
	}
	img.SetRGBA(0, 0, red)
	return img
}

func fullView(tex sequence.Texture, orient config.Orient) sequence.View {
	return sequence.View{
		Texture:   tex,
		UV:        sequence.OrientUV(orient),
		Placement: sequence.ComputePlacement(config.FitContain, 2, 2, 4, 4, 1, 0),
		Visible:   true,
	}
}

func TestRenderOrientation(t *testing.T) {
	tests := []struct {
		orient config.Orient
		redAt  image.Point
	}{
		{config.OrientNone, image.Pt(0, 0)},
		{config.OrientFlipY, image.Pt(0, 3)},
		{config.OrientFlipX, image.Pt(3, 0)},
		{config.OrientRotate180, image.Pt(3, 3)},
	}

	for _, tt := range tests {
		t.Run(string(tt.orient), func(t *testing.T) {
			c := NewCanvas(4, 4)
			tex, err := c.NewTexture(marker(), sequence.TextureOptions{Filter: sequence.FilterNearest})
			if err != nil {
				t.Fatalf("NewTexture failed: %v", err)
			}

			frame := c.Render(fullView(tex, tt.orient))
			if got := frame.RGBAAt(tt.redAt.X, tt.redAt.Y); got != red {
				t.Errorf("Pixel %v = %v, want red", tt.redAt, got)
			}
			reds := 0
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					if frame.RGBAAt(x, y) == red {
						reds++
					}
				}
			}
			if reds != 4 {
				t.Errorf("Expected a 2x2 red quadrant, got %d red pixels", reds)
			}
		})
	}
}

func TestRenderSkipsHiddenAndReleased(t *testing.T) {
	c := NewCanvas(4, 4)
	c.SetBackground(color.RGBA{G: 255, A: 255})
	tex, _ := c.NewTexture(marker(), sequence.TextureOptions{Filter: sequence.FilterNearest})

	hidden := fullView(tex, config.OrientNone)
	hidden.Visible = false
	if got := c.Render(hidden).RGBAAt(0, 0); got.G != 255 {
		t.Errorf("Hidden view was drawn: %v", got)
	}

	tex.Release()
	tex.Release()
	if c.Live() != 0 {
		t.Errorf("Expected no live textures, got %d", c.Live())
	}
	if got := c.Render(fullView(tex, config.OrientNone)).RGBAAt(0, 0); got.G != 255 {
		t.Errorf("Released texture was drawn: %v", got)
	}
}

func TestLetterbox(t *testing.T) {
	c := NewCanvas(8, 4)
	tex, _ := c.NewTexture(marker(), sequence.TextureOptions{Filter: sequence.FilterNearest})
	view := fullView(tex, config.OrientNone)
	view.Placement = sequence.ComputePlacement(config.FitContain, 2, 2, 8, 4, 1, 0)

	frame := c.Render(view)
	if got := frame.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected letterbox at the left edge, got %v", got)
	}
	if got := frame.RGBAAt(2, 0); got != red {
		t.Errorf("Expected the frame to start at x=2, got %v", got)
	}
}

func TestUploadFlipY(t *testing.T) {
	c := NewCanvas(4, 4)
	tex, _ := c.NewTexture(marker(), sequence.TextureOptions{Filter: sequence.FilterNearest, FlipY: true})

	frame := c.Render(fullView(tex, config.OrientNone))
	if got := frame.RGBAAt(0, 3); got != red {
		t.Errorf("Upload flip not applied, bottom-left is %v", got)
	}
}

func TestDirty(t *testing.T) {
	c := NewCanvas(2, 2)
	if !c.Dirty() {
		t.Error("New canvas should need a first draw")
	}
	c.Render()
	if c.Dirty() {
		t.Error("Render should clear the redraw request")
	}
	c.Invalidate()
	if !c.Dirty() {
		t.Error("Invalidate should request a redraw")
	}
}

func TestPlayerOnCanvas(t *testing.T) {
	c := NewCanvas(4, 4)
	var _ sequence.Surface = c

	tex, err := c.NewTexture(marker(), sequence.FrameTextureOptions)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Size() != image.Pt(2, 2) || c.Uploads() != 1 || c.Live() != 1 {
		t.Errorf("Unexpected texture state: size %v uploads %d live %d", tex.Size(), c.Uploads(), c.Live())
	}
}
