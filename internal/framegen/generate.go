package framegen

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/source"
	"github.com/ivlev/seqscroll/internal/system"
)

// Options controls where and how frames are written.
type Options struct {
	Dir  string
	Base string
	Pad  int

	// Output size. Zero keeps the source size; setting only one side keeps
	// the aspect ratio.
	Width  int
	Height int

	Workers int // defaults to system.Workers()
}

// Result describes the written sequence.
type Result struct {
	Naming source.Naming
	Count  int
	Size   image.Point // size of the first frame
}

// Sequence is a player configuration for the written frames.
func (r *Result) Sequence() config.Sequence {
	start := r.Naming.Start
	seq := config.Sequence{
		Count: r.Count,
		Dir:   r.Naming.Dir,
		Base:  r.Naming.Base,
		Pad:   r.Naming.Pad,
		Start: &start,
		Ext:   "png",
	}
	if r.Size.X > 0 && r.Size.Y > 0 {
		seq.Plane = [2]float64{float64(r.Size.X), float64(r.Size.Y)}
	}
	return seq
}

// Generate writes every frame of prod as <Dir>/<Base><number>.png,
// numbered from 1, rendering in parallel.
func Generate(ctx context.Context, prod Producer, opts Options) (*Result, error) {
	count := prod.Count()
	if count == 0 {
		return nil, fmt.Errorf("источник не содержит кадров")
	}
	if opts.Pad <= 0 {
		opts.Pad = max(config.DefaultPad, len(fmt.Sprint(count)))
	}
	if opts.Workers <= 0 {
		opts.Workers = system.Workers()
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}

	naming := source.Naming{Dir: filepath.ToSlash(opts.Dir), Base: opts.Base, Pad: opts.Pad, Start: 1}
	sizes := make([]image.Point, count)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			img, err := prod.Frame(i)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			img = resize(img, opts.Width, opts.Height)
			sizes[i] = img.Bounds().Size()

			path := filepath.FromSlash(naming.Stem(i) + ".png")
			if err := writePNG(path, img); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}

			n := done.Add(1)
			if n%10 == 0 || int(n) == count {
				fmt.Printf("[>] Ready: %d/%d\n", n, count)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{Naming: naming, Count: count, Size: sizes[0]}, nil
}

// resize scales img to width x height. A zero side follows the aspect ratio.
func resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 && height <= 0 {
		return img
	}
	if width <= 0 {
		width = max(1, b.Dx()*height/b.Dy())
	}
	if height <= 0 {
		height = max(1, b.Dy()*width/b.Dx())
	}
	if width == b.Dx() && height == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
