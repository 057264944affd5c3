package framegen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/seqscroll/internal/source"
)

func TestQRPatternFrames(t *testing.T) {
	q := &QRPattern{N: 3, Width: 160, Height: 90, Label: "test"}

	first, err := q.Frame(0)
	if err != nil {
		t.Fatalf("Frame(0) failed: %v", err)
	}
	last, err := q.Frame(2)
	if err != nil {
		t.Fatalf("Frame(2) failed: %v", err)
	}
	if first.Bounds().Size() != image.Pt(160, 90) {
		t.Errorf("Unexpected frame size %v", first.Bounds().Size())
	}
	if first.At(0, 0) == last.At(0, 0) {
		t.Error("Background should change with the frame number")
	}
	if _, err := q.Frame(3); err == nil {
		t.Error("Expected an error past the last frame")
	}
}

func TestGenerateQR(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qr")
	res, err := Generate(context.Background(), &QRPattern{N: 12, Width: 64, Height: 36, Label: "seq"}, Options{
		Dir:     dir,
		Base:    "QR_",
		Workers: 3,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	det, err := source.DetectNaming(dir)
	if err != nil {
		t.Fatal(err)
	}
	if det.Count != 12 || det.Naming.Base != "QR_" || det.Naming.Start != 1 || det.Naming.Pad != 3 || det.Ext != "png" {
		t.Errorf("Unexpected sequence on disk: %+v", det)
	}

	seq := res.Sequence()
	if seq.Count != 12 || seq.StartIndex() != 1 || seq.Plane != [2]float64{64, 36} {
		t.Errorf("Unexpected sequence config %+v", seq)
	}
	if err := seq.WithDefaults().Validate(); err != nil {
		t.Errorf("Generated sequence config is invalid: %v", err)
	}
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateImageDirResize(t *testing.T) {
	in := t.TempDir()
	writeImage(t, filepath.Join(in, "b.png"), 80, 40)
	writeImage(t, filepath.Join(in, "a.png"), 80, 40)
	os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip"), 0644)

	src, err := NewImageDir(in)
	if err != nil {
		t.Fatal(err)
	}
	if src.Count() != 2 {
		t.Fatalf("Expected 2 images, got %d", src.Count())
	}

	out := filepath.Join(t.TempDir(), "out")
	res, err := Generate(context.Background(), src, Options{Dir: out, Base: "IMG", Width: 20})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Size != image.Pt(20, 10) {
		t.Errorf("Expected 20x10 frames, got %v", res.Size)
	}

	data, err := os.ReadFile(filepath.Join(out, "IMG001.png"))
	if err != nil {
		t.Fatal(err)
	}
	w, h, err := source.DecodeConfig(data)
	if err != nil || w != 20 || h != 10 {
		t.Errorf("First frame is %dx%d (%v), want 20x10", w, h, err)
	}
}

func TestNewImageDirEmpty(t *testing.T) {
	if _, err := NewImageDir(t.TempDir()); err == nil {
		t.Error("Expected an error for a directory without images")
	}
}

type failing struct{}

func (failing) Count() int                     { return 4 }
func (failing) Frame(int) (image.Image, error) { return nil, errBroken }
func (failing) Close() error                   { return nil }

var errBroken = errors.New("broken page")

func TestGenerateError(t *testing.T) {
	_, err := Generate(context.Background(), failing{}, Options{Dir: t.TempDir(), Base: "X", Workers: 2})
	if !errors.Is(err, errBroken) {
		t.Errorf("Expected the frame error, got %v", err)
	}
}

func TestResize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(0, 0, color.White)

	tests := []struct {
		w, h int
		want image.Point
	}{
		{0, 0, image.Pt(40, 30)},
		{20, 0, image.Pt(20, 15)},
		{0, 60, image.Pt(80, 60)},
		{10, 10, image.Pt(10, 10)},
	}
	for _, tt := range tests {
		if got := resize(img, tt.w, tt.h).Bounds().Size(); got != tt.want {
			t.Errorf("resize(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
