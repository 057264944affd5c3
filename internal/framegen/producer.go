package framegen

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/seqscroll/internal/source"
)

// Producer yields the frames of a sequence. Frame must be safe to call
// from several goroutines.
type Producer interface {
	Count() int
	Frame(index int) (image.Image, error)
	Close() error
}

// PDFPages renders every page of a PDF as one frame.
type PDFPages struct {
	doc  *fitz.Document
	path string
	DPI  int
}

func NewPDFPages(path string, dpi int) (*PDFPages, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 72
	}
	return &PDFPages{doc: doc, path: path, DPI: dpi}, nil
}

func (p *PDFPages) Count() int {
	return p.doc.NumPage()
}

// Frame opens its own document; fitz documents are not safe for
// concurrent rendering.
func (p *PDFPages) Frame(index int) (image.Image, error) {
	workerDoc, err := fitz.New(p.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(p.DPI))
}

func (p *PDFPages) Close() error {
	return p.doc.Close()
}

// QRPattern is a synthetic test sequence: every frame carries a QR code of
// its own number on a background whose shade moves with the index, so a
// wrong or stale frame is obvious on screen and machine readable.
type QRPattern struct {
	N      int
	Width  int
	Height int
	Label  string
}

func (q *QRPattern) Count() int { return q.N }

func (q *QRPattern) Frame(index int) (image.Image, error) {
	if index < 0 || index >= q.N {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, q.N)
	}

	code, err := qrcode.New(fmt.Sprintf("%s %d/%d", q.Label, index+1, q.N), qrcode.Medium)
	if err != nil {
		return nil, err
	}
	side := min(q.Width, q.Height) * 3 / 4
	qr := code.Image(side)

	img := image.NewRGBA(image.Rect(0, 0, q.Width, q.Height))
	shade := uint8(255 * index / max(1, q.N-1))
	bg := color.RGBA{R: shade, G: 64, B: 255 - shade, A: 255}
	draw.Draw(img, img.Rect, image.NewUniform(bg), image.Point{}, draw.Src)

	qb := qr.Bounds()
	at := image.Pt((q.Width-qb.Dx())/2, (q.Height-qb.Dy())/2)
	draw.Draw(img, qb.Sub(qb.Min).Add(at), qr, qb.Min, draw.Src)
	return img, nil
}

func (q *QRPattern) Close() error { return nil }

// ImageDir uses the images of a directory, in name order, as frames.
type ImageDir struct {
	paths []string
}

func NewImageDir(dir string) (*ImageDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("в папке %s нет изображений", dir)
	}
	sort.Strings(paths)
	return &ImageDir{paths: paths}, nil
}

func (s *ImageDir) Count() int {
	return len(s.paths)
}

func (s *ImageDir) Frame(index int) (image.Image, error) {
	data, err := os.ReadFile(s.paths[index])
	if err != nil {
		return nil, err
	}
	return source.Decode(data)
}

func (s *ImageDir) Close() error {
	return nil
}
