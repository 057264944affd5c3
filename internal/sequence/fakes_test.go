package sequence

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/system"
)

type fakeTex struct {
	pix      color.RGBA
	size     image.Point
	released atomic.Bool
}

func (t *fakeTex) Size() image.Point { return t.size }
func (t *fakeTex) Release()          { t.released.Store(true) }

// frame is the frame number the texture was decoded from.
func (t *fakeTex) frame() int { return int(t.pix.R) }

// ext is 1 for png and 2 for webp sources.
func (t *fakeTex) ext() int { return int(t.pix.G) }

type fakeSurface struct {
	mu            sync.Mutex
	textures      []*fakeTex
	invalidations int
}

func (s *fakeSurface) NewTexture(img *image.RGBA, opts TextureOptions) (Texture, error) {
	if opts != FrameTextureOptions {
		return nil, errors.New("unexpected texture options")
	}
	t := &fakeTex{pix: img.RGBAAt(img.Rect.Min.X, img.Rect.Min.Y), size: img.Rect.Size()}
	s.mu.Lock()
	s.textures = append(s.textures, t)
	s.mu.Unlock()
	return t, nil
}

func (s *fakeSurface) Invalidate() {
	s.mu.Lock()
	s.invalidations++
	s.mu.Unlock()
}

func (s *fakeSurface) created() []*fakeTex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTex(nil), s.textures...)
}

func (s *fakeSurface) redraws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidations
}

var frameNumber = regexp.MustCompile(`(\d+)\.(\w+)$`)

// fakeFetcher serves tiny PNG frames whose pixel encodes the frame number
// and extension. Extensions in fail are rejected; refs with a gate block
// until the gate is closed.
type fakeFetcher struct {
	mu        sync.Mutex
	calls     []string
	fail      map[string]bool
	gates     map[string]chan struct{}
	ignoreCtx bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{fail: map[string]bool{}, gates: map[string]chan struct{}{}}
}

func (f *fakeFetcher) gate(ref string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[ref] = g
	return g
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ref)
	g := f.gates[ref]
	f.mu.Unlock()

	if g != nil {
		if f.ignoreCtx {
			<-g
		} else {
			select {
			case <-g:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	m := frameNumber.FindStringSubmatch(ref)
	if m == nil {
		return nil, errors.New("bad ref " + ref)
	}
	if f.fail[m[2]] {
		return nil, errors.New("404 " + ref)
	}

	n, _ := strconv.Atoi(m[1])
	ext := uint8(1)
	if m[2] == "webp" {
		ext = 2
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(n), G: ext, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *fakeFetcher) callsFor(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) allCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type staticHint string

func (h staticHint) Hint() string { return string(h) }

// testSequence numbers frames from 0 so that frame index == file number.
func testSequence(count int) config.Sequence {
	start := 0
	return config.Sequence{
		Count: count,
		Dir:   "seq",
		Base:  "F",
		Pad:   3,
		Start: &start,
		Ext:   "png",
	}
}

func newTestPlayer(t *testing.T, cfg config.Sequence, f *fakeFetcher, hint string) (*Player, *fakeSurface) {
	t.Helper()
	s := &fakeSurface{}
	p, err := New(cfg, Options{
		Fetcher: f,
		Surface: s,
		Quality: staticHint(hint),
		Pool:    system.NewImagePool(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(p.Close)
	return p, s
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func shownFrame(p *Player) int {
	tex, ok := p.Presenter().Texture().(*fakeTex)
	if !ok {
		return -1
	}
	return tex.frame()
}

type fetchFunc func(ref string) ([]byte, error)

func (f fetchFunc) Fetch(_ context.Context, ref string) ([]byte, error) { return f(ref) }
