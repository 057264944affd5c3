package sequence

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/image/draw"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/source"
	"github.com/ivlev/seqscroll/internal/system"
)

// Options wires a Player to its collaborators.
type Options struct {
	Fetcher source.Fetcher // required
	Surface Surface        // required

	// Quality drives the prefetch window. When nil and the fetcher reports
	// a hint itself, the fetcher is used.
	Quality QualityHint

	// Visible reports whether the host is on screen. Loop ticks are skipped
	// while it returns false. Nil means always visible.
	Visible func() bool

	// Pool supplies decode buffers; the shared pool is used when nil.
	Pool *system.ImagePool
}

// entry is one cached frame. buf is the decode buffer backing tex; both are
// released together.
type entry struct {
	index int
	tex   Texture
	buf   *image.RGBA
}

// flight is an outstanding load. done is closed once the result, if any,
// is in the cache.
type flight struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Player streams a numbered frame sequence into a Surface.
type Player struct {
	cfg       config.Sequence
	frames    []source.Frame
	exts      []string
	fetcher   source.Fetcher
	surface   Surface
	quality   QualityHint
	visible   func() bool
	pool      *system.ImagePool
	presenter *Presenter

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	cache     *simplelru.LRU[int, *entry]
	inflight  map[int]*flight
	retired   []*entry // evicted while on screen
	shown     Texture
	issued    uint64 // show requests handed out
	presented uint64 // newest show request that reached the presenter

	driveMu  sync.Mutex
	loopStop chan struct{}
	loopDone chan struct{}

	wg sync.WaitGroup
}

func New(cfg config.Sequence, opts Options) (*Player, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Fetcher == nil || opts.Surface == nil {
		return nil, errors.New("sequence: fetcher and surface are required")
	}

	p := &Player{
		cfg:      cfg,
		exts:     cfg.Candidates(),
		fetcher:  opts.Fetcher,
		surface:  opts.Surface,
		quality:  opts.Quality,
		visible:  opts.Visible,
		pool:     opts.Pool,
		inflight: make(map[int]*flight),
	}
	if p.quality == nil {
		if q, ok := opts.Fetcher.(QualityHint); ok {
			p.quality = q
		}
	}
	if p.pool == nil {
		p.pool = system.SharedPool()
	}

	naming := source.Naming{Dir: cfg.Dir, Base: cfg.Base, Pad: cfg.Pad, Start: cfg.StartIndex()}
	p.frames = naming.Frames(cfg.Count)

	cache, err := simplelru.NewLRU[int, *entry](cfg.MaxCache, p.onEvict)
	if err != nil {
		return nil, fmt.Errorf("sequence cache: %w", err)
	}
	p.cache = cache
	p.presenter = NewPresenter(cfg, opts.Surface)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

func (p *Player) Config() config.Sequence { return p.cfg }
func (p *Player) Presenter() *Presenter   { return p.presenter }
func (p *Player) Frames() []source.Frame  { return p.frames }
func (p *Player) Count() int              { return len(p.frames) }

// onEvict runs under p.mu, from cache.Add when over capacity or from Purge
// on Close. A frame that is still on screen is parked until it is replaced.
func (p *Player) onEvict(_ int, e *entry) {
	if !p.closed && p.shown != nil && e.tex == p.shown {
		p.retired = append(p.retired, e)
		return
	}
	p.release(e)
}

func (p *Player) release(e *entry) {
	e.tex.Release()
	p.pool.Put(e.buf)
}

// load returns the texture for index, fetching it when not cached. Nil
// means no texture is available right now.
func (p *Player) load(index int, prefetch bool) Texture {
	return p.acquire(index, prefetch, nil)
}

// acquire is load with a hook that runs under the player lock as soon as
// the texture is known to be cached, so it cannot be evicted in between.
func (p *Player) acquire(index int, prefetch bool, use func(Texture)) Texture {
	if index < 0 || index >= len(p.frames) {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}

	if e, ok := p.cache.Get(index); ok {
		if use != nil {
			use(e.tex)
		}
		p.mu.Unlock()
		return e.tex
	}

	if f, ok := p.inflight[index]; ok {
		p.mu.Unlock()
		if prefetch {
			return nil
		}
		return p.join(index, f, use)
	}

	f := p.admit(index, prefetch)
	p.mu.Unlock()
	if f == nil {
		return nil
	}
	return p.run(index, f, use)
}

// admit registers a new flight, or returns nil when a prefetch would exceed
// the concurrency limit. Callers hold p.mu.
func (p *Player) admit(index int, prefetch bool) *flight {
	if prefetch && len(p.inflight) >= p.cfg.PrefetchLimit {
		return nil
	}
	ctx, cancel := context.WithCancel(p.ctx)
	f := &flight{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	p.inflight[index] = f
	return f
}

// join waits for a flight started by someone else and reads its result
// from the cache.
func (p *Player) join(index int, f *flight, use func(Texture)) Texture {
	select {
	case <-f.done:
	case <-p.ctx.Done():
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	e, ok := p.cache.Get(index)
	if !ok {
		return nil
	}
	if use != nil {
		use(e.tex)
	}
	return e.tex
}

// run performs the fetch of an admitted flight and settles it.
func (p *Player) run(index int, f *flight, use func(Texture)) Texture {
	buf := p.fetchDecode(f.ctx, index)

	var tex Texture
	if buf != nil && f.ctx.Err() == nil {
		t, err := p.surface.NewTexture(buf, FrameTextureOptions)
		if err != nil {
			p.debugf("[!] frame %d: texture upload: %v", index, err)
		} else {
			tex = t
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer close(f.done)

	cancelled := f.ctx.Err() != nil
	f.cancel()
	if p.inflight[index] == f {
		delete(p.inflight, index)
	}

	if tex == nil {
		p.pool.Put(buf)
		return nil
	}
	// Completion after teardown: nothing may touch the released cache.
	if p.closed || cancelled {
		tex.Release()
		p.pool.Put(buf)
		return nil
	}

	p.cache.Add(index, &entry{index: index, tex: tex, buf: buf})
	if use != nil {
		use(tex)
	}
	return tex
}

// fetchDecode tries every candidate extension in order and returns the
// first frame that both downloads and decodes.
func (p *Player) fetchDecode(ctx context.Context, index int) *image.RGBA {
	for _, ref := range p.frames[index].URLs(p.exts) {
		if ctx.Err() != nil {
			return nil
		}

		data, err := p.fetcher.Fetch(ctx, ref)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				p.debugf("[!] frame %d: fetch %s: %v", index, ref, err)
			}
			continue
		}

		img, err := source.Decode(data)
		if err != nil {
			p.debugf("[!] frame %d: %s: %v", index, ref, err)
			continue
		}

		bounds := img.Bounds()
		buf := p.pool.Get(bounds)
		draw.Draw(buf, buf.Rect, img, bounds.Min, draw.Src)
		return buf
	}
	return nil
}

// prefetchFrom schedules the frames after index, up to the window the
// connection allows. It never goes backwards and never wraps. The started
// indices are returned.
func (p *Player) prefetchFrom(index int) []int {
	window := p.cfg.PrefetchWindow(p.hint())
	last := len(p.frames) - 1

	var started []int
	for k := 1; k <= window; k++ {
		target := min(last, index+k)

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return started
		}
		if p.cache.Contains(target) {
			p.mu.Unlock()
			continue
		}
		if _, ok := p.inflight[target]; ok {
			p.mu.Unlock()
			continue
		}
		f := p.admit(target, true)
		p.mu.Unlock()
		if f == nil {
			continue
		}

		started = append(started, target)
		p.wg.Add(1)
		go func(target int) {
			defer p.wg.Done()
			p.run(target, f, nil)
		}(target)
	}
	return started
}

func (p *Player) hint() string {
	if p.quality == nil {
		return ""
	}
	return p.quality.Hint()
}

// Close tears the player down: the loop stops, every outstanding request is
// cancelled and every cached texture is released before Close returns.
// Loads that complete afterwards are discarded.
func (p *Player) Close() {
	p.stopLoop()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cancel()
	for index, f := range p.inflight {
		f.cancel()
		delete(p.inflight, index)
	}
	p.cache.Purge()
	for _, e := range p.retired {
		p.release(e)
	}
	p.retired = nil
	p.shown = nil
	p.mu.Unlock()

	p.presenter.Unbind()
}

// Settle blocks until every background show and prefetch has finished.
// It must not race with Update; headless drivers call it between updates.
func (p *Player) Settle() {
	p.wg.Wait()
}

// cached returns the cached indices from least to most recently used.
func (p *Player) cached() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Keys()
}

func (p *Player) inFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

func (p *Player) debugf(format string, args ...any) {
	if p.cfg.Debug {
		log.Printf(format, args...)
	}
}
