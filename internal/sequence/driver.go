package sequence

import (
	"math"
	"time"
)

// Drive selects how the player picks frames. It is either Scrub or Loop.
type Drive interface {
	isDrive()
}

// Scrub maps an externally supplied progress in [0,1] to a frame.
type Scrub struct {
	Progress float64
}

// Loop advances one frame per tick at the configured frame rate.
type Loop struct{}

func (Scrub) isDrive() {}
func (Loop) isDrive()  {}

// Input is what the host hands the player on every update.
type Input struct {
	Drive   Drive
	Active  bool // loop mode runs only while active
	Visible bool // whether the output is shown; decoding continues regardless
}

// MinTick bounds the loop timer however high the frame rate.
const MinTick = 16 * time.Millisecond

const scrubEpsilon = 0.00001

// LoopInterval is the tick period for fps.
func LoopInterval(fps float64) time.Duration {
	if fps <= 0 {
		return MinTick
	}
	return max(time.Duration(float64(time.Second)/fps), MinTick)
}

// ScrubIndex maps progress to a frame index. With loops > 1 the progress
// range repeats the sequence loops times; with a single loop progress 1
// holds the last frame instead of wrapping to the first.
func ScrubIndex(progress float64, loops, count int) int {
	if count <= 0 {
		return 0
	}
	if math.IsNaN(progress) {
		progress = 0
	}
	p := math.Min(1, math.Max(0, progress))

	loops = max(1, loops)
	eff := p
	if loops > 1 {
		eff = math.Mod(p*float64(loops), 1)
	}

	idx := int(math.Floor(eff*float64(count-1) + scrubEpsilon))
	return min(count-1, max(0, idx))
}

// Update applies one host update. Switching between Scrub and Loop, or
// deactivating the loop, stops the loop timer before anything else happens.
func (p *Player) Update(in Input) {
	p.presenter.SetVisible(in.Visible)

	switch d := in.Drive.(type) {
	case Scrub:
		p.stopLoop()
		idx := ScrubIndex(d.Progress, p.cfg.Loops, len(p.frames))
		p.show(idx)
		p.prefetchFrom(idx)
	default:
		if in.Active {
			p.startLoop()
		} else {
			p.stopLoop()
		}
	}
}

// show presents index. A cached frame is bound at once; otherwise the
// request is registered as in flight before show returns, so a prefetch
// scheduled right after it counts against the limit. Only the fetch runs
// in the background. A show that completes after a newer one was
// presented is dropped.
func (p *Player) show(index int) {
	if index < 0 || index >= len(p.frames) {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.issued++
	ticket := p.issued

	if e, ok := p.cache.Get(index); ok {
		p.presentLocked(ticket, e.tex)
		p.mu.Unlock()
		return
	}

	f, joining := p.inflight[index]
	if !joining {
		f = p.admit(index, false)
	}
	p.mu.Unlock()

	use := func(tex Texture) { p.presentLocked(ticket, tex) }
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if joining {
			p.join(index, f, use)
			return
		}
		p.run(index, f, use)
	}()
}

// presentLocked binds tex if ticket is not stale. Callers hold p.mu.
func (p *Player) presentLocked(ticket uint64, tex Texture) {
	if p.closed || ticket < p.presented {
		return
	}
	p.presented = ticket
	p.presenter.Present(tex)
	p.shown = tex

	kept := p.retired[:0]
	for _, e := range p.retired {
		if e.tex == tex {
			kept = append(kept, e)
			continue
		}
		p.release(e)
	}
	p.retired = kept
}

// Seek shows frame index and prefetches after it, exactly as one loop tick
// landing on index would. Headless drivers use it to step a loop scene
// deterministically.
func (p *Player) Seek(index int) {
	if index < 0 || index >= len(p.frames) {
		return
	}
	p.show(index)
	p.prefetchFrom(index)
}

// Playing reports whether the loop timer is running.
func (p *Player) Playing() bool {
	p.driveMu.Lock()
	defer p.driveMu.Unlock()
	return p.loopStop != nil
}

func (p *Player) startLoop() {
	p.driveMu.Lock()
	defer p.driveMu.Unlock()
	if p.loopStop != nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.loopStop, p.loopDone = stop, done

	interval := LoopInterval(p.cfg.FPS)
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// The phase is local to this run of the loop; a new run starts over.
		phase := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				phase = p.tick(phase)
			}
		}
	}()
}

// stopLoop stops the loop timer and waits until its goroutine has exited.
func (p *Player) stopLoop() {
	p.driveMu.Lock()
	defer p.driveMu.Unlock()
	if p.loopStop == nil {
		return
	}
	close(p.loopStop)
	<-p.loopDone
	p.loopStop, p.loopDone = nil, nil
}

// tick advances the loop by exactly one frame. Ticks while the host is
// hidden are skipped and not made up later.
func (p *Player) tick(phase int) int {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return phase
	}
	if p.visible != nil && !p.visible() {
		return phase
	}

	next := (phase + 1) % len(p.frames)
	p.show(next)
	p.prefetchFrom(next)
	return next
}
