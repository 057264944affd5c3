package sequence

import (
	"fmt"
	"testing"
	"time"
)

func TestScrubIndex(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		loops    int
		count    int
		want     int
	}{
		{"start", 0, 1, 10, 0},
		{"end holds last frame", 1, 1, 10, 9},
		{"middle", 0.5, 1, 10, 4},
		{"epsilon rounds up", 1.0 / 9.0 * 3, 1, 10, 3},
		{"below zero", -0.3, 1, 10, 0},
		{"above one", 1.7, 1, 10, 9},
		{"single frame", 0.8, 1, 1, 0},
		{"two loops first half", 0.25, 2, 10, 4},
		{"two loops wraps at half", 0.5, 2, 10, 0},
		{"two loops second half", 0.75, 2, 10, 4},
		{"two loops end wraps", 1, 2, 10, 0},
		{"zero loops behaves as one", 1, 0, 10, 9},
		{"empty sequence", 0.5, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScrubIndex(tt.progress, tt.loops, tt.count)
			if got != tt.want {
				t.Errorf("ScrubIndex(%g, %d, %d) = %d, want %d", tt.progress, tt.loops, tt.count, got, tt.want)
			}
		})
	}
}

func TestScrubIndexInRange(t *testing.T) {
	for _, count := range []int{1, 2, 7, 83, 214} {
		for _, loops := range []int{1, 2, 3} {
			for i := 0; i <= 1000; i++ {
				p := float64(i) / 1000
				idx := ScrubIndex(p, loops, count)
				if idx < 0 || idx >= count {
					t.Fatalf("ScrubIndex(%g, %d, %d) = %d out of range", p, loops, count, idx)
				}
			}
		}
	}
}

func TestLoopInterval(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{24, time.Second / 24},
		{30, time.Second / 30},
		{60, time.Second / 60},
		{100, MinTick},
		{240, MinTick},
		{0, MinTick},
	}
	for _, tt := range tests {
		if got := LoopInterval(tt.fps); got != tt.want {
			t.Errorf("LoopInterval(%g) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestScrubPresentsFrame(t *testing.T) {
	p, s := newTestPlayer(t, testSequence(10), newFakeFetcher(), "")

	p.Update(Input{Drive: Scrub{Progress: 1}, Visible: true})
	eventually(t, "frame 9 on screen", func() bool { return shownFrame(p) == 9 })

	if p.Playing() {
		t.Error("Scrub mode must not run the loop timer")
	}

	// The same progress again binds nothing new.
	before := p.Presenter().Redraws()
	p.Update(Input{Drive: Scrub{Progress: 1}, Visible: true})
	p.Settle()
	if got := p.Presenter().Redraws(); got != before {
		t.Errorf("Re-presenting the same frame redrew (%d -> %d)", before, got)
	}
	if s.redraws() == 0 {
		t.Error("Surface was never invalidated")
	}
}

func TestShowCountsAgainstPrefetchLimit(t *testing.T) {
	tests := []struct {
		name  string
		index int
		drive func(p *Player)
	}{
		{"scrub", 0, func(p *Player) { p.Update(Input{Drive: Scrub{Progress: 0}, Visible: true}) }},
		{"seek", 5, func(p *Player) { p.Seek(5) }},
		{"tick", 3, func(p *Player) { p.tick(2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			cfg := testSequence(10)
			cfg.PrefetchLimit = 1
			p, _ := newTestPlayer(t, cfg, f, "4g")

			shown := fmt.Sprintf("seq/F%03d.png", tt.index)
			next := fmt.Sprintf("F%03d", tt.index+1)
			g := f.gate(shown)

			tt.drive(p)
			if p.inFlight() != 1 {
				t.Fatalf("Expected the shown frame in flight right away, got %d", p.inFlight())
			}
			eventually(t, "shown frame requested", func() bool { return f.callsFor(shown) == 1 })

			// Give a stray prefetch time to show up.
			time.Sleep(20 * time.Millisecond)
			if n := f.callsFor(next); n != 0 {
				t.Errorf("Prefetch of %s issued while the shown frame was in flight (%d calls)", next, n)
			}

			close(g)
			p.Settle()
			if got := shownFrame(p); got != tt.index {
				t.Errorf("Expected frame %d on screen, got %d", tt.index, got)
			}
		})
	}
}

func TestStaleShowDropped(t *testing.T) {
	f := newFakeFetcher()
	p, _ := newTestPlayer(t, testSequence(10), f, "")

	g := f.gate("seq/F002.png")
	p.show(2)
	eventually(t, "frame 2 in flight", func() bool { return p.inFlight() >= 1 })

	p.show(5)
	eventually(t, "frame 5 on screen", func() bool { return shownFrame(p) == 5 })

	close(g)
	p.Settle()
	if got := shownFrame(p); got != 5 {
		t.Errorf("Older request overwrote the newer frame: showing %d", got)
	}
}

func TestEvictedFrameStaysUntilReplaced(t *testing.T) {
	cfg := testSequence(10)
	cfg.MaxCache = 1
	p, s := newTestPlayer(t, cfg, newFakeFetcher(), "")

	p.show(0)
	p.Settle()
	if shownFrame(p) != 0 {
		t.Fatalf("Expected frame 0 on screen, got %d", shownFrame(p))
	}
	shown := p.Presenter().Texture().(*fakeTex)

	// A prefetch evicts the shown frame from the cache; it must stay valid.
	p.load(1, true)
	if shown.released.Load() {
		t.Fatal("Frame on screen was released by eviction")
	}

	p.show(1)
	p.Settle()
	if shownFrame(p) != 1 {
		t.Fatalf("Expected frame 1 on screen, got %d", shownFrame(p))
	}
	if !shown.released.Load() {
		t.Error("Replaced frame was never released")
	}
	live := 0
	for _, tex := range s.created() {
		if !tex.released.Load() {
			live++
		}
	}
	if live != 1 {
		t.Errorf("Expected exactly one live texture, got %d", live)
	}
}

func TestLoopMode(t *testing.T) {
	cfg := testSequence(4)
	cfg.FPS = 60
	p, _ := newTestPlayer(t, cfg, newFakeFetcher(), "")

	p.Update(Input{Drive: Loop{}, Active: false, Visible: true})
	if p.Playing() {
		t.Fatal("Inactive loop should not run")
	}

	p.Update(Input{Drive: Loop{}, Active: true, Visible: true})
	if !p.Playing() {
		t.Fatal("Active loop should run")
	}
	p.Update(Input{Drive: Loop{}, Active: true, Visible: true})

	seen := map[int]bool{}
	eventually(t, "loop to wrap around", func() bool {
		if f := shownFrame(p); f >= 0 {
			seen[f] = true
		}
		return len(seen) == 4
	})

	p.Update(Input{Drive: Loop{}, Active: false, Visible: true})
	if p.Playing() {
		t.Error("Loop still running after deactivation")
	}

	p.Update(Input{Drive: Loop{}, Active: true, Visible: true})
	p.Update(Input{Drive: Scrub{Progress: 0}, Visible: true})
	if p.Playing() {
		t.Error("Switching to scrub must stop the loop")
	}
}

func TestTick(t *testing.T) {
	visible := true
	f := newFakeFetcher()
	cfg := testSequence(3)
	s := &fakeSurface{}
	p, err := New(cfg, Options{Fetcher: f, Surface: s, Visible: func() bool { return visible }})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if got := p.tick(0); got != 1 {
		t.Errorf("tick(0) = %d, want 1", got)
	}
	if got := p.tick(2); got != 0 {
		t.Errorf("tick(2) = %d, want 0 (wrap)", got)
	}
	p.Settle()

	visible = false
	calls := len(f.allCalls())
	if got := p.tick(1); got != 1 {
		t.Errorf("Hidden tick advanced the phase to %d", got)
	}
	p.Settle()
	if len(f.allCalls()) != calls {
		t.Error("Hidden tick requested frames")
	}
}

func TestCloseStopsLoop(t *testing.T) {
	p, _ := newTestPlayer(t, testSequence(4), newFakeFetcher(), "")

	p.Update(Input{Drive: Loop{}, Active: true, Visible: true})
	p.Close()
	if p.Playing() {
		t.Error("Loop still running after Close")
	}

	p.Update(Input{Drive: Loop{}, Active: true, Visible: true})
	if p.Playing() {
		t.Error("Loop restarted on a closed player")
	}
}
