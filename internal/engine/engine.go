package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/sequence"
	"github.com/ivlev/seqscroll/internal/source"
	"github.com/ivlev/seqscroll/internal/surface"
	"github.com/ivlev/seqscroll/internal/system"
	"github.com/ivlev/seqscroll/internal/timeline"
	"github.com/ivlev/seqscroll/internal/video"
)

// DefaultSweep is the preview length of a scroll scene without a timeline.
const DefaultSweep = 5.0

// Preview renders a scene headlessly: a timeline supplies the scroll
// progress, the players draw into an offscreen canvas and every canvas
// frame goes to the writer.
type Preview struct {
	Scene   *config.Scene
	Fetcher source.Fetcher
	Writer  video.FrameWriter

	Width  int
	Height int
	FPS    int

	ShowStats    bool
	BuildVersion string

	pool *system.ImagePool
}

// Stats summarises one preview run.
type Stats struct {
	Frames  int
	Uploads int64
	Render  time.Duration
	Encode  time.Duration
	Total   time.Duration
}

// Step is the scene state at one output frame.
type Step struct {
	Progress float64
	Frame    int // loop scenes only: the sequence frame on screen
}

// Plan lists the scene state for every output frame at fps.
func Plan(scene *config.Scene, fps int) []Step {
	if fps <= 0 {
		return nil
	}

	if scene.Mode == config.ModeLoop {
		seq := scene.Sequences[0].WithDefaults()
		duration := timeline.New(scene.Timeline).Duration()
		if duration <= 0 {
			duration = float64(seq.Count) / seq.FPS
		}

		n := int(math.Round(duration * float64(fps)))
		steps := make([]Step, max(n, 1))
		for i := range steps {
			t := float64(i) / float64(fps)
			frame := int(t*seq.FPS+1e-9) % seq.Count
			steps[i] = Step{Progress: loopProgress(frame, seq.Count), Frame: frame}
		}
		return steps
	}

	tl := timeline.New(scene.Timeline)
	if tl.Duration() <= 0 {
		tl = timeline.Sweep(DefaultSweep)
	}
	samples := tl.Samples(fps)
	steps := make([]Step, len(samples))
	for i, p := range samples {
		steps[i] = Step{Progress: p, Frame: -1}
	}
	return steps
}

// loopProgress is how far through the cycle frame is.
func loopProgress(frame, count int) float64 {
	if count <= 1 {
		return 0
	}
	return float64(frame) / float64(count-1)
}

func (p *Preview) Run(ctx context.Context) (*Stats, error) {
	startTime := time.Now()

	if err := p.Scene.Validate(); err != nil {
		return nil, err
	}
	if p.Fetcher == nil || p.Writer == nil {
		return nil, errors.New("preview needs a fetcher and a writer")
	}
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d @ %d FPS", p.Width, p.Height, p.FPS)
	}
	if p.pool == nil {
		p.pool = system.NewImagePool()
	}

	canvas := surface.NewCanvas(p.Width, p.Height)
	players, drive, err := p.build(canvas)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, pl := range players {
			pl.Close()
		}
	}()

	cacheFrames := 0
	for _, pl := range players {
		pl.Presenter().Resize(float64(p.Width), float64(p.Height))
		cacheFrames += pl.Config().MaxCache
	}
	system.WarnMemoryBudget(p.Width, p.Height, cacheFrames)

	steps := Plan(p.Scene, p.FPS)

	fmt.Println("--- [PREVIEW] ---")
	fmt.Printf("[*] Сцена: %s (%s) | Кадров: %d\n", p.Scene.Name, p.Scene.Mode, len(steps))
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS\n", p.Width, p.Height, p.FPS)
	fmt.Println("-----------------")

	// render -> frames -> encode
	frames := make(chan *image.RGBA, 4)
	stats := &Stats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		renderStart := time.Now()
		defer func() { stats.Render = time.Since(renderStart) }()

		views := make([]sequence.View, len(players))
		for i, step := range steps {
			if err := gctx.Err(); err != nil {
				return err
			}

			drive(step)
			for j, pl := range players {
				pl.Settle()
				views[j] = pl.Presenter().View()
			}

			out := canvas.Render(views...)
			buf := p.pool.Get(out.Rect)
			copy(buf.Pix, out.Pix)

			select {
			case frames <- buf:
			case <-gctx.Done():
				p.pool.Put(buf)
				return gctx.Err()
			}

			if (i+1)%p.FPS == 0 || i == len(steps)-1 {
				fmt.Printf("[>] Ready: %d/%d\n", i+1, len(steps))
			}
		}
		return nil
	})

	g.Go(func() error {
		encodeStart := time.Now()
		defer func() { stats.Encode = time.Since(encodeStart) }()

		for buf := range frames {
			err := p.Writer.WriteFrame(buf)
			p.pool.Put(buf)
			if err != nil {
				return fmt.Errorf("frame %d: %w", stats.Frames, err)
			}
			stats.Frames++
		}
		return nil
	})

	err = g.Wait()
	if closeErr := p.Writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	stats.Uploads = canvas.Uploads()
	stats.Total = time.Since(startTime)
	if p.ShowStats {
		p.report(stats)
	}
	return stats, nil
}

// build creates the players of the scene and the function that applies one
// plan step to them.
func (p *Preview) build(canvas *surface.Canvas) ([]*sequence.Player, func(Step), error) {
	var players []*sequence.Player
	for i, seq := range p.Scene.Sequences {
		pl, err := sequence.New(seq, sequence.Options{Fetcher: p.Fetcher, Surface: canvas, Pool: p.pool})
		if err != nil {
			for _, prev := range players {
				prev.Close()
			}
			return nil, nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		players = append(players, pl)
	}

	switch p.Scene.Mode {
	case config.ModeComposite:
		c := sequence.NewComposite(players[0], players[1], p.Scene.SplitRatio())
		return players, func(s Step) { c.Update(s.Progress, true) }, nil
	case config.ModeLoop:
		pl := players[0]
		return players, func(s Step) { pl.Seek(s.Frame) }, nil
	default:
		pl := players[0]
		return players, func(s Step) {
			pl.Update(sequence.Input{Drive: sequence.Scrub{Progress: s.Progress}, Visible: true})
		}, nil
	}
}

func (p *Preview) report(s *Stats) {
	fps := float64(s.Frames) / s.Total.Seconds()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Frames: %d | Texture uploads: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.BuildVersion, s.Total.Seconds(), s.Render.Seconds(), s.Encode.Seconds(), s.Frames, s.Uploads, fps,
	)
	fmt.Print(report)

	allocs, puts := p.pool.Stats()
	log.Printf("[*] Буферы: выделено %d, возвращено %d", allocs, puts)
}
