package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/sequence"
	"github.com/ivlev/seqscroll/internal/source"
	"github.com/ivlev/seqscroll/internal/system"
)

func main() {
	system.InitResourceLimits()

	scenePtr := flag.String("scene", "hero-composite", "Пресет ("+strings.Join(config.PresetNames(), ", ")+") или путь к YAML сцене")
	framesPtr := flag.String("frames", "public", "Папка с кадрами или базовый URL (http/https)")
	widthPtr := flag.Int("width", 1280, "Ширина окна")
	heightPtr := flag.Int("height", 720, "Высота окна")
	stepPtr := flag.Float64("step", 0.02, "Сдвиг прогресса на одно деление колеса")
	qualityPtr := flag.String("quality", "", "Принудительный тип соединения: slow-2g, 2g, 3g, 4g")
	timeoutPtr := flag.Duration("timeout", 0, "Таймаут загрузки кадра (0 - без таймаута)")
	debugPtr := flag.Bool("debug", false, "Логировать ошибки загрузки кадров")

	flag.Parse()

	scene, err := config.LoadScene(*scenePtr)
	if err != nil {
		log.Fatalf("[-] Ошибка сцены: %v", err)
	}

	fetcher := source.NewFetcher(*framesPtr, *timeoutPtr)
	if hf, ok := fetcher.(*source.HTTPFetcher); ok && *qualityPtr != "" {
		hf.Quality.Override = *qualityPtr
	}

	g := &Game{
		mode:    scene.Mode,
		surface: newScreenSurface(),
		step:    *stepPtr,
		active:  true,
	}
	g.focused.Store(true)

	cacheFrames := 0
	for i, seq := range scene.Sequences {
		seq.Debug = seq.Debug || *debugPtr
		pl, err := sequence.New(seq, sequence.Options{
			Fetcher: fetcher,
			Surface: g.surface,
			Visible: g.visible,
		})
		if err != nil {
			log.Fatalf("[-] Ошибка последовательности %d: %v", i, err)
		}
		g.players = append(g.players, pl)
		cacheFrames += pl.Config().MaxCache
	}
	if scene.Mode == config.ModeComposite {
		g.composite = sequence.NewComposite(g.players[0], g.players[1], scene.SplitRatio())
	}
	g.views = make([]sequence.View, len(g.players))
	defer g.Close()

	system.WarnMemoryBudget(*widthPtr, *heightPtr, cacheFrames)

	fmt.Printf("[*] Сцена: %s (%s) | Кадры: %s\n", scene.Name, scene.Mode, *framesPtr)
	for _, pl := range g.players {
		cfg := pl.Config()
		fmt.Printf("[*] %s%s: %d кадров @ %.0f FPS, кэш %d\n", cfg.Dir, cfg.Base, cfg.Count, cfg.FPS, cfg.MaxCache)
	}

	g.dirtyInput = true

	ebiten.SetWindowSize(*widthPtr, *heightPtr)
	ebiten.SetWindowTitle("seqview: " + scene.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetScreenClearedEveryFrame(false)

	start := time.Now()
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatalf("[-] Ошибка окна: %v", err)
	}
	fmt.Printf("[+++] Просмотр завершен (%.1fs)\n", time.Since(start).Seconds())
}
