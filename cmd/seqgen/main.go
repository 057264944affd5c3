package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/framegen"
	"github.com/ivlev/seqscroll/internal/system"
	"github.com/ivlev/seqscroll/internal/timeline"
)

func main() {
	system.InitResourceLimits()

	inputPtr := flag.String("input", "", "Путь к PDF или папке с изображениями (по умолчанию: самый свежий файл в input/pdf/)")
	qrPtr := flag.Int("qr", 0, "Сгенерировать тестовую последовательность из N кадров с QR-кодами вместо -input")
	outputPtr := flag.String("output", "public/seq", "Папка для кадров")
	basePtr := flag.String("base", "FRAME", "Префикс имен кадров")
	padPtr := flag.Int("pad", 0, "Ширина номера кадра (0 - авто)")
	widthPtr := flag.Int("width", 0, "Ширина кадра (0 - как в источнике)")
	heightPtr := flag.Int("height", 0, "Высота кадра (0 - как в источнике)")
	dpiPtr := flag.Int("dpi", 150, "DPI для PDF")
	workersPtr := flag.Int("workers", system.Workers(), "Потоки")
	fpsPtr := flag.Float64("fps", config.DefaultFPS, "FPS последовательности в сцене")
	scenePtr := flag.String("scene", "", "Записать YAML сцену для seqview/seqrender")
	modePtr := flag.String("mode", string(config.ModeScroll), "Режим сцены: loop, scroll")

	flag.Parse()

	var prod framegen.Producer
	var err error

	switch {
	case *qrPtr > 0:
		w, h := *widthPtr, *heightPtr
		if w <= 0 || h <= 0 {
			w, h = 1280, 720
		}
		prod = &framegen.QRPattern{N: *qrPtr, Width: w, Height: h, Label: *basePtr}
		fmt.Printf("[*] Тестовая последовательность: %d кадров %dx%d\n", *qrPtr, w, h)
	default:
		inputPath := *inputPtr
		if inputPath == "" {
			latest, err := system.FindLatestPDF("input/pdf")
			if err != nil {
				log.Fatalf("[-] Ошибка: %v. Положите PDF в input/pdf/", err)
			}
			inputPath = latest
			fmt.Printf("[*] Выбран файл: %s\n", inputPath)
		}
		if strings.HasSuffix(strings.ToLower(inputPath), ".pdf") {
			prod, err = framegen.NewPDFPages(inputPath, *dpiPtr)
		} else {
			prod, err = framegen.NewImageDir(inputPath)
		}
		if err != nil {
			log.Fatalf("[-] Ошибка инициализации источника: %v", err)
		}
	}
	defer prod.Close()

	res, err := framegen.Generate(context.Background(), prod, framegen.Options{
		Dir:     *outputPtr,
		Base:    *basePtr,
		Pad:     *padPtr,
		Width:   *widthPtr,
		Height:  *heightPtr,
		Workers: *workersPtr,
	})
	if err != nil {
		log.Fatalf("[-] Ошибка генерации: %v", err)
	}
	fmt.Printf("[+++] Успех! %d кадров в %s\n", res.Count, *outputPtr)

	if *scenePtr == "" {
		return
	}

	seq := res.Sequence()
	seq.FPS = *fpsPtr
	// Scenes reference frames relative to the -frames root of the viewer.
	seq.Dir = filepath.ToSlash(filepath.Base(*outputPtr))

	scene := &config.Scene{
		Name:      filepath.Base(*outputPtr),
		Mode:      config.Mode(*modePtr),
		Sequences: []config.Sequence{seq},
	}
	if scene.Mode == config.ModeScroll {
		scene.Timeline = timeline.Sweep(sweepDuration(res.Count, seq.FPS)).Keyframes
	}
	if err := scene.Validate(); err != nil {
		log.Fatalf("[-] Ошибка сцены: %v", err)
	}

	os.MkdirAll(filepath.Dir(*scenePtr), 0755)
	if err := config.WriteScene(scene, *scenePtr); err != nil {
		log.Fatalf("[-] Не удалось записать сцену: %v", err)
	}
	fmt.Printf("[+++] Сцена сохранена: %s\n", *scenePtr)
}

// sweepDuration is a preview length that shows every frame once at fps.
func sweepDuration(count int, fps float64) float64 {
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	return float64(count) / fps
}
