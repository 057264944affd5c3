package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/seqscroll/internal/config"
	"github.com/ivlev/seqscroll/internal/engine"
	"github.com/ivlev/seqscroll/internal/source"
	"github.com/ivlev/seqscroll/internal/system"
	"github.com/ivlev/seqscroll/internal/video"
)

var BuildVersion = "dev"

func main() {
	system.InitResourceLimits()

	scenePtr := flag.String("scene", "hero-composite", "Пресет ("+strings.Join(config.PresetNames(), ", ")+") или путь к YAML сцене")
	framesPtr := flag.String("frames", "public", "Папка с кадрами или базовый URL (http/https)")
	outputPtr := flag.String("output", "", "Путь к видео или папке PNG (если пусто, генерируется автоматически в output/)")
	pngPtr := flag.Bool("png", false, "Сохранить кадры как PNG вместо видео")
	widthPtr := flag.Int("width", 1280, "Ширина")
	heightPtr := flag.Int("height", 720, "Высота")
	fpsPtr := flag.Int("fps", 30, "FPS")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	timeoutPtr := flag.Duration("timeout", 30*time.Second, "Таймаут загрузки кадра")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")

	flag.Parse()

	width, height := *widthPtr, *heightPtr
	switch *presetPtr {
	case "16:9":
		width, height = 1280, 720
	case "9:16":
		width, height = 720, 1280
	case "4:5":
		width, height = 1080, 1350
	}

	scene, err := config.LoadScene(*scenePtr)
	if err != nil {
		log.Fatalf("[-] Ошибка сцены: %v", err)
	}

	finalOutput := *outputPtr
	if finalOutput == "" {
		os.MkdirAll("output", 0755)
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		name := strings.ReplaceAll(scene.Name, " ", "_") + "_" + timestamp
		if !*pngPtr {
			name += ".mp4"
		}
		finalOutput = filepath.Join("output", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var writer video.FrameWriter
	if *pngPtr {
		writer, err = video.NewPNGWriter(finalOutput, "preview_")
	} else {
		encoderName := system.GetBestH264Encoder()
		if encoderName != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
		}
		quality := *qualityPtr
		if quality == 0 {
			quality = system.DefaultQuality(encoderName)
		}
		enc := &video.FFmpegEncoder{}
		writer, err = enc.Open(ctx, video.Params{
			Width:   width,
			Height:  height,
			FPS:     *fpsPtr,
			Output:  finalOutput,
			Encoder: encoderName,
			Quality: quality,
		})
	}
	if err != nil {
		log.Fatalf("[-] Ошибка вывода: %v", err)
	}

	preview := &engine.Preview{
		Scene:        scene,
		Fetcher:      source.NewFetcher(*framesPtr, *timeoutPtr),
		Writer:       writer,
		Width:        width,
		Height:       height,
		FPS:          *fpsPtr,
		ShowStats:    *statsPtr,
		BuildVersion: BuildVersion,
	}
	if _, err := preview.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка рендера: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", finalOutput)
}
