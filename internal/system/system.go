package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open file limit; frame generation and the
// HTTP fetcher keep many descriptors open at once.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	if rLimit.Cur >= 2048 {
		return
	}
	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// Workers returns the number of physical cores, falling back to the logical
// CPU count when it cannot be determined.
func Workers() int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// FrameBytes is the decoded RGBA footprint of one frame.
func FrameBytes(width, height int) uint64 {
	return uint64(width) * uint64(height) * 4
}

// MemoryBudget checks that cacheFrames decoded frames of the given size fit
// comfortably (under a quarter) in the memory currently available. It
// returns the available bytes and whether the budget holds.
func MemoryBudget(width, height, cacheFrames int) (uint64, bool, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, true, err
	}
	need := FrameBytes(width, height) * uint64(cacheFrames)
	return vm.Available, need <= vm.Available/4, nil
}

// WarnMemoryBudget logs when the configured caches would be too large.
func WarnMemoryBudget(width, height, cacheFrames int) {
	avail, ok, err := MemoryBudget(width, height, cacheFrames)
	if err != nil {
		log.Printf("[!] Не удалось получить объем памяти: %v", err)
		return
	}
	if !ok {
		log.Printf("[!] Кэш кадров (%d x %dx%d) займет %d МБ при доступных %d МБ",
			cacheFrames, width, height, FrameBytes(width, height)*uint64(cacheFrames)>>20, avail>>20)
	}
}

func FindLatestPDF(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".pdf") {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено PDF-файлов", dir)
	}

	return latestFile, nil
}

// GetBestH264Encoder picks a hardware encoder when ffmpeg offers one.
func GetBestH264Encoder() string {
	cmd := exec.Command("ffmpeg", "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "libx264"
	}

	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality is the quality setting that suits each encoder.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}
