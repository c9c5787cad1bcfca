package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
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

// hardwareH264Encoders — аппаратные кодеры в порядке приоритета:
// 1. MacOS (VideoToolbox)
// 2. NVIDIA (NVENC)
// Программный fallback (libx264) намеренно исключён: экспорт MP4
// требует аппаратного кодирования.
var hardwareH264Encoders = []string{"h264_videotoolbox", "h264_nvenc"}

// ListEncoders returns the raw `ffmpeg -encoders` output.
func ListEncoders() (string, error) {
	cmd := exec.Command("ffmpeg", "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg недоступен: %w", err)
	}
	return string(out), nil
}

// ProbeHardwareH264 returns the best available hardware H.264 encoder
// name, or an error naming what was expected when none is present.
func ProbeHardwareH264() (string, error) {
	out, err := ListEncoders()
	if err != nil {
		return "", err
	}
	for _, enc := range hardwareH264Encoders {
		if strings.Contains(out, enc) {
			return enc, nil
		}
	}
	return "", fmt.Errorf("аппаратный кодер H.264 не найден (ожидался один из: %s)",
		strings.Join(hardwareH264Encoders, ", "))
}

// EncoderSupported reports whether ffmpeg knows the named encoder.
func EncoderSupported(name string) bool {
	out, err := ListEncoders()
	if err != nil {
		return false
	}
	return strings.Contains(out, name)
}

// FindLatestProject finds the most recent collage project YAML in dir.
func FindLatestProject(dir string) (string, error) {
	return findLatest(dir, []string{".yaml", ".yml"}, "проектов")
}

// FindLatestImage finds the most recent image in dir.
func FindLatestImage(dir string) (string, error) {
	return findLatest(dir, []string{".jpg", ".jpeg", ".png"}, "изображений")
}

// FindLatestPDF finds the most recent PDF in dir.
func FindLatestPDF(dir string) (string, error) {
	return findLatest(dir, []string{".pdf"}, "PDF-файлов")
}

func findLatest(dir string, extensions []string, kind string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		match := false
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено %s", dir, kind)
	}

	return latestFile, nil
}
