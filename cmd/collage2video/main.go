package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/collage2video/internal/canvas"
	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/config"
	"github.com/ivlev/collage2video/internal/effects"
	"github.com/ivlev/collage2video/internal/export"
	"github.com/ivlev/collage2video/internal/playback"
	"github.com/ivlev/collage2video/internal/source"
	"github.com/ivlev/collage2video/internal/system"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/photos", "input/projects", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	inputPtr := flag.String("input", "", "Путь к изображению, папке с изображениями или PDF (по умолчанию: input/photos/)")
	projectPtr := flag.String("project", "", "Путь к YAML-проекту коллажа (раскладка фото и настройки)")
	saveProjectPtr := flag.String("save-project", "", "Сохранить собранную раскладку в YAML-проект и выйти")
	outputPtr := flag.String("output", "output", "Папка для результатов")
	formatPtr := flag.String("format", "mp4", "Формат экспорта: mp4, gif, png, jpeg")
	effectPtr := flag.String("effect", "sequential", "Эффект входа: sequential, shuffle, flip, fade")
	widthPtr := flag.Int("width", 1280, "Ширина")
	heightPtr := flag.Int("height", 720, "Высота")
	fpsPtr := flag.Int("fps", 30, "FPS")
	speedPtr := flag.Float64("speed", 1.0, "Скорость предпросмотра (экспорт всегда считается на единичной)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто под кодер)")
	dpiPtr := flag.Int("dpi", 150, "DPI рендеринга страниц PDF")
	qrPtr := flag.String("qr", "", "Ссылка для QR-водяного знака в углу кадра")
	bgPtr := flag.String("bg", "#f5f5f0", "Цвет фона (#rrggbb)")
	bg2Ptr := flag.String("bg2", "", "Второй цвет фона: включает вертикальный градиент")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	previewPtr := flag.Bool("preview", false, "Прогнать анимацию в реальном времени перед экспортом")
	statsPtr := flag.Bool("stats", false, "Показать отчёт о производительности")

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

	cfg := &config.Config{
		InputPath:   *inputPtr,
		ProjectPath: *projectPtr,
		OutputDir:   *outputPtr,
		Format:      strings.ToLower(*formatPtr),
		Effect:      *effectPtr,
		Width:       width,
		Height:      height,
		FPS:         *fpsPtr,
		Speed:       *speedPtr,
		Quality:     *qualityPtr,
		DPI:         *dpiPtr,
		QRLink:      *qrPtr,
		Background:  *bgPtr,
		Background2: *bg2Ptr,
		Preset:      *presetPtr,
		ShowStats:   *statsPtr,
	}

	effect, err := effects.ParseEffect(cfg.Effect)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}

	store, bg, err := loadCollage(cfg)
	if err != nil {
		log.Fatalf("[-] Ошибка загрузки коллажа: %v", err)
	}
	if store.Len() == 0 {
		log.Fatalf("[-] В источнике нет ни одного фото")
	}
	fmt.Printf("[*] Фото в коллаже: %d | Эффект: %s | Разрешение: %dx%d @ %d FPS\n",
		store.Len(), effect, cfg.Width, cfg.Height, cfg.FPS)

	if *saveProjectPtr != "" {
		project := buildProject(store, bg, cfg)
		if err := collage.WriteProject(project, *saveProjectPtr); err != nil {
			log.Fatalf("[-] Не удалось сохранить проект: %v", err)
		}
		fmt.Printf("[+++] Проект сохранён: %s\n", *saveProjectPtr)
		return
	}

	scene := canvas.NewScene(float64(cfg.Width), float64(cfg.Height))
	scene.SetBackground(bg)
	if err := scene.Mount(store); err != nil {
		log.Fatalf("[-] %v", err)
	}

	if cfg.QRLink != "" {
		wm, err := canvas.NewQRWatermark(cfg.QRLink, cfg.Height/8)
		if err != nil {
			log.Fatalf("[-] Не удалось построить QR-код: %v", err)
		}
		scene.SetWatermark(wm)
		fmt.Printf("[*] QR-водяной знак: %s\n", cfg.QRLink)
	}

	plan := effects.BuildPlan(store.Photos(), effect, float64(cfg.Width), float64(cfg.Height))
	fmt.Printf("[*] Длительность анимации: %.2fs (%d кадров при экспорте)\n",
		plan.TotalDuration, export.FrameCount(plan.TotalDuration, cfg.FPS))

	planRef := playback.NewPlanRef(plan)
	driver := playback.NewDriver(scene, store.Photos, planRef, nil)

	if *previewPtr {
		runPreview(driver, plan, cfg.Speed)
	}

	orch := export.New(scene, store, driver, &export.FileSink{Dir: cfg.OutputDir})
	orch.Progress = func(p float64, phase string) {
		fmt.Printf("\r[>] %3.0f%% %-24s", p*100, phase)
	}

	startTime := time.Now()
	var filename string
	switch cfg.Format {
	case "png", "jpeg", "jpg":
		filename, err = orch.ExportStill(cfg.Format, cfg.Width, cfg.Height)
	case "gif", "mp4":
		filename, err = orch.ExportClip(context.Background(), plan, export.Options{
			Format:  cfg.Format,
			Width:   cfg.Width,
			Height:  cfg.Height,
			FPS:     cfg.FPS,
			Quality: cfg.Quality,
		})
	default:
		log.Fatalf("[-] Неизвестный формат экспорта: %q", cfg.Format)
	}
	fmt.Println()
	if err != nil {
		log.Fatalf("[-] Ошибка экспорта: %v", err)
	}

	if cfg.ShowStats {
		elapsed := time.Since(startTime)
		snap := system.SamplePerf()
		fmt.Printf("--- [PERFORMANCE REPORT] ---\n"+
			"Total Time: %.2fs\n"+
			"%s\n"+
			"----------------------------\n",
			elapsed.Seconds(), snap.Format())
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", filepath.Join(cfg.OutputDir, filename))
}

// loadCollage builds the photo store either from a saved project or by
// scattering freshly ingested photos over the canvas.
func loadCollage(cfg *config.Config) (*collage.Store, collage.Background, error) {
	bg := collage.Background{Style: "solid", Color: cfg.Background}
	if cfg.Background2 != "" {
		bg = collage.Background{Style: "gradient", Color: cfg.Background, Color2: cfg.Background2}
	}

	projectPath := cfg.ProjectPath
	if projectPath == "" && cfg.InputPath == "" {
		// Автоматика как в остальных режимах: самый свежий проект,
		// если он есть; иначе — папка с фото.
		if latest, err := system.FindLatestProject("input/projects"); err == nil {
			projectPath = latest
			fmt.Printf("[*] Выбран проект: %s\n", projectPath)
		}
	}

	if projectPath != "" {
		return loadFromProject(projectPath, cfg)
	}

	inputPath := cfg.InputPath
	if inputPath == "" {
		inputPath = "input/photos"
	}

	src, err := openSource(inputPath)
	if err != nil {
		return nil, bg, err
	}
	defer src.Close()

	store, err := scatterLayout(src, cfg)
	return store, bg, err
}

func openSource(path string) (source.Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return source.NewFitzPDFSource(path)
	}
	return source.NewImageSource(path)
}

// scatterLayout распределяет фото по холсту детерминированно:
// генератор с фиксированным зерном, одинаковая раскладка от запуска к
// запуску.
func scatterLayout(src source.Source, cfg *config.Config) (*collage.Store, error) {
	store := collage.NewStore()
	count := src.PageCount()
	vw, vh := float64(cfg.Width), float64(cfg.Height)
	r := rand.New(rand.NewSource(42))

	cols := int(math.Ceil(math.Sqrt(float64(count))))
	if cols < 1 {
		cols = 1
	}
	rows := (count + cols - 1) / cols
	cellW := vw / float64(cols)
	cellH := vh / float64(rows)

	for i := 0; i < count; i++ {
		img, err := src.RenderPage(i, cfg.DPI)
		if err != nil {
			return nil, fmt.Errorf("не удалось получить фото %d: %w", i, err)
		}

		srcW, srcH, err := src.GetPageDimensions(i)
		if err != nil || srcW <= 0 || srcH <= 0 {
			srcW, srcH = collage.DefaultPhotoWidth, collage.DefaultPhotoHeight
		}
		// Вписываем фото в ячейку сетки с запасом под поворот.
		fit := math.Min(cellW*0.8/srcW, cellH*0.8/srcH)
		w, h := srcW*fit, srcH*fit

		col := i % cols
		row := i / cols
		jitterX := (r.Float64() - 0.5) * cellW * 0.2
		jitterY := (r.Float64() - 0.5) * cellH * 0.2
		rotation := (r.Float64() - 0.5) * 12

		store.Add(&collage.Photo{
			ID:       fmt.Sprintf("photo-%d", i+1),
			Image:    img,
			X:        float64(col)*cellW + (cellW-w)/2 + jitterX,
			Y:        float64(row)*cellH + (cellH-h)/2 + jitterY,
			Rotation: rotation,
			Scale:    1.0,
			Width:    w,
			Height:   h,
		})
	}

	return store, nil
}

func loadFromProject(path string, cfg *config.Config) (*collage.Store, collage.Background, error) {
	project, err := collage.ReadProject(path)
	if err != nil {
		return nil, collage.Background{}, err
	}

	if project.Effect != "" && cfg.Effect == "sequential" {
		cfg.Effect = project.Effect
	}
	if project.Export.Width > 0 && project.Export.Height > 0 && cfg.Preset == "" {
		cfg.Width, cfg.Height = project.Export.Width, project.Export.Height
	}
	if project.Export.FPS > 0 {
		cfg.FPS = project.Export.FPS
	}

	store := collage.NewStore()
	baseDir := filepath.Dir(path)
	for _, entry := range project.Photos {
		file := entry.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		src, err := openSource(file)
		if err != nil {
			return nil, project.Background, fmt.Errorf("фото %q: %w", entry.ID, err)
		}
		img, err := src.RenderPage(entry.Page, cfg.DPI)
		src.Close()
		if err != nil {
			return nil, project.Background, fmt.Errorf("фото %q: %w", entry.ID, err)
		}

		p := &collage.Photo{
			ID:       entry.ID,
			Image:    img,
			X:        entry.X,
			Y:        entry.Y,
			Rotation: entry.Rotation,
			Scale:    entry.Scale,
			Width:    entry.Width,
			Height:   entry.Height,
		}
		store.Add(p)
		if entry.Order > 0 {
			if err := store.Reorder(entry.ID, entry.Order); err != nil {
				return nil, project.Background, err
			}
		}
	}

	return store, project.Background, nil
}

func buildProject(store *collage.Store, bg collage.Background, cfg *config.Config) *collage.Project {
	project := &collage.Project{
		Version:    "1.0",
		Background: bg,
		Effect:     cfg.Effect,
		Export: collage.ExportPrefs{
			Width:  cfg.Width,
			Height: cfg.Height,
			FPS:    cfg.FPS,
			Format: cfg.Format,
			Speed:  cfg.Speed,
		},
	}
	for _, p := range store.Photos() {
		project.Photos = append(project.Photos, collage.PhotoEntry{
			ID:       p.ID,
			File:     "", // пути заполняются редактором; headless-сборка их не знает
			X:        p.X,
			Y:        p.Y,
			Rotation: p.Rotation,
			Order:    p.Order,
			Scale:    p.Scale,
			Width:    p.Width,
			Height:   p.Height,
		})
	}
	return project
}

// runPreview plays the timeline once in real time, mirroring what the
// editor preview does before an export.
func runPreview(driver *playback.Driver, plan *effects.EffectPlan, speed float64) {
	driver.SetSpeed(speed)
	driver.Play()
	fmt.Printf("[*] Предпросмотр (%.2fs на скорости %.2fx)...\n", plan.TotalDuration/speed, speed)
	for driver.State() == playback.Playing {
		time.Sleep(100 * time.Millisecond)
		fmt.Printf("\r[>] t=%.2fs", driver.CurrentT())
	}
	driver.Stop()
	fmt.Println()
}
