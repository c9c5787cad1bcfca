package config

type Config struct {
	InputPath    string
	ProjectPath  string
	OutputDir    string
	Format       string
	Effect       string
	Width        int
	Height       int
	FPS          int
	Speed        float64
	Quality      int
	DPI          int
	QRLink       string
	Background   string
	Background2  string
	BgStyle      string
	Preset       string
	ShowStats    bool
	BuildVersion string
}
