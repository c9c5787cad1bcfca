package collage

// Project is the persisted form of a collage: photo layout, background
// and the editor settings blob. It deliberately stores file references,
// not pixels; images are re-read through internal/source on load.
type Project struct {
	Version    string       `yaml:"version"`
	Background Background   `yaml:"background"`
	Effect     string       `yaml:"effect"`
	Photos     []PhotoEntry `yaml:"photos"`
	Export     ExportPrefs  `yaml:"export"`
}

// PhotoEntry is one photo's layout record.
type PhotoEntry struct {
	ID       string  `yaml:"id"`
	File     string  `yaml:"file"`
	Page     int     `yaml:"page,omitempty"` // PDF page index, for PDF-sourced photos
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation float64 `yaml:"rotation"`
	Order    int     `yaml:"order"`
	Scale    float64 `yaml:"scale"`
	Width    float64 `yaml:"width,omitempty"`
	Height   float64 `yaml:"height,omitempty"`
}

// Background describes the canvas fill behind the photos.
type Background struct {
	Style  string `yaml:"style"` // "solid" or "gradient"
	Color  string `yaml:"color"` // #rrggbb
	Color2 string `yaml:"color2,omitempty"`
}

// ExportPrefs is the saved settings blob for exports.
type ExportPrefs struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	FPS     int     `yaml:"fps"`
	Format  string  `yaml:"format"`
	Speed   float64 `yaml:"speed,omitempty"`
	Quality int     `yaml:"quality,omitempty"`
}
