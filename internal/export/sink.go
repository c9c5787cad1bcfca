package export

import (
	"os"
	"path/filepath"
)

// Sink accepts a finished artifact and a filename — the download
// boundary of the editor.
type Sink interface {
	Save(filename string, data []byte) error
}

// FileSink saves artifacts into a directory.
type FileSink struct {
	Dir string
}

func (s *FileSink) Save(filename string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, filename), data, 0644)
}
