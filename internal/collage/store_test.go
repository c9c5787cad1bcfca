package collage

import (
	"path/filepath"
	"testing"
)

func fillStore(n int) *Store {
	s := NewStore()
	for i := 0; i < n; i++ {
		s.Add(&Photo{ID: string(rune('a' + i)), X: float64(i * 10)})
	}
	return s
}

func assertPermutation(t *testing.T, s *Store) {
	t.Helper()
	photos := s.Photos()
	seen := make(map[int]bool)
	for _, p := range photos {
		if p.Order < 1 || p.Order > len(photos) {
			t.Errorf("Order %d out of range 1..%d", p.Order, len(photos))
		}
		if seen[p.Order] {
			t.Errorf("Duplicate order %d", p.Order)
		}
		seen[p.Order] = true
	}
}

func TestStoreAddAssignsSequentialOrders(t *testing.T) {
	s := fillStore(4)
	assertPermutation(t, s)

	photos := s.Photos()
	for i, p := range photos {
		if p.Order != i+1 {
			t.Errorf("Photo %s: order %d, expected %d", p.ID, p.Order, i+1)
		}
	}
}

func TestStoreRemoveRenormalizes(t *testing.T) {
	s := fillStore(5)
	if !s.Remove("c") {
		t.Fatal("Remove failed for existing photo")
	}
	if s.Len() != 4 {
		t.Fatalf("Expected 4 photos, got %d", s.Len())
	}
	assertPermutation(t, s)

	if s.Remove("missing") {
		t.Error("Remove reported success for unknown id")
	}
}

func TestStoreReorder(t *testing.T) {
	s := fillStore(4)

	// "a" наверх стопки.
	if err := s.Reorder("a", 4); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	assertPermutation(t, s)

	photos := s.Photos()
	if photos[len(photos)-1].ID != "a" {
		t.Errorf("Expected 'a' on top, got %s", photos[len(photos)-1].ID)
	}

	// Выход за диапазон зажимается, перестановка сохраняется.
	if err := s.Reorder("b", 99); err != nil {
		t.Fatalf("Reorder clamp failed: %v", err)
	}
	assertPermutation(t, s)

	if err := s.Reorder("nope", 1); err == nil {
		t.Error("Expected error for unknown photo")
	}
}

func TestStoreAddNormalizesScale(t *testing.T) {
	s := NewStore()
	s.Add(&Photo{ID: "x"})
	p, ok := s.Get("x")
	if !ok {
		t.Fatal("Photo not found")
	}
	if p.Scale != 1.0 {
		t.Errorf("Expected scale normalized to 1.0, got %f", p.Scale)
	}
}

func TestPhotoDefaultDimensions(t *testing.T) {
	p := &Photo{ID: "x", Scale: 1}
	w, h := p.Dimensions()
	if w != DefaultPhotoWidth || h != DefaultPhotoHeight {
		t.Errorf("Expected default 4:5 portrait %gx%g, got %gx%g",
			DefaultPhotoWidth, DefaultPhotoHeight, w, h)
	}

	p.Width, p.Height = 300, 200
	w, h = p.Dimensions()
	if w != 300 || h != 200 {
		t.Errorf("Expected explicit dimensions, got %gx%g", w, h)
	}
}

func TestProjectWriteRead(t *testing.T) {
	project := &Project{
		Version: "1.0",
		Background: Background{
			Style:  "gradient",
			Color:  "#112233",
			Color2: "#445566",
		},
		Effect: "shuffle",
		Photos: []PhotoEntry{
			{ID: "p1", File: "one.jpg", X: 10, Y: 20, Rotation: -4, Order: 1, Scale: 1.0},
			{ID: "p2", File: "doc.pdf", Page: 2, X: 200, Y: 40, Order: 2, Scale: 0.8},
		},
		Export: ExportPrefs{Width: 1280, Height: 720, FPS: 30, Format: "mp4"},
	}

	tmpFile := filepath.Join(t.TempDir(), "project.yaml")
	if err := WriteProject(project, tmpFile); err != nil {
		t.Fatalf("WriteProject failed: %v", err)
	}

	read, err := ReadProject(tmpFile)
	if err != nil {
		t.Fatalf("ReadProject failed: %v", err)
	}

	if read.Version != project.Version {
		t.Errorf("Version mismatch: expected %s, got %s", project.Version, read.Version)
	}
	if read.Effect != project.Effect {
		t.Errorf("Effect mismatch: expected %s, got %s", project.Effect, read.Effect)
	}
	if len(read.Photos) != len(project.Photos) {
		t.Fatalf("Photo count mismatch: expected %d, got %d", len(project.Photos), len(read.Photos))
	}
	if read.Photos[1].Page != 2 {
		t.Errorf("PDF page lost in round trip: got %d", read.Photos[1].Page)
	}
	if read.Background != project.Background {
		t.Errorf("Background mismatch: %+v vs %+v", read.Background, project.Background)
	}
}
