package canvas

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/ivlev/collage2video/internal/collage"
	"github.com/ivlev/collage2video/internal/effects"
)

// Element is one mutable on-screen item. Overlay elements are UI chrome
// (badges, handles) and are excluded from export captures.
type Element struct {
	PhotoID string
	Image   image.Image
	Width   float64 // logical size of the unscaled photo
	Height  float64
	Order   int
	Overlay bool
	State   effects.PhotoVisualState
}

// Scene is the visual layer: it maps photo ids to elements and applies
// visual states to them. It is the single shared render target — at most
// one writer (playback or export) mutates it at a time, which the scene
// itself does not enforce beyond per-call locking.
type Scene struct {
	mu        sync.RWMutex
	width     float64 // logical viewport size
	height    float64
	elements  map[string]*Element
	bg        collage.Background
	watermark image.Image
}

func NewScene(width, height float64) *Scene {
	return &Scene{
		width:    width,
		height:   height,
		elements: make(map[string]*Element),
	}
}

// Size returns the logical viewport dimensions.
func (s *Scene) Size() (float64, float64) {
	return s.width, s.height
}

// AddPhoto mounts an element for the photo, starting at its resting state.
func (s *Scene) AddPhoto(p *collage.Photo) {
	w, h := p.Dimensions()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[p.ID] = &Element{
		PhotoID: p.ID,
		Image:   p.Image,
		Width:   w,
		Height:  h,
		Order:   p.Order,
		State:   effects.RestingState(p),
	}
}

// AddOverlay mounts a UI-only element that captures must skip.
func (s *Scene) AddOverlay(id string, img image.Image, state effects.PhotoVisualState, w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[id] = &Element{
		PhotoID: id,
		Image:   img,
		Width:   w,
		Height:  h,
		Order:   1 << 20, // поверх всех фото
		Overlay: true,
		State:   state,
	}
}

// Remove unmounts an element.
func (s *Scene) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, id)
}

// Apply pushes visual states onto matching elements. Unknown ids are
// ignored (the photo may have been removed since the plan was built).
func (s *Scene) Apply(states []effects.PhotoVisualState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range states {
		if el, ok := s.elements[st.PhotoID]; ok {
			el.State = st
		}
	}
}

// Read returns the currently applied state for a photo id.
func (s *Scene) Read(id string) (effects.PhotoVisualState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.elements[id]
	if !ok {
		return effects.PhotoVisualState{}, false
	}
	return el.State, true
}

// Commit is the apply→capture ordering barrier: captures must happen
// after the states they want to see are committed. Rasterization is
// synchronous in-process, so there is nothing to wait for, but export
// calls it between Apply and capture to keep the ordering explicit.
func (s *Scene) Commit() {}

// Elements returns a back-to-front snapshot for rasterization.
func (s *Scene) Elements() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Element, 0, len(s.elements))
	for _, el := range s.elements {
		out = append(out, *el)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].PhotoID < out[j].PhotoID
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// SetBackground sets the canvas fill.
func (s *Scene) SetBackground(bg collage.Background) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bg = bg
}

// Background returns the canvas fill.
func (s *Scene) Background() collage.Background {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bg
}

// SetWatermark sets an image stamped into the bottom-right corner of
// every exported frame. Unlike overlays, the watermark is user content
// and survives capture.
func (s *Scene) SetWatermark(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark = img
}

// Watermark returns the export watermark, if any.
func (s *Scene) Watermark() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermark
}

// Mount fills the scene from a store, replacing existing photo elements.
func (s *Scene) Mount(store *collage.Store) error {
	photos := store.Photos()
	for i := range photos {
		if photos[i].Image == nil {
			return fmt.Errorf("фото %q не имеет изображения", photos[i].ID)
		}
		s.AddPhoto(&photos[i])
	}
	return nil
}
