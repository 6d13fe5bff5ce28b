// Package render produces the composited ticket raster: background, QR code,
// and a personalized label fitted to the canvas.
package render

import (
	"fmt"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FitParams controls the greedy font-size descent.
type FitParams struct {
	InitialSize float64
	MinSize     float64
	Step        float64
	MaxWidth    float64
}

// Fitter measures text and picks the largest font size at which it fits a
// maximum width. It uses the embedded Go Regular face and caches one face per
// size, since face construction dominates measurement cost.
type Fitter struct {
	fnt *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFitter parses the embedded font once and returns a ready Fitter.
func NewFitter() (*Fitter, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return &Fitter{fnt: fnt, faces: make(map[float64]font.Face)}, nil
}

// Face returns a cached font.Face at the given size.
func (f *Fitter) Face(size float64) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build face at size %.1f: %w", size, err)
	}
	f.faces[size] = face
	return face, nil
}

// Measure returns the rendered width and height of text at the given size.
func (f *Fitter) Measure(text string, size float64) (w, h float64, err error) {
	face, err := f.Face(size)
	if err != nil {
		return 0, 0, err
	}
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(face)
	w, h = dc.MeasureString(text)
	return w, h, nil
}

// Fit returns the largest size, descending from InitialSize in Step
// decrements, at which text renders no wider than MaxWidth. The descent stops
// at MinSize: text still overflowing at the floor is accepted as-is rather
// than shrunk further. Empty text fits trivially at InitialSize.
//
// This is deliberately a linear descent, not a binary search: identical
// inputs must pick identical sizes so composited output stays byte-stable
// for visual regression comparison.
func (f *Fitter) Fit(text string, p FitParams) (float64, error) {
	if text == "" {
		return p.InitialSize, nil
	}
	size := p.InitialSize
	for {
		w, _, err := f.Measure(text, size)
		if err != nil {
			return 0, err
		}
		if w <= p.MaxWidth || size <= p.MinSize {
			return size, nil
		}
		size -= p.Step
		if size < p.MinSize {
			size = p.MinSize
		}
	}
}
