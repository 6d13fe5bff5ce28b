// Package pdf wraps a composited ticket raster into a single-page document.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"biglietto/internal/domain"
)

// PackagingError reports a raster that could not be embedded into a page.
type PackagingError struct {
	Reason string
	Err    error
}

func (e *PackagingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document packaging failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("document packaging failed: %s", e.Reason)
}

func (e *PackagingError) Unwrap() error { return e.Err }

type assembler struct{}

// NewAssembler returns a DocumentAssembler producing one full-bleed portrait
// page sized to the raster. Output is deterministic for identical input.
func NewAssembler() domain.DocumentAssembler {
	return &assembler{}
}

func (a *assembler) Assemble(raster image.Image) ([]byte, error) {
	if raster == nil {
		return nil, &PackagingError{Reason: "raster is required"}
	}
	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, raster); err != nil {
		return nil, &PackagingError{Reason: "raster not encodable", Err: err}
	}

	bounds := raster.Bounds()
	// Points at 150 dpi: 1 px = 72/150 pt.
	const ptPerPx = 72.0 / 150.0
	wPt := float64(bounds.Dx()) * ptPerPx
	hPt := float64(bounds.Dy()) * ptPerPx

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: wPt, Ht: hPt},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("ticket", opts, &imgBuf)
	doc.ImageOptions("ticket", 0, 0, wPt, hPt, false, opts, 0, "")

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, &PackagingError{Reason: "page assembly failed", Err: err}
	}
	return out.Bytes(), nil
}
