package render

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"biglietto/internal/domain"
)

// CompositionError reports a ticket raster that could not be produced.
type CompositionError struct {
	Reason string
	Err    error
}

func (e *CompositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ticket composition failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ticket composition failed: %s", e.Reason)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// Layout fixes the ticket canvas geometry. All positions are relative to the
// canvas so different background sizes land identically after normalization.
type Layout struct {
	Width  int
	Height int

	// QR side length and top edge, as fractions of canvas width and height.
	QrSizeRatio float64
	QrTopRatio  float64

	// BandPadding is the inset between band edges and their content, px.
	BandPadding float64

	LabelInitialSize   float64
	LabelMinSize       float64
	LabelStep          float64
	LabelMaxWidthRatio float64
}

// DefaultLayout is an A4 portrait canvas at 150 dpi.
func DefaultLayout() Layout {
	return Layout{
		Width:              1240,
		Height:             1754,
		QrSizeRatio:        0.42,
		QrTopRatio:         0.22,
		BandPadding:        24,
		LabelInitialSize:   56,
		LabelMinSize:       18,
		LabelStep:          2,
		LabelMaxWidthRatio: 0.86,
	}
}

// Compositor builds the final ticket raster. It never mutates its inputs:
// background and QR are copied onto a fresh canvas.
type Compositor struct {
	resolver *BackgroundResolver
	fitter   *Fitter
	layout   Layout
}

// NewCompositor wires a resolver and fitter under the given layout.
func NewCompositor(resolver *BackgroundResolver, fitter *Fitter, layout Layout) domain.TicketCompositor {
	return &Compositor{resolver: resolver, fitter: fitter, layout: layout}
}

func (c *Compositor) Compose(ctx context.Context, ev *domain.Event, qr image.Image, label string) (image.Image, error) {
	if qr == nil {
		return nil, &CompositionError{Reason: "qr raster is required"}
	}
	l := c.layout

	bg := c.resolver.Resolve(ctx, ev)
	// Fill crops and scales so the background covers the whole canvas.
	canvasBg := imaging.Fill(bg, l.Width, l.Height, imaging.Center, imaging.Lanczos)

	dc := gg.NewContext(l.Width, l.Height)
	dc.DrawImage(canvasBg, 0, 0)

	// QR band. NearestNeighbor keeps module edges sharp for scanners.
	qrSize := int(float64(l.Width) * l.QrSizeRatio)
	scaledQr := imaging.Resize(qr, qrSize, qrSize, imaging.NearestNeighbor)
	qx := (l.Width - qrSize) / 2
	qy := int(float64(l.Height) * l.QrTopRatio)
	pad := l.BandPadding
	// Clamp so band and QR never extend past the canvas.
	if maxY := l.Height - qrSize - int(pad); qy > maxY {
		qy = maxY
	}
	if qy < int(pad) {
		qy = int(pad)
	}
	dc.SetRGBA(1, 1, 1, 0.88)
	dc.DrawRectangle(float64(qx)-pad, float64(qy)-pad, float64(qrSize)+2*pad, float64(qrSize)+2*pad)
	dc.Fill()
	dc.DrawImage(scaledQr, qx, qy)

	// Label band beneath the QR, text centered and fitted to width.
	maxLabelWidth := float64(l.Width) * l.LabelMaxWidthRatio
	size, err := c.fitter.Fit(label, FitParams{
		InitialSize: l.LabelInitialSize,
		MinSize:     l.LabelMinSize,
		Step:        l.LabelStep,
		MaxWidth:    maxLabelWidth,
	})
	if err != nil {
		return nil, &CompositionError{Reason: "label sizing failed", Err: err}
	}
	face, err := c.fitter.Face(size)
	if err != nil {
		return nil, &CompositionError{Reason: "label face failed", Err: err}
	}
	dc.SetFontFace(face)
	_, textH := dc.MeasureString(label)
	bandY := float64(qy+qrSize) + 2*pad
	bandH := textH + 2*pad
	if bandY+bandH > float64(l.Height) {
		bandY = float64(l.Height) - bandH
	}
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(0, bandY, float64(l.Width), bandH)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(label, float64(l.Width)/2, bandY+bandH/2, 0.5, 0.35)

	return dc.Image(), nil
}
