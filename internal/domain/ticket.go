package domain

import (
	"context"
	"image"
)

// CredentialGenerator produces the unguessable token identifying one ticket.
type CredentialGenerator interface {
	// Generate returns a fixed-length hex token from a cryptographically
	// secure source. It must fail rather than fall back to a weaker source.
	Generate() (string, error)
}

// QrEncoder renders a token into a QR raster. Encoding is deterministic for
// a given token and size.
type QrEncoder interface {
	Encode(token string, sizePx int) (image.Image, error)
}

// TicketCompositor overlays the QR raster and a personalized label onto the
// event's background image. It must always produce a raster: a missing or
// unreadable background resolves to a synthetic fallback, never an abort.
type TicketCompositor interface {
	Compose(ctx context.Context, event *Event, qr image.Image, label string) (image.Image, error)
}

// DocumentAssembler wraps a composited raster into a single-page document.
type DocumentAssembler interface {
	Assemble(raster image.Image) ([]byte, error)
}
