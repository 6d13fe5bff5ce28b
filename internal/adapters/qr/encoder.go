// Package qr renders credential tokens as QR rasters.
package qr

import (
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"

	"biglietto/internal/domain"
)

// EncodingError reports a token that could not be encoded. Given the fixed
// token format this should never fire, but it is checked, not assumed.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("qr encoding failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("qr encoding failed: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Err }

type encoder struct{}

// NewEncoder returns a QrEncoder using error correction level High, so a
// printed ticket survives folding and smudging.
func NewEncoder() domain.QrEncoder {
	return &encoder{}
}

func (e *encoder) Encode(token string, sizePx int) (image.Image, error) {
	if token == "" {
		return nil, &EncodingError{Reason: "empty token"}
	}
	code, err := qrcode.New(token, qrcode.High)
	if err != nil {
		return nil, &EncodingError{Reason: "token exceeds symbol capacity", Err: err}
	}
	return code.Image(sizePx), nil
}

// EncodePNG returns the QR raster as PNG bytes, for callers that store or
// serve the code directly.
func EncodePNG(token string, sizePx int) ([]byte, error) {
	if token == "" {
		return nil, &EncodingError{Reason: "empty token"}
	}
	png, err := qrcode.Encode(token, qrcode.High, sizePx)
	if err != nil {
		return nil, &EncodingError{Reason: "token exceeds symbol capacity", Err: err}
	}
	return png, nil
}
