package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"biglietto/internal/adapters/credential"
)

func encodeToPNG(t *testing.T, token string, size int) []byte {
	t.Helper()
	enc := NewEncoder()
	img, err := enc.Encode(token, size)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncoder_Deterministic(t *testing.T) {
	g := credential.NewGenerator()
	token, err := g.Generate()
	require.NoError(t, err)

	first := encodeToPNG(t, token, 256)
	second := encodeToPNG(t, token, 256)
	require.Equal(t, first, second, "same token and size must produce the same raster")
}

func TestEncoder_DistinctTokens(t *testing.T) {
	a := encodeToPNG(t, "00000000000000000000000000000001", 256)
	b := encodeToPNG(t, "00000000000000000000000000000002", 256)
	require.NotEqual(t, a, b)
}

func TestEncoder_EmptyToken(t *testing.T) {
	enc := NewEncoder()
	_, err := enc.Encode("", 256)
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG("a3f9c2d1e8b7465f9012cdef34567890", 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 128, img.Bounds().Dx())
}
