package pdf

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestAssembler_Assemble(t *testing.T) {
	a := NewAssembler()
	raster := imaging.New(1240, 1754, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	out, err := a.Assemble(raster)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, "%PDF", string(out[:4]))
}

func TestAssembler_Assemble_NilRaster(t *testing.T) {
	a := NewAssembler()

	_, err := a.Assemble(nil)
	var pkgErr *PackagingError
	require.ErrorAs(t, err, &pkgErr)
}
