// Package mapio loads occupancy maps from images and obstacle overlays from
// GeoJSON.
package mapio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"car-planner/internal/lattice"
)

// ErrLoad is returned when a map cannot be read or decoded.
var ErrLoad = errors.New("failed to load map")

// Threshold is the luma below which a pixel is occupied.
const Threshold = 128

// LoadOccupancy reads an occupancy image with cells of size cs.
func LoadOccupancy(path string, cs [2]float64) (*lattice.Map[bool], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()
	m, err := DecodeOccupancy(bufio.NewReader(f), cs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// DecodeOccupancy decodes a PNG, BMP, TIFF or netpbm image into an occupancy
// map. Dark pixels are occupied. The top image row holds the largest y.
func DecodeOccupancy(r io.Reader, cs [2]float64) (*lattice.Map[bool], error) {
	return decode(r, cs, func(c color.Color) bool { return luma(c) < Threshold })
}

// decode rasterizes an image into a 2D map, one cell per pixel.
func decode[T any](r io.Reader, cs [2]float64, pixel func(color.Color) T) (*lattice.Map[T], error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m, err := lattice.NewMap[T](
		[]float64{0, 0},
		[]float64{float64(w) * cs[0], float64(h) * cs[1]},
		[]float64{cs[0], cs[1]},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s image %dx%d: %v", ErrLoad, format, w, h, err)
	}
	for i := 0; i < w; i++ {
		for j := 0; j < h; j++ {
			c := img.At(b.Min.X+i, b.Max.Y-1-j)
			m.SetAt(m.Flatten([]int{i, j}), pixel(c))
		}
	}
	return m, nil
}

func luma(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

// EncodeOccupancy writes omap as a black and white PNG in the layout
// DecodeOccupancy reads.
func EncodeOccupancy(w io.Writer, omap *lattice.Map[bool]) error {
	dims := omap.Dims()
	nx, ny := dims[0], dims[1]
	img := image.NewGray(image.Rect(0, 0, nx, ny))
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			v := uint8(255)
			if omap.At(omap.Flatten([]int{i, j})) {
				v = 0
			}
			img.SetGray(i, ny-1-j, color.Gray{Y: v})
		}
	}
	return png.Encode(w, img)
}

// SaveOccupancy writes omap to path as PNG.
func SaveOccupancy(path string, omap *lattice.Map[bool]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeOccupancy(f, omap); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
