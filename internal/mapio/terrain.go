package mapio

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"car-planner/internal/grid"
	"car-planner/internal/lattice"
)

// LoadTerrain reads a terrain image with cells of size cs.
func LoadTerrain(path string, cs [2]float64) (*lattice.Map[grid.TerrainData], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()
	m, err := DecodeTerrain(bufio.NewReader(f), cs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// DecodeTerrain decodes a terrain image. Brightness is the inverse of
// traversability: white costs 1, luma v costs 255/v and black cannot be
// crossed.
func DecodeTerrain(r io.Reader, cs [2]float64) (*lattice.Map[grid.TerrainData], error) {
	return decode(r, cs, func(c color.Color) grid.TerrainData {
		v := luma(c)
		if v == 0 {
			return grid.TerrainData{Traversability: math.NaN()}
		}
		return grid.TerrainData{Traversability: 255 / float64(v)}
	})
}
