package lattice

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Save writes m as little-endian float64 lower, upper and cell-size vectors
// followed by one byte per cell in row-major order.
func Save(w io.Writer, m *Map[bool]) error {
	bw := bufio.NewWriter(w)
	for _, v := range [][]float64{m.lower, m.upper, m.cs} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	buf := make([]byte, len(m.cells))
	for i, occ := range m.cells {
		if occ {
			buf[i] = 1
		}
	}
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("failed to write cells: %w", err)
	}
	return bw.Flush()
}

// Load reads a map of dimension dim written by Save. Periodic axes are not
// persisted and must be supplied again through opts.
func Load(r io.Reader, dim int, opts ...Option) (*Map[bool], error) {
	br := bufio.NewReader(r)
	header := make([][]float64, 3)
	for i := range header {
		header[i] = make([]float64, dim)
		if err := binary.Read(br, binary.LittleEndian, header[i]); err != nil {
			return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
		}
	}
	m, err := NewMap[bool](header[0], header[1], header[2], opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	buf := make([]byte, m.Len())
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("%w: expected %d cells: %v", ErrCorrupt, m.Len(), err)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after %d cells", ErrCorrupt, m.Len())
	}
	for i, b := range buf {
		switch b {
		case 0:
		case 1:
			m.cells[i] = true
		default:
			return nil, fmt.Errorf("%w: cell %d has value %d", ErrCorrupt, i, b)
		}
	}
	return m, nil
}

// SaveFile writes m to path.
func SaveFile(path string, m *Map[bool]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Save(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a map of dimension dim from path.
func LoadFile(path string, dim int, opts ...Option) (*Map[bool], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Load(f, dim, opts...)
}
