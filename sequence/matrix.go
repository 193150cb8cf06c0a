// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
	"sort"
)

// Missing is the genotype code used for missing data. Any negative
// code is treated as missing.
const Missing int8 = -1

// VariantMatrix is a site-major table of genotype codes: row i holds
// one code per sample at Position(i).
//
// The matrix owns its buffers. Accessors that return slices return
// copies; Site and Sample return views that fail once the matrix is
// mutated by FilterSites.
type VariantMatrix struct {
	data      []int8
	positions []float64
	nsam      int
	maxAllele int8
	gen       uint64
}

// NewVariantMatrix returns a matrix holding a copy of data, which is
// interpreted as len(positions) rows of equal length.
func NewVariantMatrix(data []int8, positions []float64) (*VariantMatrix, error) {
	nsam, err := inferSamples(len(data), len(positions))
	if err != nil {
		return nil, err
	}
	return newMatrix(append([]int8(nil), data...), append([]float64(nil), positions...), nsam, -1)
}

// NewVariantMatrixMaxAllele is like NewVariantMatrix, but fails with
// ErrInvalidAlleleCode if any code exceeds max.
func NewVariantMatrixMaxAllele(data []int8, positions []float64, max int8) (*VariantMatrix, error) {
	if max < 0 {
		return nil, fmt.Errorf("max allele value %d: %w", max, ErrInvalidAlleleCode)
	}
	nsam, err := inferSamples(len(data), len(positions))
	if err != nil {
		return nil, err
	}
	return newMatrix(append([]int8(nil), data...), append([]float64(nil), positions...), nsam, max)
}

// VariantMatrixFromRows builds a matrix from one genotype slice per
// site. All rows must have the same length.
func VariantMatrixFromRows(rows [][]int8, positions []float64) (*VariantMatrix, error) {
	if len(rows) != len(positions) {
		return nil, fmt.Errorf("%d rows, %d positions: %w", len(rows), len(positions), ErrShape)
	}
	nsam := 0
	if len(rows) > 0 {
		nsam = len(rows[0])
	}
	data := make([]int8, 0, nsam*len(rows))
	for i, row := range rows {
		if len(row) != nsam {
			return nil, fmt.Errorf("row %d has %d genotypes, expected %d: %w", i, len(row), nsam, ErrShape)
		}
		data = append(data, row...)
	}
	return newMatrix(data, append([]float64(nil), positions...), nsam, -1)
}

// WrapVariantMatrix returns a matrix that uses data and positions
// without copying them. The caller must not modify either slice for
// the lifetime of the matrix.
func WrapVariantMatrix(data []int8, positions []float64, nsam int) (*VariantMatrix, error) {
	if nsam < 0 || len(data) != len(positions)*nsam {
		return nil, fmt.Errorf("%d genotypes, %d positions, %d samples: %w", len(data), len(positions), nsam, ErrShape)
	}
	return newMatrix(data, positions, nsam, -1)
}

func inferSamples(ndata, npos int) (int, error) {
	if npos == 0 {
		if ndata != 0 {
			return 0, fmt.Errorf("%d genotypes with no positions: %w", ndata, ErrShape)
		}
		return 0, nil
	}
	if ndata%npos != 0 {
		return 0, fmt.Errorf("%d genotypes is not a multiple of %d positions: %w", ndata, npos, ErrShape)
	}
	return ndata / npos, nil
}

// newMatrix takes ownership of data and positions. If max < 0 the
// maximum allele value is taken from the data.
func newMatrix(data []int8, positions []float64, nsam int, max int8) (*VariantMatrix, error) {
	for i, p := range positions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("position %d is %v: %w", i, p, ErrShape)
		}
		if i > 0 && p < positions[i-1] {
			return nil, fmt.Errorf("positions not sorted at index %d (%v < %v): %w", i, p, positions[i-1], ErrShape)
		}
	}
	observed := int8(0)
	for _, x := range data {
		if x > observed {
			observed = x
		}
	}
	if max < 0 {
		max = observed
		if max < 1 {
			max = 1
		}
	} else if observed > max {
		return nil, fmt.Errorf("genotype code %d exceeds max allele value %d: %w", observed, max, ErrInvalidAlleleCode)
	}
	return &VariantMatrix{
		data:      data,
		positions: positions,
		nsam:      nsam,
		maxAllele: max,
	}, nil
}

func (m *VariantMatrix) NumSites() int   { return len(m.positions) }
func (m *VariantMatrix) NumSamples() int { return m.nsam }

// MaxAllele returns the largest allele code the matrix may hold.
func (m *VariantMatrix) MaxAllele() int8 { return m.maxAllele }

// Position returns the position of site i. It panics if i is out of
// range.
func (m *VariantMatrix) Position(i int) float64 { return m.positions[i] }

// Positions returns a copy of the position list.
func (m *VariantMatrix) Positions() []float64 {
	return append([]float64(nil), m.positions...)
}

// Data returns a copy of the site-major genotype buffer.
func (m *VariantMatrix) Data() []int8 {
	return append([]int8(nil), m.data...)
}

// At returns the genotype of sample j at site i.
func (m *VariantMatrix) At(i, j int) (int8, error) {
	if i < 0 || i >= len(m.positions) || j < 0 || j >= m.nsam {
		return 0, fmt.Errorf("genotype (%d,%d) of %dx%d matrix: %w", i, j, len(m.positions), m.nsam, ErrIndexOutOfRange)
	}
	return m.data[i*m.nsam+j], nil
}

// Clone returns an independent copy of m.
func (m *VariantMatrix) Clone() *VariantMatrix {
	return &VariantMatrix{
		data:      m.Data(),
		positions: m.Positions(),
		nsam:      m.nsam,
		maxAllele: m.maxAllele,
	}
}

// Site returns a view of the nsam genotypes at site i.
func (m *VariantMatrix) Site(i int) (View, error) {
	if i < 0 || i >= len(m.positions) {
		return View{}, fmt.Errorf("site %d of %d: %w", i, len(m.positions), ErrIndexOutOfRange)
	}
	return View{m: m, gen: m.gen, offset: i * m.nsam, stride: 1, n: m.nsam}, nil
}

// Sample returns a view of the genotypes of sample j at every site.
func (m *VariantMatrix) Sample(j int) (View, error) {
	if j < 0 || j >= m.nsam {
		return View{}, fmt.Errorf("sample %d of %d: %w", j, m.nsam, ErrIndexOutOfRange)
	}
	return View{m: m, gen: m.gen, offset: j, stride: m.nsam, n: len(m.positions)}, nil
}

// siteBounds returns the half-open index range of sites with
// lo <= position <= hi.
func siteBounds(n int, pos func(int) float64, lo, hi float64) (int, int) {
	start := sort.Search(n, func(i int) bool { return pos(i) >= lo })
	end := sort.Search(n, func(i int) bool { return pos(i) > hi })
	if end < start {
		end = start
	}
	return start, end
}

// Window returns a new matrix containing the sites with
// lo <= position <= hi.
func (m *VariantMatrix) Window(lo, hi float64) *VariantMatrix {
	start, end := siteBounds(len(m.positions), m.Position, lo, hi)
	return &VariantMatrix{
		data:      append([]int8(nil), m.data[start*m.nsam:end*m.nsam]...),
		positions: append([]float64(nil), m.positions[start:end]...),
		nsam:      m.nsam,
		maxAllele: m.maxAllele,
	}
}

// Slice returns a new matrix containing samples [i, j) at the sites
// with lo <= position <= hi.
func (m *VariantMatrix) Slice(lo, hi float64, i, j int) (*VariantMatrix, error) {
	if i < 0 || j > m.nsam || i > j {
		return nil, fmt.Errorf("sample range [%d,%d) of %d: %w", i, j, m.nsam, ErrIndexOutOfRange)
	}
	start, end := siteBounds(len(m.positions), m.Position, lo, hi)
	width := j - i
	data := make([]int8, 0, (end-start)*width)
	for site := start; site < end; site++ {
		row := m.data[site*m.nsam : (site+1)*m.nsam]
		data = append(data, row[i:j]...)
	}
	return &VariantMatrix{
		data:      data,
		positions: append([]float64(nil), m.positions[start:end]...),
		nsam:      width,
		maxAllele: m.maxAllele,
	}, nil
}

// SelectSamples returns a new matrix holding the given samples, in
// the given order, at every site.
func (m *VariantMatrix) SelectSamples(samples []int) (*VariantMatrix, error) {
	for _, j := range samples {
		if j < 0 || j >= m.nsam {
			return nil, fmt.Errorf("sample %d of %d: %w", j, m.nsam, ErrIndexOutOfRange)
		}
	}
	data := make([]int8, 0, len(m.positions)*len(samples))
	for site := range m.positions {
		row := m.data[site*m.nsam : (site+1)*m.nsam]
		for _, j := range samples {
			data = append(data, row[j])
		}
	}
	return &VariantMatrix{
		data:      data,
		positions: m.Positions(),
		nsam:      len(samples),
		maxAllele: m.maxAllele,
	}, nil
}

func (m *VariantMatrix) genotype(site, sample int) int8 { return m.data[site*m.nsam+sample] }
func (m *VariantMatrix) refState() int8                 { return 0 }

// Builder accumulates sites one at a time. The zero value is not
// usable; call NewBuilder.
type Builder struct {
	nsam      int
	data      []int8
	positions []float64
	last      float64
	appended  int
}

func NewBuilder(nsam int) *Builder {
	return &Builder{nsam: nsam}
}

// Append adds one site. genotypes must have one code per sample, and
// position must not be less than that of any site appended before,
// including sites discarded by Reset.
func (b *Builder) Append(genotypes []int8, position float64) error {
	if len(genotypes) != b.nsam {
		return fmt.Errorf("site at %v has %d genotypes, expected %d: %w", position, len(genotypes), b.nsam, ErrShape)
	}
	if b.appended > 0 && position < b.last {
		return fmt.Errorf("positions not sorted at index %d (%v < %v): %w", b.appended, position, b.last, ErrShape)
	}
	b.data = append(b.data, genotypes...)
	b.positions = append(b.positions, position)
	b.last = position
	b.appended++
	return nil
}

func (b *Builder) Len() int { return len(b.positions) }

// Reset discards the accumulated sites. The position of the last
// site appended is remembered.
func (b *Builder) Reset() {
	b.data = b.data[:0]
	b.positions = b.positions[:0]
}

// Matrix returns a matrix holding a copy of the accumulated sites.
func (b *Builder) Matrix() (*VariantMatrix, error) {
	return newMatrix(append([]int8(nil), b.data...), append([]float64(nil), b.positions...), b.nsam, -1)
}
