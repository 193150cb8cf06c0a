// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"
	"fmt"
	"io"
)

// AlleleCountMatrix holds, for each site, the number of samples
// carrying each allele code. Missing genotypes are not counted, so a
// row sums to the number of non-missing samples at that site.
type AlleleCountMatrix struct {
	counts []int32
	nrow   int
	ncol   int
	nsam   int
}

// NewAlleleCountMatrix returns a matrix holding a copy of counts,
// interpreted as nrow rows of ncol columns.
func NewAlleleCountMatrix(counts []int32, nrow, ncol, nsam int) (*AlleleCountMatrix, error) {
	if nrow < 0 || ncol < 0 || len(counts) != nrow*ncol {
		return nil, fmt.Errorf("%d counts for %dx%d matrix: %w", len(counts), nrow, ncol, ErrShape)
	}
	for i := 0; i < nrow; i++ {
		sum := 0
		for _, c := range counts[i*ncol : (i+1)*ncol] {
			if c < 0 {
				return nil, fmt.Errorf("negative count in row %d: %w", i, ErrShape)
			}
			sum += int(c)
		}
		if sum > nsam {
			return nil, fmt.Errorf("row %d sums to %d with %d samples: %w", i, sum, nsam, ErrSizeMismatch)
		}
	}
	return &AlleleCountMatrix{
		counts: append([]int32(nil), counts...),
		nrow:   nrow,
		ncol:   ncol,
		nsam:   nsam,
	}, nil
}

// CountAlleles tallies every site of m. The matrix has
// m.MaxAllele()+1 columns.
func CountAlleles(m *VariantMatrix) (*AlleleCountMatrix, error) {
	return CountAllelesMax(m, m.maxAllele)
}

// CountAllelesMax tallies every site of m into max+1 columns. A code
// greater than max is ErrInvalidAlleleCode.
func CountAllelesMax(m *VariantMatrix, max int8) (*AlleleCountMatrix, error) {
	if max < 0 {
		return nil, fmt.Errorf("max allele value %d: %w", max, ErrInvalidAlleleCode)
	}
	nrow, ncol, nsam := len(m.positions), int(max)+1, m.nsam
	ac := &AlleleCountMatrix{
		counts: make([]int32, nrow*ncol),
		nrow:   nrow,
		ncol:   ncol,
		nsam:   nsam,
	}
	for i := 0; i < nrow; i++ {
		row := ac.counts[i*ncol : (i+1)*ncol]
		for _, x := range m.data[i*nsam : (i+1)*nsam] {
			if x < 0 {
				continue
			}
			if x > max {
				return nil, fmt.Errorf("site %d: code %d exceeds max allele value %d: %w", i, x, max, ErrInvalidAlleleCode)
			}
			row[x]++
		}
	}
	return ac, nil
}

func (ac *AlleleCountMatrix) NumRows() int    { return ac.nrow }
func (ac *AlleleCountMatrix) NumCols() int    { return ac.ncol }
func (ac *AlleleCountMatrix) NumSamples() int { return ac.nsam }

// NumSites is the number of sites the counts were built from.
func (ac *AlleleCountMatrix) NumSites() int { return ac.nrow }

// Counts returns a copy of the row-major count buffer.
func (ac *AlleleCountMatrix) Counts() []int32 {
	return append([]int32(nil), ac.counts...)
}

// Row returns a copy of the counts of row i.
func (ac *AlleleCountMatrix) Row(i int) ([]int32, error) {
	if i < 0 || i >= ac.nrow {
		return nil, fmt.Errorf("row %d of %d: %w", i, ac.nrow, ErrIndexOutOfRange)
	}
	return append([]int32(nil), ac.row(i)...), nil
}

func (ac *AlleleCountMatrix) row(i int) []int32 {
	return ac.counts[i*ac.ncol : (i+1)*ac.ncol]
}

// SliceRows returns rows [start, stop) as a new matrix.
func (ac *AlleleCountMatrix) SliceRows(start, stop int) (*AlleleCountMatrix, error) {
	if start < 0 || stop > ac.nrow || start > stop {
		return nil, fmt.Errorf("rows [%d,%d) of %d: %w", start, stop, ac.nrow, ErrIndexOutOfRange)
	}
	return &AlleleCountMatrix{
		counts: append([]int32(nil), ac.counts[start*ac.ncol:stop*ac.ncol]...),
		nrow:   stop - start,
		ncol:   ac.ncol,
		nsam:   ac.nsam,
	}, nil
}

// Subset returns the given rows, in the given order, as a new matrix.
func (ac *AlleleCountMatrix) Subset(rows []int) (*AlleleCountMatrix, error) {
	out := &AlleleCountMatrix{
		counts: make([]int32, 0, len(rows)*ac.ncol),
		nrow:   len(rows),
		ncol:   ac.ncol,
		nsam:   ac.nsam,
	}
	for _, i := range rows {
		if i < 0 || i >= ac.nrow {
			return nil, fmt.Errorf("row %d of %d: %w", i, ac.nrow, ErrIndexOutOfRange)
		}
		out.counts = append(out.counts, ac.row(i)...)
	}
	return out, nil
}

// Merge returns a new matrix with the rows of ac followed by the rows
// of other. Both must have the same number of columns.
func (ac *AlleleCountMatrix) Merge(other *AlleleCountMatrix) (*AlleleCountMatrix, error) {
	if ac.ncol != other.ncol {
		return nil, fmt.Errorf("merging %d columns with %d: %w", ac.ncol, other.ncol, ErrColumnMismatch)
	}
	return ac.concat(other, ac.ncol), nil
}

// MergeMax is like Merge, but widens both inputs to max+1 columns
// first. A non-zero count beyond column max is ErrColumnMismatch.
func (ac *AlleleCountMatrix) MergeMax(other *AlleleCountMatrix, max int8) (*AlleleCountMatrix, error) {
	ncol := int(max) + 1
	for _, in := range []*AlleleCountMatrix{ac, other} {
		if err := in.fitsColumns(ncol); err != nil {
			return nil, err
		}
	}
	return ac.concat(other, ncol), nil
}

func (ac *AlleleCountMatrix) fitsColumns(ncol int) error {
	if ncol <= 0 {
		return fmt.Errorf("%d columns: %w", ncol, ErrColumnMismatch)
	}
	if ncol >= ac.ncol {
		return nil
	}
	for i := 0; i < ac.nrow; i++ {
		for j, c := range ac.row(i)[ncol:] {
			if c != 0 {
				return fmt.Errorf("row %d has %d samples with allele %d, beyond %d columns: %w", i, c, ncol+j, ncol, ErrColumnMismatch)
			}
		}
	}
	return nil
}

func (ac *AlleleCountMatrix) concat(other *AlleleCountMatrix, ncol int) *AlleleCountMatrix {
	nsam := ac.nsam
	if other.nsam > nsam {
		nsam = other.nsam
	}
	out := &AlleleCountMatrix{
		counts: make([]int32, (ac.nrow+other.nrow)*ncol),
		nrow:   ac.nrow + other.nrow,
		ncol:   ncol,
		nsam:   nsam,
	}
	for i := 0; i < ac.nrow; i++ {
		copy(out.counts[i*ncol:(i+1)*ncol], ac.row(i))
	}
	for i := 0; i < other.nrow; i++ {
		copy(out.counts[(ac.nrow+i)*ncol:(ac.nrow+i+1)*ncol], other.row(i))
	}
	return out
}

// VariantSource yields one site at a time. Next returns io.EOF after
// the last site.
type VariantSource interface {
	Next() (genotypes []int8, position float64, err error)
}

// RowSource is a VariantSource over in-memory rows.
type RowSource struct {
	Rows      [][]int8
	Positions []float64
	next      int
}

func (rs *RowSource) Next() ([]int8, float64, error) {
	if rs.next >= len(rs.Rows) {
		return nil, 0, io.EOF
	}
	if rs.next >= len(rs.Positions) {
		return nil, 0, fmt.Errorf("row %d has no position: %w", rs.next, ErrShape)
	}
	i := rs.next
	rs.next++
	return rs.Rows[i], rs.Positions[i], nil
}

// CountAllelesChunked reads src to the end, counting alleles in blocks
// of chunkSize sites. The result equals CountAllelesMax applied to a
// single matrix holding every site. Any error aborts the whole read.
func CountAllelesChunked(src VariantSource, chunkSize int, max int8) (*AlleleCountMatrix, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size %d: %w", chunkSize, ErrShape)
	}
	if max < 0 {
		return nil, fmt.Errorf("max allele value %d: %w", max, ErrInvalidAlleleCode)
	}
	acc := &AlleleCountMatrix{ncol: int(max) + 1}
	var b *Builder
	flush := func() error {
		if b == nil || b.Len() == 0 {
			return nil
		}
		m, err := b.Matrix()
		if err != nil {
			return err
		}
		part, err := CountAllelesMax(m, max)
		if err != nil {
			return err
		}
		acc, err = acc.Merge(part)
		b.Reset()
		return err
	}
	for {
		genotypes, pos, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		if b == nil {
			b = NewBuilder(len(genotypes))
		}
		if err = b.Append(genotypes, pos); err != nil {
			return nil, err
		}
		if b.Len() >= chunkSize {
			if err = flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return acc, nil
}

// RefCounts is the number of reference and non-reference alleles at
// one site.
type RefCounts struct {
	Ref    int `json:"ref"`
	NonRef int `json:"nonref"`
}

// NonReferenceCounts splits each row of ac into reference and
// non-reference counts. A negative ref is ErrNotComputable.
func NonReferenceCounts(ac *AlleleCountMatrix, ref int8) ([]RefCounts, error) {
	if ref < 0 {
		return nil, fmt.Errorf("non-reference counts without reference state: %w", ErrNotComputable)
	}
	out := make([]RefCounts, ac.nrow)
	for i := range out {
		for x, n := range ac.row(i) {
			if x == int(ref) {
				out[i].Ref += int(n)
			} else {
				out[i].NonRef += int(n)
			}
		}
	}
	return out, nil
}
