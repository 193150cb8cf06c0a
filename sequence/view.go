// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import "fmt"

// View is a read-only strided window into a VariantMatrix: either the
// genotypes of one site (stride 1) or those of one sample (stride
// nsam). A View is invalidated when its matrix is mutated.
type View struct {
	m      *VariantMatrix
	gen    uint64
	offset int
	stride int
	n      int
}

// Len returns the number of genotypes in the view.
func (v View) Len() int { return v.n }

// Valid reports whether the underlying matrix is unchanged since the
// view was issued.
func (v View) Valid() bool { return v.m != nil && v.m.gen == v.gen }

func (v View) check() error {
	if v.m == nil {
		return fmt.Errorf("zero View: %w", ErrStaleView)
	}
	if v.m.gen != v.gen {
		return fmt.Errorf("view generation %d, matrix generation %d: %w", v.gen, v.m.gen, ErrStaleView)
	}
	return nil
}

// At returns the i-th genotype of the view.
func (v View) At(i int) (int8, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	if i < 0 || i >= v.n {
		return 0, fmt.Errorf("view index %d of %d: %w", i, v.n, ErrIndexOutOfRange)
	}
	return v.m.data[v.offset+i*v.stride], nil
}

// Values returns a copy of the genotypes in the view.
func (v View) Values() ([]int8, error) {
	return v.AppendTo(make([]int8, 0, v.n))
}

// AppendTo appends the genotypes in the view to dst.
func (v View) AppendTo(dst []int8) ([]int8, error) {
	if err := v.check(); err != nil {
		return dst, err
	}
	for i, p := 0, v.offset; i < v.n; i, p = i+1, p+v.stride {
		dst = append(dst, v.m.data[p])
	}
	return dst, nil
}

// each calls fn for every genotype without re-checking validity.
// Callers must check() first.
func (v View) each(fn func(i int, x int8)) {
	for i, p := 0, v.offset; i < v.n; i, p = i+1, p+v.stride {
		fn(i, v.m.data[p])
	}
}
