// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
)

// Windowable is a position-sorted table that can produce independent
// sub-tables of its own type.
type Windowable[T any] interface {
	NumSites() int
	Position(i int) float64
	Window(lo, hi float64) T
}

// Windows is an eagerly built, indexable sequence of sub-tables.
type Windows[T any] struct {
	tables []T
	bounds [][2]float64
}

// SlidingWindows returns the windows [start+k*step, start+k*step+size]
// for k = 0, 1, ... while start+k*step < end. Each window holds the
// sites of t whose position lies in the closed interval.
func SlidingWindows[T Windowable[T]](t T, size, step, start, end float64) (*Windows[T], error) {
	if !(size > 0) || !(step > 0) || math.IsInf(size, 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("window size %v, step %v: %w", size, step, ErrInvalidWindowParameters)
	}
	if !(start >= 0) || math.IsInf(start, 0) || math.IsNaN(end) || math.IsInf(end, 0) {
		return nil, fmt.Errorf("window range [%v,%v): %w", start, end, ErrInvalidWindowParameters)
	}
	w := &Windows[T]{}
	for k := 0; ; k++ {
		lo := start + float64(k)*step
		if lo >= end {
			break
		}
		hi := lo + size
		w.tables = append(w.tables, t.Window(lo, hi))
		w.bounds = append(w.bounds, [2]float64{lo, hi})
	}
	return w, nil
}

// Len returns the number of windows.
func (w *Windows[T]) Len() int { return len(w.tables) }

// At returns window k.
func (w *Windows[T]) At(k int) (T, error) {
	if k < 0 || k >= len(w.tables) {
		var zero T
		return zero, fmt.Errorf("window %d of %d: %w", k, len(w.tables), ErrIndexOutOfRange)
	}
	return w.tables[k], nil
}

// Bounds returns the closed interval covered by window k.
func (w *Windows[T]) Bounds(k int) (lo, hi float64, err error) {
	if k < 0 || k >= len(w.bounds) {
		return 0, 0, fmt.Errorf("window %d of %d: %w", k, len(w.bounds), ErrIndexOutOfRange)
	}
	return w.bounds[k][0], w.bounds[k][1], nil
}

// Each calls fn for every window in order, stopping at the first
// error.
func (w *Windows[T]) Each(fn func(k int, lo, hi float64, t T) error) error {
	for k, t := range w.tables {
		if err := fn(k, w.bounds[k][0], w.bounds[k][1], t); err != nil {
			return err
		}
	}
	return nil
}
