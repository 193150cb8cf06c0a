// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"
	"strings"

	"gopkg.in/check.v1"
)

type windowsSuite struct{}

var _ = check.Suite(&windowsSuite{})

var windowPositions = []float64{0.05, 0.1, 0.15, 0.2, 0.225, 0.25, 0.5, 0.95, 1.0}

func expectWindow(k int) []float64 {
	lo := float64(k) * 0.05
	hi := lo + 0.1
	var in []float64
	for _, p := range windowPositions {
		if p >= lo && p <= hi {
			in = append(in, p)
		}
	}
	return in
}

func (s *windowsSuite) TestVariantMatrixWindows(c *check.C) {
	data := make([]int8, len(windowPositions)*2)
	for i := range data {
		data[i] = int8(i % 2)
	}
	m := mustMatrix(c, data, windowPositions)
	w, err := SlidingWindows(m, 0.1, 0.05, 0, 1)
	c.Assert(err, check.IsNil)
	c.Check(w.Len(), check.Equals, 20)
	for k := 0; k < w.Len(); k++ {
		win, err := w.At(k)
		c.Assert(err, check.IsNil)
		c.Check(win.Positions(), check.DeepEquals, expectWindow(k), check.Commentf("window %d", k))
		c.Check(win.NumSamples(), check.Equals, 2)
	}
	_, err = w.At(20)
	c.Check(errors.Is(err, ErrIndexOutOfRange), check.Equals, true)
	_, _, err = w.Bounds(-1)
	c.Check(errors.Is(err, ErrIndexOutOfRange), check.Equals, true)

	// restartable: iterating twice gives the same windows
	var first, second []int
	for _, out := range []*[]int{&first, &second} {
		out := out
		err = w.Each(func(k int, lo, hi float64, win *VariantMatrix) error {
			*out = append(*out, win.NumSites())
			return nil
		})
		c.Check(err, check.IsNil)
	}
	c.Check(first, check.DeepEquals, second)
	c.Check(first[0], check.Equals, 2)
}

func (s *windowsSuite) TestPolyTableWindows(c *check.C) {
	haps := []string{strings.Repeat("0", 9), strings.Repeat("1", 9)}
	t, err := NewPolyTable(SimData, windowPositions, haps)
	c.Assert(err, check.IsNil)
	w, err := SlidingWindows(t, 0.1, 0.05, 0, 1)
	c.Assert(err, check.IsNil)
	c.Check(w.Len(), check.Equals, 20)
	for k := 0; k < w.Len(); k++ {
		win, _ := w.At(k)
		c.Check(win.Kind(), check.Equals, SimData)
		c.Check(win.Positions(), check.DeepEquals, expectWindow(k), check.Commentf("window %d", k))
		h, _ := win.Haplotype(1)
		c.Check(h, check.Equals, strings.Repeat("1", len(expectWindow(k))))
	}
	lo, hi, err := w.Bounds(3)
	c.Check(err, check.IsNil)
	c.Check(approx(lo, 0.15), check.Equals, true)
	c.Check(approx(hi, 0.25), check.Equals, true)
}

func (s *windowsSuite) TestInvalidParameters(c *check.C) {
	m := mustMatrix(c, []int8{0, 1}, []float64{0.5})
	for _, trial := range []struct {
		size, step, start, end float64
	}{
		{0, 0.05, 0, 1},
		{-1, 0.05, 0, 1},
		{0.1, 0, 0, 1},
		{0.1, -1, 0, 1},
		{0, 0, 0, 1},
		{-1, -1, 5, 0},
		{0.1, 0.1, -1, 1},
	} {
		w, err := SlidingWindows(m, trial.size, trial.step, trial.start, trial.end)
		c.Check(w, check.IsNil)
		c.Check(errors.Is(err, ErrInvalidWindowParameters), check.Equals, true, check.Commentf("%+v", trial))
	}
}

func (s *windowsSuite) TestJumpingWindows(c *check.C) {
	m := mustMatrix(c, []int8{0, 1, 1, 1, 0, 0}, []float64{1, 5, 10})
	w, err := SlidingWindows(m, 4, 5, 0, 10)
	c.Assert(err, check.IsNil)
	c.Check(w.Len(), check.Equals, 2)
	win, _ := w.At(0)
	c.Check(win.Positions(), check.DeepEquals, []float64{1})
	win, _ = w.At(1)
	c.Check(win.Positions(), check.DeepEquals, []float64{5})

	w, err = SlidingWindows(m, 4, 5, 20, 10)
	c.Check(err, check.IsNil)
	c.Check(w.Len(), check.Equals, 0)
}
