// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type nslSuite struct{}

var _ = check.Suite(&nslSuite{})

// nslTable has haplotypes
//
//	s0 00000
//	s1 10001
//	s2 01110
//	s3 11101
func nslTable(c *check.C) *VariantMatrix {
	m := mustMatrix(c, []int8{
		0, 1, 0, 1,
		0, 0, 1, 1,
		0, 0, 1, 1,
		0, 0, 1, 0,
		0, 1, 0, 1,
	}, []float64{1, 2, 3, 4, 6})
	return m
}

func (s *nslSuite) TestNSL(c *check.C) {
	m := nslTable(c)
	res, err := NSL(m, nil)
	c.Assert(err, check.IsNil)
	c.Assert(res, check.HasLen, m.NumSites())
	c.Check(res[2].CoreCount, check.Equals, 2)
	c.Check(approx(res[2].NSL, math.Log(4.0/3)), check.Equals, true, check.Commentf("%v", res[2]))
	c.Check(approx(res[2].IHS, math.Log(5.0/3)), check.Equals, true, check.Commentf("%v", res[2]))
	for _, edge := range []int{0, 4} {
		c.Check(math.IsNaN(res[edge].NSL), check.Equals, true)
		c.Check(math.IsNaN(res[edge].IHS), check.Equals, true)
	}

	gmap := map[float64]float64{1: 0, 2: 1, 3: 1.5, 4: 2, 6: 10}
	mapped, err := NSL(m, gmap)
	c.Assert(err, check.IsNil)
	c.Assert(mapped, check.HasLen, m.NumSites())
	c.Check(approx(mapped[2].NSL, res[2].NSL), check.Equals, true)
	c.Check(approx(mapped[2].IHS, math.Log(5)), check.Equals, true)

	delete(gmap, 4)
	_, err = NSL(m, gmap)
	c.Check(errors.Is(err, ErrSizeMismatch), check.Equals, true)
}

func (s *nslSuite) TestMonomorphic(c *check.C) {
	m := mustMatrix(c, []int8{0, 0, 0, 0, 0, 0}, []float64{1, 2, 3})
	res, err := NSL(m, nil)
	c.Assert(err, check.IsNil)
	c.Check(res, check.HasLen, 3)
	for _, r := range res {
		c.Check(math.IsNaN(r.NSL), check.Equals, true)
		c.Check(r.CoreCount, check.Equals, 0)
	}

	dna, err := NewPolyTable(PolySites, []float64{1}, []string{"A", "C"})
	c.Assert(err, check.IsNil)
	res, err = NSL(dna, nil)
	c.Check(errors.Is(err, ErrNotComputable), check.Equals, true)
	c.Assert(res, check.HasLen, dna.NumSites())
	c.Check(math.IsNaN(res[0].NSL), check.Equals, true)
	res, err = NSLRef(dna, 2, nil)
	c.Check(err, check.IsNil)
	c.Check(res, check.HasLen, 1)
}

func (s *nslSuite) TestStandardize(c *check.C) {
	nan := math.NaN()
	raw := []NSLResult{
		{NSL: 1, CoreCount: 3},
		{NSL: 3, CoreCount: 4},
		{NSL: nan, CoreCount: 4},
		{NSL: 5, CoreCount: 12},
		{NSL: 2, CoreCount: 1},
	}
	std, bins, err := StandardizeNSL(raw, 10, 3)
	c.Assert(err, check.IsNil)
	c.Check(bins, check.DeepEquals, []NSLBin{
		{Bin: 1, N: 2, Mean: 2, SD: 1},
		{Bin: 2, N: 1, Mean: 5, SD: 0},
	})
	c.Assert(std, check.HasLen, len(raw))
	c.Check(approx(std[0].Z, -1), check.Equals, true)
	c.Check(approx(std[0].P, 0.31731050786291415), check.Equals, true)
	c.Check(approx(std[1].Z, 1), check.Equals, true)
	for _, i := range []int{2, 3, 4} {
		c.Check(math.IsNaN(std[i].Z), check.Equals, true, check.Commentf("%d", i))
	}
	c.Check(std[3].Bin, check.Equals, 2)

	_, _, err = StandardizeNSL(raw, 0, 3)
	c.Check(errors.Is(err, ErrSizeMismatch), check.Equals, true)
}

func (s *nslSuite) TestMultiAllelicCore(c *check.C) {
	// nslTable plus two samples carrying state 2 at the core site
	m := mustMatrix(c, []int8{
		0, 1, 0, 1, 1, 0,
		0, 0, 1, 1, 0, 1,
		0, 0, 1, 1, 2, 2,
		0, 0, 1, 0, 1, 0,
		0, 1, 0, 1, 0, 1,
	}, []float64{1, 2, 3, 4, 6})
	res, err := NSL(m, nil)
	c.Assert(err, check.IsNil)
	c.Assert(res, check.HasLen, 5)
	c.Check(math.IsNaN(res[2].NSL), check.Equals, true)
	c.Check(math.IsNaN(res[2].IHS), check.Equals, true)
	c.Check(res[2].CoreCount, check.Equals, 4)

	// derived state 1 alone: the state 2 carriers take no part
	x1, err := NSLx(m, 0, 1, nil)
	c.Assert(err, check.IsNil)
	c.Assert(x1, check.HasLen, 5)
	c.Check(x1[2].CoreCount, check.Equals, 2)
	c.Check(approx(x1[2].NSL, math.Log(4.0/3)), check.Equals, true, check.Commentf("%v", x1[2]))
	sub, err := m.SelectSamples([]int{0, 1, 2, 3})
	c.Assert(err, check.IsNil)
	want, err := NSL(sub, nil)
	c.Assert(err, check.IsNil)
	c.Check(approx(x1[2].IHS, want[2].IHS), check.Equals, true)

	x2, err := NSLx(m, 0, 2, nil)
	c.Assert(err, check.IsNil)
	c.Check(x2[2].CoreCount, check.Equals, 2)
	c.Check(x2[0].CoreCount, check.Equals, 0)

	res, err = NSLx(m, 0, 0, nil)
	c.Check(errors.Is(err, ErrInvalidAlleleCode), check.Equals, true)
	c.Check(res, check.HasLen, 5)
}
