// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"

	"gopkg.in/check.v1"
)

type ldSuite struct{}

var _ = check.Suite(&ldSuite{})

// two blocks of identical sites, with a recombinant site at the end
func blockTable(c *check.C) *VariantMatrix {
	return mustMatrix(c, []int8{
		0, 0, 1, 1,
		0, 0, 1, 1,
		0, 1, 0, 1,
		0, 1, 0, 1,
		0, 1, 1, 0,
	}, []float64{1, 2, 3, 4, 5})
}

func (s *ldSuite) TestTwoLocusHaplotypeCounts(c *check.C) {
	m := blockTable(c)
	counts, err := TwoLocusHaplotypeCounts(m, 0, 2)
	c.Check(err, check.IsNil)
	c.Check(counts, check.DeepEquals, []TwoLocusCount{
		{0, 0, 1}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1},
	})
	counts, err = TwoLocusHaplotypeCounts(m, 1, 0)
	c.Check(err, check.IsNil)
	c.Check(counts, check.DeepEquals, []TwoLocusCount{{0, 0, 2}, {1, 1, 2}})

	_, err = TwoLocusHaplotypeCounts(m, 0, 5)
	c.Check(errors.Is(err, ErrIndexOutOfRange), check.Equals, true)
	_, err = TwoLocusHaplotypeCounts(m, -1, 0)
	c.Check(errors.Is(err, ErrIndexOutOfRange), check.Equals, true)
}

func (s *ldSuite) TestLD(c *check.C) {
	m := blockTable(c)
	pairs := LD(m, 1, 0)
	c.Assert(pairs, check.HasLen, 10)
	for _, p := range pairs {
		if (p.I == 1 && p.J == 2) || (p.I == 3 && p.J == 4) {
			c.Check(approx(p.RSq, 1), check.Equals, true)
			c.Check(approx(p.D, 0.25), check.Equals, true)
			c.Check(approx(p.DPrime, 1), check.Equals, true)
		} else {
			c.Check(approx(p.RSq, 0), check.Equals, true, check.Commentf("%+v", p))
			c.Check(approx(p.D, 0), check.Equals, true, check.Commentf("%+v", p))
		}
	}

	pairs = LD(m, 1, 1.5)
	c.Check(pairs, check.HasLen, 4)
	for _, p := range pairs {
		c.Check(p.J-p.I, check.Equals, 1.0)
	}
	c.Check(LD(m, 3, 0), check.HasLen, 0)

	// repulsion gives negative D
	m = mustMatrix(c, []int8{0, 0, 1, 1, 1, 1, 0, 0}, []float64{1, 2})
	pairs = LD(m, 1, 0)
	c.Assert(pairs, check.HasLen, 1)
	c.Check(approx(pairs[0].D, -0.25), check.Equals, true)
	c.Check(approx(pairs[0].DPrime, -1), check.Equals, true)
	c.Check(approx(pairs[0].RSq, 1), check.Equals, true)
}

func (s *ldSuite) TestWalls(c *check.C) {
	ws, err := Walls(blockTable(c))
	c.Check(err, check.IsNil)
	c.Check(ws.Bprime, check.Equals, 2)
	c.Check(approx(ws.B, 0.5), check.Equals, true)
	c.Check(approx(ws.Q, 0.8), check.Equals, true)

	// the middle site has three states and is skipped
	m := mustMatrix(c, []int8{
		0, 0, 1, 1,
		0, 1, 2, 2,
		0, 0, 1, 1,
	}, []float64{1, 2, 3})
	ws, err = Walls(m)
	c.Check(err, check.IsNil)
	c.Check(ws, check.DeepEquals, WallStats{B: 1, Bprime: 1, Q: 1})
	c.Check(Rmin(m), check.Equals, 0)

	m = mustMatrix(c, []int8{0, 1, 1}, []float64{1})
	_, err = Walls(m)
	c.Check(errors.Is(err, ErrNotComputable), check.Equals, true)
}

func (s *ldSuite) TestRmin(c *check.C) {
	c.Check(Rmin(blockTable(c)), check.Equals, 2)

	// the missing genotype does not hide the fourth gamete
	m := mustMatrix(c, []int8{
		0, 0, 1, 1, -1,
		0, 1, 0, 1, 1,
	}, []float64{1, 2})
	c.Check(Rmin(m), check.Equals, 1)
	ws, err := Walls(m)
	c.Check(err, check.IsNil)
	c.Check(ws, check.DeepEquals, WallStats{})
}

func (s *ldSuite) TestOmegaMax(c *check.C) {
	omega, pos, err := OmegaMax(blockTable(c))
	c.Check(err, check.IsNil)
	c.Check(approx(omega, 1.5), check.Equals, true)
	c.Check(pos, check.Equals, 3.0)

	m := mustMatrix(c, []int8{0, 0, 1, 1, 0, 0, 1, 1}, []float64{1, 2})
	_, _, err = OmegaMax(m)
	c.Check(errors.Is(err, ErrNotComputable), check.Equals, true)
}
