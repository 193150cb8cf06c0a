// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"

	"gopkg.in/check.v1"
)

type filterSuite struct{}

var _ = check.Suite(&filterSuite{})

func (s *filterSuite) TestRemoveSingletons(c *check.C) {
	m := mustMatrix(c, []int8{0, 1, 1, 0, 0, 0, 0, 1}, []float64{0.1, 0.2})
	c.Check(FilterSites(m, Singleton), check.Equals, 1)
	c.Check(m.NumSites(), check.Equals, 1)
	c.Check(m.NumSamples(), check.Equals, 4)
	c.Check(m.Positions(), check.DeepEquals, []float64{0.1})
	c.Check(m.Data(), check.DeepEquals, []int8{0, 1, 1, 0})

	// idempotent once nothing matches
	c.Check(FilterSites(m, Singleton), check.Equals, 0)
	c.Check(m.NumSites(), check.Equals, 1)
}

func (s *filterSuite) TestPreservesOrder(c *check.C) {
	m := mustMatrix(c, []int8{
		0, 0, 0,
		0, 1, 1,
		1, 1, 1,
		2, 1, 0,
		0, 1, -1,
	}, []float64{1, 2, 3, 4, 5})
	c.Check(FilterSites(m, Monomorphic), check.Equals, 2)
	c.Check(m.Positions(), check.DeepEquals, []float64{2, 4, 5})
	c.Check(m.Data(), check.DeepEquals, []int8{0, 1, 1, 2, 1, 0, 0, 1, -1})
	c.Check(FilterSites(m, Any(MultiAllelic, MissingAbove(0.25))), check.Equals, 2)
	c.Check(m.Positions(), check.DeepEquals, []float64{2})
	c.Check(FilterSites(m, Not(Monomorphic)), check.Equals, 1)
	c.Check(m.NumSites(), check.Equals, 0)
	c.Check(m.NumSamples(), check.Equals, 3)
}

func (s *filterSuite) TestStateCounts(c *check.C) {
	m := mustMatrix(c, []int8{0, 2, 2, -1, 1}, []float64{7})
	v, _ := m.Site(0)
	sc := NewStateCounts(0)
	c.Assert(sc.Tally(v), check.IsNil)
	c.Check(sc.Counts, check.DeepEquals, []int32{1, 1, 2})
	c.Check(sc.N, check.Equals, 4)
	c.Check(sc.NMissing, check.Equals, 1)
	c.Check(sc.NumStates(), check.Equals, 3)
	c.Check(sc.Derived(), check.Equals, 3)

	sc = NewStateCounts(Missing)
	c.Assert(sc.Tally(v), check.IsNil)
	c.Check(sc.Derived(), check.Equals, -1)

	FilterSites(m, Monomorphic)
	c.Check(sc.Tally(v), check.NotNil)
}

func (s *filterSuite) TestFilterHaplotypes(c *check.C) {
	m := mustMatrix(c, []int8{
		0, 1, -1, 1,
		1, 1, -1, 0,
		0, -1, -1, 1,
	}, []float64{1, 2, 3})
	site, _ := m.Site(0)
	sample, _ := m.Sample(3)
	c.Check(FilterHaplotypes(m, MissingAbove(0.5)), check.Equals, 1)
	c.Check(m.NumSamples(), check.Equals, 3)
	c.Check(m.NumSites(), check.Equals, 3)
	c.Check(m.Data(), check.DeepEquals, []int8{0, 1, 1, 1, 1, 0, 0, -1, 1})
	c.Check(m.Positions(), check.DeepEquals, []float64{1, 2, 3})
	c.Check(site.Valid(), check.Equals, false)
	_, err := sample.At(0)
	c.Check(errors.Is(err, ErrStaleView), check.Equals, true)

	// the predicate sees one sample at a time
	var seen []int
	FilterHaplotypes(m, func(v View) bool {
		seen = append(seen, v.Len())
		x, err := v.At(0)
		c.Check(err, check.IsNil)
		return x == 0
	})
	c.Check(seen, check.DeepEquals, []int{3, 3, 3})
	c.Check(m.Data(), check.DeepEquals, []int8{1, 1, 1, 0, -1, 1})
	c.Check(FilterHaplotypes(m, Monomorphic), check.Equals, 1)
	c.Check(m.NumSamples(), check.Equals, 1)
	c.Check(m.Data(), check.DeepEquals, []int8{1, 0, 1})
}
