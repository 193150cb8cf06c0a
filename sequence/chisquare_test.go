// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"
	"fmt"

	"gopkg.in/check.v1"
)

type pvalueSuite struct{}

var _ = check.Suite(&pvalueSuite{})

func (s *pvalueSuite) TestPvalue(c *check.C) {
	a := make([]bool, 54)
	b := make([]bool, 54)
	for i := 0; i < 25; i++ {
		a[i] = true
		b[i] = true
	}
	for i := 25; i < 31; i++ {
		a[i] = true
	}
	for i := 31; i < 39; i++ {
		b[i] = true
	}
	c.Check(fmt.Sprintf("%.7f", pvalue(a, b)), check.Equals, "0.0006297")
	for i := range a {
		a[i] = !a[i]
	}
	c.Check(fmt.Sprintf("%.7f", pvalue(a, b)), check.Equals, "0.0006297")
}

func (s *pvalueSuite) TestSiteTest(c *check.C) {
	t, err := PolyTableFromSites(SimData, []Site{
		{1, "1111100000"},
		{2, "0000000001"},
		{3, "0000000000"},
		{4, "11111N0000"},
	})
	c.Assert(err, check.IsNil)
	f, err := NewFst(t, []int{5, 5}, nil)
	c.Assert(err, check.IsNil)
	p, err := f.SiteTest(0, 1)
	c.Assert(err, check.IsNil)
	c.Assert(p, check.HasLen, 4)
	c.Check(approx(p[0], 0.025347318677468252), check.Equals, true, check.Commentf("%v", p[0]))
	c.Check(approx(p[1], 0.31731050786291404), check.Equals, true, check.Commentf("%v", p[1]))
	c.Check(p[2], check.Equals, 1.0)
	// state 1 is the majority here, and every 0 is in population 1
	c.Check(p[3] < p[1], check.Equals, true)

	_, err = f.SiteTest(0, 2)
	c.Check(errors.Is(err, ErrIndexOutOfRange), check.Equals, true)
}
