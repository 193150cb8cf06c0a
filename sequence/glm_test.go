// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type glmSuite struct{}

var _ = check.Suite(&glmSuite{})

func (s *glmSuite) TestSiteTestGLM(c *check.C) {
	t, err := PolyTableFromSites(SimData, []Site{
		{1, "1110010000"},
		{2, "1010110101"},
	})
	c.Assert(err, check.IsNil)
	f, err := NewFst(t, []int{5, 5}, nil)
	c.Assert(err, check.IsNil)
	p, err := f.SiteTestGLM(0, 1, nil)
	c.Assert(err, check.IsNil)
	c.Assert(p, check.HasLen, 2)
	// with a single binary predictor the model fits the 2x2 table
	// exactly, so this is a G-test
	c.Check(math.Abs(p[0]-0.18891070000569182) < 1e-6, check.Equals, true, check.Commentf("%v", p[0]))
	// carriers are split evenly
	c.Check(math.Abs(p[1]-1) < 1e-6, check.Equals, true, check.Commentf("%v", p[1]))

	cov := []float64{-4, 1.2, -3, 7, -1.2, 2, 0.5, 3, -2, 1}
	p, err = f.SiteTestGLM(0, 1, [][]float64{cov})
	c.Assert(err, check.IsNil)
	c.Check(p[0] >= 0 && p[0] <= 1, check.Equals, true, check.Commentf("%v", p[0]))

	_, err = f.SiteTestGLM(0, 1, [][]float64{{1, 2}})
	c.Check(errors.Is(err, ErrSizeMismatch), check.Equals, true)
	_, err = f.SiteTestGLM(0, 3, nil)
	c.Check(errors.Is(err, ErrIndexOutOfRange), check.Equals, true)
}
