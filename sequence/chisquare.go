// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"gonum.org/v1/gonum/stat/distuv"
)

var chisquared = distuv.ChiSquared{K: 1}

// pvalue tests whether the samples with x set are distributed between
// y and not-y in proportion to the overall sizes of those groups.
func pvalue(x, y []bool) float64 {
	var (
		obs, exp [2]float64
		sum      float64
		sz       = float64(len(y))
	)
	for i, yi := range y {
		if x[i] {
			if yi {
				obs[0]++
			} else {
				obs[1]++
			}
		}
		if yi {
			exp[0]++
		} else {
			exp[1]++
		}
	}
	if exp[0] == 0 || exp[1] == 0 || obs[0]+obs[1] == 0 {
		return 1
	}
	exp[0] = (obs[0] + obs[1]) * exp[0] / sz
	exp[1] = (obs[0] + obs[1]) * exp[1] / sz
	for i := range exp {
		d := obs[i] - exp[i]
		sum += d * d / exp[i]
	}
	return 1 - chisquared.CDF(sum)
}

// SiteTest returns one p-value per site for a chi-square test of
// whether the carriers of minor states are spread over populations i
// and j in proportion to their (non-missing) sizes. The major state is
// the most common one in the two populations, the lowest code winning
// ties. Sites where the test is undefined get p = 1.
func (f *Fst) SiteTest(i, j int) ([]float64, error) {
	if err := f.checkPair(i, j); err != nil {
		return nil, err
	}
	members := append(append([]int(nil), f.members[i]...), f.members[j]...)
	out := make([]float64, f.t.NumSites())
	x := make([]bool, 0, len(members))
	y := make([]bool, 0, len(members))
	var count [128]int
	for site := range out {
		count = [128]int{}
		for _, s := range members {
			if g := f.t.genotype(site, s); g >= 0 {
				count[g]++
			}
		}
		major := 0
		for g, n := range count {
			if n > count[major] {
				major = g
			}
		}
		x, y = x[:0], y[:0]
		for k, s := range members {
			g := f.t.genotype(site, s)
			if g < 0 {
				continue
			}
			x = append(x, int(g) != major)
			y = append(y, k < len(f.members[i]))
		}
		out[site] = pvalue(x, y)
	}
	return out, nil
}
