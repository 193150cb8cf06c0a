// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
)

// fuLiConstants holds the sample size terms of Fu and Li's (1993)
// tests, with the corrected F* variance of Simonsen et al. (1995).
// eta is the total number of mutations; every test uses the sample
// size of ac.
type fuLiConstants struct {
	n, an, bn, an1, cn float64
}

func newFuLiConstants(ac *AlleleCountMatrix) (fuLiConstants, error) {
	if ac.nsam < 3 {
		return fuLiConstants{}, fmt.Errorf("fu and li with %d samples: %w", ac.nsam, ErrNotComputable)
	}
	n := float64(ac.nsam)
	an, bn := harmonic(ac.nsam)
	return fuLiConstants{
		n:   n,
		an:  an,
		bn:  bn,
		an1: an + 1/n,
		cn:  2 * (n*an - 2*(n-1)) / ((n - 1) * (n - 2)),
	}, nil
}

func fuLiStatistic(name string, num, eta, u, v float64) (float64, error) {
	if eta == 0 {
		return math.NaN(), fmt.Errorf("%s with no mutations: %w", name, ErrNotComputable)
	}
	variance := u*eta + v*eta*eta
	if !(variance > 0) {
		return math.NaN(), fmt.Errorf("%s variance %v: %w", name, variance, ErrNotComputable)
	}
	return num / math.Sqrt(variance), nil
}

// FuLiD returns Fu and Li's D, contrasting all mutations with external
// (derived singleton) mutations.
func FuLiD(ac *AlleleCountMatrix, ref int8) (float64, error) {
	k, err := newFuLiConstants(ac)
	if err != nil {
		return math.NaN(), err
	}
	ext, err := NumExternalSingletons(ac, ref)
	if err != nil {
		return math.NaN(), fmt.Errorf("fulid: %w", err)
	}
	eta, etae := float64(NumMutations(ac)), float64(ext)
	v := 1 + k.an*k.an/(k.bn+k.an*k.an)*(k.cn-(k.n+1)/(k.n-1))
	u := k.an - 1 - v
	return fuLiStatistic("fulid", eta-k.an*etae, eta, u, v)
}

// FuLiF returns Fu and Li's F, contrasting thetaPi with external
// mutations.
func FuLiF(ac *AlleleCountMatrix, ref int8) (float64, error) {
	k, err := newFuLiConstants(ac)
	if err != nil {
		return math.NaN(), err
	}
	ext, err := NumExternalSingletons(ac, ref)
	if err != nil {
		return math.NaN(), fmt.Errorf("fulif: %w", err)
	}
	n := k.n
	eta, etae := float64(NumMutations(ac)), float64(ext)
	v := (k.cn + 2*(n*n+n+3)/(9*n*(n-1)) - 2/(n-1)) / (k.an*k.an + k.bn)
	u := (1+(n+1)/(3*(n-1))-4*(n+1)/((n-1)*(n-1))*(k.an1-2*n/(n+1)))/k.an - v
	return fuLiStatistic("fulif", ThetaPi(ac)-etae, eta, u, v)
}

// FuLiDStar returns Fu and Li's D*, which needs no ancestral state.
func FuLiDStar(ac *AlleleCountMatrix) (float64, error) {
	k, err := newFuLiConstants(ac)
	if err != nil {
		return math.NaN(), err
	}
	n, an := k.n, k.an
	eta, etas := float64(NumMutations(ac)), float64(NumSingletons(ac))
	dn := k.cn + (n-2)/((n-1)*(n-1)) + 2/(n-1)*(1.5-(2*k.an1-3)/(n-2)-1/n)
	v := ((n/(n-1))*(n/(n-1))*k.bn + an*an*dn - 2*n*an*(an+1)/((n-1)*(n-1))) / (an*an + k.bn)
	u := n/(n-1)*(an-n/(n-1)) - v
	return fuLiStatistic("fulidstar", n/(n-1)*eta-an*etas, eta, u, v)
}

// FuLiFStar returns Fu and Li's F*, which needs no ancestral state.
func FuLiFStar(ac *AlleleCountMatrix) (float64, error) {
	k, err := newFuLiConstants(ac)
	if err != nil {
		return math.NaN(), err
	}
	n, an := k.n, k.an
	eta, etas := float64(NumMutations(ac)), float64(NumSingletons(ac))
	v := ((2*n*n*n+110*n*n-255*n+153)/(9*n*n*(n-1)) + 2*(n-1)*an/(n*n) - 8*k.bn/n) / (an*an + k.bn)
	u := (4*n*n+19*n+3-12*(n+1)*k.an1)/(3*n*(n-1))/an - v
	return fuLiStatistic("fulifstar", ThetaPi(ac)-(n-1)/n*etas, eta, u, v)
}
