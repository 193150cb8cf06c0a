// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NSLResult holds the unstandardized nSL and iHS of one core site
// (Ferrer-Admetlla et al. 2014) and the number of samples carrying a
// derived allele there. NSL and IHS are NaN when undefined.
type NSLResult struct {
	NSL       float64 `json:"nsl"`
	IHS       float64 `json:"ihs"`
	CoreCount int     `json:"core_count"`
}

// NSL computes nSL and iHS at every site of t, relative to the table's
// ancestral state. If gmap is not nil, iHS distances are measured in
// gmap[position] units instead of positions, and every position must
// be a key of gmap.
//
// The result always has one entry per site. If the ancestral state is
// unknown (PolySites tables), every entry is NaN and the error wraps
// ErrNotComputable. Cores with more than one derived state are NaN;
// use NSLx to analyze one derived state at a time.
func NSL(t Table, gmap map[float64]float64) ([]NSLResult, error) {
	return NSLRef(t, t.refState(), gmap)
}

// NSLRef is like NSL with an explicit ancestral state.
func NSLRef(t Table, ref int8, gmap map[float64]float64) ([]NSLResult, error) {
	return nsl(t, ref, -1, gmap)
}

// NSLx is like NSLRef, but at each core compares the carriers of the
// ancestral state with the carriers of derived state x, ignoring
// samples with any other state. CoreCount is the number of carriers
// of x.
func NSLx(t Table, ref, x int8, gmap map[float64]float64) ([]NSLResult, error) {
	if x < 0 || x == ref {
		return nanNSL(t.NumSites()), fmt.Errorf("nslx: derived state %d with ancestral state %d: %w", x, ref, ErrInvalidAlleleCode)
	}
	return nsl(t, ref, x, gmap)
}

func nanNSL(nsites int) []NSLResult {
	out := make([]NSLResult, nsites)
	for i := range out {
		out[i] = NSLResult{NSL: math.NaN(), IHS: math.NaN()}
	}
	return out
}

// nsl computes nSL for derived state x, or for every derived state if
// x < 0.
func nsl(t Table, ref, x int8, gmap map[float64]float64) ([]NSLResult, error) {
	nsites, nsam := t.NumSites(), t.NumSamples()
	if ref < 0 {
		return nanNSL(nsites), fmt.Errorf("nsl: ancestral state unknown: %w", ErrNotComputable)
	}
	coord := make([]float64, nsites)
	for i := range coord {
		coord[i] = t.Position(i)
		if gmap != nil {
			c, ok := gmap[coord[i]]
			if !ok {
				return nanNSL(nsites), fmt.Errorf("nsl: no genetic map entry for position %v: %w", coord[i], ErrSizeMismatch)
			}
			coord[i] = c
		}
	}
	haps := make([][]int8, nsam)
	for j := range haps {
		haps[j] = make([]int8, nsites)
		for i := range haps[j] {
			haps[j][i] = t.genotype(i, j)
		}
	}
	out := make([]NSLResult, nsites)
	var anc, der []int
	for core := range out {
		anc, der = anc[:0], der[:0]
		multi := false
		for j, h := range haps {
			switch g := h[core]; {
			case g == ref:
				anc = append(anc, j)
			case g < 0:
			case x >= 0:
				if g == x {
					der = append(der, j)
				}
			default:
				if len(der) > 0 && g != haps[der[0]][core] {
					multi = true
				}
				der = append(der, j)
			}
		}
		if multi {
			out[core] = NSLResult{NSL: math.NaN(), IHS: math.NaN(), CoreCount: len(der)}
			continue
		}
		sla, ihha := homozygosity(haps, coord, core, anc)
		sld, ihhd := homozygosity(haps, coord, core, der)
		out[core] = NSLResult{
			NSL:       finiteOrNaN(math.Log(sla / sld)),
			IHS:       finiteOrNaN(math.Log(ihha / ihhd)),
			CoreCount: len(der),
		}
	}
	return out, nil
}

// homozygosity returns the mean length, in sites and in coordinate
// units, of the stretch around core shared by each pair of the given
// haplotypes. Pairs whose shared stretch reaches either end of the
// table are not counted. The means are NaN if no pair counts.
func homozygosity(haps [][]int8, coord []float64, core int, group []int) (float64, float64) {
	var sites, dist float64
	npairs := 0
	for x := 0; x < len(group); x++ {
		a := haps[group[x]]
		for y := x + 1; y < len(group); y++ {
			b := haps[group[y]]
			l := core - 1
			for l >= 0 && a[l] == b[l] {
				l--
			}
			r := core + 1
			for r < len(a) && a[r] == b[r] {
				r++
			}
			if l < 0 || r >= len(a) {
				continue
			}
			sites += float64(r - l)
			dist += coord[r] - coord[l]
			npairs++
		}
	}
	if npairs == 0 {
		return math.NaN(), math.NaN()
	}
	return sites / float64(npairs), dist / float64(npairs)
}

func finiteOrNaN(x float64) float64 {
	if math.IsInf(x, 0) {
		return math.NaN()
	}
	return x
}

// NSLBin summarizes the nSL values of the core sites whose derived
// count falls in one bin.
type NSLBin struct {
	Bin  int     `json:"bin"`
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// StandardizedNSL is an nSL value standardized within its derived
// count bin, with its two-sided normal p-value.
type StandardizedNSL struct {
	Bin int     `json:"bin"`
	Z   float64 `json:"z"`
	P   float64 `json:"p"`
}

// nslBin returns the bin of a derived count: counts in
// [(b-1)*binSize, b*binSize) belong to bin b.
func nslBin(count, binSize int) int {
	return count/binSize + 1
}

// NSLBins groups the finite nSL values whose core count is at least
// minCount into bins of binSize derived counts, and returns the mean
// and population standard deviation of each non-empty bin, in bin
// order.
func NSLBins(results []NSLResult, binSize, minCount int) ([]NSLBin, error) {
	if binSize < 1 {
		return nil, fmt.Errorf("nsl bin size %d: %w", binSize, ErrSizeMismatch)
	}
	values := map[int][]float64{}
	for _, r := range results {
		if r.CoreCount < minCount || math.IsNaN(r.NSL) {
			continue
		}
		b := nslBin(r.CoreCount, binSize)
		values[b] = append(values[b], r.NSL)
	}
	bins := make([]NSLBin, 0, len(values))
	for b, x := range values {
		mean, variance := stat.MeanVariance(x, nil)
		n := float64(len(x))
		popvar := 0.0
		if len(x) > 1 {
			popvar = variance * (n - 1) / n
		}
		bins = append(bins, NSLBin{Bin: b, N: len(x), Mean: mean, SD: math.Sqrt(popvar)})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Bin < bins[j].Bin })
	return bins, nil
}

// StandardizeNSL standardizes each nSL value against the statistics of
// its bin. The result has one entry per input; entries excluded from
// binning, or in a bin with zero spread, have NaN Z and P.
func StandardizeNSL(results []NSLResult, binSize, minCount int) ([]StandardizedNSL, []NSLBin, error) {
	bins, err := NSLBins(results, binSize, minCount)
	if err != nil {
		return nil, nil, err
	}
	bybin := make(map[int]NSLBin, len(bins))
	for _, b := range bins {
		bybin[b.Bin] = b
	}
	out := make([]StandardizedNSL, len(results))
	for i, r := range results {
		out[i] = StandardizedNSL{Bin: nslBin(r.CoreCount, binSize), Z: math.NaN(), P: math.NaN()}
		b, ok := bybin[out[i].Bin]
		if !ok || r.CoreCount < minCount || math.IsNaN(r.NSL) || b.SD == 0 {
			continue
		}
		out[i].Z = (r.NSL - b.Mean) / b.SD
		out[i].P = 2 * distuv.UnitNormal.Survival(math.Abs(out[i].Z))
	}
	return out, bins, nil
}
