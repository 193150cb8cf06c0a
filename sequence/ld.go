// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
	"sort"
)

// TwoLocusCount is the number of samples carrying state First at one
// site and state Second at another.
type TwoLocusCount struct {
	First  int8 `json:"first"`
	Second int8 `json:"second"`
	Count  int  `json:"count"`
}

// TwoLocusHaplotypeCounts returns the two-site haplotypes of sites i
// and j, sorted by state. Samples missing at either site are not
// counted.
func TwoLocusHaplotypeCounts(t Table, i, j int) ([]TwoLocusCount, error) {
	for _, site := range []int{i, j} {
		if site < 0 || site >= t.NumSites() {
			return nil, fmt.Errorf("site %d of %d: %w", site, t.NumSites(), ErrIndexOutOfRange)
		}
	}
	return twoLocus(t, i, j), nil
}

func twoLocus(t Table, i, j int) []TwoLocusCount {
	var out []TwoLocusCount
samples:
	for k := 0; k < t.NumSamples(); k++ {
		a, b := t.genotype(i, k), t.genotype(j, k)
		if a < 0 || b < 0 {
			continue
		}
		for x := range out {
			if out[x].First == a && out[x].Second == b {
				out[x].Count++
				continue samples
			}
		}
		out = append(out, TwoLocusCount{First: a, Second: b, Count: 1})
	}
	sort.Slice(out, func(x, y int) bool {
		if out[x].First != out[y].First {
			return out[x].First < out[y].First
		}
		return out[x].Second < out[y].Second
	})
	return out
}

// biallelicSites returns the indices of the sites of t with exactly
// two non-missing states.
func biallelicSites(t Table) []int {
	var out []int
	for i := 0; i < t.NumSites(); i++ {
		var seen [128]bool
		n := 0
		for k := 0; k < t.NumSamples(); k++ {
			if g := t.genotype(i, k); g >= 0 && !seen[g] {
				seen[g] = true
				n++
			}
		}
		if n == 2 {
			out = append(out, i)
		}
	}
	return out
}

// PairwiseLD holds linkage disequilibrium statistics of the sites at
// positions I and J. D and DPrime are signed relative to the minor
// state of each site (the higher code when tied).
type PairwiseLD struct {
	I      float64 `json:"i"`
	J      float64 `json:"j"`
	RSq    float64 `json:"rsq"`
	D      float64 `json:"D"`
	DPrime float64 `json:"Dprime"`
}

// LD returns the statistics of every pair of biallelic sites closer
// than maxDistance (no limit if maxDistance <= 0) whose minor states
// are each carried by at least minCount samples. Each pair is
// evaluated over the samples typed at both sites.
func LD(t Table, minCount int, maxDistance float64) []PairwiseLD {
	sites := biallelicSites(t)
	var out []PairwiseLD
	for x, i := range sites {
		for _, j := range sites[x+1:] {
			if maxDistance > 0 && t.Position(j)-t.Position(i) >= maxDistance {
				break
			}
			ld, ok := ldPair(twoLocus(t, i, j), minCount)
			if !ok {
				continue
			}
			ld.I, ld.J = t.Position(i), t.Position(j)
			out = append(out, ld)
		}
	}
	return out
}

func ldPair(counts []TwoLocusCount, minCount int) (PairwiseLD, bool) {
	var first, second [128]int
	n := 0
	for _, c := range counts {
		first[c.First] += c.Count
		second[c.Second] += c.Count
		n += c.Count
	}
	a, na, okA := minorState(first[:], minCount)
	b, nb, okB := minorState(second[:], minCount)
	if !okA || !okB {
		return PairwiseLD{}, false
	}
	nab := 0
	for _, c := range counts {
		if c.First == a && c.Second == b {
			nab = c.Count
		}
	}
	pa, pb := float64(na)/float64(n), float64(nb)/float64(n)
	d := float64(nab)/float64(n) - pa*pb
	var dmax float64
	if d > 0 {
		dmax = math.Min(pa*(1-pb), (1-pa)*pb)
	} else {
		dmax = math.Min(pa*pb, (1-pa)*(1-pb))
	}
	return PairwiseLD{
		RSq:    d * d / (pa * (1 - pa) * pb * (1 - pb)),
		D:      d,
		DPrime: d / dmax,
	}, true
}

// minorState returns the less common of exactly two observed states
// and its count. ok is false unless there are two states and the
// minor count is at least minCount.
func minorState(counts []int, minCount int) (state int8, count int, ok bool) {
	nstates := 0
	var s [2]int
	for x, c := range counts {
		if c == 0 {
			continue
		}
		if nstates == 2 {
			return 0, 0, false
		}
		s[nstates] = x
		nstates++
	}
	if nstates != 2 {
		return 0, 0, false
	}
	minor := s[1]
	if counts[s[0]] < counts[s[1]] {
		minor = s[0]
	}
	return int8(minor), counts[minor], counts[minor] >= minCount
}

// WallStats holds Wall's (1999) statistics over the biallelic sites of
// a table. Bprime is the number of adjacent congruent pairs, i.e.,
// pairs splitting the samples typed at both sites the same way.
type WallStats struct {
	B      float64 `json:"wallsb"`
	Bprime int     `json:"wallsbprime"`
	Q      float64 `json:"wallsq"`
}

// Walls returns Wall's B, B' and Q. B is B' divided by the number of
// adjacent pairs; Q adds the number of distinct congruent partitions
// to B' and divides by the number of sites.
func Walls(t Table) (WallStats, error) {
	sites := biallelicSites(t)
	S := len(sites)
	if S < 2 {
		return WallStats{B: math.NaN(), Q: math.NaN()}, fmt.Errorf("walls with %d biallelic sites: %w", S, ErrNotComputable)
	}
	var ws WallStats
	partitions := map[string]bool{}
	for k := 0; k+1 < S; k++ {
		if len(twoLocus(t, sites[k], sites[k+1])) != 2 {
			continue
		}
		ws.Bprime++
		partitions[partitionKey(t, sites[k], sites[k+1])] = true
	}
	ws.B = float64(ws.Bprime) / float64(S-1)
	ws.Q = float64(ws.Bprime+len(partitions)) / float64(S)
	return ws, nil
}

// partitionKey identifies the split of samples made by site i among
// those typed at sites i and j, independent of the state codes.
func partitionKey(t Table, i, j int) string {
	key := make([]byte, t.NumSamples())
	ref := int8(-1)
	for k := range key {
		a, b := t.genotype(i, k), t.genotype(j, k)
		switch {
		case a < 0 || b < 0:
			key[k] = '-'
		case ref < 0 || a == ref:
			ref = a
			key[k] = '0'
		default:
			key[k] = '1'
		}
	}
	return string(key)
}

// Rmin returns Hudson and Kaplan's (1985) lower bound on the number of
// recombination events: the largest number of non-overlapping
// intervals between pairs of biallelic sites that fail the four-gamete
// test. Sites with more than two states do not take part.
func Rmin(t Table) int {
	sites := biallelicSites(t)
	type span struct{ a, b int }
	var spans []span
	for x := range sites {
		for y := x + 1; y < len(sites); y++ {
			if len(twoLocus(t, sites[x], sites[y])) == 4 {
				spans = append(spans, span{x, y})
			}
		}
	}
	sort.Slice(spans, func(x, y int) bool { return spans[x].b < spans[y].b })
	n, last := 0, -1
	for _, s := range spans {
		if s.a >= last {
			n++
			last = s.b
		}
	}
	return n
}

// OmegaMax returns Kim and Nielsen's (2004) omega statistic maximized
// over the split points of t, and the position of the site at which
// the maximum occurs. For a split after site l, omega compares the mean
// r^2 of pairs on the same side with that of pairs spanning the split.
// Only sites whose minor state is carried by at least two samples are
// used as split points, and only such pairs contribute.
func OmegaMax(t Table) (omega, position float64, err error) {
	S := t.NumSites()
	ld := LD(t, 2, 0)
	if S < 3 || len(ld) == 0 {
		return math.NaN(), math.NaN(), fmt.Errorf("omega with %d sites, %d site pairs: %w", S, len(ld), ErrNotComputable)
	}
	omega, position = math.Inf(-1), math.NaN()
	for pos := 1; pos < S-1; pos++ {
		if minorCount(t, pos) < 2 {
			continue
		}
		split := t.Position(pos)
		var left, right, across float64
		for _, p := range ld {
			switch {
			case p.J <= split:
				left += p.RSq
			case p.I > split:
				right += p.RSq
			default:
				across += p.RSq
			}
		}
		l, r := float64(pos+1), float64(S-pos-1)
		num := (left + right) / (l*(l-1)/2 + r*(r-1)/2)
		den := across / (l * r)
		if w := num / den; !math.IsInf(w, 0) && !math.IsNaN(w) && w > omega {
			omega, position = w, split
		}
	}
	if math.IsInf(omega, -1) {
		return math.NaN(), math.NaN(), fmt.Errorf("omega undefined at every split: %w", ErrNotComputable)
	}
	return omega, position, nil
}

// minorCount returns the number of typed samples not carrying the most
// common state at site i.
func minorCount(t Table, i int) int {
	var counts [128]int
	n, max := 0, 0
	for k := 0; k < t.NumSamples(); k++ {
		if g := t.genotype(i, k); g >= 0 {
			counts[g]++
			n++
			if counts[g] > max {
				max = counts[g]
			}
		}
	}
	return n - max
}
