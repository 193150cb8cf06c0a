// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Fst compares populations of consecutive samples of a table. The
// first sizes[0] samples form population 0, the next sizes[1]
// population 1, and so on; remaining samples are ignored.
type Fst struct {
	t       Table
	members [][]int
	weights []float64
}

// NewFst partitions the samples of t. weights, if not nil, gives the
// relative weight of each population in PiS and PiT; by default
// populations are weighted by size.
func NewFst(t Table, sizes []int, weights []float64) (*Fst, error) {
	total := 0
	for i, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("population %d has size %d: %w", i, n, ErrSizeMismatch)
		}
		total += n
	}
	if total > t.NumSamples() {
		return nil, fmt.Errorf("population sizes sum to %d with %d samples: %w", total, t.NumSamples(), ErrSizeMismatch)
	}
	if weights != nil && len(weights) != len(sizes) {
		return nil, fmt.Errorf("%d weights for %d populations: %w", len(weights), len(sizes), ErrSizeMismatch)
	}
	f := &Fst{t: t, members: make([][]int, len(sizes))}
	next := 0
	for i, n := range sizes {
		for k := 0; k < n; k++ {
			f.members[i] = append(f.members[i], next)
			next++
		}
	}
	if weights == nil {
		weights = make([]float64, len(sizes))
		for i, n := range sizes {
			weights[i] = float64(n)
		}
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative population weight %v: %w", w, ErrSizeMismatch)
		}
		sum += w
	}
	f.weights = make([]float64, len(weights))
	for i, w := range weights {
		if sum > 0 {
			f.weights[i] = w / sum
		}
	}
	return f, nil
}

func (f *Fst) NumPopulations() int { return len(f.members) }

func (f *Fst) checkPair(i, j int) error {
	for _, p := range []int{i, j} {
		if p < 0 || p >= len(f.members) {
			return fmt.Errorf("population %d of %d: %w", p, len(f.members), ErrIndexOutOfRange)
		}
	}
	return nil
}

// popState describes one population at one site.
type popState struct {
	nstates int
	state   int8 // the only state, if nstates == 1
}

func (f *Fst) state(pop, site int) popState {
	var s popState
	var seen [128]bool
	for _, j := range f.members[pop] {
		x := f.t.genotype(site, j)
		if x < 0 || seen[x] {
			continue
		}
		seen[x] = true
		s.nstates++
		s.state = x
	}
	return s
}

// Shared returns the positions polymorphic in both populations i and
// j.
func (f *Fst) Shared(i, j int) ([]float64, error) {
	if err := f.checkPair(i, j); err != nil {
		return nil, err
	}
	var out []float64
	for site := 0; site < f.t.NumSites(); site++ {
		if f.state(i, site).nstates > 1 && f.state(j, site).nstates > 1 {
			out = append(out, f.t.Position(site))
		}
	}
	return out, nil
}

// Private returns the positions polymorphic in population i but
// monomorphic in j, and those polymorphic in j but monomorphic in i.
func (f *Fst) Private(i, j int) ([]float64, []float64, error) {
	if err := f.checkPair(i, j); err != nil {
		return nil, nil, err
	}
	var pi, pj []float64
	for site := 0; site < f.t.NumSites(); site++ {
		si, sj := f.state(i, site), f.state(j, site)
		switch {
		case si.nstates > 1 && sj.nstates == 1:
			pi = append(pi, f.t.Position(site))
		case sj.nstates > 1 && si.nstates == 1:
			pj = append(pj, f.t.Position(site))
		}
	}
	return pi, pj, nil
}

// Fixed returns the positions where populations i and j are each
// monomorphic for different states.
func (f *Fst) Fixed(i, j int) ([]float64, error) {
	if err := f.checkPair(i, j); err != nil {
		return nil, err
	}
	var out []float64
	for site := 0; site < f.t.NumSites(); site++ {
		si, sj := f.state(i, site), f.state(j, site)
		if si.nstates == 1 && sj.nstates == 1 && si.state != sj.state {
			out = append(out, f.t.Position(site))
		}
	}
	return out, nil
}

// counts returns the allele counts of population pop at site.
func (f *Fst) counts(pop, site int, buf []int) ([]int, int) {
	for k := range buf {
		buf[k] = 0
	}
	n := 0
	for _, j := range f.members[pop] {
		x := f.t.genotype(site, j)
		if x < 0 {
			continue
		}
		for int(x) >= len(buf) {
			buf = append(buf, 0)
		}
		buf[x]++
		n++
	}
	return buf, n
}

// piWithin returns the mean number of pairwise differences among the
// samples of pop.
func (f *Fst) piWithin(pop int) (float64, error) {
	if len(f.members[pop]) < 2 {
		return 0, fmt.Errorf("diversity of population %d with %d samples: %w", pop, len(f.members[pop]), ErrNotComputable)
	}
	pi := 0.0
	var buf []int
	for site := 0; site < f.t.NumSites(); site++ {
		var n int
		buf, n = f.counts(pop, site, buf)
		if n < 2 {
			continue
		}
		sumsq := 0.0
		for _, c := range buf {
			sumsq += float64(c) * float64(c)
		}
		pi += (float64(n)*float64(n) - sumsq) / float64(n*(n-1))
	}
	return pi, nil
}

// PiB returns the mean number of differences between a sample of
// population i and a sample of population j.
func (f *Fst) PiB(i, j int) (float64, error) {
	if err := f.checkPair(i, j); err != nil {
		return 0, err
	}
	pi := 0.0
	var bi, bj []int
	for site := 0; site < f.t.NumSites(); site++ {
		var ni, nj int
		bi, ni = f.counts(i, site, bi)
		bj, nj = f.counts(j, site, bj)
		if ni == 0 || nj == 0 {
			continue
		}
		same := 0.0
		for k := 0; k < len(bi) && k < len(bj); k++ {
			same += float64(bi[k]) * float64(bj[k])
		}
		pi += 1 - same/float64(ni*nj)
	}
	return pi, nil
}

// PiS returns the weighted mean within-population diversity.
func (f *Fst) PiS() (float64, error) {
	s := 0.0
	for pop, w := range f.weights {
		if w == 0 {
			continue
		}
		pi, err := f.piWithin(pop)
		if err != nil {
			return 0, err
		}
		s += w * pi
	}
	return s, nil
}

// PiT returns the total diversity: the weighted mean of within- and
// between-population diversity over all pairs of populations.
func (f *Fst) PiT() (float64, error) {
	t := 0.0
	for i, wi := range f.weights {
		for j, wj := range f.weights {
			if wi == 0 || wj == 0 {
				continue
			}
			var pi float64
			var err error
			if i == j {
				pi, err = f.piWithin(i)
			} else {
				pi, err = f.PiB(i, j)
			}
			if err != nil {
				return 0, err
			}
			t += wi * wj * pi
		}
	}
	return t, nil
}

// HSM returns 1 - PiS/PiT (Hudson, Slatkin and Maddison 1992).
func (f *Fst) HSM() (float64, error) {
	pis, err := f.PiS()
	if err != nil {
		return 0, err
	}
	pit, err := f.PiT()
	if err != nil {
		return 0, err
	}
	if pit == 0 {
		return 0, fmt.Errorf("hsm with no total diversity: %w", ErrNotComputable)
	}
	return 1 - pis/pit, nil
}

// PermutationTest returns the observed HSM and the fraction of n
// random reassignments of the partitioned samples to populations (of
// the same sizes) whose HSM is at least the observed value, counting
// the observed assignment itself.
func (f *Fst) PermutationTest(src rand.Source, n int) (observed, p float64, err error) {
	observed, err = f.HSM()
	if err != nil {
		return 0, 0, err
	}
	var pooled []int
	for _, m := range f.members {
		pooled = append(pooled, m...)
	}
	rnd := rand.New(src)
	perm := &Fst{t: f.t, weights: f.weights, members: make([][]int, len(f.members))}
	hits := 1
	for rep := 0; rep < n; rep++ {
		rnd.Shuffle(len(pooled), func(a, b int) { pooled[a], pooled[b] = pooled[b], pooled[a] })
		next := 0
		for i, m := range f.members {
			perm.members[i] = pooled[next : next+len(m)]
			next += len(m)
		}
		h, err := perm.HSM()
		if err != nil {
			return 0, 0, err
		}
		if h >= observed {
			hits++
		}
	}
	return observed, float64(hits) / float64(n+1), nil
}

// Slatkin returns (PiT - PiS)/(PiT + PiS) (Slatkin 1991).
func (f *Fst) Slatkin() (float64, error) {
	pis, err := f.PiS()
	if err != nil {
		return 0, err
	}
	pit, err := f.PiT()
	if err != nil {
		return 0, err
	}
	if pit+pis == 0 {
		return 0, fmt.Errorf("slatkin with no diversity: %w", ErrNotComputable)
	}
	return (pit - pis) / (pit + pis), nil
}

// HBK returns 1 - PiS/PiB, where PiB is averaged over every ordered
// pair of distinct populations using the product of their weights
// (Hudson, Boos and Kaplan 1992).
func (f *Fst) HBK() (float64, error) {
	pis, err := f.PiS()
	if err != nil {
		return 0, err
	}
	between, wsum := 0.0, 0.0
	for i, wi := range f.weights {
		for j, wj := range f.weights {
			if i == j || wi == 0 || wj == 0 {
				continue
			}
			pib, err := f.PiB(i, j)
			if err != nil {
				return 0, err
			}
			between += wi * wj * pib
			wsum += wi * wj
		}
	}
	if wsum == 0 || between == 0 {
		return 0, fmt.Errorf("hbk with no between-population diversity: %w", ErrNotComputable)
	}
	return 1 - pis/(between/wsum), nil
}

// PiD returns Nei's net divergence between populations i and j: PiB
// less the mean of their within-population diversities.
func (f *Fst) PiD(i, j int) (float64, error) {
	pib, err := f.PiB(i, j)
	if err != nil {
		return 0, err
	}
	pii, err := f.piWithin(i)
	if err != nil {
		return 0, err
	}
	pij, err := f.piWithin(j)
	if err != nil {
		return 0, err
	}
	return pib - (pii+pij)/2, nil
}
