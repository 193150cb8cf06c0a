// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// GarudStats holds the haplotype homozygosity statistics of Garud et
// al. (2015).
type GarudStats struct {
	H1   float64 `json:"H1"`
	H12  float64 `json:"H12"`
	H2H1 float64 `json:"H2H1"`
}

// HaplotypeCounts returns the number of samples carrying each distinct
// haplotype of t, largest first. Missing genotypes are part of the
// haplotype, so two samples differing only by missing data are
// distinct.
func HaplotypeCounts(t Table) []int {
	nsites, nsam := t.NumSites(), t.NumSamples()
	count := make(map[[blake2b.Size256]byte]int, nsam)
	buf := make([]byte, nsites)
	for j := 0; j < nsam; j++ {
		for i := 0; i < nsites; i++ {
			buf[i] = byte(t.genotype(i, j))
		}
		count[blake2b.Sum256(buf)]++
	}
	counts := make([]int, 0, len(count))
	for _, n := range count {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	return counts
}

// NumHaplotypes returns the number of distinct haplotypes in t.
func NumHaplotypes(t Table) int {
	return len(HaplotypeCounts(t))
}

// HaplotypeDiversity returns the unbiased probability that two samples
// carry different haplotypes.
func HaplotypeDiversity(t Table) (float64, error) {
	n := t.NumSamples()
	if n < 2 {
		return 0, fmt.Errorf("haplotype diversity of %d samples: %w", n, ErrNotComputable)
	}
	sumsq := 0.0
	for _, c := range HaplotypeCounts(t) {
		p := float64(c) / float64(n)
		sumsq += p * p
	}
	return float64(n) / float64(n-1) * (1 - sumsq), nil
}

// Garud returns H1, H12, and H2/H1 of the haplotype frequency spectrum
// of t.
func Garud(t Table) (GarudStats, error) {
	n := t.NumSamples()
	if n == 0 {
		return GarudStats{}, fmt.Errorf("garud statistics of 0 samples: %w", ErrNotComputable)
	}
	counts := HaplotypeCounts(t)
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = float64(c) / float64(n)
	}
	var s GarudStats
	for _, x := range p {
		s.H1 += x * x
	}
	s.H12 = s.H1
	if len(p) > 1 {
		s.H12 += 2 * p[0] * p[1]
	}
	s.H2H1 = (s.H1 - p[0]*p[0]) / s.H1
	return s, nil
}

// LHaf returns the l-HAF score of each sample (Ronen et al. 2015): the
// sum, over the sites where the sample carries a derived state, of the
// number of samples carrying that state raised to the power l. The
// table must have a known ancestral state.
func LHaf(t Table, l float64) ([]float64, error) {
	ref := t.refState()
	if ref < 0 {
		return nil, fmt.Errorf("lhaf without ancestral state: %w", ErrNotComputable)
	}
	nsam := t.NumSamples()
	out := make([]float64, nsam)
	var counts [128]int
	for i := 0; i < t.NumSites(); i++ {
		counts = [128]int{}
		for j := 0; j < nsam; j++ {
			if g := t.genotype(i, j); g >= 0 {
				counts[g]++
			}
		}
		for j := 0; j < nsam; j++ {
			if g := t.genotype(i, j); g >= 0 && g != ref {
				out[j] += math.Pow(float64(counts[g]), l)
			}
		}
	}
	return out, nil
}

// LabelHaplotypes numbers the distinct haplotypes of t in order of
// first appearance and returns each sample's label. Samples with any
// missing genotype get -1.
func LabelHaplotypes(t Table) []int {
	nsites, nsam := t.NumSites(), t.NumSamples()
	labels := make([]int, nsam)
	seen := make(map[[blake2b.Size256]byte]int, nsam)
	buf := make([]byte, nsites)
samples:
	for j := 0; j < nsam; j++ {
		for i := 0; i < nsites; i++ {
			g := t.genotype(i, j)
			if g < 0 {
				labels[j] = -1
				continue samples
			}
			buf[i] = byte(g)
		}
		key := blake2b.Sum256(buf)
		label, ok := seen[key]
		if !ok {
			label = len(seen)
			seen[key] = label
		}
		labels[j] = label
	}
	return labels
}

// DifferenceMatrix returns the number of sites at which each pair of
// samples j < k carry different states, in the order (0,1), (0,2),
// ..., (1,2), ... Sites where either sample is missing are not
// compared.
func DifferenceMatrix(t Table) []int {
	nsam := t.NumSamples()
	out := make([]int, 0, nsam*(nsam-1)/2)
	for j := 0; j < nsam; j++ {
		for k := j + 1; k < nsam; k++ {
			d := 0
			for i := 0; i < t.NumSites(); i++ {
				a, b := t.genotype(i, j), t.genotype(i, k)
				if a >= 0 && b >= 0 && a != b {
					d++
				}
			}
			out = append(out, d)
		}
	}
	return out
}
