// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"errors"
	"fmt"
	"math"
)

// Classic holds the site-frequency summary statistics of one table.
// Fields that could not be computed are NaN (or -1 for counts).
type Classic struct {
	ThetaPi            float64 `json:"thetapi"`
	ThetaW             float64 `json:"thetaw"`
	ThetaH             float64 `json:"thetah"`
	ThetaL             float64 `json:"thetal"`
	TajimasD           float64 `json:"tajd"`
	FayWuH             float64 `json:"faywuh"`
	Hprime             float64 `json:"hprime"`
	FuLiD              float64 `json:"fulid"`
	FuLiDStar          float64 `json:"fulidstar"`
	FuLiF              float64 `json:"fulif"`
	FuLiFStar          float64 `json:"fulifstar"`
	NumPoly            int     `json:"S"`
	NumMutations       int     `json:"nmuts"`
	NumBiallelic       int     `json:"nbiallelic"`
	Singletons         int     `json:"singletons"`
	ExternalSingletons int     `json:"dsingletons"`
}

// CountTable returns the allele counts of every site of t.
func CountTable(t Table) *AlleleCountMatrix {
	if m, ok := t.(*VariantMatrix); ok {
		ac, err := CountAlleles(m)
		if err == nil {
			return ac
		}
	}
	nrow, nsam := t.NumSites(), t.NumSamples()
	max := int8(1)
	for i := 0; i < nrow; i++ {
		for j := 0; j < nsam; j++ {
			if x := t.genotype(i, j); x > max {
				max = x
			}
		}
	}
	ncol := int(max) + 1
	ac := &AlleleCountMatrix{counts: make([]int32, nrow*ncol), nrow: nrow, ncol: ncol, nsam: nsam}
	for i := 0; i < nrow; i++ {
		row := ac.row(i)
		for j := 0; j < nsam; j++ {
			if x := t.genotype(i, j); x >= 0 {
				row[x]++
			}
		}
	}
	return ac
}

// Summarize computes every Classic statistic of t, using the table's
// own ancestral state. If any statistic is undefined, the returned
// error wraps ErrNotComputable and the record holds NaN there.
func Summarize(t Table) (Classic, error) {
	return SummarizeCounts(CountTable(t), t.refState())
}

// SummarizeRaw is like Summarize, but never returns an error.
func SummarizeRaw(t Table) Classic {
	s, _ := Summarize(t)
	return s
}

// SummarizeCounts computes every Classic statistic from allele counts,
// treating allele ref as ancestral. ref < 0 means the ancestral state
// is unknown, so the derived-allele statistics are not computable.
func SummarizeCounts(ac *AlleleCountMatrix, ref int8) (Classic, error) {
	var errs []error
	orNaN := func(x float64, err error) float64 {
		if err != nil {
			errs = append(errs, err)
			return math.NaN()
		}
		return x
	}
	s := Classic{
		ThetaPi:      ThetaPi(ac),
		ThetaW:       ThetaW(ac),
		ThetaH:       orNaN(ThetaH(ac, ref)),
		ThetaL:       orNaN(ThetaL(ac, ref)),
		TajimasD:     orNaN(TajimasD(ac)),
		FayWuH:       orNaN(FayWuH(ac, ref)),
		Hprime:       orNaN(Hprime(ac, ref)),
		FuLiD:        orNaN(FuLiD(ac, ref)),
		FuLiDStar:    orNaN(FuLiDStar(ac)),
		FuLiF:        orNaN(FuLiF(ac, ref)),
		FuLiFStar:    orNaN(FuLiFStar(ac)),
		NumPoly:      NumPoly(ac),
		NumMutations: NumMutations(ac),
		NumBiallelic: NumBiallelic(ac),
		Singletons:   NumSingletons(ac),
	}
	var err error
	s.ExternalSingletons, err = NumExternalSingletons(ac, ref)
	if err != nil {
		errs = append(errs, err)
		s.ExternalSingletons = -1
	}
	return s, errors.Join(errs...)
}

// siteSummary is the per-row input of every frequency statistic.
type siteSummary struct {
	n       int // non-missing samples
	nstates int
}

func (ac *AlleleCountMatrix) summary(i int) siteSummary {
	var s siteSummary
	for _, c := range ac.row(i) {
		if c > 0 {
			s.n += int(c)
			s.nstates++
		}
	}
	return s
}

func checkRef(ac *AlleleCountMatrix, ref int8) error {
	if ref < 0 {
		return fmt.Errorf("ancestral state unknown: %w", ErrNotComputable)
	}
	if int(ref) >= ac.ncol {
		return fmt.Errorf("ancestral state %d with %d allele columns: %w", ref, ac.ncol, ErrInvalidAlleleCode)
	}
	return nil
}

// harmonic returns sum(1/i) and sum(1/i^2) for i in [1, n).
func harmonic(n int) (a1, a2 float64) {
	for i := 1; i < n; i++ {
		a1 += 1 / float64(i)
		a2 += 1 / float64(i*i)
	}
	return
}

// ThetaPi returns the mean number of pairwise differences, summed over
// sites. Each site uses its own non-missing sample size.
func ThetaPi(ac *AlleleCountMatrix) float64 {
	pi := 0.0
	for i := 0; i < ac.nrow; i++ {
		n := ac.summary(i).n
		if n < 2 {
			continue
		}
		sumsq := 0.0
		for _, c := range ac.row(i) {
			sumsq += float64(c) * float64(c)
		}
		pi += (float64(n)*float64(n) - sumsq) / float64(n*(n-1))
	}
	return pi
}

// ThetaW returns Watterson's estimator, counting k-1 mutations at a
// site with k states.
func ThetaW(ac *AlleleCountMatrix) float64 {
	w := 0.0
	for i := 0; i < ac.nrow; i++ {
		s := ac.summary(i)
		if s.n < 2 || s.nstates < 2 {
			continue
		}
		a1, _ := harmonic(s.n)
		w += float64(s.nstates-1) / a1
	}
	return w
}

// ThetaH returns Fay and Wu's estimator from the derived allele counts
// of segregating sites.
func ThetaH(ac *AlleleCountMatrix, ref int8) (float64, error) {
	if err := checkRef(ac, ref); err != nil {
		return math.NaN(), fmt.Errorf("thetaH: %w", err)
	}
	h := 0.0
	for i := 0; i < ac.nrow; i++ {
		s := ac.summary(i)
		if s.n < 2 || s.nstates < 2 {
			continue
		}
		n := s.n
		for a, c := range ac.row(i) {
			if a != int(ref) && c > 0 {
				h += 2 * float64(c) * float64(c) / float64(n*(n-1))
			}
		}
	}
	return h, nil
}

// ThetaL returns Zeng's estimator from the derived allele counts of
// segregating sites.
func ThetaL(ac *AlleleCountMatrix, ref int8) (float64, error) {
	if err := checkRef(ac, ref); err != nil {
		return math.NaN(), fmt.Errorf("thetaL: %w", err)
	}
	l := 0.0
	for i := 0; i < ac.nrow; i++ {
		s := ac.summary(i)
		if s.n < 2 || s.nstates < 2 {
			continue
		}
		n := s.n
		for a, c := range ac.row(i) {
			if a != int(ref) && c > 0 {
				l += float64(c) / float64(n-1)
			}
		}
	}
	return l, nil
}

// TajimasD returns Tajima's D using the sample size of ac.
func TajimasD(ac *AlleleCountMatrix) (float64, error) {
	S := float64(NumMutations(ac))
	n := float64(ac.nsam)
	if S == 0 || ac.nsam < 2 {
		return math.NaN(), fmt.Errorf("tajd with %v mutations in %d samples: %w", S, ac.nsam, ErrNotComputable)
	}
	a1, a2 := harmonic(ac.nsam)
	b1 := (n + 1) / (3 * (n - 1))
	b2 := 2 * (n*n + n + 3) / (9 * n * (n - 1))
	c1 := b1 - 1/a1
	c2 := b2 - (n+2)/(a1*n) + a2/(a1*a1)
	e1 := c1 / a1
	e2 := c2 / (a1*a1 + a2)
	v := e1*S + e2*S*(S-1)
	if !(v > 0) {
		return math.NaN(), fmt.Errorf("tajd variance %v: %w", v, ErrNotComputable)
	}
	return (ThetaPi(ac) - S/a1) / math.Sqrt(v), nil
}

// FayWuH returns thetaPi - thetaH.
func FayWuH(ac *AlleleCountMatrix, ref int8) (float64, error) {
	h, err := ThetaH(ac, ref)
	if err != nil {
		return math.NaN(), err
	}
	return ThetaPi(ac) - h, nil
}

// Hprime returns Fay and Wu's H normalized as in Zeng et al. (2006).
func Hprime(ac *AlleleCountMatrix, ref int8) (float64, error) {
	l, err := ThetaL(ac, ref)
	if err != nil {
		return math.NaN(), err
	}
	S := float64(NumMutations(ac))
	if S == 0 || ac.nsam < 3 {
		return math.NaN(), fmt.Errorf("hprime with %v mutations in %d samples: %w", S, ac.nsam, ErrNotComputable)
	}
	n := float64(ac.nsam)
	a1, bn := harmonic(ac.nsam)
	bn1 := bn + 1/(n*n)
	theta := S / a1
	theta2 := S * (S - 1) / (a1*a1 + bn)
	v := (n-2)/(6*(n-1))*theta +
		(18*n*n*(3*n+2)*bn1-(88*n*n*n+9*n*n-13*n+6))/(9*n*(n-1)*(n-1))*theta2
	if !(v > 0) {
		return math.NaN(), fmt.Errorf("hprime variance %v: %w", v, ErrNotComputable)
	}
	return (ThetaPi(ac) - l) / math.Sqrt(v), nil
}

// NumPoly returns the number of sites with more than one state.
func NumPoly(ac *AlleleCountMatrix) int {
	s := 0
	for i := 0; i < ac.nrow; i++ {
		if ac.summary(i).nstates > 1 {
			s++
		}
	}
	return s
}

// NumMutations returns the sum over sites of the number of states
// minus one.
func NumMutations(ac *AlleleCountMatrix) int {
	s := 0
	for i := 0; i < ac.nrow; i++ {
		if k := ac.summary(i).nstates; k > 1 {
			s += k - 1
		}
	}
	return s
}

// NumBiallelic returns the number of sites with exactly two states.
func NumBiallelic(ac *AlleleCountMatrix) int {
	s := 0
	for i := 0; i < ac.nrow; i++ {
		if ac.summary(i).nstates == 2 {
			s++
		}
	}
	return s
}

// NumSingletons returns the number of alleles, over all sites, carried
// by exactly one sample.
func NumSingletons(ac *AlleleCountMatrix) int {
	s := 0
	for i := 0; i < ac.nrow; i++ {
		if ac.summary(i).nstates < 2 {
			continue
		}
		for _, c := range ac.row(i) {
			if c == 1 {
				s++
			}
		}
	}
	return s
}

// NumExternalSingletons returns the number of derived alleles carried
// by exactly one sample.
func NumExternalSingletons(ac *AlleleCountMatrix, ref int8) (int, error) {
	if err := checkRef(ac, ref); err != nil {
		return -1, fmt.Errorf("external singletons: %w", err)
	}
	s := 0
	for i := 0; i < ac.nrow; i++ {
		if ac.summary(i).nstates < 2 {
			continue
		}
		for a, c := range ac.row(i) {
			if a != int(ref) && c == 1 {
				s++
			}
		}
	}
	return s, nil
}
