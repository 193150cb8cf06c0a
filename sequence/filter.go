// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

// SitePredicate decides whether a site should be dropped.
type SitePredicate func(View) bool

// FilterSites removes, in place, every site for which drop returns
// true, and returns the number of sites removed. drop is called once
// per site, in order, and surviving sites keep their order. All views
// previously issued by m become invalid.
//
// If m was created by WrapVariantMatrix, the wrapped buffers are
// modified.
func FilterSites(m *VariantMatrix, drop SitePredicate) int {
	nsites, nsam := len(m.positions), m.nsam
	keep := 0
	for i := 0; i < nsites; i++ {
		if drop(View{m: m, gen: m.gen, offset: i * nsam, stride: 1, n: nsam}) {
			continue
		}
		if keep != i {
			copy(m.data[keep*nsam:(keep+1)*nsam], m.data[i*nsam:(i+1)*nsam])
			m.positions[keep] = m.positions[i]
		}
		keep++
	}
	m.data = m.data[:keep*nsam]
	m.positions = m.positions[:keep]
	m.gen++
	return nsites - keep
}

// FilterHaplotypes removes, in place, every sample for which drop
// returns true, and returns the number of samples removed. drop sees
// each sample's view in order. All views previously issued by m become
// invalid.
func FilterHaplotypes(m *VariantMatrix, drop SitePredicate) int {
	nsites, nsam := len(m.positions), m.nsam
	var keep []int
	for j := 0; j < nsam; j++ {
		if !drop(View{m: m, gen: m.gen, offset: j, stride: nsam, n: nsites}) {
			keep = append(keep, j)
		}
	}
	if len(keep) < nsam {
		out := 0
		for i := 0; i < nsites; i++ {
			for _, j := range keep {
				m.data[out] = m.data[i*nsam+j]
				out++
			}
		}
		m.data = m.data[:out]
		m.nsam = len(keep)
	}
	m.gen++
	return nsam - len(keep)
}

// StateCounts tallies the genotype codes of one site.
type StateCounts struct {
	// Counts[x] is the number of samples with code x.
	Counts []int32
	// RefState is the reference (ancestral) code, or Missing if
	// unknown.
	RefState int8
	// N is the number of non-missing genotypes; NMissing the rest.
	N        int
	NMissing int
}

// NewStateCounts returns an empty tally relative to refstate.
func NewStateCounts(refstate int8) *StateCounts {
	return &StateCounts{RefState: refstate}
}

// Tally replaces the current counts with those of v.
func (sc *StateCounts) Tally(v View) error {
	if err := v.check(); err != nil {
		return err
	}
	sc.reset()
	v.each(func(_ int, x int8) { sc.add(x) })
	return nil
}

func (sc *StateCounts) reset() {
	for i := range sc.Counts {
		sc.Counts[i] = 0
	}
	sc.N, sc.NMissing = 0, 0
}

func (sc *StateCounts) add(x int8) {
	if x < 0 {
		sc.NMissing++
		return
	}
	for int(x) >= len(sc.Counts) {
		sc.Counts = append(sc.Counts, 0)
	}
	sc.Counts[x]++
	sc.N++
}

// NumStates returns the number of distinct non-missing codes.
func (sc *StateCounts) NumStates() int {
	n := 0
	for _, c := range sc.Counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// Derived returns the number of non-missing genotypes that differ from
// the reference state, or -1 if there is no reference state.
func (sc *StateCounts) Derived() int {
	if sc.RefState < 0 {
		return -1
	}
	if int(sc.RefState) >= len(sc.Counts) {
		return sc.N
	}
	return sc.N - int(sc.Counts[sc.RefState])
}

func tally(v View) *StateCounts {
	sc := NewStateCounts(0)
	v.each(func(_ int, x int8) { sc.add(x) })
	return sc
}

// Monomorphic drops sites with fewer than two observed states.
func Monomorphic(v View) bool {
	return tally(v).NumStates() < 2
}

// MultiAllelic drops sites with more than two observed states.
func MultiAllelic(v View) bool {
	return tally(v).NumStates() > 2
}

// Singleton drops biallelic sites where one state is observed exactly
// once.
func Singleton(v View) bool {
	sc := tally(v)
	if sc.NumStates() != 2 {
		return false
	}
	for _, c := range sc.Counts {
		if c == 1 {
			return true
		}
	}
	return false
}

// MissingAbove returns a predicate that drops sites where more than
// the given fraction of genotypes are missing.
func MissingAbove(frac float64) SitePredicate {
	return func(v View) bool {
		if v.Len() == 0 {
			return false
		}
		return float64(tally(v).NMissing) > frac*float64(v.Len())
	}
}

// Any returns a predicate that drops a site if any of preds does.
func Any(preds ...SitePredicate) SitePredicate {
	return func(v View) bool {
		for _, pred := range preds {
			if pred(v) {
				return true
			}
		}
		return false
	}
}

// Not inverts pred.
func Not(pred SitePredicate) SitePredicate {
	return func(v View) bool { return !pred(v) }
}
