// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"math"
	"strings"
)

// Table is the read-only site-by-sample interface shared by
// VariantMatrix and PolyTable. The statistic functions accept any
// Table.
type Table interface {
	NumSites() int
	NumSamples() int
	Position(i int) float64

	genotype(site, sample int) int8
	refState() int8
}

var (
	_ Table = (*VariantMatrix)(nil)
	_ Table = (*PolyTable)(nil)
)

// Kind distinguishes binary (0/1) tables from nucleotide tables.
type Kind int

const (
	// SimData holds 0/1 haplotypes with 0 ancestral.
	SimData Kind = iota
	// PolySites holds nucleotide haplotypes with unknown ancestral
	// state.
	PolySites
)

func (k Kind) String() string {
	if k == SimData {
		return "SimData"
	}
	return "PolySites"
}

// Site is one column of a PolyTable: a position and the state of each
// sample there.
type Site struct {
	Position float64
	States   string
}

// PolyTable holds one haplotype string per sample, with character i
// of every haplotype at Position(i).
type PolyTable struct {
	kind      Kind
	positions []float64
	haps      []string
}

// NewPolyTable returns a table with the given positions and
// haplotypes. Every haplotype must have len(positions) characters.
func NewPolyTable(kind Kind, positions []float64, haplotypes []string) (*PolyTable, error) {
	for i, h := range haplotypes {
		if len(h) != len(positions) {
			return nil, fmt.Errorf("haplotype %d has %d sites, expected %d: %w", i, len(h), len(positions), ErrSizeMismatch)
		}
	}
	if err := checkPositions(positions); err != nil {
		return nil, err
	}
	return &PolyTable{
		kind:      kind,
		positions: append([]float64(nil), positions...),
		haps:      append([]string(nil), haplotypes...),
	}, nil
}

// PolyTableFromSites returns a table built from per-site state
// columns. Every column must have the same number of samples.
func PolyTableFromSites(kind Kind, sites []Site) (*PolyTable, error) {
	positions := make([]float64, len(sites))
	nsam := 0
	if len(sites) > 0 {
		nsam = len(sites[0].States)
	}
	haps := make([][]byte, nsam)
	for j := range haps {
		haps[j] = make([]byte, len(sites))
	}
	for i, site := range sites {
		if len(site.States) != nsam {
			return nil, fmt.Errorf("site %d at %v has %d states, expected %d: %w", i, site.Position, len(site.States), nsam, ErrSizeMismatch)
		}
		positions[i] = site.Position
		for j := 0; j < nsam; j++ {
			haps[j][i] = site.States[j]
		}
	}
	if err := checkPositions(positions); err != nil {
		return nil, err
	}
	t := &PolyTable{kind: kind, positions: positions, haps: make([]string, nsam)}
	for j, h := range haps {
		t.haps[j] = string(h)
	}
	return t, nil
}

func checkPositions(positions []float64) error {
	for i, p := range positions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("position %d is %v: %w", i, p, ErrShape)
		}
		if i > 0 && p < positions[i-1] {
			return fmt.Errorf("positions not sorted at index %d: %w", i, ErrShape)
		}
	}
	return nil
}

func (t *PolyTable) Kind() Kind             { return t.kind }
func (t *PolyTable) NumSites() int          { return len(t.positions) }
func (t *PolyTable) NumSamples() int        { return len(t.haps) }
func (t *PolyTable) Position(i int) float64 { return t.positions[i] }
func (t *PolyTable) Positions() []float64   { return append([]float64(nil), t.positions...) }
func (t *PolyTable) Haplotypes() []string   { return append([]string(nil), t.haps...) }

// Haplotype returns the states of sample i.
func (t *PolyTable) Haplotype(i int) (string, error) {
	if i < 0 || i >= len(t.haps) {
		return "", fmt.Errorf("haplotype %d of %d: %w", i, len(t.haps), ErrIndexOutOfRange)
	}
	return t.haps[i], nil
}

// Site returns the states of every sample at site i.
func (t *PolyTable) Site(i int) (Site, error) {
	if i < 0 || i >= len(t.positions) {
		return Site{}, fmt.Errorf("site %d of %d: %w", i, len(t.positions), ErrIndexOutOfRange)
	}
	col := make([]byte, len(t.haps))
	for j, h := range t.haps {
		col[j] = h[i]
	}
	return Site{Position: t.positions[i], States: string(col)}, nil
}

// Window returns a table of the same kind containing the sites with
// lo <= position <= hi.
func (t *PolyTable) Window(lo, hi float64) *PolyTable {
	start, end := siteBounds(len(t.positions), t.Position, lo, hi)
	w := &PolyTable{
		kind:      t.kind,
		positions: append([]float64(nil), t.positions[start:end]...),
		haps:      make([]string, len(t.haps)),
	}
	for j, h := range t.haps {
		w.haps[j] = h[start:end]
	}
	return w
}

// Valid reports whether every character is a nucleotide, 0/1, N, or
// a gap.
func (t *PolyTable) Valid() bool {
	for _, h := range t.haps {
		for i := 0; i < len(h); i++ {
			if !strings.ContainsRune("ACGTN01-", rune(upper(h[i]))) {
				return false
			}
		}
	}
	return true
}

// StateCounter tallies the characters of one PolyTable column.
type StateCounter struct {
	A, C, G, T int
	Zero, One  int
	N, Gap     int
	Other      int
}

func countColumn(t *PolyTable, i int) StateCounter {
	var sc StateCounter
	for _, h := range t.haps {
		sc.add(h[i])
	}
	return sc
}

func (sc *StateCounter) add(c byte) {
	switch upper(c) {
	case 'A':
		sc.A++
	case 'C':
		sc.C++
	case 'G':
		sc.G++
	case 'T':
		sc.T++
	case '0':
		sc.Zero++
	case '1':
		sc.One++
	case 'N':
		sc.N++
	case '-':
		sc.Gap++
	default:
		sc.Other++
	}
}

// NumStates returns the number of distinct nucleotide or 0/1 states.
func (sc StateCounter) NumStates() int {
	n := 0
	for _, c := range []int{sc.A, sc.C, sc.G, sc.T, sc.Zero, sc.One} {
		if c > 0 {
			n++
		}
	}
	return n
}

// RemoveColumns returns a copy of t without the sites for which drop
// returns true.
func (t *PolyTable) RemoveColumns(drop func(StateCounter) bool) *PolyTable {
	var keep []int
	for i := range t.positions {
		if !drop(countColumn(t, i)) {
			keep = append(keep, i)
		}
	}
	out := &PolyTable{kind: t.kind, positions: make([]float64, len(keep)), haps: make([]string, len(t.haps))}
	for k, i := range keep {
		out.positions[k] = t.positions[i]
	}
	buf := make([]byte, len(keep))
	for j, h := range t.haps {
		for k, i := range keep {
			buf[k] = h[i]
		}
		out.haps[j] = string(buf)
	}
	return out
}

// RemoveRows returns a copy of t without the samples for which drop,
// given the state counts of the sample's haplotype, returns true.
func (t *PolyTable) RemoveRows(drop func(StateCounter) bool) *PolyTable {
	out := &PolyTable{kind: t.kind, positions: append([]float64(nil), t.positions...)}
	for _, h := range t.haps {
		var sc StateCounter
		for k := 0; k < len(h); k++ {
			sc.add(h[k])
		}
		if !drop(sc) {
			out.haps = append(out.haps, h)
		}
	}
	return out
}

func (t *PolyTable) RemoveMonomorphic() *PolyTable {
	return t.RemoveColumns(func(sc StateCounter) bool { return sc.NumStates() < 2 })
}

func (t *PolyTable) RemoveMultiHits() *PolyTable {
	return t.RemoveColumns(func(sc StateCounter) bool { return sc.NumStates() > 2 })
}

func (t *PolyTable) RemoveGaps() *PolyTable {
	return t.RemoveColumns(func(sc StateCounter) bool { return sc.Gap > 0 })
}

func (t *PolyTable) RemoveMissing() *PolyTable {
	return t.RemoveColumns(func(sc StateCounter) bool { return sc.N > 0 })
}

func (t *PolyTable) RemoveAmbiguous() *PolyTable {
	return t.RemoveColumns(func(sc StateCounter) bool { return sc.Other > 0 })
}

// ToVariantMatrix converts t using the codes 0 and 1 for '0' and '1',
// 2-5 for A, C, G, T, and Missing for anything else.
func (t *PolyTable) ToVariantMatrix() (*VariantMatrix, error) {
	nsites, nsam := len(t.positions), len(t.haps)
	data := make([]int8, nsites*nsam)
	for j, h := range t.haps {
		for i := 0; i < nsites; i++ {
			data[i*nsam+j] = stateCode(h[i])
		}
	}
	return newMatrix(data, t.Positions(), nsam, -1)
}

func (t *PolyTable) genotype(site, sample int) int8 { return stateCode(t.haps[sample][site]) }

func (t *PolyTable) refState() int8 {
	if t.kind == SimData {
		return 0
	}
	return Missing
}

func stateCode(c byte) int8 {
	switch upper(c) {
	case '0':
		return 0
	case '1':
		return 1
	case 'A':
		return 2
	case 'C':
		return 3
	case 'G':
		return 4
	case 'T':
		return 5
	}
	return Missing
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
