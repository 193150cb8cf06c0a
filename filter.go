// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"flag"
	"fmt"

	"github.com/popgen-tools/popgen/sequence"
	log "github.com/sirupsen/logrus"
)

type filter struct {
	RemoveMonomorphic  bool    `toml:"remove-monomorphic"`
	RemoveMultiAllelic bool    `toml:"remove-multiallelic"`
	RemoveSingletons   bool    `toml:"remove-singletons"`
	MaxMissing         float64 `toml:"max-missing"`
	MaxSampleMissing   float64 `toml:"max-sample-missing"`
	Regions            string  `toml:"regions"`
	Chromosome         string  `toml:"chromosome"`

	mask *regionMask
}

func (f *filter) Flags(flags *flag.FlagSet) {
	flags.BoolVar(&f.RemoveMonomorphic, "remove-monomorphic", false, "drop sites with fewer than two states")
	flags.BoolVar(&f.RemoveMultiAllelic, "remove-multiallelic", false, "drop sites with more than two states")
	flags.BoolVar(&f.RemoveSingletons, "remove-singletons", false, "drop sites where the minor state occurs once")
	flags.Float64Var(&f.MaxMissing, "max-missing", 1, "drop sites with more than fraction `P` of genotypes missing (0 ≤ P ≤ 1)")
	flags.Float64Var(&f.MaxSampleMissing, "max-sample-missing", 1, "drop samples with more than fraction `P` of genotypes missing, before any site filter")
	flags.StringVar(&f.Regions, "regions", "", "keep only sites inside the regions listed in this BED `file`")
	flags.StringVar(&f.Chromosome, "chromosome", "", "sequence `name` of the input in the BED file")
}

// Load reads the regions file, if any.
func (f *filter) Load() error {
	f.mask = nil
	if f.MaxMissing < 0 || f.MaxMissing > 1 {
		return fmt.Errorf("invalid max-missing %v: must be between 0 and 1", f.MaxMissing)
	}
	if f.MaxSampleMissing < 0 || f.MaxSampleMissing > 1 {
		return fmt.Errorf("invalid max-sample-missing %v: must be between 0 and 1", f.MaxSampleMissing)
	}
	if f.Regions == "" {
		return nil
	}
	input, err := zopen(f.Regions, nil)
	if err != nil {
		return err
	}
	defer input.Close()
	f.mask = &regionMask{}
	if err = f.mask.loadBED(input); err != nil {
		return fmt.Errorf("%s: %w", f.Regions, err)
	}
	f.mask.Freeze()
	if len(f.mask.intervals[f.Chromosome]) == 0 {
		return fmt.Errorf("%s: no regions on sequence %q (found %q); use -chromosome to choose one", f.Regions, f.Chromosome, f.mask.SeqNames())
	}
	log.Infof("loaded %d regions from %s, %d on %q", f.mask.Len(), f.Regions, len(f.mask.intervals[f.Chromosome]), f.Chromosome)
	return nil
}

func (f *filter) active() bool {
	return f.RemoveMonomorphic || f.RemoveMultiAllelic || f.RemoveSingletons || f.MaxMissing < 1 || f.MaxSampleMissing < 1 || f.mask != nil
}

func (f *filter) predicate() sequence.SitePredicate {
	var preds []sequence.SitePredicate
	if f.RemoveMonomorphic {
		preds = append(preds, sequence.Monomorphic)
	}
	if f.RemoveMultiAllelic {
		preds = append(preds, sequence.MultiAllelic)
	}
	if f.RemoveSingletons {
		preds = append(preds, sequence.Singleton)
	}
	if f.MaxMissing < 1 {
		preds = append(preds, sequence.MissingAbove(f.MaxMissing))
	}
	return sequence.Any(preds...)
}

// dropCounts applies the same rules as predicate to the state counts
// of a text table column.
func (f *filter) dropCounts(sc sequence.StateCounter, nsam int) bool {
	nstates := sc.NumStates()
	if f.RemoveMonomorphic && nstates < 2 {
		return true
	}
	if f.RemoveMultiAllelic && nstates > 2 {
		return true
	}
	if f.RemoveSingletons && nstates == 2 {
		for _, n := range []int{sc.A, sc.C, sc.G, sc.T, sc.Zero, sc.One} {
			if n == 1 {
				return true
			}
		}
	}
	if missing := sc.N + sc.Gap + sc.Other; nsam > 0 && float64(missing) > f.MaxMissing*float64(nsam) {
		return true
	}
	return false
}

// Apply drops the samples, then the sites, of d that fail the filter.
// Matrices are filtered in place.
func (f *filter) Apply(d dataset) (dataset, error) {
	if !f.active() {
		return d, nil
	}
	if d.matrix != nil {
		if f.MaxSampleMissing < 1 {
			nsam := d.matrix.NumSamples()
			dropped := sequence.FilterHaplotypes(d.matrix, sequence.MissingAbove(f.MaxSampleMissing))
			log.Debugf("filter: kept %d of %d samples", nsam-dropped, nsam)
		}
		before := d.matrix.NumSites()
		positions := d.matrix.Positions()
		pred := f.predicate()
		i := 0
		dropped := sequence.FilterSites(d.matrix, func(v sequence.View) bool {
			pos := positions[i]
			i++
			if f.mask != nil && !f.mask.Contains(f.Chromosome, pos) {
				return true
			}
			return pred(v)
		})
		log.Debugf("filter: kept %d of %d sites", before-dropped, before)
		return d, nil
	}
	t := d.poly
	if f.MaxSampleMissing < 1 {
		nsites := t.NumSites()
		t = t.RemoveRows(func(sc sequence.StateCounter) bool {
			return nsites > 0 && float64(sc.N+sc.Gap+sc.Other) > f.MaxSampleMissing*float64(nsites)
		})
		log.Debugf("filter: kept %d of %d samples", t.NumSamples(), d.poly.NumSamples())
	}
	nsam := t.NumSamples()
	t = t.RemoveColumns(func(sc sequence.StateCounter) bool { return f.dropCounts(sc, nsam) })
	if f.mask != nil {
		var sites []sequence.Site
		for i := 0; i < t.NumSites(); i++ {
			if f.mask.Contains(f.Chromosome, t.Position(i)) {
				site, err := t.Site(i)
				if err != nil {
					return d, err
				}
				sites = append(sites, site)
			}
		}
		var err error
		t, err = sequence.PolyTableFromSites(t.Kind(), sites)
		if err != nil {
			return d, err
		}
	}
	log.Debugf("filter: kept %d of %d sites", t.NumSites(), d.poly.NumSites())
	return dataset{poly: t}, nil
}
