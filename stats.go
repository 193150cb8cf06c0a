// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"

	"github.com/popgen-tools/popgen/sequence"
	log "github.com/sirupsen/logrus"
)

type statscmd struct {
	commonFlags
	windowOptions
	filter
	Format string `toml:"format"`
	Garud  bool   `toml:"garud"`
	Recomb bool   `toml:"recombination"`
}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.commonFlags.Flags(flags)
	cmd.windowOptions.Flags(flags)
	cmd.filter.Flags(flags)
	flags.StringVar(&cmd.Format, "format", "tsv", "output `format`: tsv or json")
	flags.BoolVar(&cmd.Garud, "garud", false, "also report haplotype statistics (H1, H12, H2/H1, haplotype diversity)")
	flags.BoolVar(&cmd.Recomb, "recombination", false, "also report recombination and LD statistics (Rmin, Wall's B, B', Q, omega max)")
	code, err := parseFlags(flags, args, &cmd.commonFlags, cmd)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return code
	}
	cmd.windowOptions.normalize()
	err = cmd.filter.Load()
	if err != nil {
		return 1
	}

	output, err := zcreate(cmd.Output, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	rw, err := newRecordWriter(output, cmd.Format)
	if err != nil {
		return 2
	}
	err = readDatasets(cmd.Input, stdin, func(rep int, d dataset) error {
		d, err := cmd.filter.Apply(d)
		if err != nil {
			return err
		}
		windows, err := d.windows(cmd.windowOptions)
		if err != nil {
			return err
		}
		log.Infof("replicate %d: %d samples, %d sites, %d windows", rep, d.table().NumSamples(), d.table().NumSites(), len(windows))
		rows, err := sequence.ParallelMap(len(windows), cmd.Threads, func(k int) ([]field, error) {
			return cmd.summarize(rep, windows[k]), nil
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := rw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 1
	}
	err = rw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func (cmd *statscmd) summarize(rep int, w window) []field {
	s, err := sequence.Summarize(w.table)
	if err != nil && !errors.Is(err, sequence.ErrNotComputable) {
		log.Warnf("replicate %d window %v-%v: %s", rep, w.lo, w.hi, err)
	}
	fields := []field{
		{"replicate", float64(rep)},
		{"start", w.lo},
		{"end", w.hi},
		{"nsites", float64(w.table.NumSites())},
		{"thetapi", s.ThetaPi},
		{"thetaw", s.ThetaW},
		{"thetah", s.ThetaH},
		{"thetal", s.ThetaL},
		{"tajd", s.TajimasD},
		{"faywuh", s.FayWuH},
		{"hprime", s.Hprime},
		{"fulid", s.FuLiD},
		{"fulidstar", s.FuLiDStar},
		{"fulif", s.FuLiF},
		{"fulifstar", s.FuLiFStar},
		{"S", float64(s.NumPoly)},
		{"nmuts", float64(s.NumMutations)},
		{"nbiallelic", float64(s.NumBiallelic)},
		{"singletons", float64(s.Singletons)},
		{"dsingletons", orNaN(float64(s.ExternalSingletons), s.ExternalSingletons < 0)},
	}
	if cmd.Garud {
		g, err := sequence.Garud(w.table)
		if err != nil {
			g = sequence.GarudStats{H1: math.NaN(), H12: math.NaN(), H2H1: math.NaN()}
		}
		hapdiv, err := sequence.HaplotypeDiversity(w.table)
		if err != nil {
			hapdiv = math.NaN()
		}
		fields = append(fields,
			field{"nhaps", float64(sequence.NumHaplotypes(w.table))},
			field{"hapdiv", hapdiv},
			field{"H1", g.H1},
			field{"H12", g.H12},
			field{"H2H1", g.H2H1})
	}
	if cmd.Recomb {
		ws, _ := sequence.Walls(w.table)
		omega, at, _ := sequence.OmegaMax(w.table)
		fields = append(fields,
			field{"rmin", float64(sequence.Rmin(w.table))},
			field{"wallsb", ws.B},
			field{"wallsbprime", orNaN(float64(ws.Bprime), math.IsNaN(ws.B))},
			field{"wallsq", ws.Q},
			field{"omegamax", omega},
			field{"omegapos", at})
	}
	return fields
}

func orNaN(x float64, undefined bool) float64 {
	if undefined {
		return math.NaN()
	}
	return x
}
