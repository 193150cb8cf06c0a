// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"flag"
	"fmt"
	"io"

	"github.com/popgen-tools/popgen/sequence"
	log "github.com/sirupsen/logrus"
)

type nslcmd struct {
	commonFlags
	filter
	Format      string `toml:"format"`
	GeneticMap  string `toml:"genetic-map"`
	BinSize     int    `toml:"bin-size"`
	MinCount    int    `toml:"min-count"`
	Standardize bool   `toml:"standardize"`
	Derived     int    `toml:"derived-state"`
}

func (cmd *nslcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.commonFlags.Flags(flags)
	cmd.filter.Flags(flags)
	flags.StringVar(&cmd.Format, "format", "tsv", "output `format`: tsv or json")
	flags.StringVar(&cmd.GeneticMap, "genetic-map", "", "measure iHS distances using this `file` of \"position map-position\" lines")
	flags.BoolVar(&cmd.Standardize, "standardize", false, "standardize nSL within bins of derived allele count")
	flags.IntVar(&cmd.BinSize, "bin-size", 1, "derived allele count bin `width` for standardization")
	flags.IntVar(&cmd.MinCount, "min-count", 2, "exclude core sites with fewer than `N` derived alleles from standardization")
	flags.IntVar(&cmd.Derived, "derived-state", -1, "compare ancestral carriers with carriers of derived state `N` only (default: all derived states; cores with several are NaN)")
	code, err := parseFlags(flags, args, &cmd.commonFlags, cmd)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return code
	}
	if cmd.BinSize < 1 {
		err = fmt.Errorf("invalid bin size %d", cmd.BinSize)
		return 2
	}
	if cmd.Derived == 0 || cmd.Derived > 127 {
		err = fmt.Errorf("invalid derived state %d", cmd.Derived)
		return 2
	}
	err = cmd.filter.Load()
	if err != nil {
		return 1
	}
	var gmap map[float64]float64
	if cmd.GeneticMap != "" {
		gmap, err = readGeneticMap(cmd.GeneticMap)
		if err != nil {
			return 1
		}
		log.Infof("loaded %d genetic map positions", len(gmap))
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
		t := d.table()
		var results []sequence.NSLResult
		if cmd.Derived > 0 {
			results, err = sequence.NSLx(t, 0, int8(cmd.Derived), gmap)
		} else {
			results, err = sequence.NSL(t, gmap)
		}
		if err != nil {
			return fmt.Errorf("replicate %d: %w", rep, err)
		}
		var std []sequence.StandardizedNSL
		if cmd.Standardize {
			var bins []sequence.NSLBin
			std, bins, err = sequence.StandardizeNSL(results, cmd.BinSize, cmd.MinCount)
			if err != nil {
				return err
			}
			for _, b := range bins {
				log.Debugf("replicate %d bin %d: n=%d mean=%v sd=%v", rep, b.Bin, b.N, b.Mean, b.SD)
			}
		}
		log.Infof("replicate %d: %d core sites", rep, len(results))
		for i, r := range results {
			row := []field{
				{"replicate", float64(rep)},
				{"position", t.Position(i)},
				{"core_count", float64(r.CoreCount)},
				{"nsl", r.NSL},
				{"ihs", r.IHS},
			}
			if std != nil {
				row = append(row,
					field{"bin", float64(std[i].Bin)},
					field{"z", std[i].Z},
					field{"p", std[i].P})
			}
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
