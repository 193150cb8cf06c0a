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

type ldcmd struct {
	commonFlags
	filter
	Format      string  `toml:"format"`
	MinCount    int     `toml:"min-count"`
	MaxDistance float64 `toml:"max-distance"`
}

func (cmd *ldcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.IntVar(&cmd.MinCount, "min-count", 1, "skip sites whose minor state is carried by fewer than `N` samples")
	flags.Float64Var(&cmd.MaxDistance, "max-distance", 0, "skip site pairs at least this `distance` apart (0 means no limit)")
	code, err := parseFlags(flags, args, &cmd.commonFlags, cmd)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return code
	}
	if cmd.MinCount < 1 || cmd.MaxDistance < 0 {
		err = fmt.Errorf("invalid min-count %d or max-distance %v", cmd.MinCount, cmd.MaxDistance)
		return 2
	}
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
		pairs := sequence.LD(d.table(), cmd.MinCount, cmd.MaxDistance)
		log.Infof("replicate %d: %d site pairs", rep, len(pairs))
		for _, p := range pairs {
			err := rw.Write([]field{
				{"replicate", float64(rep)},
				{"i", p.I},
				{"j", p.J},
				{"rsq", p.RSq},
				{"D", p.D},
				{"Dprime", p.DPrime},
			})
			if err != nil {
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
