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

// countAlleles writes the allele counts of every site of every
// replicate, in input order, as one int32 numpy array.
type countAlleles struct {
	commonFlags
	filter
	ChunkSize int `toml:"chunk-size"`
	MaxAllele int `toml:"max-allele"`
}

func (cmd *countAlleles) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.IntVar(&cmd.ChunkSize, "chunk-size", 10000, "count `N` sites at a time")
	flags.IntVar(&cmd.MaxAllele, "max-allele", -1, "output one column per allele code up to `N` (default: largest code in input)")
	code, err := parseFlags(flags, args, &cmd.commonFlags, cmd)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return code
	}
	if cmd.MaxAllele > 127 {
		err = fmt.Errorf("invalid -max-allele %d", cmd.MaxAllele)
		return 2
	}
	err = cmd.filter.Load()
	if err != nil {
		return 1
	}

	var total *sequence.AlleleCountMatrix
	err = readDatasets(cmd.Input, stdin, func(rep int, d dataset) error {
		d, err := cmd.filter.Apply(d)
		if err != nil {
			return err
		}
		m := d.matrix
		if m == nil {
			m, err = d.poly.ToVariantMatrix()
			if err != nil {
				return err
			}
		}
		max := m.MaxAllele()
		if cmd.MaxAllele >= 0 {
			max = int8(cmd.MaxAllele)
		}
		ac, err := sequence.CountAllelesChunked(&siteSource{m: m}, cmd.ChunkSize, max)
		if err != nil {
			return fmt.Errorf("replicate %d: %w", rep, err)
		}
		log.Infof("replicate %d: counted %d sites", rep, ac.NumRows())
		if total == nil {
			total = ac
			return nil
		}
		if total.NumCols() == ac.NumCols() {
			total, err = total.Merge(ac)
			return err
		}
		ncol := total.NumCols()
		if ac.NumCols() > ncol {
			ncol = ac.NumCols()
		}
		total, err = total.MergeMax(ac, int8(ncol-1))
		return err
	})
	if err != nil {
		return 1
	}
	if total == nil {
		err = fmt.Errorf("%s: no replicates", cmd.Input)
		return 1
	}
	err = writeFile(cmd.Output, stdout, total.WriteNumpy)
	if err != nil {
		return 1
	}
	return 0
}

// siteSource presents the sites of a matrix as a VariantSource.
type siteSource struct {
	m    *sequence.VariantMatrix
	next int
	buf  []int8
}

func (src *siteSource) Next() ([]int8, float64, error) {
	if src.next >= src.m.NumSites() {
		return nil, 0, io.EOF
	}
	v, err := src.m.Site(src.next)
	if err != nil {
		return nil, 0, err
	}
	src.buf, err = v.AppendTo(src.buf[:0])
	if err != nil {
		return nil, 0, err
	}
	pos := src.m.Position(src.next)
	src.next++
	return src.buf, pos, nil
}
