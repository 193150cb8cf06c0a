// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/kshedden/gonpy"
	"github.com/popgen-tools/popgen/sequence"
	log "github.com/sirupsen/logrus"
)

var errDone = errors.New("done")

type pcacmd struct {
	commonFlags
	filter
	Components int `toml:"components"`
	Replicate  int `toml:"replicate"`
}

func (cmd *pcacmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.IntVar(&cmd.Components, "components", 4, "number of principal `components`")
	flags.IntVar(&cmd.Replicate, "replicate", 0, "analyze replicate `N` of the input")
	code, err := parseFlags(flags, args, &cmd.commonFlags, cmd)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return code
	}
	err = cmd.filter.Load()
	if err != nil {
		return 1
	}

	var m *sequence.VariantMatrix
	err = readDatasets(cmd.Input, stdin, func(rep int, d dataset) error {
		if rep != cmd.Replicate {
			return nil
		}
		d, err := cmd.filter.Apply(d)
		if err != nil {
			return err
		}
		m = d.matrix
		if m == nil {
			m, err = d.poly.ToVariantMatrix()
			if err != nil {
				return err
			}
		}
		return errDone
	})
	if err == nil && m == nil {
		err = fmt.Errorf("%s: replicate %d not found", cmd.Input, cmd.Replicate)
	}
	if err != nil && !errors.Is(err, errDone) {
		return 1
	}
	err = nil

	log.Printf("fitting %d components: %d sites, %d samples", cmd.Components, m.NumSites(), m.NumSamples())
	res, err := sequence.PCA(m, cmd.Components)
	if err != nil {
		return 1
	}
	for i, v := range res.ExplainedVariance {
		log.Infof("component %d: explained variance %v", i, v)
	}
	rows, cols := res.Coordinates.Dims()
	log.Printf("writing numpy output array: %d rows, %d cols", rows, cols)
	out := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = res.Coordinates.At(i, j)
		}
	}
	output, err := zcreate(cmd.Output, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	npw, err := gonpy.NewWriter(nopCloser{output})
	if err != nil {
		return 1
	}
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(out)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}
