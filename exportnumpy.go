// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/popgen-tools/popgen/sequence"
	log "github.com/sirupsen/logrus"
)

// exportNumpy writes each replicate of the input as a pair of numpy
// files: genotypes.N.npy (int8, sites x samples) and positions.N.npy.
type exportNumpy struct {
	commonFlags
	filter
	OutputDir string `toml:"output-dir"`
}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.StringVar(&cmd.OutputDir, "output-dir", ".", "output `directory`")
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
	err = os.MkdirAll(cmd.OutputDir, 0777)
	if err != nil {
		return 1
	}
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
		log.Infof("replicate %d: writing %d sites x %d samples", rep, m.NumSites(), m.NumSamples())
		err = writeFile(filepath.Join(cmd.OutputDir, fmt.Sprintf("genotypes.%d.npy", rep)), nil, m.WriteNumpy)
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(cmd.OutputDir, fmt.Sprintf("positions.%d.npy", rep)), nil, m.WritePositionsNumpy)
	})
	if err != nil {
		return 1
	}
	return 0
}

// writeFile creates fnm (or uses stdout if fnm is "-") and fills it
// using write.
func writeFile(fnm string, stdout io.Writer, write func(io.Writer) error) error {
	output, err := zcreate(fnm, stdout)
	if err != nil {
		return err
	}
	defer output.Close()
	if err = write(output); err != nil {
		return fmt.Errorf("%s: %w", fnm, err)
	}
	return output.Close()
}

// importNumpy converts a numpy genotype array and position array into
// an encoded matrix stream usable by the other commands.
type importNumpy struct {
	Genotypes string
	Positions string
	Output    string
}

func (cmd *importNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cmd.Genotypes, "genotypes", "", "genotype array `file` (sites x samples, .npy)")
	flags.StringVar(&cmd.Positions, "positions", "", "position array `file` (.npy)")
	flags.StringVar(&cmd.Output, "o", "-", "output `file` (compressed if name ends in .gz)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if cmd.Genotypes == "" || cmd.Positions == "" {
		err = fmt.Errorf("-genotypes and -positions are required")
		return 2
	}

	gfile, err := zopen(cmd.Genotypes, nil)
	if err != nil {
		return 1
	}
	defer gfile.Close()
	pfile, err := zopen(cmd.Positions, nil)
	if err != nil {
		return 1
	}
	defer pfile.Close()
	m, err := sequence.ReadNumpy(gfile, pfile)
	if err != nil {
		err = fmt.Errorf("%s: %w", cmd.Genotypes, err)
		return 1
	}
	log.Infof("read %d sites x %d samples", m.NumSites(), m.NumSamples())
	err = writeFile(cmd.Output, stdout, func(w io.Writer) error { return sequence.EncodeMatrices(w, m) })
	if err != nil {
		return 1
	}
	return 0
}
