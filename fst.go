// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/popgen-tools/popgen/sequence"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

type fstcmd struct {
	commonFlags
	windowOptions
	filter
	Format       string `toml:"format"`
	Populations  string `toml:"populations"`
	Weights      string `toml:"weights"`
	Permutations int    `toml:"permutations"`
	Seed         uint64 `toml:"seed"`
	SitePvalues  string `toml:"site-pvalues"`
	SiteTest     string `toml:"site-test"`
	SiteTestPCs  int    `toml:"site-test-pcs"`

	sizes   []int
	weights []float64
}

func (cmd *fstcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.StringVar(&cmd.Populations, "populations", "", "comma-separated population `sizes`, in sample order")
	flags.StringVar(&cmd.Weights, "weights", "", "comma-separated population `weights` (default: proportional to size)")
	flags.IntVar(&cmd.Permutations, "permutations", 0, "estimate an HSM p-value from `N` random permutations of samples")
	flags.Uint64Var(&cmd.Seed, "seed", 1, "permutation random `seed`")
	flags.StringVar(&cmd.SitePvalues, "site-pvalues", "", "write per-site p-values for each population pair to `file`")
	flags.StringVar(&cmd.SiteTest, "site-test", "chisquare", "per-site `test`: chisquare or glm (logistic regression likelihood ratio)")
	flags.IntVar(&cmd.SiteTestPCs, "site-test-pcs", 0, "with -site-test=glm, adjust for the first `N` principal components")
	code, err := parseFlags(flags, args, &cmd.commonFlags, cmd)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return code
	}
	cmd.windowOptions.normalize()
	cmd.sizes, err = parseInts(cmd.Populations)
	if err != nil {
		err = fmt.Errorf("invalid -populations: %w", err)
		return 2
	} else if len(cmd.sizes) < 2 {
		err = fmt.Errorf("-populations must list at least two sizes")
		return 2
	}
	cmd.weights = nil
	if cmd.Weights != "" {
		cmd.weights, err = parseFloats(cmd.Weights)
		if err != nil {
			err = fmt.Errorf("invalid -weights: %w", err)
			return 2
		}
	}
	if cmd.SiteTest != "chisquare" && cmd.SiteTest != "glm" {
		err = fmt.Errorf("unknown -site-test %q", cmd.SiteTest)
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
	var siteOutput io.WriteCloser
	var siteRW *recordWriter
	if cmd.SitePvalues != "" {
		siteOutput, err = zcreate(cmd.SitePvalues, stdout)
		if err != nil {
			return 1
		}
		defer siteOutput.Close()
		siteRW, _ = newRecordWriter(siteOutput, "tsv")
	}
	err = readDatasets(cmd.Input, stdin, func(rep int, d dataset) error {
		d, err := cmd.filter.Apply(d)
		if err != nil {
			return err
		}
		if siteRW != nil {
			if err := cmd.siteTests(siteRW, rep, d.table()); err != nil {
				return err
			}
		}
		windows, err := d.windows(cmd.windowOptions)
		if err != nil {
			return err
		}
		log.Infof("replicate %d: %d sites, %d windows", rep, d.table().NumSites(), len(windows))
		rows, err := sequence.ParallelMap(len(windows), cmd.Threads, func(k int) ([]field, error) {
			seed := cmd.Seed + uint64(rep)<<32 + uint64(k)
			return cmd.compare(rep, windows[k], seed)
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
	if siteRW != nil {
		err = siteRW.Flush()
		if err != nil {
			return 1
		}
		err = siteOutput.Close()
		if err != nil {
			return 1
		}
	}
	return 0
}

// siteTests writes one row per site of t with the SiteTest p-value of
// every population pair.
func (cmd *fstcmd) siteTests(rw *recordWriter, rep int, t sequence.Table) error {
	f, err := sequence.NewFst(t, cmd.sizes, cmd.weights)
	if err != nil {
		return err
	}
	var covariates [][]float64
	if cmd.SiteTest == "glm" && cmd.SiteTestPCs > 0 {
		covariates, err = pcaCovariates(t, cmd.SiteTestPCs)
		if err != nil {
			return fmt.Errorf("replicate %d: %w", rep, err)
		}
	}
	npop := f.NumPopulations()
	pvalues := map[[2]int][]float64{}
	for i := 0; i < npop; i++ {
		for j := i + 1; j < npop; j++ {
			if cmd.SiteTest == "glm" {
				pvalues[[2]int{i, j}], err = f.SiteTestGLM(i, j, covariates)
			} else {
				pvalues[[2]int{i, j}], err = f.SiteTest(i, j)
			}
			if err != nil {
				return err
			}
		}
	}
	for site := 0; site < t.NumSites(); site++ {
		row := []field{{"replicate", float64(rep)}, {"position", t.Position(site)}}
		for i := 0; i < npop; i++ {
			for j := i + 1; j < npop; j++ {
				row = append(row, field{fmt.Sprintf("p_%d_%d", i, j), pvalues[[2]int{i, j}][site]})
			}
		}
		if err := rw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// pcaCovariates returns the first k principal component coordinates
// of every sample of t, one slice per component.
func pcaCovariates(t sequence.Table, k int) ([][]float64, error) {
	m, ok := t.(*sequence.VariantMatrix)
	if !ok {
		var err error
		m, err = t.(*sequence.PolyTable).ToVariantMatrix()
		if err != nil {
			return nil, err
		}
	}
	res, err := sequence.PCA(m, k)
	if err != nil {
		return nil, err
	}
	covariates := make([][]float64, k)
	for c := range covariates {
		covariates[c] = mat.Col(nil, c, res.Coordinates)
	}
	return covariates, nil
}

func (cmd *fstcmd) compare(rep int, w window, seed uint64) ([]field, error) {
	f, err := sequence.NewFst(w.table, cmd.sizes, cmd.weights)
	if err != nil {
		return nil, err
	}
	value := func(x float64, err error) float64 {
		if err != nil {
			return math.NaN()
		}
		return x
	}
	row := []field{
		{"replicate", float64(rep)},
		{"start", w.lo},
		{"end", w.hi},
		{"nsites", float64(w.table.NumSites())},
		{"pis", value(f.PiS())},
		{"pit", value(f.PiT())},
	}
	if cmd.Permutations > 0 {
		hsm, p, err := f.PermutationTest(rand.NewSource(seed), cmd.Permutations)
		if err != nil {
			hsm, p = math.NaN(), math.NaN()
		}
		row = append(row, field{"hsm", hsm}, field{"p", p})
	} else {
		row = append(row, field{"hsm", value(f.HSM())})
	}
	row = append(row,
		field{"slatkin", value(f.Slatkin())},
		field{"hbk", value(f.HBK())})
	for i := 0; i < f.NumPopulations(); i++ {
		for j := i + 1; j < f.NumPopulations(); j++ {
			pair := fmt.Sprintf("%d_%d", i, j)
			shared, err := f.Shared(i, j)
			if err != nil {
				return nil, err
			}
			pi, pj, err := f.Private(i, j)
			if err != nil {
				return nil, err
			}
			fixed, err := f.Fixed(i, j)
			if err != nil {
				return nil, err
			}
			row = append(row,
				field{"pib_" + pair, value(f.PiB(i, j))},
				field{"pid_" + pair, value(f.PiD(i, j))},
				field{"shared_" + pair, float64(len(shared))},
				field{"private_" + pair, float64(len(pi))},
				field{"private_" + fmt.Sprintf("%d_%d", j, i), float64(len(pj))},
				field{"fixed_" + pair, float64(len(fixed))})
		}
	}
	return row, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x == "" {
			continue
		}
		n, err := strconv.Atoi(x)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x == "" {
			continue
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
