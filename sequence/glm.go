// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.BinomialFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            log.New(io.Discard, "", 0),
}

func normalize(a []float64) {
	mean, std := stat.MeanStdDev(a, nil)
	for i, x := range a {
		a[i] = (x - mean) / std
	}
}

// SiteTestGLM is like SiteTest, but uses a likelihood ratio test of
// logistic regressions predicting membership in population i (rather
// than j) from minor-state carrier status. covariates, if any, hold
// one value per sample of the table (e.g., principal component
// coordinates) and are included in both models after
// standardization. Samples missing at a site are left out of that
// site's models. Sites where a model cannot be fit get NaN.
func (f *Fst) SiteTestGLM(i, j int, covariates [][]float64) ([]float64, error) {
	if err := f.checkPair(i, j); err != nil {
		return nil, err
	}
	for k, cov := range covariates {
		if len(cov) != f.t.NumSamples() {
			return nil, fmt.Errorf("covariate %d has %d values for %d samples: %w", k, len(cov), f.t.NumSamples(), ErrSizeMismatch)
		}
	}
	members := append(append([]int(nil), f.members[i]...), f.members[j]...)
	out := make([]float64, f.t.NumSites())
	var count [128]int
	for site := range out {
		count = [128]int{}
		var present []int
		var inI []bool
		for k, s := range members {
			if g := f.t.genotype(site, s); g >= 0 {
				count[g]++
				present = append(present, s)
				inI = append(inI, k < len(f.members[i]))
			}
		}
		major := 0
		for g, n := range count {
			if n > count[major] {
				major = g
			}
		}
		carrier := make([]bool, len(present))
		for k, s := range present {
			carrier[k] = int(f.t.genotype(site, s)) != major
		}
		out[site] = glmPvalue(present, inI, carrier, covariates)
	}
	return out, nil
}

// glmPvalue compares outcome ~ 1 + covariates with outcome ~ 1 +
// variant + covariates over the given samples.
func glmPvalue(samples []int, outcome, variant []bool, covariates [][]float64) (p float64) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			p = math.NaN()
		}
	}()
	if len(samples) < 2 {
		return math.NaN()
	}
	asDtype := func(b []bool) []statmodel.Dtype {
		out := make([]statmodel.Dtype, len(b))
		for k, x := range b {
			if x {
				out[k] = 1
			}
		}
		return out
	}
	constants := make([]statmodel.Dtype, len(samples))
	for k := range constants {
		constants[k] = 1
	}
	data := [][]statmodel.Dtype{asDtype(outcome), constants}
	names := []string{"outcome", "constants"}
	for c, cov := range covariates {
		series := make([]statmodel.Dtype, len(samples))
		for k, s := range samples {
			series[k] = cov[s]
		}
		normalize(series)
		data = append(data, series)
		names = append(names, fmt.Sprintf("cov%d", c))
	}

	model, err := glm.NewGLM(statmodel.NewDataset(data, names), "outcome", names[1:], glmConfig)
	if err != nil {
		return math.NaN()
	}
	logCov := model.Fit().LogLike()

	data = append([][]statmodel.Dtype{data[0], asDtype(variant)}, data[1:]...)
	names = append([]string{"outcome", "variant"}, names[1:]...)
	model, err = glm.NewGLM(statmodel.NewDataset(data, names), "outcome", names[1:], glmConfig)
	if err != nil {
		return math.NaN()
	}
	logComp := model.Fit().LogLike()
	return distuv.ChiSquared{K: 1}.Survival(-2 * (logCov - logComp))
}
