// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"fmt"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"
)

// PCAResult holds the projection of every sample onto the leading
// principal components of a genotype matrix.
type PCAResult struct {
	// Coordinates has one row per sample and one column per
	// component.
	Coordinates       *mat.Dense
	ExplainedVariance []float64
}

// PCA projects the samples of m onto k principal components, treating
// each site as a feature. Each site is centered on its mean code, and
// missing genotypes contribute zero.
func PCA(m *VariantMatrix, k int) (*PCAResult, error) {
	nsites, nsam := m.NumSites(), m.NumSamples()
	if k < 1 || k > nsites || k > nsam {
		return nil, fmt.Errorf("%d components of %dx%d matrix: %w", k, nsites, nsam, ErrShape)
	}
	data := make([]float64, nsites*nsam)
	for i := 0; i < nsites; i++ {
		row := m.data[i*nsam : (i+1)*nsam]
		sum, n := 0.0, 0
		for _, x := range row {
			if x >= 0 {
				sum += float64(x)
				n++
			}
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		for j, x := range row {
			if x >= 0 {
				data[i*nsam+j] = float64(x) - mean
			}
		}
	}
	mtx := mat.NewDense(nsites, nsam, data)
	transformer := nlp.NewPCA(k)
	transformer.Fit(mtx)
	projected, err := transformer.Transform(mtx)
	if err != nil {
		return nil, fmt.Errorf("pca: %w", err)
	}
	return &PCAResult{
		Coordinates:       mat.DenseCopyOf(projected.T()),
		ExplainedVariance: transformer.ExplainedVariance(),
	}, nil
}
