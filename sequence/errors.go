// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import "errors"

// Errors returned by this package are wrapped with context; use
// errors.Is to test for them.
var (
	// ErrShape is returned when a genotype buffer does not match
	// the position list it is paired with.
	ErrShape = errors.New("sequence: shape mismatch")

	// ErrSizeMismatch is returned for inconsistent haplotype
	// lengths, population partitions, or coordinate maps.
	ErrSizeMismatch = errors.New("sequence: size mismatch")

	ErrIndexOutOfRange         = errors.New("sequence: index out of range")
	ErrInvalidWindowParameters = errors.New("sequence: invalid window parameters")
	ErrInvalidAlleleCode       = errors.New("sequence: invalid allele code")
	ErrColumnMismatch          = errors.New("sequence: allele column mismatch")

	// ErrNotComputable is returned when a statistic is undefined
	// for its input, e.g. Tajima's D with no segregating sites.
	ErrNotComputable = errors.New("sequence: statistic not computable")

	// ErrStaleView is returned by a View whose matrix has been
	// mutated since the view was issued.
	ErrStaleView = errors.New("sequence: stale view")
)
