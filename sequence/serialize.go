// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/kshedden/gonpy"
)

// matrixRecord is the gob encoding of a VariantMatrix.
type matrixRecord struct {
	Data       []int8
	Positions  []float64
	NumSamples int
	MaxAllele  int8
}

func (m *VariantMatrix) record() matrixRecord {
	return matrixRecord{
		Data:       m.data,
		Positions:  m.positions,
		NumSamples: m.nsam,
		MaxAllele:  m.maxAllele,
	}
}

func fromRecord(rec matrixRecord) (*VariantMatrix, error) {
	if rec.NumSamples < 0 || len(rec.Data) != len(rec.Positions)*rec.NumSamples {
		return nil, fmt.Errorf("decoded %d genotypes, %d positions, %d samples: %w", len(rec.Data), len(rec.Positions), rec.NumSamples, ErrShape)
	}
	return newMatrix(rec.Data, rec.Positions, rec.NumSamples, rec.MaxAllele)
}

// MarshalBinary returns the gob encoding of m. Equal matrices have
// equal encodings.
func (m *VariantMatrix) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(m.record())
	return buf.Bytes(), err
}

// UnmarshalBinary replaces m with the matrix encoded in data. Views
// of m taken before the call are invalidated.
func (m *VariantMatrix) UnmarshalBinary(data []byte) error {
	var rec matrixRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return err
	}
	decoded, err := fromRecord(rec)
	if err != nil {
		return err
	}
	gen := m.gen
	*m = *decoded
	m.gen = gen + 1
	return nil
}

// EncodeMatrices writes a gob stream holding each matrix in turn.
func EncodeMatrices(w io.Writer, matrices ...*VariantMatrix) error {
	enc := gob.NewEncoder(w)
	for i, m := range matrices {
		if err := enc.Encode(m.record()); err != nil {
			return fmt.Errorf("encoding matrix %d: %w", i, err)
		}
	}
	return nil
}

// DecodeMatrices reads a stream written by EncodeMatrices and calls fn
// with each matrix. It stops at the first error from the stream or
// from fn.
func DecodeMatrices(r io.Reader, fn func(*VariantMatrix) error) error {
	dec := gob.NewDecoder(r)
	for i := 0; ; i++ {
		var rec matrixRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("decoding matrix %d: %w", i, err)
		}
		m, err := fromRecord(rec)
		if err != nil {
			return fmt.Errorf("decoding matrix %d: %w", i, err)
		}
		if err = fn(m); err != nil {
			return err
		}
	}
}

// gonpy closes the writer it is given once the array is written.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteNumpy writes the genotypes of m as an int8 array of shape
// (nsites, nsam).
func (m *VariantMatrix) WriteNumpy(w io.Writer) error {
	npw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	npw.Shape = []int{len(m.positions), m.nsam}
	return npw.WriteInt8(m.data)
}

// WritePositionsNumpy writes the positions of m as a float64 array.
func (m *VariantMatrix) WritePositionsNumpy(w io.Writer) error {
	npw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	npw.Shape = []int{len(m.positions)}
	return npw.WriteFloat64(m.positions)
}

// WriteNumpy writes the counts as an int32 array of shape (nrow, ncol).
func (ac *AlleleCountMatrix) WriteNumpy(w io.Writer) error {
	npw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	npw.Shape = []int{ac.nrow, ac.ncol}
	return npw.WriteInt32(ac.counts)
}

// ReadNumpy reads a 2-D genotype array (sites x samples, int8, uint8,
// or int32) and a 1-D float64 position array.
func ReadNumpy(genotypes, positions io.Reader) (*VariantMatrix, error) {
	gr, err := gonpy.NewReader(genotypes)
	if err != nil {
		return nil, err
	}
	if len(gr.Shape) != 2 {
		return nil, fmt.Errorf("genotype array has shape %v: %w", gr.Shape, ErrShape)
	}
	nsites, nsam := gr.Shape[0], gr.Shape[1]
	var data []int8
	switch gr.Dtype {
	case "i1":
		data, err = gr.GetInt8()
	case "u1":
		var u []uint8
		u, err = gr.GetUint8()
		data = make([]int8, len(u))
		for i, x := range u {
			if x > 127 {
				return nil, fmt.Errorf("genotype code %d: %w", x, ErrInvalidAlleleCode)
			}
			data[i] = int8(x)
		}
	case "i4":
		var wide []int32
		wide, err = gr.GetInt32()
		data = make([]int8, len(wide))
		for i, x := range wide {
			if x > 127 {
				return nil, fmt.Errorf("genotype code %d: %w", x, ErrInvalidAlleleCode)
			}
			if x < 0 {
				x = int32(Missing)
			}
			data[i] = int8(x)
		}
	default:
		return nil, fmt.Errorf("unsupported genotype dtype %q", gr.Dtype)
	}
	if err != nil {
		return nil, err
	}
	if gr.ColumnMajor {
		rowmajor := make([]int8, len(data))
		for i := 0; i < nsites; i++ {
			for j := 0; j < nsam; j++ {
				rowmajor[i*nsam+j] = data[j*nsites+i]
			}
		}
		data = rowmajor
	}
	pr, err := gonpy.NewReader(positions)
	if err != nil {
		return nil, err
	}
	pos, err := pr.GetFloat64()
	if err != nil {
		return nil, err
	}
	if len(pos) != nsites {
		return nil, fmt.Errorf("%d positions for %d sites: %w", len(pos), nsites, ErrShape)
	}
	return newMatrix(data, pos, nsam, -1)
}
