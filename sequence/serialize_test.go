// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sequence

import (
	"bytes"
	"errors"
	"io"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type serializeSuite struct{}

var _ = check.Suite(&serializeSuite{})

func (s *serializeSuite) TestBinaryRoundTrip(c *check.C) {
	m := mustMatrix(c, []int8{0, 1, 2, -1, 1, 1}, []float64{0.1, 0.5, 0.9})
	buf, err := m.MarshalBinary()
	c.Assert(err, check.IsNil)
	again, err := m.Clone().MarshalBinary()
	c.Assert(err, check.IsNil)
	c.Check(again, check.DeepEquals, buf)

	var decoded VariantMatrix
	c.Assert(decoded.UnmarshalBinary(buf), check.IsNil)
	c.Check(decoded.Data(), check.DeepEquals, m.Data())
	c.Check(decoded.Positions(), check.DeepEquals, m.Positions())
	c.Check(decoded.NumSamples(), check.Equals, 2)
	c.Check(decoded.MaxAllele(), check.Equals, int8(2))

	c.Check(decoded.UnmarshalBinary(buf[:len(buf)/2]), check.NotNil)
}

func (s *serializeSuite) TestStream(c *check.C) {
	a := mustMatrix(c, []int8{0, 1, 1, 0}, []float64{1, 2})
	b := mustMatrix(c, []int8{0, 0, 1}, []float64{1, 2, 3})
	var buf bytes.Buffer
	c.Assert(EncodeMatrices(&buf, a, b), check.IsNil)

	var got []*VariantMatrix
	err := DecodeMatrices(bytes.NewReader(buf.Bytes()), func(m *VariantMatrix) error {
		got = append(got, m)
		return nil
	})
	c.Assert(err, check.IsNil)
	c.Assert(got, check.HasLen, 2)
	c.Check(got[0].Data(), check.DeepEquals, a.Data())
	c.Check(got[1].Positions(), check.DeepEquals, b.Positions())
	c.Check(got[1].NumSamples(), check.Equals, 1)

	stop := errors.New("stop")
	n := 0
	err = DecodeMatrices(bytes.NewReader(buf.Bytes()), func(*VariantMatrix) error {
		n++
		return stop
	})
	c.Check(err, check.Equals, stop)
	c.Check(n, check.Equals, 1)

	err = DecodeMatrices(io.LimitReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()-1)), func(*VariantMatrix) error { return nil })
	c.Check(err, check.NotNil)
}

func (s *serializeSuite) TestNumpyRoundTrip(c *check.C) {
	m := mustMatrix(c, []int8{0, 1, 2, -1, 1, 1}, []float64{0.1, 0.5, 0.9})
	var gbuf, pbuf bytes.Buffer
	c.Assert(m.WriteNumpy(&gbuf), check.IsNil)
	c.Assert(m.WritePositionsNumpy(&pbuf), check.IsNil)

	npy, err := gonpy.NewReader(bytes.NewReader(gbuf.Bytes()))
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{3, 2})

	decoded, err := ReadNumpy(bytes.NewReader(gbuf.Bytes()), bytes.NewReader(pbuf.Bytes()))
	c.Assert(err, check.IsNil)
	c.Check(decoded.Data(), check.DeepEquals, m.Data())
	c.Check(decoded.Positions(), check.DeepEquals, m.Positions())
	c.Check(decoded.NumSamples(), check.Equals, 2)
}

func (s *serializeSuite) TestNumpyShapeMismatch(c *check.C) {
	m := mustMatrix(c, []int8{0, 1, 1, 0}, []float64{1, 2})
	other := mustMatrix(c, []int8{0, 1, 1}, []float64{1, 2, 3})
	var gbuf, pbuf bytes.Buffer
	c.Assert(m.WriteNumpy(&gbuf), check.IsNil)
	c.Assert(other.WritePositionsNumpy(&pbuf), check.IsNil)
	_, err := ReadNumpy(&gbuf, &pbuf)
	c.Check(errors.Is(err, ErrShape), check.Equals, true)
}

func (s *serializeSuite) TestAlleleCountNumpy(c *check.C) {
	ac, err := CountAlleles(mustMatrix(c, []int8{0, 1, 1, 1, -1, 0}, []float64{1, 2}))
	c.Assert(err, check.IsNil)
	var buf bytes.Buffer
	c.Assert(ac.WriteNumpy(&buf), check.IsNil)
	npy, err := gonpy.NewReader(&buf)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{2, 2})
	counts, err := npy.GetInt32()
	c.Assert(err, check.IsNil)
	c.Check(counts, check.DeepEquals, []int32{1, 2, 1, 1})
}
