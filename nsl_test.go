// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"bytes"
	"io/ioutil"
	"math"
	"os"

	"gopkg.in/check.v1"
)

type nslSuite struct{}

var _ = check.Suite(&nslSuite{})

const nslSites = "1\t0101\n2\t0011\n3\t0011\n4\t0010\n6\t0101\n"

func (s *nslSuite) TestNSL(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(nslSites), 0644)
	c.Assert(err, check.IsNil)
	err = ioutil.WriteFile(tmpdir+"/map.txt", []byte("1 0\n2 1\n3 1.5\n4 2\n6 10\n"), 0644)
	c.Assert(err, check.IsNil)

	var stdout bytes.Buffer
	code := (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites"}, nil, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	rows := parseTSV(c, stdout.String())
	c.Assert(rows, check.HasLen, 5)
	c.Check(rows[2]["position"], check.Equals, 3.0)
	c.Check(rows[2]["core_count"], check.Equals, 2.0)
	c.Check(approx(rows[2]["nsl"], math.Log(4.0/3)), check.Equals, true)
	c.Check(approx(rows[2]["ihs"], math.Log(5.0/3)), check.Equals, true)
	c.Check(math.IsNaN(rows[0]["nsl"]), check.Equals, true)

	stdout.Reset()
	code = (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites", "-genetic-map", tmpdir + "/map.txt", "-standardize"}, nil, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	rows = parseTSV(c, stdout.String())
	c.Assert(rows, check.HasLen, 5)
	c.Check(approx(rows[2]["ihs"], math.Log(5)), check.Equals, true)
	c.Check(rows[2]["bin"], check.Equals, 3.0)
	_, ok := rows[2]["z"]
	c.Check(ok, check.Equals, true)

	// with one derived state, -derived-state 1 changes nothing
	var all, derived bytes.Buffer
	code = (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites"}, nil, &all, os.Stderr)
	c.Assert(code, check.Equals, 0)
	code = (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites", "-derived-state", "1"}, nil, &derived, os.Stderr)
	c.Assert(code, check.Equals, 0)
	c.Check(derived.String(), check.Equals, all.String())
}

func (s *nslSuite) TestErrors(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(nslSites), 0644)
	c.Assert(err, check.IsNil)
	err = ioutil.WriteFile(tmpdir+"/map.txt", []byte("1 0\n2 1\n"), 0644)
	c.Assert(err, check.IsNil)
	err = ioutil.WriteFile(tmpdir+"/dna.sites", []byte("1\tACGT\n2\tAACC\n"), 0644)
	c.Assert(err, check.IsNil)

	code := (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites", "-genetic-map", tmpdir + "/map.txt"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 1)
	code = (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/dna.sites"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 1)
	code = (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites", "-bin-size", "0"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 2)
	code = (&nslcmd{}).RunCommand("popgen nsl", []string{"-i", tmpdir + "/in.sites", "-derived-state", "0"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 2)
}
