// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"bytes"
	"io/ioutil"
	"os"

	"gopkg.in/check.v1"
)

type fstSuite struct{}

var _ = check.Suite(&fstSuite{})

// two populations of two samples: fixed differences at 1 and 2,
// private polymorphisms at 3 and 4, a shared one at 5
const fstSites = "1\t0011\n2\t1100\n3\t0100\n4\t1101\n5\t0101\n"

func (s *fstSuite) TestFst(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(fstSites), 0644)
	c.Assert(err, check.IsNil)
	var stdout bytes.Buffer
	code := (&fstcmd{}).RunCommand("popgen fst", []string{"-i", tmpdir + "/in.sites", "-populations", "2,2"}, nil, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	rows := parseTSV(c, stdout.String())
	c.Assert(rows, check.HasLen, 1)
	for name, want := range map[string]float64{
		"nsites":      5,
		"pis":         2,
		"pit":         2.75,
		"hsm":         1 - 2/2.75,
		"pib_0_1":     3.5,
		"pid_0_1":     1.5,
		"slatkin":     0.75 / 4.75,
		"hbk":         1 - 2/3.5,
		"shared_0_1":  1,
		"private_0_1": 1,
		"private_1_0": 1,
		"fixed_0_1":   2,
	} {
		c.Check(approx(rows[0][name], want), check.Equals, true, check.Commentf("%s: got %v, want %v", name, rows[0][name], want))
	}
	_, ok := rows[0]["p"]
	c.Check(ok, check.Equals, false)
}

func (s *fstSuite) TestSitePvalues(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(fstSites), 0644)
	c.Assert(err, check.IsNil)
	code := (&fstcmd{}).RunCommand("popgen fst", []string{"-i", tmpdir + "/in.sites", "-populations", "2,2", "-site-pvalues", tmpdir + "/sites.tsv"}, nil, ioutil.Discard, os.Stderr)
	c.Assert(code, check.Equals, 0)
	rows := parseTSV(c, readFile(c, tmpdir+"/sites.tsv"))
	c.Assert(rows, check.HasLen, 5)
	// fixed differences are the most extreme split of four samples
	c.Check(rows[0]["p_0_1"] < rows[4]["p_0_1"], check.Equals, true)
	c.Check(rows[4]["p_0_1"], check.Equals, 1.0)

	code = (&fstcmd{}).RunCommand("popgen fst", []string{"-i", tmpdir + "/in.sites", "-populations", "2,2", "-site-pvalues", tmpdir + "/glm.tsv", "-site-test", "glm"}, nil, ioutil.Discard, os.Stderr)
	c.Assert(code, check.Equals, 0)
	rows = parseTSV(c, readFile(c, tmpdir+"/glm.tsv"))
	c.Assert(rows, check.HasLen, 5)
	c.Check(rows[4]["p_0_1"] > 0.999, check.Equals, true, check.Commentf("%v", rows[4]))

	code = (&fstcmd{}).RunCommand("popgen fst", []string{"-i", tmpdir + "/in.sites", "-populations", "2,2", "-site-pvalues", tmpdir + "/x.tsv", "-site-test", "fisher"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 2)
}

func (s *fstSuite) TestPermutations(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(fstSites), 0644)
	c.Assert(err, check.IsNil)
	run := func(threads string) []map[string]float64 {
		var stdout bytes.Buffer
		code := (&fstcmd{}).RunCommand("popgen fst", []string{"-i", tmpdir + "/in.sites", "-populations", "2,2", "-permutations", "20", "-seed", "7", "-window-size", "2", "-threads", threads}, nil, &stdout, os.Stderr)
		c.Assert(code, check.Equals, 0)
		return parseTSV(c, stdout.String())
	}
	rows := run("1")
	c.Assert(rows, check.HasLen, 3)
	for _, row := range rows {
		p, ok := row["p"]
		c.Check(ok, check.Equals, true)
		c.Check(p > 0 && p <= 1, check.Equals, true, check.Commentf("p=%v", p))
	}
	c.Check(run("3"), check.DeepEquals, rows)
}

func (s *fstSuite) TestUsage(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(fstSites), 0644)
	c.Assert(err, check.IsNil)
	for _, args := range [][]string{
		{"-populations", "4"},
		{"-populations", "2,x"},
		{"-populations", "2,2", "-weights", "1,y"},
	} {
		code := (&fstcmd{}).RunCommand("popgen fst", append([]string{"-i", tmpdir + "/in.sites"}, args...), nil, ioutil.Discard, ioutil.Discard)
		c.Check(code, check.Equals, 2, check.Commentf("%v", args))
	}
	code := (&fstcmd{}).RunCommand("popgen fst", []string{"-i", tmpdir + "/in.sites", "-populations", "2,3"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 1)
}
