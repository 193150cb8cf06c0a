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

type ldSuite struct{}

var _ = check.Suite(&ldSuite{})

// two pairs of identical sites and a recombinant
const ldSites = "1\t0011\n2\t0011\n3\t0101\n4\t0101\n5\t0110\n"

func (s *ldSuite) TestLD(c *check.C) {
	tmpdir := c.MkDir()
	err := ioutil.WriteFile(tmpdir+"/in.sites", []byte(ldSites), 0644)
	c.Assert(err, check.IsNil)

	var stdout bytes.Buffer
	code := (&ldcmd{}).RunCommand("popgen ld", []string{"-i", tmpdir + "/in.sites"}, nil, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	rows := parseTSV(c, stdout.String())
	c.Assert(rows, check.HasLen, 10)
	c.Check(rows[0]["i"], check.Equals, 1.0)
	c.Check(rows[0]["j"], check.Equals, 2.0)
	c.Check(approx(rows[0]["rsq"], 1), check.Equals, true)
	c.Check(approx(rows[0]["Dprime"], 1), check.Equals, true)
	c.Check(approx(rows[1]["rsq"], 0), check.Equals, true)

	stdout.Reset()
	code = (&ldcmd{}).RunCommand("popgen ld", []string{"-i", tmpdir + "/in.sites", "-max-distance", "1.5", "-format", "json"}, nil, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	c.Check(stdout.String(), check.Matches, `(\{"replicate":0,"i":\d,"j":\d,.*\}\n){4}`)

	stdout.Reset()
	code = (&ldcmd{}).RunCommand("popgen ld", []string{"-i", tmpdir + "/in.sites", "-min-count", "3"}, nil, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	c.Check(stdout.String(), check.Equals, "")

	code = (&ldcmd{}).RunCommand("popgen ld", []string{"-i", tmpdir + "/in.sites", "-min-count", "0"}, nil, ioutil.Discard, ioutil.Discard)
	c.Check(code, check.Equals, 2)
}
