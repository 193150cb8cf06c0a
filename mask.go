// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// interval is a closed range of positions.
type interval struct {
	start float64
	end   float64
}

type intervalTreeNode struct {
	interval interval
	maxend   float64
}

type intervalTree []intervalTreeNode

// regionMask is a set of intervals per sequence name, answering
// overlap queries once frozen.
type regionMask struct {
	intervals map[string][]interval
	itrees    map[string]intervalTree
	frozen    bool
}

func (m *regionMask) Add(seqname string, start, end float64) {
	if m.intervals == nil {
		m.intervals = map[string][]interval{}
	}
	m.intervals[seqname] = append(m.intervals[seqname], interval{start, end})
	m.frozen = false
}

func (m *regionMask) Len() int {
	n := 0
	for _, in := range m.intervals {
		n += len(in)
	}
	return n
}

// SeqNames returns the sorted names of the sequences with at least
// one interval.
func (m *regionMask) SeqNames() []string {
	var names []string
	for name, in := range m.intervals {
		if len(in) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *regionMask) Freeze() {
	m.itrees = map[string]intervalTree{}
	for seqname, intervals := range m.intervals {
		m.itrees[seqname] = freezeIntervals(intervals)
	}
	m.frozen = true
}

// Check reports whether [start, end] overlaps any interval on
// seqname.
func (m *regionMask) Check(seqname string, start, end float64) bool {
	if !m.frozen {
		panic("bug: (*regionMask)Check() called before Freeze()")
	}
	return m.itrees[seqname].check(0, interval{start, end})
}

// Contains reports whether pos falls in an interval on seqname.
func (m *regionMask) Contains(seqname string, pos float64) bool {
	return m.Check(seqname, pos, pos)
}

func freezeIntervals(in []interval) intervalTree {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		return in[i].start < in[j].start
	})
	itreesize := 1
	for itreesize < len(in) {
		itreesize = itreesize * 2
	}
	itree := make(intervalTree, itreesize)
	for i := range itree {
		itree[i].maxend = math.Inf(-1)
	}
	itree.importSlice(0, in)
	return itree
}

func (itree intervalTree) check(root int, q interval) bool {
	return root < len(itree) &&
		itree[root].maxend >= q.start &&
		((itree[root].interval.start <= q.end && itree[root].interval.end >= q.start) ||
			itree.check(root*2+1, q) ||
			itree.check(root*2+2, q))
}

func (itree intervalTree) importSlice(root int, in []interval) float64 {
	mid := len(in) / 2
	node := intervalTreeNode{interval: in[mid], maxend: in[mid].end}
	if mid > 0 {
		end := itree.importSlice(root*2+1, in[0:mid])
		if end > node.maxend {
			node.maxend = end
		}
	}
	if mid+1 < len(in) {
		end := itree.importSlice(root*2+2, in[mid+1:])
		if end > node.maxend {
			node.maxend = end
		}
	}
	itree[root] = node
	return node.maxend
}

// loadBED adds the regions of a BED file to m. BED intervals are
// 0-based and half-open; each is stored as the closed range of the
// 1-based positions it covers.
func (m *regionMask) loadBED(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return fmt.Errorf("line %d: expected at least 3 fields, found %d", lineno, len(fields))
		}
		start, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		end, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		if end < start {
			return fmt.Errorf("line %d: end %v before start %v", lineno, end, start)
		}
		m.Add(fields[0], start+1, end)
	}
	return scanner.Err()
}
