// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/popgen-tools/popgen/sequence"
)

// zopen opens fnm for reading, decompressing it if the name ends in
// ".gz". "-" means stdin.
func zopen(fnm string, stdin io.Reader) (io.ReadCloser, error) {
	var f io.ReadCloser
	if fnm == "-" {
		f = ioutil.NopCloser(stdin)
	} else {
		var err error
		f, err = os.Open(fnm)
		if err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(fnm, ".gz") {
		return f, nil
	}
	rdr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipr{rdr, f}, nil
}

// gzipr wraps a ReadCloser and a Closer, presenting a single Close()
// method that closes both wrapped objects.
type gzipr struct {
	io.ReadCloser
	io.Closer
}

func (gr gzipr) Close() error {
	e1 := gr.ReadCloser.Close()
	e2 := gr.Closer.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

// zcreate creates fnm for writing, compressing if the name ends in
// ".gz". "-" means stdout. The caller must Close the result to flush
// it.
func zcreate(fnm string, stdout io.Writer) (io.WriteCloser, error) {
	var f io.WriteCloser
	if fnm == "-" {
		f = nopCloser{stdout}
	} else {
		var err error
		f, err = os.OpenFile(fnm, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
	}
	bufw := bufio.NewWriterSize(f, 4*1024*1024)
	if !strings.HasSuffix(fnm, ".gz") {
		return &bufferedWriter{bufw, f}, nil
	}
	return &gzipw{pgzip.NewWriter(bufw), bufw, f}, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

type bufferedWriter struct {
	*bufio.Writer
	f io.Closer
}

func (w *bufferedWriter) Close() error {
	err := w.Writer.Flush()
	if e := w.f.Close(); err == nil {
		err = e
	}
	return err
}

type gzipw struct {
	*pgzip.Writer
	bufw *bufio.Writer
	f    io.Closer
}

func (w *gzipw) Close() error {
	err := w.Writer.Close()
	if e := w.bufw.Flush(); err == nil {
		err = e
	}
	if e := w.f.Close(); err == nil {
		err = e
	}
	return err
}

// dataset is one replicate read from an input file: either a variant
// matrix or a text site table.
type dataset struct {
	matrix *sequence.VariantMatrix
	poly   *sequence.PolyTable
}

func (d dataset) table() sequence.Table {
	if d.matrix != nil {
		return d.matrix
	}
	return d.poly
}

type window struct {
	lo, hi float64
	table  sequence.Table
}

// windows returns the sliding windows of d, or the whole table as a
// single window if opts.Size is zero.
func (d dataset) windows(opts windowOptions) ([]window, error) {
	t := d.table()
	if opts.Size == 0 {
		w := window{lo: math.NaN(), hi: math.NaN(), table: t}
		if n := t.NumSites(); n > 0 {
			w.lo, w.hi = t.Position(0), t.Position(n-1)
		}
		return []window{w}, nil
	}
	end := opts.End
	if end <= opts.Start {
		end = math.Nextafter(lastPosition(t), math.Inf(1))
	}
	var out []window
	collect := func(k int, lo, hi float64, t sequence.Table) error {
		out = append(out, window{lo, hi, t})
		return nil
	}
	if d.matrix != nil {
		w, err := sequence.SlidingWindows(d.matrix, opts.Size, opts.Step, opts.Start, end)
		if err != nil {
			return nil, err
		}
		err = w.Each(func(k int, lo, hi float64, t *sequence.VariantMatrix) error { return collect(k, lo, hi, t) })
		return out, err
	}
	w, err := sequence.SlidingWindows(d.poly, opts.Size, opts.Step, opts.Start, end)
	if err != nil {
		return nil, err
	}
	err = w.Each(func(k int, lo, hi float64, t *sequence.PolyTable) error { return collect(k, lo, hi, t) })
	return out, err
}

func lastPosition(t sequence.Table) float64 {
	if n := t.NumSites(); n > 0 {
		return t.Position(n - 1)
	}
	return 0
}

// readDatasets calls fn with each replicate in fnm. Files named
// *.sites or *.sites.gz hold a single text site table; anything else
// is a stream of encoded variant matrices.
func readDatasets(fnm string, stdin io.Reader, fn func(rep int, d dataset) error) error {
	input, err := zopen(fnm, stdin)
	if err != nil {
		return err
	}
	defer input.Close()
	if strings.HasSuffix(strings.TrimSuffix(fnm, ".gz"), ".sites") {
		t, err := readSites(input)
		if err != nil {
			return fmt.Errorf("%s: %w", fnm, err)
		}
		if err = fn(0, dataset{poly: t}); err != nil {
			return err
		}
		return input.Close()
	}
	rep := 0
	err = sequence.DecodeMatrices(bufio.NewReader(input), func(m *sequence.VariantMatrix) error {
		err := fn(rep, dataset{matrix: m})
		rep++
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", fnm, err)
	}
	return input.Close()
}

// readSites parses a site table: one "position<TAB>states" line per
// site, where states holds one character per sample. Blank lines and
// lines starting with "#" are ignored. A table whose states are all
// '0' or '1' is simulated data; anything else is nucleotide data.
func readSites(r io.Reader) (*sequence.PolyTable, error) {
	var sites []sequence.Site
	kind := sequence.SimData
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 64*1024*1024)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, found %d", lineno, len(fields))
		}
		pos, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if strings.Trim(fields[1], "01") != "" {
			kind = sequence.PolySites
		}
		sites = append(sites, sequence.Site{Position: pos, States: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sequence.PolyTableFromSites(kind, sites)
}

// readGeneticMap parses "position<TAB>map position" lines.
func readGeneticMap(fnm string) (map[float64]float64, error) {
	f, err := zopen(fnm, nil)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gmap := map[float64]float64{}
	scanner := bufio.NewScanner(f)
	for lineno := 1; scanner.Scan(); lineno++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0][0] == '#' {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s line %d: expected 2 fields, found %d", fnm, lineno, len(fields))
		}
		pos, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", fnm, lineno, err)
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", fnm, lineno, err)
		}
		gmap[pos] = x
	}
	return gmap, scanner.Err()
}

type field struct {
	name  string
	value float64
}

// recordWriter writes rows of numeric fields as TSV (with a header
// taken from the first row) or as one JSON object per line. NaN is
// written as "NaN" in TSV and null in JSON.
type recordWriter struct {
	w      *bufio.Writer
	jsonl  bool
	header bool
}

func newRecordWriter(w io.Writer, format string) (*recordWriter, error) {
	switch format {
	case "tsv", "":
		return &recordWriter{w: bufio.NewWriter(w)}, nil
	case "json":
		return &recordWriter{w: bufio.NewWriter(w), jsonl: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func (rw *recordWriter) Write(fields []field) error {
	if rw.jsonl {
		rw.w.WriteByte('{')
		for i, f := range fields {
			if i > 0 {
				rw.w.WriteByte(',')
			}
			name, _ := json.Marshal(f.name)
			rw.w.Write(name)
			rw.w.WriteByte(':')
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				rw.w.WriteString("null")
			} else {
				rw.w.WriteString(strconv.FormatFloat(f.value, 'g', -1, 64))
			}
		}
		_, err := rw.w.WriteString("}\n")
		return err
	}
	if !rw.header {
		for i, f := range fields {
			if i > 0 {
				rw.w.WriteByte('\t')
			}
			rw.w.WriteString(f.name)
		}
		rw.w.WriteByte('\n')
		rw.header = true
	}
	for i, f := range fields {
		if i > 0 {
			rw.w.WriteByte('\t')
		}
		rw.w.WriteString(strconv.FormatFloat(f.value, 'g', -1, 64))
	}
	_, err := rw.w.WriteString("\n")
	return err
}

func (rw *recordWriter) Flush() error {
	return rw.w.Flush()
}
