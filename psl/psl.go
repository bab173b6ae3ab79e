// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package psl reads PSL-format pairwise alignments into the in-memory
// align.Record model, applying the identity filter and interior-gap
// splitting the atomizer requires before its records ever reach the
// IMP engine.
package psl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/kortschak/atomizer/align"
	"github.com/kortschak/atomizer/region"
)

// Options configures PSL reading.
type Options struct {
	// MinIdentity is the minimum (matches+repMatches)/(matches+repMatches+misMatches)
	// fraction an alignment must have to be kept.
	MinIdentity float64
	// MaxGapLength is the maximum interior gap, in either target or
	// query coordinates, before an alignment is split in two.
	MaxGapLength region.Position
	// MinAlnLength is the minimum target span a surviving
	// sub-alignment must have.
	MinAlnLength region.Position
	// DropSelfAlignments drops alignments whose query and target span
	// are identical, reproducing the historical (now disabled by
	// default) self-alignment filter.
	DropSelfAlignments bool
}

// Catalogue is the result of reading one or more PSL files: every
// surviving alignment (and its symmetric inverse) plus the per-species
// offset table used to build the concatenated coordinate axis.
type Catalogue struct {
	Records     []*align.Record
	SpeciesStart map[string]region.Position
}

// Boundaries returns the sorted species-start offsets, including the
// sentinel "$" total-length entry.
func (c *Catalogue) Boundaries() []region.Position {
	bounds := make([]region.Position, 0, len(c.SpeciesStart))
	for _, p := range c.SpeciesStart {
		bounds = append(bounds, p)
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	return bounds
}

// ErrMalformedLine is wrapped into the error returned for any PSL line
// that cannot be parsed.
var ErrMalformedLine = fmt.Errorf("psl: malformed line")

// Read parses the PSL files named by paths in order, applying opts,
// and returns the combined catalogue.
func Read(paths []string, opts Options) (*Catalogue, error) {
	cat := &Catalogue{SpeciesStart: map[string]region.Position{"$": 0}}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("psl: opening %s: %w", path, err)
		}
		err = readOne(path, f, opts, cat)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func readOne(path string, r io.Reader, opts Options, cat *Catalogue) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := bytes.Split(line, []byte("\t"))
		if len(fields) != 21 {
			return fmt.Errorf("%s:%d: %w: got %d fields, want 21", path, lineNo, ErrMalformedLine, len(fields))
		}

		keep, err := passesIdentity(fields, opts.MinIdentity)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if !keep {
			continue
		}

		rec, err := recordFromFields(fields, cat.SpeciesStart)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if opts.DropSelfAlignments && rec.QStart == rec.TStart && rec.QEnd == rec.TEnd {
			continue
		}

		for _, part := range splitRecord(rec, opts.MaxGapLength, opts.MinAlnLength) {
			fwd := part
			rev := part.Invert()
			align.Link(&fwd, rev)
			cat.Records = append(cat.Records, &fwd, rev)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// passesIdentity applies the PSL identity filter from field values
// matches(0), misMatches(1), repMatches(2).
func passesIdentity(fields [][]byte, minIdentity float64) (bool, error) {
	matches, err := strconv.Atoi(string(fields[0]))
	if err != nil {
		return false, fmt.Errorf("parsing matches: %w", err)
	}
	misMatches, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return false, fmt.Errorf("parsing misMatches: %w", err)
	}
	repMatches, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return false, fmt.Errorf("parsing repMatches: %w", err)
	}
	total := matches + repMatches + misMatches
	if total == 0 {
		return false, nil
	}
	return float64(matches+repMatches)/float64(total) >= minIdentity, nil
}

// recordFromFields builds a full-resolution align.Record from one PSL
// line's fields, updating speciesStart as new sequence names are seen.
func recordFromFields(fields [][]byte, speciesStart map[string]region.Position) (align.Record, error) {
	strand := align.Plus
	if fields[8][0] == '-' {
		strand = align.Minus
	}
	qName := string(fields[9])
	tName := string(fields[13])

	qSize, err := strconv.ParseInt(string(fields[10]), 10, 64)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing qSize: %w", err)
	}
	tSize, err := strconv.ParseInt(string(fields[14]), 10, 64)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing tSize: %w", err)
	}

	qOffset := seenSpecies(speciesStart, qName, qSize)
	tOffset := seenSpecies(speciesStart, tName, tSize)

	qStart, err := strconv.ParseInt(string(fields[11]), 10, 64)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing qStart: %w", err)
	}
	qEnd, err := strconv.ParseInt(string(fields[12]), 10, 64)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing qEnd: %w", err)
	}
	tStart, err := strconv.ParseInt(string(fields[15]), 10, 64)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing tStart: %w", err)
	}
	tEnd, err := strconv.ParseInt(string(fields[16]), 10, 64)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing tEnd: %w", err)
	}

	blockCount, err := strconv.Atoi(string(fields[17]))
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing blockCount: %w", err)
	}
	blockSizes, err := splitInts(fields[18], blockCount)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing blockSizes: %w", err)
	}
	qStarts, err := splitInts(fields[19], blockCount)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing qStarts: %w", err)
	}
	tStarts, err := splitInts(fields[20], blockCount)
	if err != nil {
		return align.Record{}, fmt.Errorf("parsing tStarts: %w", err)
	}

	blocks := make([]align.Block, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		if blockSizes[i] == 0 {
			continue
		}
		var qs region.Position
		if strand == align.Plus {
			qs = qStarts[i] + qOffset
		} else {
			qs = qSize - qStarts[i] + qOffset
		}
		blocks = append(blocks, align.Block{
			Size:   blockSizes[i],
			QStart: qs,
			TStart: tStarts[i] + tOffset,
		})
	}

	return align.Record{
		Strand: strand,
		QStart: qStart + qOffset,
		QEnd:   qEnd + qOffset,
		TStart: tStart + tOffset,
		TEnd:   tEnd + tOffset,
		Blocks: blocks,
	}, nil
}

// seenSpecies returns the offset for name, registering it against the
// running "$" total if it has not been seen before.
func seenSpecies(speciesStart map[string]region.Position, name string, size region.Position) region.Position {
	if off, ok := speciesStart[name]; ok {
		return off
	}
	total := speciesStart["$"]
	speciesStart[name] = total
	speciesStart["$"] = total + size
	return total
}

func splitInts(field []byte, expect int) ([]region.Position, error) {
	parts := bytes.Split(bytes.TrimSuffix(field, []byte(",")), []byte(","))
	out := make([]region.Position, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		v, err := strconv.ParseInt(string(p), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) != expect {
		return nil, fmt.Errorf("expected %d values, got %d", expect, len(out))
	}
	return out, nil
}

// splitRecord splits aln at every interior gap exceeding maxGap in
// either target or query coordinates, keeping only sub-alignments
// whose target span is at least minAlnLength.
func splitRecord(aln align.Record, maxGap, minAlnLength region.Position) []align.Record {
	var out []align.Record
	start := 0
	for i := 0; i+1 < len(aln.Blocks); i++ {
		b, next := aln.Blocks[i], aln.Blocks[i+1]
		tGap := next.TStart - (b.TStart + b.Size)
		var qGap region.Position
		if aln.Strand == align.Plus {
			qGap = next.QStart - (b.QStart + b.Size)
		} else {
			qGap = b.QStart - (next.QStart + b.Size)
		}
		if tGap > maxGap || qGap > maxGap {
			if part, ok := cutRecord(aln, start, i); ok && part.Length() >= minAlnLength {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part, ok := cutRecord(aln, start, len(aln.Blocks)-1); ok && part.Length() >= minAlnLength {
		out = append(out, part)
	}
	return out
}

// cutRecord returns the sub-alignment of aln spanning blocks
// [startBlock, endBlock] inclusive.
func cutRecord(aln align.Record, startBlock, endBlock int) (align.Record, bool) {
	if startBlock > endBlock || endBlock >= len(aln.Blocks) {
		return align.Record{}, false
	}
	if startBlock == 0 && endBlock == len(aln.Blocks)-1 {
		return aln, true
	}
	first, last := aln.Blocks[startBlock], aln.Blocks[endBlock]
	out := align.Record{
		Strand: aln.Strand,
		TStart: first.TStart,
		TEnd:   last.TStart + last.Size,
		Blocks: append([]align.Block(nil), aln.Blocks[startBlock:endBlock+1]...),
	}
	if aln.Strand == align.Plus {
		out.QStart = first.QStart
		out.QEnd = last.QStart + last.Size
	} else {
		out.QStart = last.QStart - last.Size
		out.QEnd = first.QStart
	}
	return out, true
}
