// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align holds the in-memory alignment model: records parsed
// from PSL lines, their per-block coordinates, and the forward/reverse
// symmetry the IMP engine relies on to pull waste back through an atom.
package align

import (
	"sort"

	"github.com/kortschak/atomizer/region"
)

// Strand is the orientation of an alignment.
type Strand int8

const (
	Plus  Strand = 1
	Minus Strand = -1
)

func (s Strand) String() string {
	if s == Minus {
		return "-"
	}
	return "+"
}

// Block is one ungapped sub-alignment within a Record, in global
// concatenated coordinates.
type Block struct {
	Size          region.Position
	QStart, TStart region.Position
}

// Record is a single alignment between a query and a target span of the
// concatenated sequence axis.
type Record struct {
	Strand             Strand
	QStart, QEnd       region.Position
	TStart, TEnd       region.Position
	Blocks             []Block

	// Sym is the symmetric inverse of this record (query and target
	// swapped). Sym.Sym == this record. The pair shares lifetime; set
	// by the PSL reader immediately after both records are built.
	Sym *Record
}

// Length returns the target span length of the record.
func (a *Record) Length() region.Position { return a.TEnd - a.TStart }

// tStarts returns the block target starts in global coordinates, in
// block order.
func (a *Record) tStarts() []region.Position {
	s := make([]region.Position, len(a.Blocks))
	for i, b := range a.Blocks {
		s[i] = b.TStart
	}
	return s
}

// blockIndexFor returns the index of the last block whose TStart is
// <= p, or 0 if no such block exists. a.Blocks must be sorted
// ascending by TStart.
func (a *Record) blockIndexFor(p region.Position) int {
	starts := a.tStarts()
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > p })
	if i == 0 {
		return 0
	}
	return i - 1
}

// MapBreakpoint maps a target position p through the alignment to the
// corresponding query position.
func MapBreakpoint(p region.Position, a *Record) region.Position {
	i := a.blockIndexFor(p)
	b := a.Blocks[i]
	dist := p - b.TStart
	if dist < 0 {
		dist = 0
	}
	if dist > b.Size {
		dist = b.Size
	}
	if a.Strand == Plus {
		return b.QStart + dist
	}
	return b.QStart - dist
}

// MapAtomThroughAln maps both endpoints of atom through a and returns
// the resulting Region, endpoints ordered ascending.
func MapAtomThroughAln(atom region.Region, a *Record) region.Region {
	first := MapBreakpoint(atom.First, a)
	last := MapBreakpoint(atom.Last, a)
	if first <= last {
		return region.Region{First: first, Last: last}
	}
	return region.Region{First: last, Last: first}
}

// Invert returns the symmetric alignment (query and target swapped). On
// the reverse strand block order is reversed and block-relative
// endpoints swap, so that the inverse record's blocks remain
// non-decreasing in its own TStart.
func (a *Record) Invert() *Record {
	n := len(a.Blocks)
	blocks := make([]Block, n)
	if a.Strand == Plus {
		for i, b := range a.Blocks {
			blocks[i] = Block{Size: b.Size, QStart: b.TStart, TStart: b.QStart}
		}
	} else {
		for i, b := range a.Blocks {
			blocks[n-1-i] = Block{
				Size:   b.Size,
				QStart: b.TStart + b.Size,
				TStart: b.QStart - b.Size,
			}
		}
	}
	return &Record{
		Strand: a.Strand,
		QStart: a.TStart,
		QEnd:   a.TEnd,
		TStart: a.QStart,
		TEnd:   a.QEnd,
		Blocks: blocks,
	}
}

// Link sets a and b as each other's symmetric inverse.
func Link(a, b *Record) {
	a.Sym = b
	b.Sym = a
}
