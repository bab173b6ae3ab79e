// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bucket provides the fixed-width spatial index the IMP engine
// uses to find, in roughly constant time, every alignment whose target
// span might overlap a given position on the concatenated axis.
package bucket

import (
	"fmt"

	"github.com/biogo/store/interval"

	"github.com/kortschak/atomizer/align"
	"github.com/kortschak/atomizer/region"
)

// Index is a fixed-width bucket array over alignment records, plus an
// interval tree over species spans used to remap a global position
// back to its owning sequence name and local offset.
type Index struct {
	bucketSize region.Position
	buckets    [][]*align.Record
	species    interval.IntTree
}

// speciesSpan is one entry in the species interval tree: the global
// span [Start, End) occupied by a single input sequence.
type speciesSpan struct {
	name  string
	start region.Position
	end   region.Position
}

func (s speciesSpan) Overlap(b interval.IntRange) bool {
	return int(s.start) < b.End && b.Start < int(s.end)
}
func (s speciesSpan) ID() uintptr { return 0 }
func (s speciesSpan) Range() interval.IntRange {
	return interval.IntRange{Start: int(s.start), End: int(s.end)}
}

// Build indexes records into buckets of width bucketSize, and indexes
// speciesStart (name -> global start offset, including the "$"
// sentinel total) into a species-span interval tree.
func Build(records []*align.Record, bucketSize region.Position, speciesStart map[string]region.Position) *Index {
	if bucketSize < 1 {
		bucketSize = 1
	}
	idx := &Index{bucketSize: bucketSize}

	var maxPos region.Position
	for _, r := range records {
		if r.TEnd > maxPos {
			maxPos = r.TEnd
		}
	}
	nBuckets := int(maxPos/bucketSize) + 1
	idx.buckets = make([][]*align.Record, nBuckets)

	for _, r := range records {
		first := int(r.TStart / bucketSize)
		last := int(r.TEnd / bucketSize)
		for b := first; b <= last && b < nBuckets; b++ {
			idx.buckets[b] = append(idx.buckets[b], r)
		}
	}

	names := make([]string, 0, len(speciesStart))
	for name := range speciesStart {
		if name != "$" {
			names = append(names, name)
		}
	}
	total := speciesStart["$"]
	for _, name := range names {
		start := speciesStart[name]
		end := total
		for _, other := range names {
			os := speciesStart[other]
			if os > start && os < end {
				end = os
			}
		}
		err := idx.species.Insert(speciesSpan{name: name, start: start, end: end}, true)
		if err != nil {
			panic(fmt.Sprint(err))
		}
	}
	idx.species.AdjustRanges()

	return idx
}

// At returns every record whose bucket-width span may overlap p. The
// caller must still test exact overlap; this is a coarse pre-filter.
func (idx *Index) At(p region.Position) []*align.Record {
	b := int(p / idx.bucketSize)
	if b < 0 || b >= len(idx.buckets) {
		return nil
	}
	return idx.buckets[b]
}

// SpeciesAt returns the name and local (0-based, sequence-relative)
// offset of the sequence owning global position p, and whether one was
// found.
func (idx *Index) SpeciesAt(p region.Position) (name string, local region.Position, ok bool) {
	hits := idx.species.Get(speciesSpan{start: p, end: p + 1})
	for _, h := range hits {
		s := h.(speciesSpan)
		if p >= s.start && p < s.end {
			return s.name, p - s.start, true
		}
	}
	return "", 0, false
}
