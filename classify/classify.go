// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classify groups atoms that align to one another into signed
// equivalence classes, by building a weighted undirected graph over
// atom indices and propagating strand through each connected
// component.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kortschak/atomizer/align"
	"github.com/kortschak/atomizer/bucket"
	"github.com/kortschak/atomizer/region"
)

// ErrNoOverlap is returned when a mapped alignment region cannot be
// resolved to any atom with positive overlap.
var ErrNoOverlap = errors.New("classify: no atom overlaps mapped region")

// ErrStrandConflict is returned when a node is reached through two
// paths implying inconsistent strand signs within one component.
var ErrStrandConflict = errors.New("classify: inconsistent strand sign within component")

// atomNode adapts an atom index to graph.Node.
type atomNode int64

func (n atomNode) ID() int64 { return int64(n) }

// BuildGraph constructs the weighted undirected atom graph described
// by the classification rules: an edge between atoms i and j
// accumulates +1 for a '+' strand alignment and -1 for a '-' strand
// alignment connecting them, skipping edges below minCoverage or
// where the alignment fully covers both atoms.
func BuildGraph(atoms []region.Region, waste []region.WasteRegion, idx *bucket.Index, minCoverage float64) (*simple.WeightedUndirectedGraph, error) {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range atoms {
		g.AddNode(atomNode(i))
	}

	for i, atom := range atoms {
		mid := atom.Mid()
		for _, a := range idx.At(mid) {
			if a.TStart > atom.First || a.TEnd < atom.Last {
				continue
			}
			m := align.MapAtomThroughAln(atom, a)

			j, target, err := resolveAtom(atoms, waste, m)
			if err != nil {
				return nil, err
			}
			if j == i {
				continue
			}

			qSpan := region.Region{First: a.QStart, Last: a.QEnd}
			tSpan := region.Region{First: a.TStart, Last: a.TEnd}
			if coverage(target, qSpan) < minCoverage {
				continue
			}
			if coverage(target, m) <= 0 || coverage(m, target) <= 0 {
				continue
			}
			if coverage(target, tSpan) >= minCoverage && coverage(atom, qSpan) >= minCoverage {
				continue
			}

			w := 1.0
			if a.Strand == align.Minus {
				w = -1
			}
			addWeight(g, int64(i), int64(j), w)
		}
	}
	return g, nil
}

// addWeight accumulates w onto the edge between u and v, creating it
// if absent.
func addWeight(g *simple.WeightedUndirectedGraph, u, v int64, w float64) {
	if e := g.WeightedEdge(u, v); e != nil {
		w += e.Weight()
	}
	g.SetWeightedEdge(simple.WeightedEdge{F: atomNode(u), T: atomNode(v), W: w})
}

// resolveAtom resolves the mapped region m to the single atom it
// should connect to. A region bracketed within one waste slot, or
// spilling into the next slot only as far as that slot's own waste
// point, resolves to its bracketing atom directly with no overlap
// requirement; a region spanning further is resolved by chooseAtom.
func resolveAtom(atoms []region.Region, waste []region.WasteRegion, m region.Region) (int, region.Region, error) {
	regionFirst := region.BinSearchRegion(waste, m.First)
	regionLast := region.BinSearchRegion(waste, m.Last)

	switch {
	case regionFirst == regionLast:
		return regionFirst, atoms[regionFirst], nil
	case regionFirst == regionLast-1:
		if regionLast < len(waste) && m.Last <= waste[regionLast].Last {
			return regionFirst, atoms[regionFirst], nil
		}
	}
	return chooseAtom(atoms, waste, m, regionFirst, regionLast)
}

// chooseAtom resolves a mapped region spanning the half-open waste-slot
// range [regionFirst, regionLast) to the single atom index with maximal
// implied overlap length. regionLast itself is never a candidate: it
// names the waste point the region runs into, not an atom it occupies.
func chooseAtom(atoms []region.Region, waste []region.WasteRegion, m region.Region, regionFirst, regionLast int) (int, region.Region, error) {
	if regionLast >= len(waste) {
		regionLast = len(waste) - 1
	}
	if regionFirst < 0 {
		regionFirst = 0
	}

	maxJ := regionFirst
	var maxLength region.Position
	for j := regionFirst; j < regionLast; j++ {
		var newLength region.Position
		switch {
		case j == regionFirst:
			newLength = waste[j+1].First - m.First
		case j+1 != regionLast:
			newLength = waste[j+1].First - waste[j].Last + 1
		default: // j == regionLast-1
			if waste[j+1].Last < m.Last {
				newLength = m.Last - waste[j+1].Last
			}
		}
		if newLength > maxLength {
			maxLength = newLength
			maxJ = j
		}
	}
	if maxLength <= 0 || maxJ >= len(atoms) {
		return 0, region.Region{}, fmt.Errorf("%w: region %v", ErrNoOverlap, m)
	}
	return maxJ, atoms[maxJ], nil
}

func overlapLength(a, b region.Region) region.Position {
	first := a.First
	if b.First > first {
		first = b.First
	}
	last := a.Last
	if b.Last < last {
		last = b.Last
	}
	if last < first {
		return 0
	}
	return last - first + 1
}

// coverage returns the fraction of atom covered by span.
func coverage(atom region.Region, span region.Region) float64 {
	ov := overlapLength(atom, span)
	if ov <= 0 {
		return 0
	}
	return float64(ov) / float64(atom.Len())
}

// Classes returns, for each atom index, a signed class number whose
// absolute value identifies its connected component (numbered from 1
// in ascending order of each component's lowest atom index) and whose
// sign gives its strand relative to that component's root.
func Classes(g graph.Undirected, n int) ([]int, error) {
	classes := make([]int, n)
	visited := make([]bool, n)

	components := topo.ConnectedComponents(g)
	for _, comp := range components {
		sort.Slice(comp, func(i, j int) bool { return comp[i].ID() < comp[j].ID() })
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0].ID() < components[j][0].ID() })
	classNr := 0
	for _, comp := range components {
		classNr++
		roots := make([]graph.Node, len(comp))
		copy(roots, comp)
		if len(roots) == 0 {
			continue
		}
		// Deterministic root choice: lowest atom index in the
		// component, matching the "component-traversal order by
		// atom index ascending" requirement.
		root := roots[0].ID()
		for _, r := range roots {
			if r.ID() < root {
				root = r.ID()
			}
		}

		if err := propagate(g, root, classNr, classes, visited); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

// propagate performs a breadth-first signed-strand walk over the
// component containing root, assigning classes[root] = +classNr and
// every other node a sign relative to root via the product of edge
// weights along the discovering path.
func propagate(g graph.Undirected, root int64, classNr int, classes []int, visited []bool) error {
	type queued struct {
		id   int64
		sign int
	}
	queue := []queued{{id: root, sign: 1}}
	visited[root] = true
	classes[root] = classNr

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		it := g.From(cur.id)
		for it.Next() {
			next := it.Node().ID()
			e := g.WeightedEdge(cur.id, next)
			sign := 1
			if e.Weight() < 0 {
				sign = -1
			}
			nextSign := cur.sign * sign

			want := classNr * nextSign
			if !visited[next] {
				visited[next] = true
				classes[next] = want
				queue = append(queue, queued{id: next, sign: nextSign})
				continue
			}
			if classes[next] != want {
				return fmt.Errorf("%w: atom %d", ErrStrandConflict, next)
			}
		}
	}
	return nil
}
