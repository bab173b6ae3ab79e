// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imp implements the Iterative Minimizing Partitioning engine:
// the fixed-point loop that repeatedly pulls alignment-mapped waste
// back through every atom until the partition stops changing.
package imp

import (
	"errors"
	"sort"
	"sync"

	"github.com/kortschak/atomizer/align"
	"github.com/kortschak/atomizer/bucket"
	"github.com/kortschak/atomizer/region"
)

// Config holds the tunables the IMP loop needs on every iteration.
type Config struct {
	BucketSize region.Position
	MinLength  region.Position
	NumThreads int
	// MaxIterations bounds the refinement loop as a safety net; zero
	// means unbounded.
	MaxIterations int
}

// ErrIterationCapExceeded is returned when cfg.MaxIterations is
// exceeded without the atom partition reaching a fixed point.
var ErrIterationCapExceeded = errors.New("imp: iteration cap exceeded without convergence")

// Run repeatedly refines waste until the derived atom set stops
// changing, or cfg.MaxIterations is exceeded, and returns the final
// waste-region list.
func Run(atoms []region.Region, waste []region.WasteRegion, numBuckets int, idx *bucket.Index, cfg Config) ([]region.WasteRegion, error) {
	if cfg.NumThreads < 1 {
		cfg.NumThreads = 1
	}
	eps := 1.0 / (float64(cfg.BucketSize) * float64(numBuckets))
	if numBuckets == 0 {
		eps = 0
	}

	iter := 0
	for {
		iter++
		if cfg.MaxIterations > 0 && iter > cfg.MaxIterations {
			return waste, ErrIterationCapExceeded
		}

		added := runIteration(atoms, waste, idx, cfg, eps)

		merged := make([]region.WasteRegion, 0, len(waste)+len(added))
		merged = append(merged, waste...)
		merged = append(merged, added...)
		consolidated := region.Consolidate(merged, cfg.MinLength)

		newAtoms := region.AtomsFromWaste(consolidated)
		if region.SameAtoms(atoms, newAtoms) {
			return consolidated, nil
		}
		waste = consolidated
		atoms = newAtoms
	}
}

// runIteration performs one pass of the per-atom step across all
// atoms, statically partitioned across cfg.NumThreads goroutines, and
// returns the combined new waste regions as a flat (First,Last)
// region list, not yet sorted or consolidated.
func runIteration(atoms []region.Region, waste []region.WasteRegion, idx *bucket.Index, cfg Config, eps float64) []region.WasteRegion {
	n := cfg.NumThreads
	if n > len(atoms) {
		n = len(atoms)
	}
	if n < 1 {
		n = 1
	}
	chunks := make([][]region.Region, n)
	chunkSize := (len(atoms) + n - 1) / n
	for i := 0; i < n; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if lo > len(atoms) {
			lo = len(atoms)
		}
		if hi > len(atoms) {
			hi = len(atoms)
		}
		chunks[i] = atoms[lo:hi]
	}

	outputs := make([][]region.Region, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for t := 0; t < n; t++ {
		t := t
		go func() {
			defer wg.Done()
			var local []region.Region
			for _, atom := range chunks[t] {
				local = append(local, processAtom(atom, waste, idx, cfg, eps)...)
			}
			outputs[t] = local
		}()
	}
	wg.Wait()

	var out []region.WasteRegion
	for _, chunk := range outputs {
		for _, r := range chunk {
			out = append(out, region.WasteRegion{First: r.First, Last: r.Last})
		}
	}
	return out
}

// processAtom runs the per-atom candidate-interval collection,
// partition, and DP, returning the new waste regions it implies.
func processAtom(atom region.Region, waste []region.WasteRegion, idx *bucket.Index, cfg Config, eps float64) []region.Region {
	mid := atom.Mid()
	candidates := []region.Region{{First: atom.First, Last: atom.First}, {First: atom.Last, Last: atom.Last}}

	for _, a := range idx.At(mid) {
		if a.TStart > atom.First || a.TEnd < atom.Last {
			continue
		}
		m := align.MapAtomThroughAln(atom, a)

		lo := region.BinSearchRegion(waste, m.First)
		hi := region.BinSearchRegion(waste, m.Last)
		if hi >= len(waste) {
			hi = len(waste) - 1
		}
		for wi := lo; wi <= hi && wi < len(waste); wi++ {
			w := waste[wi]
			if w.Last < m.First || w.First > m.Last {
				continue
			}
			ir1 := align.MapBreakpoint(w.First, a.Sym)
			ir2 := align.MapBreakpoint(w.Last, a.Sym)
			first, last := ir1, ir2
			if first > last {
				first, last = last, first
			}
			if last < atom.First || first > atom.Last {
				continue
			}
			clipped := region.Clip(region.Region{First: first, Last: last}, atom)
			candidates = append(candidates, clipped)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })
	candidates = dedupeRegions(candidates)

	covering, notCovering := partition(candidates)
	if len(notCovering) == 0 {
		return nil
	}
	return findWaste(covering, notCovering, eps, cfg.MinLength, atom.First)
}

func dedupeRegions(rs []region.Region) []region.Region {
	if len(rs) == 0 {
		return rs
	}
	out := rs[:1]
	for _, r := range rs[1:] {
		if !r.Equal(out[len(out)-1]) {
			out = append(out, r)
		}
	}
	return out
}

// partition splits sorted candidates into covering and non-covering
// stacks following the stack-based algorithm: a region is covering if
// it strictly dominates the most recently accepted covering region to
// its right, or sits above the current top of the non-covering stack.
func partition(candidates []region.Region) (covering, notCovering []region.Region) {
	for _, r := range candidates {
		switch {
		case len(covering) > 0 && covering[len(covering)-1].First >= r.First:
			for len(covering) > 0 && covering[len(covering)-1].First >= r.First {
				covering = covering[:len(covering)-1]
			}
			covering = append(covering, r)
		case len(notCovering) > 0 && notCovering[len(notCovering)-1].First >= r.First:
			covering = append(covering, r)
		default:
			notCovering = append(notCovering, r)
		}
	}
	return covering, notCovering
}

// posRecord is the DP scratch state kept per coordinate considered
// during findWaste.
type posRecord struct {
	cost           float64
	dist           bool
	prev           region.Position
	hasPrev        bool
	notCoveringIDs []int
	coveringIDs    []int
}

// findWaste runs the dynamic program described by the per-atom step
// over the covering/non-covering candidate intervals, and returns the
// new waste regions it selects.
func findWaste(covering, notCovering []region.Region, eps float64, minLength region.Position, atomFirst region.Position) []region.Region {
	allPositions := make(map[region.Position]*posRecord)
	var positions []region.Position

	for i, r := range notCovering {
		for p := r.First; p <= r.Last; p++ {
			rec, ok := allPositions[p]
			if !ok {
				rec = &posRecord{}
				allPositions[p] = rec
				positions = append(positions, p)
			}
			rec.notCoveringIDs = append(rec.notCoveringIDs, i)
		}
	}
	for j, r := range covering {
		for p := r.First; p <= r.Last; p++ {
			if rec, ok := allPositions[p]; ok {
				rec.coveringIDs = append(rec.coveringIDs, j)
			}
		}
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	lastFinishedIdx := 0
	for pi, p := range positions {
		if pi == 0 {
			allPositions[p].cost = 0
			allPositions[p].dist = false
			continue
		}
		for lastFinishedIdx+1 < len(notCovering) && notCovering[lastFinishedIdx+1].Last < p {
			lastFinishedIdx++
		}
		closestLeft := notCovering[lastFinishedIdx]
		pRec := allPositions[p]

		var bestCost float64 = -1
		var bestDist bool
		var bestPrev region.Position
		for l := closestLeft.Last; l >= closestLeft.First; l-- {
			lRec, ok := allPositions[l]
			if !ok {
				continue
			}
			diff := p - l
			if diff < minLength {
				cost := lRec.cost + float64(diff)
				if bestCost < 0 || cost < bestCost {
					bestCost, bestDist, bestPrev = cost, true, l
				}
				continue
			}
			if hasCommon(lRec.notCoveringIDs, pRec.notCoveringIDs) {
				cost := lRec.cost + float64(diff)
				if bestCost < 0 || cost < bestCost {
					bestCost, bestDist, bestPrev = cost, true, l
				}
			} else {
				cost := lRec.cost + eps
				if bestCost < 0 || cost < bestCost {
					bestCost, bestDist, bestPrev = cost, false, l
				}
			}
			if hasCommon(lRec.coveringIDs, pRec.coveringIDs) {
				cost := lRec.cost + float64(diff)
				if bestCost < 0 || cost < bestCost {
					bestCost, bestDist, bestPrev = cost, true, l
				}
			} else {
				cost := lRec.cost + eps
				if bestCost < 0 || cost < bestCost {
					bestCost, bestDist, bestPrev = cost, false, l
				}
			}
		}
		pRec.cost = bestCost
		pRec.dist = bestDist
		pRec.prev = bestPrev
		pRec.hasPrev = true
	}

	return traceback(allPositions, notCovering, atomFirst)
}

// hasCommon reports whether a and b, both ascending, share an element.
func hasCommon(a, b []int) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// traceback follows prev pointers from the rightmost position of the
// last non-covering interval back toward atomFirst, emitting the new
// waste regions implied by the chosen predecessor chain. A run of
// positions linked by dist==true extends a single region leftward; a
// dist==false link starts a fresh region.
func traceback(allPositions map[region.Position]*posRecord, notCovering []region.Region, atomFirst region.Position) []region.Region {
	if len(notCovering) == 0 {
		return nil
	}
	current := notCovering[len(notCovering)-1].Last
	rec, ok := allPositions[current]
	if !ok {
		return nil
	}

	var result []region.Region
	cur := region.Region{First: current, Last: current}
	for rec.hasPrev {
		prev := rec.prev
		if prev < atomFirst {
			break
		}
		if rec.dist {
			// p merged with its predecessor: extend the region
			// being emitted leftward instead of closing it.
			cur.First = prev
		} else {
			result = append(result, cur)
			cur = region.Region{First: prev, Last: prev}
		}
		current = prev
		rec, ok = allPositions[current]
		if !ok {
			break
		}
	}
	result = append(result, cur)
	return result
}
