// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// atomizer partitions the concatenated sequence space of a set of
// species, related by pairwise alignments in PSL format, into maximal
// atoms that are either entirely aligned or entirely unaligned under
// every input alignment, and groups aligned atoms into equivalence
// classes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kortschak/atomizer/bucket"
	"github.com/kortschak/atomizer/classify"
	"github.com/kortschak/atomizer/imp"
	"github.com/kortschak/atomizer/output"
	"github.com/kortschak/atomizer/psl"
	"github.com/kortschak/atomizer/region"
)

func main() {
	minLength := flag.Int64("minLength", 250, "specify minimum atom length")
	minIdent := flag.Float64("minIdent", 80, "specify minimum alignment percent identity")
	maxGap := flag.Int64("maxGap", 13, "specify maximum interior gap before an alignment is split")
	minAlnLength := flag.Int64("minAlnLength", 13, "specify minimum length of a surviving sub-alignment")
	bucketSize := flag.Int64("bucketSize", 1000, "specify bucket index width")
	numThreads := flag.Int("numThreads", 1, "specify number of IMP worker goroutines")
	maxIter := flag.Int("maxIter", 1000, "specify maximum IMP iterations before giving up")
	minCoverage := flag.Float64("minCoverage", 0.5, "specify minimum fractional coverage for a classification edge")
	dropSelf := flag.Bool("dropSelf", false, "specify to drop self-identity alignments")
	verbose := flag.Bool("verbose", false, "specify verbose progress logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s [options] <aln.psl> [<aln.psl> ...] >out.tsv 2>out.log

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	start := time.Now()
	shout := func(format string, args ...interface{}) {
		if *verbose {
			log.Printf(format+" (%s elapsed)", append(args, time.Since(start))...)
		}
	}

	shout("reading %d PSL file(s)", len(paths))
	cat, err := psl.Read(paths, psl.Options{
		MinIdentity:        *minIdent / 100,
		MaxGapLength:       *maxGap,
		MinAlnLength:       *minAlnLength,
		DropSelfAlignments: *dropSelf,
	})
	if err != nil {
		log.Fatal(err)
	}
	shout("read %d alignment records", len(cat.Records))

	idx := bucket.Build(cat.Records, *bucketSize, cat.SpeciesStart)
	numBuckets := int(cat.SpeciesStart["$"]/(*bucketSize)) + 1

	var starts, ends []region.Position
	for _, r := range cat.Records {
		starts = append(starts, r.TStart)
		ends = append(ends, r.TEnd)
	}
	breakpoints := region.InitBreakpoints(starts, ends, cat.Boundaries())

	waste, err := region.CreateWaste(breakpoints, *minLength)
	if err != nil {
		log.Fatal(err)
	}
	atoms := region.AtomsFromWaste(waste)
	shout("initial partition: %d atoms, %d waste regions", len(atoms), len(waste))

	threads := *numThreads
	if threads < 1 {
		threads = 1
	}
	cfg := imp.Config{
		BucketSize:    *bucketSize,
		MinLength:     *minLength,
		NumThreads:    threads,
		MaxIterations: *maxIter,
	}
	waste, err = imp.Run(atoms, waste, numBuckets, idx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	atoms = region.AtomsFromWaste(waste)
	shout("converged to %d atoms", len(atoms))

	g, err := classify.BuildGraph(atoms, waste, idx, *minCoverage)
	if err != nil {
		log.Fatal(err)
	}
	classes, err := classify.Classes(g, len(atoms))
	if err != nil {
		log.Fatal(err)
	}
	shout("classified %d atoms", len(classes))

	err = output.Write(os.Stdout, atoms, classes, idx)
	if err != nil {
		log.Fatal(err)
	}
}
