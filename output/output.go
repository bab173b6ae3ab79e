// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package output writes the final atom table: one row per atom,
// remapped from the concatenated coordinate axis back to its owning
// source sequence.
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kortschak/atomizer/bucket"
	"github.com/kortschak/atomizer/region"
)

// Write emits the tab-separated atom table for atoms and their
// parallel classes slice (classes[i] is the signed class of atoms[i])
// to w, resolving each atom's owning sequence and local coordinates
// via idx.
func Write(w io.Writer, atoms []region.Region, classes []int, idx *bucket.Index) error {
	if len(classes) != len(atoms) {
		return fmt.Errorf("output: %d atoms but %d classes", len(atoms), len(classes))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#name\tatom_nr\tclass\tstrand\tstart\tend")

	for i, atom := range atoms {
		name, localFirst, ok := idx.SpeciesAt(atom.First)
		if !ok {
			continue
		}
		lastName, localLast, ok := idx.SpeciesAt(atom.Last)
		if !ok || lastName != name {
			localLast = localFirst + atom.Len() - 1
		}

		class := classes[i]
		strand := "+"
		if class < 0 {
			strand = "-"
			class = -class
		}

		_, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%s\t%d\t%d\n", name, i+1, class, strand, localFirst, localLast)
		if err != nil {
			return fmt.Errorf("output: writing row for atom %d: %w", i, err)
		}
	}
	return bw.Flush()
}
