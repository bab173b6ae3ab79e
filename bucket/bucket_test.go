// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bucket

import (
	"testing"

	"github.com/kortschak/atomizer/align"
	"github.com/kortschak/atomizer/region"
)

func TestBuildAt(t *testing.T) {
	records := []*align.Record{
		{Strand: align.Plus, TStart: 0, TEnd: 100, QStart: 1000, QEnd: 1100},
		{Strand: align.Plus, TStart: 2000, TEnd: 2100, QStart: 3000, QEnd: 3100},
	}
	idx := Build(records, 1000, map[string]region.Position{"$": 3200})

	at0 := idx.At(50)
	if len(at0) != 1 || at0[0] != records[0] {
		t.Errorf("At(50) = %v, want [%v]", at0, records[0])
	}

	at2000 := idx.At(2050)
	if len(at2000) != 1 || at2000[0] != records[1] {
		t.Errorf("At(2050) = %v, want [%v]", at2000, records[1])
	}

	if got := idx.At(1500); len(got) != 0 {
		t.Errorf("At(1500) = %v, want empty", got)
	}
}

func TestSpeciesAt(t *testing.T) {
	speciesStart := map[string]region.Position{
		"chrA": 0,
		"chrB": 200,
		"$":    400,
	}
	idx := Build(nil, 1000, speciesStart)

	name, local, ok := idx.SpeciesAt(50)
	if !ok || name != "chrA" || local != 50 {
		t.Errorf("SpeciesAt(50) = (%s, %d, %v), want (chrA, 50, true)", name, local, ok)
	}

	name, local, ok = idx.SpeciesAt(250)
	if !ok || name != "chrB" || local != 50 {
		t.Errorf("SpeciesAt(250) = (%s, %d, %v), want (chrB, 50, true)", name, local, ok)
	}

	_, _, ok = idx.SpeciesAt(500)
	if ok {
		t.Error("SpeciesAt(500) should be out of range")
	}
}
