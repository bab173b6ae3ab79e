// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package region

import (
	"errors"
	"testing"
)

func TestRegionLess(t *testing.T) {
	a := Region{First: 10, Last: 20}
	b := Region{First: 5, Last: 20}
	c := Region{First: 0, Last: 30}

	if !a.Less(b) {
		t.Errorf("expected %v to sort before %v (tie on Last, First descending)", a, b)
	}
	if !b.Less(c) {
		t.Errorf("expected %v to sort before %v (Last ascending)", b, c)
	}
}

func TestInitBreakpoints(t *testing.T) {
	got := InitBreakpoints(
		[]Position{30, 10, 10},
		[]Position{40, 20},
		[]Position{0, 100},
	)
	want := []Position{0, 10, 20, 30, 40, 100}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCreateWasteEmpty(t *testing.T) {
	_, err := CreateWaste(nil, 250)
	if !errors.Is(err, ErrEmptyBreakpoints) {
		t.Fatalf("expected ErrEmptyBreakpoints, got %v", err)
	}
}

func TestCreateWasteCollapsesClose(t *testing.T) {
	bp := []Position{0, 10, 500, 510}
	waste, err := CreateWaste(bp, 250)
	if err != nil {
		t.Fatal(err)
	}
	want := []WasteRegion{{First: 0, Last: 10}, {First: 500, Last: 510}}
	if len(waste) != len(want) {
		t.Fatalf("got %v, want %v", waste, want)
	}
	for i := range want {
		if waste[i] != want[i] {
			t.Fatalf("got %v, want %v", waste, want)
		}
	}
}

func TestAtomsFromWaste(t *testing.T) {
	waste := []WasteRegion{{First: 0, Last: 10}, {First: 500, Last: 510}, {First: 1000, Last: 1010}}
	atoms := AtomsFromWaste(waste)
	want := []Region{{First: 10, Last: 500}, {First: 510, Last: 1000}}
	if len(atoms) != len(want) {
		t.Fatalf("got %v, want %v", atoms, want)
	}
	for i := range want {
		if !atoms[i].Equal(want[i]) {
			t.Fatalf("got %v, want %v", atoms, want)
		}
	}
}

func TestConsolidateMerges(t *testing.T) {
	waste := []WasteRegion{
		{First: 0, Last: 10},
		{First: 50, Last: 60},
		{First: 1000, Last: 1010},
	}
	got := Consolidate(waste, 100)
	want := []WasteRegion{{First: 0, Last: 60}, {First: 1000, Last: 1010}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBinSearchRegion(t *testing.T) {
	waste := []WasteRegion{{First: 0, Last: 10}, {First: 500, Last: 510}, {First: 1000, Last: 1010}}
	cases := []struct {
		p    Position
		want int
	}{
		{-5, 0},
		{0, 0},
		{250, 0},
		{500, 1},
		{999, 1},
		{1000, 2},
		{5000, 2},
	}
	for _, c := range cases {
		if got := BinSearchRegion(waste, c.p); got != c.want {
			t.Errorf("BinSearchRegion(%d) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestSameAtoms(t *testing.T) {
	a := []Region{{First: 0, Last: 10}, {First: 20, Last: 30}}
	b := []Region{{First: 0, Last: 10}, {First: 20, Last: 30}}
	c := []Region{{First: 0, Last: 10}, {First: 20, Last: 31}}
	if !SameAtoms(a, b) {
		t.Error("expected equal atom lists to compare equal")
	}
	if SameAtoms(a, c) {
		t.Error("expected differing atom lists to compare unequal")
	}
}
