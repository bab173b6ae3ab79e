// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"testing"

	"github.com/kortschak/atomizer/region"
)

func TestMapBreakpointPlus(t *testing.T) {
	a := &Record{
		Strand: Plus,
		QStart: 1000, QEnd: 1100,
		TStart: 0, TEnd: 100,
		Blocks: []Block{{Size: 100, QStart: 1000, TStart: 0}},
	}
	cases := []struct {
		p    region.Position
		want region.Position
	}{
		{0, 1000},
		{50, 1050},
		{100, 1100},
	}
	for _, c := range cases {
		if got := MapBreakpoint(c.p, a); got != c.want {
			t.Errorf("MapBreakpoint(%d) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestMapBreakpointMinus(t *testing.T) {
	a := &Record{
		Strand: Minus,
		QStart: 1000, QEnd: 1100,
		TStart: 0, TEnd: 100,
		Blocks: []Block{{Size: 100, QStart: 1100, TStart: 0}},
	}
	cases := []struct {
		p    region.Position
		want region.Position
	}{
		{0, 1100},
		{50, 1050},
		{100, 1000},
	}
	for _, c := range cases {
		if got := MapBreakpoint(c.p, a); got != c.want {
			t.Errorf("MapBreakpoint(%d) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestInvertPlusRoundTrip(t *testing.T) {
	a := &Record{
		Strand: Plus,
		QStart: 1000, QEnd: 1100,
		TStart: 0, TEnd: 100,
		Blocks: []Block{
			{Size: 40, QStart: 1000, TStart: 0},
			{Size: 40, QStart: 1060, TStart: 60},
		},
	}
	inv := a.Invert()
	if inv.Strand != Plus {
		t.Fatalf("expected inverted strand Plus, got %v", inv.Strand)
	}
	if inv.TStart != a.QStart || inv.TEnd != a.QEnd {
		t.Fatalf("expected inverted target span %d-%d, got %d-%d", a.QStart, a.QEnd, inv.TStart, inv.TEnd)
	}
	if inv.QStart != a.TStart || inv.QEnd != a.TEnd {
		t.Fatalf("expected inverted query span %d-%d, got %d-%d", a.TStart, a.TEnd, inv.QStart, inv.QEnd)
	}

	// Positions inside a block round trip exactly; positions in the gap
	// between the blocks (41..59) clamp to the end of block 0.
	for p := a.TStart; p <= a.TEnd; p += 10 {
		want := p
		if p > 40 && p < 60 {
			want = 40
		}
		q := MapBreakpoint(p, a)
		back := MapBreakpoint(q, inv)
		if back != want {
			t.Errorf("round trip through inverse failed at %d: got %d via %d, want %d", p, back, q, want)
		}
	}
}

func TestInvertMinusRoundTrip(t *testing.T) {
	a := &Record{
		Strand: Minus,
		QStart: 1000, QEnd: 1100,
		TStart: 0, TEnd: 100,
		Blocks: []Block{
			{Size: 40, QStart: 1100, TStart: 0},
			{Size: 40, QStart: 1040, TStart: 60},
		},
	}
	inv := a.Invert()
	if inv.Strand != Minus {
		t.Fatalf("expected inverted strand Minus, got %v", inv.Strand)
	}

	for i := 0; i < len(inv.Blocks)-1; i++ {
		if inv.Blocks[i].TStart > inv.Blocks[i+1].TStart {
			t.Fatalf("inverted blocks not ascending by TStart: %v", inv.Blocks)
		}
	}

	// Positions inside a block round trip exactly; positions in the gap
	// between the blocks (41..59) clamp to the end of block 0.
	for p := a.TStart; p <= a.TEnd; p += 10 {
		want := p
		if p > 40 && p < 60 {
			want = 40
		}
		q := MapBreakpoint(p, a)
		back := MapBreakpoint(q, inv)
		if back != want {
			t.Errorf("round trip through inverse failed at %d: got %d via %d, want %d", p, back, q, want)
		}
	}
}

func TestMapAtomThroughAln(t *testing.T) {
	a := &Record{
		Strand: Minus,
		QStart: 1000, QEnd: 1100,
		TStart: 0, TEnd: 100,
		Blocks: []Block{{Size: 100, QStart: 1100, TStart: 0}},
	}
	got := MapAtomThroughAln(region.Region{First: 0, Last: 100}, a)
	want := region.Region{First: 1000, Last: 1100}
	if got != want {
		t.Errorf("MapAtomThroughAln = %v, want %v", got, want)
	}
}

func TestLink(t *testing.T) {
	a := &Record{Strand: Plus, TStart: 0, TEnd: 10, QStart: 100, QEnd: 110, Blocks: []Block{{Size: 10, QStart: 100, TStart: 0}}}
	b := a.Invert()
	Link(a, b)
	if a.Sym != b || b.Sym != a {
		t.Fatal("Link did not set reciprocal Sym pointers")
	}
}
