package counter

import (
	"testing"

	"sipcounter/internal/link"
)

var (
	k1 = link.New("10.0.0.1", "10.0.0.2", "UDP", "5060", "12345")
	k2 = link.New("10.0.0.1", "10.0.0.2", "TCP", "5070", "12347")
)

func sample() Data {
	d := make(Data)
	d.Add(k1, link.In, "INVITE")
	d.Add(k1, link.In, "BYE")
	d.Add(k1, link.Out, "200")
	d.Add(k1, link.Out, "200")
	d.Add(k2, link.Out, "CANCEL")
	return d
}

func TestAddCreatesStructure(t *testing.T) {
	d := sample()
	if got := d[k1].Get(link.Out, "200"); got != 2 {
		t.Fatalf("expected 2x200, got %d", got)
	}
	if d.Total() != 5 {
		t.Fatalf("unexpected total %d", d.Total())
	}
	if _, ok := d.Directions()[link.In]; !ok || len(d.Directions()) != 2 {
		t.Fatalf("unexpected directions %v", d.Directions())
	}
}

func TestUpdateAddsCells(t *testing.T) {
	d := sample()
	d.Update(sample())
	if d.Total() != 10 || d[k2].Get(link.Out, "CANCEL") != 2 {
		t.Fatalf("unexpected data after update: %v", d)
	}

	empty := make(Data)
	empty.Update(sample())
	if !empty.Equal(sample()) {
		t.Fatalf("update into empty must copy cells")
	}
}

func TestSubtractOnlyTouchesExistingCells(t *testing.T) {
	d := sample()
	other := make(Data)
	other.Add(k1, link.In, "INVITE")
	other.Add(k1, link.In, "ACK")   // absent from d
	other.Add(k1, link.Both, "BYE") // direction absent from d
	other.Add(link.New("x"), link.In, "BYE")

	d.Subtract(other, false)
	if got, ok := d[k1][link.In]["INVITE"]; !ok || got != 0 {
		t.Fatalf("expected INVITE to stay at 0 without compaction, got %d,%v", got, ok)
	}
	if _, ok := d[k1][link.In]["ACK"]; ok {
		t.Fatalf("subtract must not introduce new message types")
	}
	if _, ok := d[k1][link.Both]; ok {
		t.Fatalf("subtract must not introduce new directions")
	}
	if _, ok := d[link.New("x")]; ok {
		t.Fatalf("subtract must not introduce new links")
	}

	d.Compact()
	if _, ok := d[k1][link.In]["INVITE"]; ok {
		t.Fatalf("compact must remove zero cells")
	}
}

func TestSubtractWithCompactRemovesEmptyParents(t *testing.T) {
	d := sample()
	d.Subtract(sample(), true)
	if len(d) != 0 {
		t.Fatalf("expected empty data, got %v", d)
	}
}

func TestCompactIdempotent(t *testing.T) {
	d := sample()
	d[k1][link.In]["BYE"] = -3
	d[k2][link.Out]["CANCEL"] = 0

	d.Compact()
	once := d.Clone()
	d.Compact()
	if !d.Equal(once) {
		t.Fatalf("compact is not idempotent")
	}
	if _, ok := d[k2]; ok {
		t.Fatalf("link without positive cells must be removed")
	}
	for _, rec := range d {
		for _, counts := range rec {
			for mt, n := range counts {
				if n <= 0 {
					t.Fatalf("non-positive cell %s=%d left", mt, n)
				}
			}
		}
	}

	clean := sample()
	clean.Compact()
	if !clean.Equal(sample()) {
		t.Fatalf("compacting clean data must be a no-op")
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := sample()
	c := d.Clone()
	c.Add(k1, link.In, "INVITE")
	if d[k1].Get(link.In, "INVITE") != 1 {
		t.Fatalf("clone shares nested maps with the original")
	}
	d.Clear()
	if len(d) != 0 || c.Total() != 6 {
		t.Fatalf("clear touched the clone or left data behind")
	}
}
