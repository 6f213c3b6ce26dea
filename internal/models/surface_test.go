package models

import (
	"testing"
)

// TestNewSurfaceEntry verifies the construction invariants of a surface entry
func TestNewSurfaceEntry(t *testing.T) {
	surface := Surface{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int32{{0, 1, 2}},
	}

	entry, err := NewSurfaceEntry("brain", "pink", 0.2, surface)
	if err != nil {
		t.Fatalf("Failed to create valid entry: %v", err)
	}
	if entry.Name != "brain" || entry.Color != "pink" || entry.Opacity != 0.2 {
		t.Errorf("Entry fields not preserved: %+v", entry)
	}
}

// TestNewSurfaceEntryRejectsBadOpacity verifies the opacity range check
func TestNewSurfaceEntryRejectsBadOpacity(t *testing.T) {
	surface := Surface{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int32{{0, 1, 2}},
	}

	for _, opacity := range []float64{-0.1, 1.5} {
		if _, err := NewSurfaceEntry("brain", "pink", opacity, surface); err == nil {
			t.Errorf("Expected error for opacity %f", opacity)
		}
	}
}

// TestSurfaceValidate verifies that out-of-range face indices are rejected
func TestSurfaceValidate(t *testing.T) {
	surface := Surface{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int32{{0, 1, 3}},
	}
	if err := surface.Validate(); err == nil {
		t.Error("Expected error for face index beyond vertex count")
	}

	surface.Faces = [][3]int32{{0, 1, -1}}
	if err := surface.Validate(); err == nil {
		t.Error("Expected error for negative face index")
	}
}

// TestSurfaceSetOrder verifies insertion order and duplicate rejection
func TestSurfaceSetOrder(t *testing.T) {
	surface := Surface{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int32{{0, 1, 2}},
	}

	set := NewSurfaceSet()
	for _, name := range []string{"brain", "Edema", "Enhancing"} {
		entry, err := NewSurfaceEntry(name, "pink", 0.5, surface)
		if err != nil {
			t.Fatalf("Failed to create entry %s: %v", name, err)
		}
		if err := set.Add(entry); err != nil {
			t.Fatalf("Failed to add entry %s: %v", name, err)
		}
	}

	if set.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", set.Len())
	}

	want := []string{"brain", "Edema", "Enhancing"}
	for i, entry := range set.Entries() {
		if entry.Name != want[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, want[i], entry.Name)
		}
	}

	if _, ok := set.Get("Necrotic"); ok {
		t.Error("Get returned an entry that was never added")
	}

	dup, _ := NewSurfaceEntry("brain", "pink", 0.5, surface)
	if err := set.Add(dup); err == nil {
		t.Error("Expected error when adding duplicate entry name")
	}
}

// TestSurfaceSetRegion verifies region-keyed entry lookup, including the
// absent case for a region skipped during extraction
func TestSurfaceSetRegion(t *testing.T) {
	surface := Surface{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int32{{0, 1, 2}},
	}

	set := NewSurfaceSet()
	for _, region := range []Region{Brain, Edema} {
		entry, err := NewSurfaceEntry(region.String(), "pink", 0.5, surface)
		if err != nil {
			t.Fatalf("Failed to create entry %s: %v", region, err)
		}
		if err := set.Add(entry); err != nil {
			t.Fatalf("Failed to add entry %s: %v", region, err)
		}
	}

	brain, ok := set.Region(Brain)
	if !ok {
		t.Fatal("Brain region not found")
	}
	if brain.Name != Brain.String() {
		t.Errorf("Region lookup returned entry %q, expected %q", brain.Name, Brain.String())
	}

	if _, ok := set.Region(Necrotic); ok {
		t.Error("Region lookup returned an entry for a region that was never added")
	}
}

// TestColorTableLookup verifies the fixed color table semantics
func TestColorTableLookup(t *testing.T) {
	rgb, err := DefaultColorTable.Lookup("pink")
	if err != nil {
		t.Fatalf("Lookup of known color failed: %v", err)
	}
	if rgb != (RGB{0.9, 0.7, 0.7}) {
		t.Errorf("Unexpected RGB for pink: %v", rgb)
	}

	if _, err := DefaultColorTable.Lookup("chartreuse"); err == nil {
		t.Error("Expected error for unknown color name")
	}
}

// TestRegionString verifies the canonical region names
func TestRegionString(t *testing.T) {
	cases := map[Region]string{
		Brain:     "brain",
		Edema:     "Edema",
		Necrotic:  "Necrotic",
		Enhancing: "Enhancing",
	}
	for region, want := range cases {
		if got := region.String(); got != want {
			t.Errorf("Region %d: expected %q, got %q", int(region), want, got)
		}
	}
}
