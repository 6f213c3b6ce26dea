package models

import (
	"fmt"
)

// Region identifies the anatomical regions extracted from a segmented
// brain volume. The tumor regions correspond to the BraTS label ids,
// Brain is derived from the intensity volume by auto-thresholding.
type Region int

const (
	Brain Region = iota
	Edema
	Necrotic
	Enhancing
)

// String returns the canonical region name used as the surface entry key.
func (r Region) String() string {
	switch r {
	case Brain:
		return "brain"
	case Edema:
		return "Edema"
	case Necrotic:
		return "Necrotic"
	case Enhancing:
		return "Enhancing"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// RGB is a color triple with components in the [0,1] range.
type RGB [3]float64

// ColorTable maps semantic color names to RGB triples. Both exporters
// resolve entry colors through the same table so color semantics stay
// consistent across output formats.
type ColorTable map[string]RGB

// DefaultColorTable holds the colors used for the brain and tumor regions.
var DefaultColorTable = ColorTable{
	"pink":      {0.9, 0.7, 0.7},
	"red":       {1.0, 0.0, 0.0},
	"yellow":    {0.9, 0.9, 0.5},
	"lightblue": {0.7, 0.7, 0.9},
}

// Lookup resolves a color name to its RGB triple.
func (t ColorTable) Lookup(name string) (RGB, error) {
	rgb, ok := t[name]
	if !ok {
		return RGB{}, fmt.Errorf("unknown color name %q", name)
	}
	return rgb, nil
}

// Surface is a triangulated iso-surface: an ordered sequence of 3-D
// points and an ordered sequence of index triples referencing them.
type Surface struct {
	// Vertices holds the surface points as (x, y, z) triples.
	Vertices [][3]float32

	// Faces holds triangles as index triples into Vertices.
	Faces [][3]int32
}

// Validate checks the triangulation invariant: every face index must
// reference an existing vertex.
func (s *Surface) Validate() error {
	n := int32(len(s.Vertices))
	for i, f := range s.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, surface has %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

// SurfaceEntry is a named surface together with its display attributes.
type SurfaceEntry struct {
	// Name is the unique region name, e.g. "brain" or "Edema".
	Name string

	// Surface is the extracted triangle mesh for this region.
	Surface Surface

	// Color is the semantic color name, resolved through a ColorTable.
	Color string

	// Opacity is the display opacity in [0,1].
	Opacity float64
}

// NewSurfaceEntry builds a surface entry and validates its invariants:
// face indices must be in bounds and opacity must lie in [0,1].
func NewSurfaceEntry(name, color string, opacity float64, surface Surface) (*SurfaceEntry, error) {
	if name == "" {
		return nil, fmt.Errorf("surface entry requires a name")
	}
	if opacity < 0 || opacity > 1 {
		return nil, fmt.Errorf("opacity %.3f for %q outside [0,1]", opacity, name)
	}
	if err := surface.Validate(); err != nil {
		return nil, fmt.Errorf("invalid surface for %q: %v", name, err)
	}
	return &SurfaceEntry{
		Name:    name,
		Surface: surface,
		Color:   color,
		Opacity: opacity,
	}, nil
}

// SurfaceSet is the insertion-ordered collection of surface entries that
// is handed from the extraction stage to both exporters. It is built
// once and only read afterwards.
type SurfaceSet struct {
	entries []*SurfaceEntry
	index   map[string]*SurfaceEntry
}

// NewSurfaceSet creates an empty surface set.
func NewSurfaceSet() *SurfaceSet {
	return &SurfaceSet{
		index: make(map[string]*SurfaceEntry),
	}
}

// Add appends an entry, rejecting duplicate names.
func (s *SurfaceSet) Add(entry *SurfaceEntry) error {
	if _, ok := s.index[entry.Name]; ok {
		return fmt.Errorf("duplicate surface entry %q", entry.Name)
	}
	s.entries = append(s.entries, entry)
	s.index[entry.Name] = entry
	return nil
}

// Get looks up an entry by name.
func (s *SurfaceSet) Get(name string) (*SurfaceEntry, bool) {
	entry, ok := s.index[name]
	return entry, ok
}

// Region looks up the entry for a canonical anatomical region. The
// second result is false when the region was skipped during extraction.
func (s *SurfaceSet) Region(r Region) (*SurfaceEntry, bool) {
	return s.Get(r.String())
}

// Entries returns the entries in insertion order.
func (s *SurfaceSet) Entries() []*SurfaceEntry {
	return s.entries
}

// Len returns the number of entries.
func (s *SurfaceSet) Len() int {
	return len(s.entries)
}
