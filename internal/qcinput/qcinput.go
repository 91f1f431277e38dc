// Package qcinput reads and writes Q-Chem input decks.
//
// A deck is a series of $section ... $end blocks. The $molecule block holds
// charge, spin multiplicity and cartesian geometry; every other block is a
// flat list of key/value options. Q-Chem treats keys and keyword values as
// case-insensitive, so both are stored lower-cased.
package qcinput

import "strings"

// DefaultInputFile is the conventional deck name in a run directory.
const DefaultInputFile = "mol.qin"

// Atom is one row of the $molecule block.
type Atom struct {
	Species string
	Coord   [3]float64
}

// Molecule models the $molecule block. Read is set when the block contains
// the "read" sentinel instead of a geometry (restart jobs).
type Molecule struct {
	Charge       int
	Multiplicity int
	Read         bool
	Atoms        []Atom
}

// Species returns the atomic species sequence in deck order.
func (m *Molecule) Species() []string {
	if m == nil {
		return nil
	}
	species := make([]string, len(m.Atoms))
	for i, atom := range m.Atoms {
		species[i] = atom.Species
	}
	return species
}

// Coords returns the cartesian coordinates in deck order.
func (m *Molecule) Coords() [][3]float64 {
	if m == nil {
		return nil
	}
	coords := make([][3]float64, len(m.Atoms))
	for i, atom := range m.Atoms {
		coords[i] = atom.Coord
	}
	return coords
}

// Section is an ordered set of key/value options from one block.
type Section struct {
	keys   []string
	values map[string]string
}

// NewSection returns an empty section.
func NewSection() *Section {
	return &Section{values: map[string]string{}}
}

// Set stores a key/value pair, preserving first-seen key order.
func (s *Section) Set(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = strings.ToLower(strings.TrimSpace(value))
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (string, bool) {
	if s == nil || s.values == nil {
		return "", false
	}
	value, ok := s.values[strings.ToLower(strings.TrimSpace(key))]
	return value, ok
}

// Keys returns the keys in deck order.
func (s *Section) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s.keys...)
}

// Len returns the number of stored options.
func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Input is a parsed Q-Chem input deck. Optional blocks are nil when the deck
// omits them.
type Input struct {
	Molecule *Molecule
	Rem      *Section
	Opt      *Section
	PCM      *Section
	Solvent  *Section

	// Other holds blocks this package does not model structurally, keyed by
	// section name, so decks round-trip without losing them.
	Other map[string]*Section
}
