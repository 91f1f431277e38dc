package qcinput

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// WriteFile serializes the deck to path.
func (in *Input) WriteFile(path string) error {
	var b strings.Builder
	if err := in.Encode(&b); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// Encode writes the deck in canonical form: $molecule first, then $rem, then
// the remaining modeled blocks, then any passthrough blocks sorted by name.
func (in *Input) Encode(w io.Writer) error {
	if in.Molecule == nil {
		return fmt.Errorf("qcinput: encode: molecule is required")
	}
	if in.Rem == nil {
		return fmt.Errorf("qcinput: encode: rem section is required")
	}
	if err := encodeMolecule(w, in.Molecule); err != nil {
		return err
	}
	ordered := []struct {
		name    string
		section *Section
	}{
		{"rem", in.Rem},
		{"opt", in.Opt},
		{"pcm", in.PCM},
		{"solvent", in.Solvent},
	}
	for _, block := range ordered {
		if block.section == nil {
			continue
		}
		if err := encodeKeyed(w, block.name, block.section); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(in.Other))
	for name := range in.Other {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := encodeKeyed(w, name, in.Other[name]); err != nil {
			return err
		}
	}
	return nil
}

func encodeMolecule(w io.Writer, mol *Molecule) error {
	if _, err := fmt.Fprintln(w, "$molecule"); err != nil {
		return err
	}
	if mol.Read {
		if _, err := fmt.Fprintln(w, " read"); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, " %d %d\n", mol.Charge, mol.Multiplicity); err != nil {
			return err
		}
		for _, atom := range mol.Atoms {
			if _, err := fmt.Fprintf(w, " %-2s  %14.10f  %14.10f  %14.10f\n",
				atom.Species, atom.Coord[0], atom.Coord[1], atom.Coord[2]); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "$end")
	return err
}

func encodeKeyed(w io.Writer, name string, section *Section) error {
	if _, err := fmt.Fprintf(w, "\n$%s\n", name); err != nil {
		return err
	}
	for _, key := range section.Keys() {
		value, _ := section.Get(key)
		if value == "" {
			if _, err := fmt.Fprintf(w, "   %s\n", key); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "   %s = %s\n", key, value); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "$end")
	return err
}
