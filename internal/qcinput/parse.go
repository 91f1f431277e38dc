package qcinput

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseError reports a malformed deck with the offending line number.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("qcinput: line %d: %s", e.Line, e.Msg)
}

func parseErrorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ReadFile parses the deck at path.
func ReadFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("qcinput: open %s: %w", path, err)
	}
	defer f.Close()
	in, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("qcinput: parse %s: %w", path, err)
	}
	return in, nil
}

// Parse reads a deck from r.
func Parse(r io.Reader) (*Input, error) {
	input := &Input{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	section := ""
	sectionStart := 0
	var body []string

	flush := func() error {
		if section == "" {
			return nil
		}
		if err := input.addSection(section, body, sectionStart); err != nil {
			return err
		}
		section = ""
		body = nil
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		switch {
		case strings.EqualFold(line, "$end"):
			if section == "" {
				return nil, parseErrorf(lineNo, "$end outside of a section")
			}
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "$"):
			if section != "" {
				return nil, parseErrorf(lineNo, "section $%s is not closed", section)
			}
			section = strings.ToLower(strings.TrimPrefix(line, "$"))
			sectionStart = lineNo
			if section == "" {
				return nil, parseErrorf(lineNo, "empty section name")
			}
		default:
			if section == "" {
				return nil, parseErrorf(lineNo, "content outside of a section: %q", line)
			}
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if section != "" {
		return nil, parseErrorf(sectionStart, "section $%s is not closed", section)
	}
	if input.Molecule == nil {
		return nil, parseErrorf(0, "deck has no $molecule section")
	}
	if input.Rem == nil {
		return nil, parseErrorf(0, "deck has no $rem section")
	}
	return input, nil
}

func (in *Input) addSection(name string, body []string, startLine int) error {
	switch name {
	case "molecule":
		mol, err := parseMolecule(body, startLine)
		if err != nil {
			return err
		}
		in.Molecule = mol
	case "rem":
		in.Rem = parseKeyed(body)
	case "opt":
		in.Opt = parseKeyed(body)
	case "pcm":
		in.PCM = parseKeyed(body)
	case "solvent":
		in.Solvent = parseKeyed(body)
	default:
		if in.Other == nil {
			in.Other = map[string]*Section{}
		}
		in.Other[name] = parseKeyed(body)
	}
	return nil
}

func parseMolecule(body []string, startLine int) (*Molecule, error) {
	if len(body) == 0 {
		return nil, parseErrorf(startLine, "$molecule section is empty")
	}
	if strings.EqualFold(body[0], "read") {
		return &Molecule{Read: true}, nil
	}
	head := strings.Fields(body[0])
	if len(head) != 2 {
		return nil, parseErrorf(startLine+1, "expected charge and multiplicity, got %q", body[0])
	}
	charge, err := strconv.Atoi(head[0])
	if err != nil {
		return nil, parseErrorf(startLine+1, "bad charge %q", head[0])
	}
	multiplicity, err := strconv.Atoi(head[1])
	if err != nil {
		return nil, parseErrorf(startLine+1, "bad multiplicity %q", head[1])
	}
	mol := &Molecule{Charge: charge, Multiplicity: multiplicity}
	for i, line := range body[1:] {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, parseErrorf(startLine+2+i, "expected species and 3 coordinates, got %q", line)
		}
		var coord [3]float64
		for axis := 0; axis < 3; axis++ {
			value, err := strconv.ParseFloat(fields[axis+1], 64)
			if err != nil {
				return nil, parseErrorf(startLine+2+i, "bad coordinate %q", fields[axis+1])
			}
			coord[axis] = value
		}
		mol.Atoms = append(mol.Atoms, Atom{Species: normalizeSpecies(fields[0]), Coord: coord})
	}
	if len(mol.Atoms) == 0 {
		return nil, parseErrorf(startLine, "$molecule section has no atoms")
	}
	return mol, nil
}

// parseKeyed handles "key = value" and "key value" option lines.
func parseKeyed(body []string) *Section {
	section := NewSection()
	for _, line := range body {
		var key, value string
		if idx := strings.Index(line, "="); idx >= 0 {
			key = line[:idx]
			value = line[idx+1:]
		} else {
			fields := strings.SplitN(line, " ", 2)
			key = fields[0]
			if len(fields) == 2 {
				value = fields[1]
			}
		}
		section.Set(key, value)
	}
	return section
}

// normalizeSpecies canonicalizes element symbols ("h" -> "H", "CL" -> "Cl").
func normalizeSpecies(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
