package custodian

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// freqResult holds the mode spectrum of a frequency run: every reported
// frequency plus the displacement vector of the first (lowest) mode.
type freqResult struct {
	Frequencies []float64
	Mode        [][3]float64
}

// parseFrequencies extracts "Frequency:" rows and, for the first frequency
// block, the leading displacement column that follows it. Q-Chem prints
// frequencies three per row with per-atom displacements of three floats per
// listed mode underneath.
func parseFrequencies(path string) (*freqResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("custodian: open output %s: %w", path, err)
	}
	defer f.Close()

	result := &freqResult{}
	scanner := bufio.NewScanner(f)
	inFirstBlock := false
	sawFirstBlock := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "Frequency:"); ok {
			for _, field := range strings.Fields(rest) {
				value, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("custodian: bad frequency %q in %s", field, path)
				}
				result.Frequencies = append(result.Frequencies, value)
			}
			if !sawFirstBlock {
				inFirstBlock = true
				sawFirstBlock = true
			} else {
				inFirstBlock = false
			}
			continue
		}
		if !inFirstBlock {
			continue
		}
		fields := strings.Fields(line)
		// Atom displacement rows: species followed by 3 floats per mode.
		if len(fields) >= 4 {
			var coord [3]float64
			parsed := true
			for axis := 0; axis < 3; axis++ {
				value, err := strconv.ParseFloat(fields[axis+1], 64)
				if err != nil {
					parsed = false
					break
				}
				coord[axis] = value
			}
			if parsed {
				result.Mode = append(result.Mode, coord)
				continue
			}
		}
		// Anything else after displacement rows ends the block.
		if len(result.Mode) > 0 {
			inFirstBlock = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(result.Frequencies) == 0 {
		return nil, fmt.Errorf("custodian: no frequencies found in %s", path)
	}
	return result, nil
}
