package svm

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	SupportVectorFile = "sv.tsv"
	CenterFile        = "center.tsv"
	ScaleFile         = "scale.tsv"
	MiscFile          = "misc.tsv"

	MiscGamma = "gamma"
	MiscRho   = "rho"
	MiscProbA = "probA"
	MiscProbB = "probB"
)

var requiredMisc = []string{MiscGamma, MiscRho, MiscProbA, MiscProbB}

// SupportVector is one training row: values aligned to Model.Features plus its weight.
type SupportVector struct {
	Values []float64
	Alpha  float64
}

// Model is a trained kernel machine. It is read-only once loaded and
// safe to share between goroutines.
type Model struct {
	Name     string
	Features []string
	Vectors  []SupportVector
	Center   map[string]float64
	Scale    map[string]float64
	Misc     map[string]float64
}

func (m *Model) Gamma() float64 { return m.Misc[MiscGamma] }
func (m *Model) Rho() float64   { return m.Misc[MiscRho] }

// Load reads the support vector, center, scale and misc tables from dir.
func Load(dir string) (*Model, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: model directory required", ErrModelLoad)
	}

	rows, err := readTable(filepath.Join(dir, SupportVectorFile))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s: header and at least one support vector required", ErrModelLoad, SupportVectorFile)
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: %s: header needs features and a coefficient column", ErrModelLoad, SupportVectorFile)
	}

	m := &Model{
		Name:     filepath.Base(dir),
		Features: append([]string(nil), header[:len(header)-1]...),
		Vectors:  make([]SupportVector, 0, len(rows)-1),
	}

	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: %s row %d: expected %d columns, got %d",
				ErrModelLoad, SupportVectorFile, i+2, len(header), len(row))
		}
		vals, err := parseFloats(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrModelLoad, SupportVectorFile, i+2, err)
		}
		m.Vectors = append(m.Vectors, SupportVector{
			Values: vals[:len(vals)-1],
			Alpha:  vals[len(vals)-1],
		})
	}

	if m.Center, err = readPairs(filepath.Join(dir, CenterFile)); err != nil {
		return nil, err
	}
	if m.Scale, err = readPairs(filepath.Join(dir, ScaleFile)); err != nil {
		return nil, err
	}
	if m.Misc, err = readPairs(filepath.Join(dir, MiscFile)); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("model loaded", "name", m.Name, "features", len(m.Features), "vectors", len(m.Vectors))
	return m, nil
}

// Validate checks the invariants evaluation relies on.
func (m *Model) Validate() error {
	for _, k := range requiredMisc {
		if _, ok := m.Misc[k]; !ok {
			return fmt.Errorf("%w: misc parameter %q not set", ErrModelLoad, k)
		}
	}
	for _, name := range m.Features {
		if _, ok := m.Center[name]; !ok {
			return fmt.Errorf("%w: no center value for feature %q", ErrInvalidModel, name)
		}
		s, ok := m.Scale[name]
		if !ok {
			return fmt.Errorf("%w: no scale value for feature %q", ErrInvalidModel, name)
		}
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: scale for feature %q is %v", ErrInvalidModel, name, s)
		}
	}
	for i, sv := range m.Vectors {
		if len(sv.Values) != len(m.Features) {
			return fmt.Errorf("%w: support vector %d has %d values for %d features",
				ErrInvalidModel, i, len(sv.Values), len(m.Features))
		}
	}
	return nil
}

func readTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	defer f.Close()

	var rows [][]string
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrModelLoad, path, err)
	}
	return rows, nil
}

func readPairs(path string) (map[string]float64, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	m := make(map[string]float64, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: %s row %d: expected 2 columns, got %d",
				ErrModelLoad, filepath.Base(path), i+1, len(row))
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrModelLoad, filepath.Base(path), i+1, err)
		}
		m[row[0]] = v
	}
	return m, nil
}

func parseFloats(row []string) ([]float64, error) {
	out := make([]float64, len(row))
	for i, s := range row {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
