// Package seq provides reference and ancestral sequence lookups for the
// structural checks of the LoF pipeline.
package seq

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	ErrUnknownChrom = errors.New("unknown chromosome")
	ErrInvalidRange = errors.New("invalid range")
)

// Genome returns bases for a 1-based inclusive interval.
type Genome interface {
	Fetch(chrom string, start, end int64, strand int8) (string, error)
}

// Fasta is an in-memory genome.
type Fasta struct {
	seqs map[string]string
}

// NewFasta builds a genome from chromosome sequences.
func NewFasta(seqs map[string]string) *Fasta {
	out := make(map[string]string, len(seqs))
	for k, v := range seqs {
		out[normalizeChrom(k)] = v
	}
	return &Fasta{seqs: out}
}

// LoadFasta reads a (optionally gzipped) FASTA file into memory.
func LoadFasta(path string) (*Fasta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fasta %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip fasta %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	fa, err := ReadFasta(r)
	if err != nil {
		return nil, fmt.Errorf("reading fasta %s: %w", path, err)
	}
	slog.Debug("fasta loaded", "path", path, "sequences", len(fa.seqs))
	return fa, nil
}

// ReadFasta parses FASTA records from r. The sequence name is the first
// word of the header line.
func ReadFasta(r io.Reader) (*Fasta, error) {
	seqs := make(map[string]string)
	var name string
	var b strings.Builder

	flush := func() {
		if name != "" {
			seqs[normalizeChrom(name)] = b.String()
		}
		b.Reset()
	}

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, errors.New("fasta header without a name")
			}
			name = fields[0]
			continue
		}
		if name == "" {
			return nil, errors.New("sequence data before first header")
		}
		b.WriteString(line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	flush()
	return &Fasta{seqs: seqs}, nil
}

// Fetch returns the bases in [start, end], clipped to the chromosome, and
// reverse complemented when strand is -1.
func (f *Fasta) Fetch(chrom string, start, end int64, strand int8) (string, error) {
	s, ok := f.seqs[normalizeChrom(chrom)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChrom, chrom)
	}
	if end < start {
		return "", fmt.Errorf("%w: %d-%d", ErrInvalidRange, start, end)
	}

	start = max(start, 1)
	end = min(end, int64(len(s)))
	if end < start {
		return "", nil
	}

	out := strings.ToUpper(s[start-1 : end])
	if strand == -1 {
		out = ReverseComplement(out)
	}
	return out, nil
}

var complement = strings.NewReplacer("A", "T", "T", "A", "C", "G", "G", "C", "N", "N")

// ReverseComplement returns the reverse complement of an upper-case sequence.
func ReverseComplement(s string) string {
	b := []byte(complement.Replace(s))
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func normalizeChrom(c string) string {
	return strings.TrimPrefix(c, "chr")
}
