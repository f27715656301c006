package seq

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFasta = `>chr1 test chromosome
ACGTACGTAA
GTAAGCCCAG
>2
ttttgggg
`

func TestReadFasta(t *testing.T) {
	fa, err := ReadFasta(strings.NewReader(testFasta))
	require.NoError(t, err)

	s, err := fa.Fetch("1", 1, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", s)

	s, err = fa.Fetch("chr1", 11, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, "GTAAGCCCAG", s)

	s, err = fa.Fetch("2", 1, 3, -1)
	require.NoError(t, err)
	assert.Equal(t, "AAA", s)
}

func TestReadFasta_Errors(t *testing.T) {
	_, err := ReadFasta(strings.NewReader("ACGT\n>1\nAC\n"))
	assert.Error(t, err)

	_, err = ReadFasta(strings.NewReader(">\nAC\n"))
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	fa := NewFasta(map[string]string{"chr3": "AACCGGTT"})

	s, err := fa.Fetch("3", -2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, "AAC", s, "clipped at chromosome start")

	s, err = fa.Fetch("3", 7, 12, 1)
	require.NoError(t, err)
	assert.Equal(t, "TT", s, "clipped at chromosome end")

	_, err = fa.Fetch("4", 1, 2, 1)
	assert.ErrorIs(t, err, ErrUnknownChrom)

	_, err = fa.Fetch("3", 5, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestLoadFasta_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testFasta))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	fa, err := LoadFasta(path)
	require.NoError(t, err)
	s, err := fa.Fetch("2", 5, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, "GGGG", s)

	_, err = LoadFasta(filepath.Join(t.TempDir(), "missing.fa"))
	assert.Error(t, err)
}

func TestReverseComplement(t *testing.T) {
	assert.Equal(t, "CTAC", ReverseComplement("GTAG"))
	assert.Equal(t, "", ReverseComplement(""))
	assert.Equal(t, "NA", ReverseComplement("TN"))
}

func TestIntronCache(t *testing.T) {
	c := NewIntronCache()
	var loads atomic.Int32
	load := func() ([]string, error) {
		loads.Add(1)
		return []string{"GTAG"}, nil
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get("ENST1", load)
			assert.NoError(t, err)
			assert.Equal(t, []string{"GTAG"}, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, c.Len())

	_, err := c.Get("ENST2", func() ([]string, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())
}

func testProvider() *Provider {
	ref := NewFasta(map[string]string{
		// intron 11-20 reads GTAAGCCCAG on the forward strand
		"1": "ACGTACGTAAGTAAGCCCAGTTTTT",
	})
	anc := NewFasta(map[string]string{"1": "ACGTACGTAAgtaagcccagttttt"})
	return NewProvider(ref, anc, NewIntronCache())
}

func TestProvider_IntronSequences(t *testing.T) {
	p := testProvider()
	tr := &lof.Transcript{ID: "T1", Chrom: "1", Strand: 1, Introns: []lof.Intron{{Start: 11, End: 20}}}

	seqs, err := p.IntronSequences(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, []string{"GTAAGCCCAG"}, seqs)
	assert.True(t, lof.IsCanonicalIntron(seqs[0]))

	tr.Chrom = "9"
	seqs, err = p.IntronSequences(context.Background(), tr)
	require.NoError(t, err, "served from cache by transcript id")
	assert.Len(t, seqs, 1)

	bad := &lof.Transcript{ID: "T2", Chrom: "9", Introns: []lof.Intron{{Start: 1, End: 2}}}
	_, err = p.IntronSequences(context.Background(), bad)
	assert.ErrorIs(t, err, ErrUnknownChrom)
}

func TestProvider_Window(t *testing.T) {
	p := testProvider()
	w, err := p.Window(context.Background(), "1", 12, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, "TAAGCCCAG", w)
	assert.False(t, lof.IsNAGNAG(w))

	w, err = p.Window(context.Background(), "1", 8, 10, -1)
	require.NoError(t, err)
	assert.Equal(t, "TTA", w)
}

func TestProvider_MatchesAncestral(t *testing.T) {
	p := testProvider()
	tr := &lof.Transcript{Chrom: "1"}

	ok, err := p.MatchesAncestral(context.Background(), &lof.Annotation{Transcript: tr, Start: 11, Allele: "G"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.MatchesAncestral(context.Background(), &lof.Annotation{Transcript: tr, Start: 11, Allele: "A"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.MatchesAncestral(context.Background(), &lof.Annotation{Transcript: &lof.Transcript{Chrom: "X"}, Start: 1, Allele: "A"})
	require.NoError(t, err)
	assert.False(t, ok)
}
