package seq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mchmarny/lofcall/pkg/lof"
)

// Provider serves intron sequences, sequence windows and ancestral bases
// to the classifier.
type Provider struct {
	reference Genome
	ancestral Genome
	introns   *IntronCache
}

// NewProvider returns a Provider. ancestral may be nil.
func NewProvider(reference, ancestral Genome, cache *IntronCache) *Provider {
	if cache == nil {
		cache = NewIntronCache()
	}
	return &Provider{reference: reference, ancestral: ancestral, introns: cache}
}

// IntronSequences returns the transcript-strand sequence of every intron.
func (p *Provider) IntronSequences(_ context.Context, t *lof.Transcript) ([]string, error) {
	return p.introns.Get(t.ID, func() ([]string, error) {
		out := make([]string, len(t.Introns))
		for i, in := range t.Introns {
			s, err := p.reference.Fetch(t.Chrom, in.Start, in.End, t.Strand)
			if err != nil {
				return nil, fmt.Errorf("intron %d of %s: %w", i+1, t.ID, err)
			}
			out[i] = s
		}
		return out, nil
	})
}

func (p *Provider) Window(_ context.Context, chrom string, start, end int64, strand int8) (string, error) {
	return p.reference.Fetch(chrom, start, end, strand)
}

// MatchesAncestral compares the alternate allele with the ancestral base.
func (p *Provider) MatchesAncestral(_ context.Context, a *lof.Annotation) (bool, error) {
	if p.ancestral == nil || a.Transcript == nil {
		return false, nil
	}
	base, err := p.ancestral.Fetch(a.Transcript.Chrom, a.Start, a.Start, 1)
	if errors.Is(err, ErrUnknownChrom) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return base != "" && strings.EqualFold(base, a.Allele), nil
}
