package lof

import (
	"regexp"
	"strings"
)

const (
	StopGained           = "stop_gained"
	FrameshiftVariant    = "frameshift_variant"
	SpliceAcceptor       = "splice_acceptor_variant"
	SpliceDonor          = "splice_donor_variant"
	UpstreamGeneVariant  = "upstream_gene_variant"
	DownstreamGene       = "downstream_gene_variant"
	IntergenicVariant    = "intergenic_variant"
	nagnagWindowFlank    = 4
	nagnagWindowLength   = 2*nagnagWindowFlank + 1
	canonicalDonorMotif  = "GT"
	canonicalAcceptorEnd = "AG"
)

var (
	nonGenicTerms = map[string]bool{
		UpstreamGeneVariant: true,
		DownstreamGene:      true,
		IntergenicVariant:   true,
	}

	nagnagRegex = regexp.MustCompile(`AG..AG`)
)

// Span is a 1-based inclusive genomic interval.
type Span struct {
	Start int64
	End   int64
}

// Len returns the span length in bases.
func (s Span) Len() int64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// IsGenic is false when every consequence lies outside the gene.
func IsGenic(a *Annotation) bool {
	for _, c := range a.Consequences {
		if !nonGenicTerms[c] {
			return true
		}
	}
	return false
}

// IsOtherLoF reports a stop-gain or frameshift call.
func IsOtherLoF(a *Annotation) bool {
	return a.HasConsequence(StopGained) || a.HasConsequence(FrameshiftVariant)
}

// IsNativeSpliceLoF reports a splice acceptor or donor call.
func IsNativeSpliceLoF(a *Annotation) bool {
	return a.HasConsequence(SpliceAcceptor) || a.HasConsequence(SpliceDonor)
}

// IsFivePrimeUTR reports whether the variant lies 5' of the coding region.
func IsFivePrimeUTR(a *Annotation) bool {
	t := a.Transcript
	if t == nil || t.CodingStart == 0 || t.CodingEnd == 0 {
		return false
	}
	if t.IsReverseStrand() {
		return a.Start > t.CodingEnd
	}
	return a.End < t.CodingStart
}

// IsThreePrimeUTR reports whether the variant lies 3' of the coding region.
func IsThreePrimeUTR(a *Annotation) bool {
	t := a.Transcript
	if t == nil || t.CodingStart == 0 || t.CodingEnd == 0 {
		return false
	}
	if t.IsReverseStrand() {
		return a.End < t.CodingStart
	}
	return a.Start > t.CodingEnd
}

// CDSPercentile is the variant CDS end over the CDS length.
func CDSPercentile(a *Annotation) float64 {
	if a.Transcript == nil || a.Transcript.CDSLength == 0 {
		return 0
	}
	return float64(a.CDSEnd) / float64(a.Transcript.CDSLength)
}

// codingPart clips e to the transcript's coding region.
func codingPart(t *Transcript, e Exon) Span {
	s := Span{Start: max(e.Start, t.CodingStart), End: min(e.End, t.CodingEnd)}
	if s.End < s.Start {
		return Span{}
	}
	return s
}

// LastExonCodingLength returns the coding length of the 3'-most exon that
// overlaps the coding region.
func LastExonCodingLength(t *Transcript) int64 {
	for i := len(t.Exons) - 1; i >= 0; i-- {
		if l := codingPart(t, t.Exons[i]).Len(); l > 0 {
			return l
		}
	}
	return 0
}

// CodingSpansFrom returns the coding spans from pos (inclusive) to the
// coding end, in transcript order.
func CodingSpansFrom(t *Transcript, pos int64) []Span {
	if t == nil {
		return nil
	}
	var out []Span
	for _, e := range t.Exons {
		s := codingPart(t, e)
		if s.Len() == 0 {
			continue
		}
		if t.IsReverseStrand() {
			s.End = min(s.End, pos)
		} else {
			s.Start = max(s.Start, pos)
		}
		if s.Len() > 0 {
			out = append(out, s)
		}
	}
	return out
}

// IsCanonicalIntron checks for the GT...AG boundary motif.
func IsCanonicalIntron(seq string) bool {
	seq = strings.ToUpper(seq)
	return len(seq) >= 4 &&
		strings.HasPrefix(seq, canonicalDonorMotif) &&
		strings.HasSuffix(seq, canonicalAcceptorEnd)
}

// NeighborIntrons returns the 0-based indexes of the introns flanking the
// 1-based exon index: only the downstream one for the first exon, only the
// upstream one for the last, both otherwise.
func NeighborIntrons(exon Position) []int {
	switch {
	case exon.Total <= 1:
		return nil
	case exon.Index <= 1:
		return []int{0}
	case exon.Index >= exon.Total:
		return []int{exon.Total - 2}
	default:
		return []int{exon.Index - 2, exon.Index - 1}
	}
}

// IsNAGNAG reports an AG..AG motif in a window of exactly nine bases.
func IsNAGNAG(window string) bool {
	return len(window) == nagnagWindowLength && nagnagRegex.MatchString(strings.ToUpper(window))
}

// IsSingleBaseSubstitution reports a one-to-one base change. Without a
// reference allele, a single-base variant (start == end) with a one-base
// allele qualifies.
func IsSingleBaseSubstitution(a *Annotation) bool {
	if len(a.Allele) != 1 || !isBase(a.Allele[0]) {
		return false
	}
	if a.RefAllele == "" {
		return a.Start == a.End
	}
	return len(a.RefAllele) == 1 && isBase(a.RefAllele[0])
}

func isBase(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		return true
	default:
		return false
	}
}
