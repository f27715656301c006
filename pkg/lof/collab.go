package lof

import "context"

// SpliceInfo describes a disrupted native splice site.
type SpliceInfo struct {
	Type     string
	Position int64
}

// Disruption is the outcome of a splice disruption prediction.
type Disruption struct {
	Disrupting bool
	Features   map[string]float64
	Splice     *SpliceInfo
}

// Rescue is the outcome of an alternative splice site scan. NaN feature
// values are treated as absent.
type Rescue struct {
	Features    map[string]float64
	Rescued     bool
	Tag         string
	LoFPosition int64
}

// DeNovoDonor is the outcome of a de novo donor prediction.
type DeNovoDonor struct {
	Probability float64
	Features    map[string]float64
	LoF         bool
	LoFPosition int64
}

// Distance is a truncation distance from the LoF position to the coding end.
type Distance struct {
	Weighted float64
	Raw      int64
}

// ORFScore is the PhyloCSF record for one transcript exon.
type ORFScore struct {
	Score    float64
	MaxScore float64
}

type SpliceDisruptionPredictor interface {
	PredictDisruption(ctx context.Context, a *Annotation, nativeSplice bool) (*Disruption, error)
}

type AlternativeSpliceScanner interface {
	ScanRescue(ctx context.Context, a *Annotation, splice *SpliceInfo) (*Rescue, error)
}

type DeNovoDonorPredictor interface {
	PredictDeNovoDonor(ctx context.Context, a *Annotation) (*DeNovoDonor, error)
}

// DistanceCalculator computes the weighted and raw distance from pos to
// the end of the coding sequence.
type DistanceCalculator interface {
	WeightedDistance(ctx context.Context, a *Annotation, pos int64) (*Distance, error)
}

// ConservationLookup returns the ORF score of the annotated exon, or nil
// when no record exists.
type ConservationLookup interface {
	LookupORF(ctx context.Context, a *Annotation) (*ORFScore, error)
}

// AncestralChecker reports whether the annotation's allele equals the
// ancestral base.
type AncestralChecker interface {
	MatchesAncestral(ctx context.Context, a *Annotation) (bool, error)
}

// SequenceSource provides strand-corrected sequence for structural checks.
type SequenceSource interface {
	// IntronSequences returns intron sequences aligned with t.Introns.
	IntronSequences(ctx context.Context, t *Transcript) ([]string, error)
	// Window returns the bases in [start, end] on the given strand.
	Window(ctx context.Context, chrom string, start, end int64, strand int8) (string, error)
}

// Collaborators groups the optional evidence sources. A nil member skips
// the step that depends on it.
type Collaborators struct {
	Disruption   SpliceDisruptionPredictor
	Rescue       AlternativeSpliceScanner
	DeNovo       DeNovoDonorPredictor
	Distance     DistanceCalculator
	Conservation ConservationLookup
	Ancestral    AncestralChecker
	Sequence     SequenceSource
}

// UnweightedDistance weighs every coding base as 1.
type UnweightedDistance struct{}

func (UnweightedDistance) WeightedDistance(_ context.Context, a *Annotation, pos int64) (*Distance, error) {
	var raw int64
	for _, s := range CodingSpansFrom(a.Transcript, pos) {
		raw += s.Len()
	}
	return &Distance{Weighted: float64(raw), Raw: raw}, nil
}
