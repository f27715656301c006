package lof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

const (
	endTruncMaxDistance = 50
	endTruncMaxGERP     = 180
)

var errNoTranscript = errors.New("annotation has no transcript")

// Options are the thresholds the pipeline itself reads. Collaborator
// thresholds live with the collaborators.
type Options struct {
	// FilterPosition is reserved and not read by any active filter.
	FilterPosition    float64
	MinIntronSize     int64
	CheckCompleteCDS  bool
	DeNovoDonorCutoff float64
	ApplyAll          bool
	// ReportFeatures copies collaborator feature maps into info.
	ReportFeatures bool
}

// Classifier assigns LoF confidence to annotations. It holds no per-call
// state and may be shared between goroutines if its collaborators can.
type Classifier struct {
	opts   Options
	collab Collaborators
	logger *slog.Logger
}

func NewClassifier(opts Options, collab Collaborators) *Classifier {
	if collab.Distance == nil {
		collab.Distance = UnweightedDistance{}
	}
	return &Classifier{
		opts:   opts,
		collab: collab,
		logger: slog.Default().WithGroup("lof"),
	}
}

// evidence is the set of predicates derived from the consequence terms.
type evidence struct {
	genic        bool
	fiveUTR      bool
	threeUTR     bool
	otherLoF     bool
	nativeSplice bool
	lofteeSplice bool
	lofPosition  int64
	hasLoFPos    bool
}

func (e *evidence) setLoFPosition(pos int64) {
	e.lofPosition = pos
	e.hasLoFPos = true
}

// Classify runs the pipeline for a single annotation. Collaborator errors
// abort the call and are returned wrapped.
func (c *Classifier) Classify(ctx context.Context, a *Annotation) (*Result, error) {
	if a == nil || a.Transcript == nil {
		return nil, errNoTranscript
	}

	r := &Result{}
	t := a.Transcript
	if t.Biotype != BiotypeProteinCoding {
		return r, nil
	}

	ev := &evidence{
		genic:        IsGenic(a),
		fiveUTR:      IsFivePrimeUTR(a),
		threeUTR:     IsThreePrimeUTR(a),
		otherLoF:     IsOtherLoF(a),
		nativeSplice: IsNativeSpliceLoF(a),
	}

	disrupting := false
	if ev.genic && !ev.fiveUTR && !ev.threeUTR && !ev.otherLoF {
		var err error
		if disrupting, err = c.spliceDisruption(ctx, a, ev, r); err != nil {
			return nil, err
		}
	}

	if !disrupting {
		if err := c.deNovoDonor(ctx, a, ev, r); err != nil {
			return nil, err
		}
	}

	if ev.lofteeSplice || ev.nativeSplice || ev.otherLoF {
		r.Confidence = HC
	} else if !c.opts.ApplyAll {
		c.logger.Debug("no strong LoF evidence", "transcript", t.ID)
		return r, nil
	}

	if a.Exon != nil {
		if err := c.exonic(ctx, a, ev, r); err != nil {
			return nil, err
		}
	}

	if a.Intron != nil {
		if err := c.intronic(ctx, a, ev, r); err != nil {
			return nil, err
		}
	}

	if c.collab.Ancestral != nil && IsSingleBaseSubstitution(a) {
		match, err := c.collab.Ancestral.MatchesAncestral(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("checking ancestral allele: %w", err)
		}
		if match {
			r.addFilter("ANC_ALLELE")
		}
	}

	if r.Confidence == HC && len(r.Filters) > 0 {
		r.Confidence = r.Confidence.Downgrade()
	}

	c.logger.Debug("classified", "transcript", t.ID, "confidence", r.Confidence.String(), "filters", len(r.Filters))
	return r, nil
}

func (c *Classifier) spliceDisruption(ctx context.Context, a *Annotation, ev *evidence, r *Result) (bool, error) {
	if c.collab.Disruption == nil {
		return false, nil
	}

	d, err := c.collab.Disruption.PredictDisruption(ctx, a, ev.nativeSplice)
	if err != nil {
		return false, fmt.Errorf("predicting splice disruption: %w", err)
	}
	if d == nil {
		return false, nil
	}

	if c.opts.ReportFeatures {
		appendFeatures(r, d.Features, false)
	}

	spliceType := nativeSpliceType(a, d.Splice)
	if !d.Disrupting {
		if ev.nativeSplice {
			r.addFilter("NON_" + spliceType + "_DISRUPTING")
		}
		return false, nil
	}

	r.addInfoTag(spliceType + "_DISRUPTING")

	var rescue *Rescue
	if c.collab.Rescue != nil {
		var err error
		if rescue, err = c.collab.Rescue.ScanRescue(ctx, a, d.Splice); err != nil {
			return true, fmt.Errorf("scanning for splice rescue: %w", err)
		}
	}
	if rescue == nil {
		if d.Splice != nil {
			ev.setLoFPosition(d.Splice.Position)
		}
		ev.lofteeSplice = true
		return true, nil
	}

	appendFeatures(r, rescue.Features, false)
	if rescue.Rescued {
		tag := rescue.Tag
		if tag == "" {
			tag = spliceType + "_RESCUE"
		}
		r.addFilter(tag)
	} else {
		ev.setLoFPosition(rescue.LoFPosition)
		ev.lofteeSplice = true
	}
	return true, nil
}

func (c *Classifier) deNovoDonor(ctx context.Context, a *Annotation, ev *evidence, r *Result) error {
	if c.collab.DeNovo == nil {
		return nil
	}

	dn, err := c.collab.DeNovo.PredictDeNovoDonor(ctx, a)
	if err != nil {
		return fmt.Errorf("predicting de novo donor: %w", err)
	}
	if dn == nil {
		return nil
	}

	if dn.Probability > c.opts.DeNovoDonorCutoff && dn.LoF {
		r.addInfoTag("DE_NOVO_DONOR")
		ev.setLoFPosition(dn.LoFPosition)
		ev.lofteeSplice = true
	}

	if dn.Probability > 0 && c.opts.ReportFeatures {
		appendFeatures(r, dn.Features, true)
	}
	return nil
}

func (c *Classifier) exonic(ctx context.Context, a *Annotation, ev *evidence, r *Result) error {
	t := a.Transcript

	pos := a.Start
	if ev.hasLoFPos {
		pos = ev.lofPosition
	}

	dist, err := c.collab.Distance.WeightedDistance(ctx, a, pos)
	if err != nil {
		return fmt.Errorf("computing GERP weighted distance: %w", err)
	}

	r.addInfo("GERP_DIST", dist.Weighted)
	r.addInfo("BP_DIST", dist.Raw)
	r.addInfo("PERCENTILE", CDSPercentile(a))

	d := dist.Raw - LastExonCodingLength(t)
	r.addInfo("DIST_FROM_LAST_EXON", d)
	if d <= endTruncMaxDistance {
		r.addInfo("50_BP_RULE", "FAIL")
	} else {
		r.addInfo("50_BP_RULE", "PASS")
	}
	if d <= endTruncMaxDistance && dist.Weighted <= endTruncMaxGERP {
		r.addFilter("END_TRUNC")
	}

	if err := c.exonIntegrity(ctx, a, r); err != nil {
		return err
	}

	if c.collab.Conservation != nil {
		orf, err := c.collab.Conservation.LookupORF(ctx, a)
		if err != nil {
			return fmt.Errorf("looking up PhyloCSF score: %w", err)
		}
		if orf == nil {
			r.addInfoTag("PHYLOCSF_TOO_SHORT")
		} else {
			r.addInfo("ANN_ORF", orf.Score)
			r.addInfo("MAX_ORF", orf.MaxScore)
			if orf.Score < 0 {
				if orf.MaxScore > 0 {
					r.addFlag("PHYLOCSF_UNLIKELY_ORF")
				} else {
					r.addFlag("PHYLOCSF_WEAK")
				}
			}
		}
	}
	return nil
}

func (c *Classifier) exonIntegrity(ctx context.Context, a *Annotation, r *Result) error {
	t := a.Transcript
	if len(t.Exons) == 0 {
		r.addFilter("EXON_INTRON_UNDEF")
		return nil
	}
	if len(t.Exons) == 1 {
		r.addFlag("SINGLE_EXON")
		return nil
	}

	if c.opts.CheckCompleteCDS && (!t.StartComplete || !t.EndComplete) {
		r.addFilter("INCOMPLETE_CDS")
	}

	neighbors := NeighborIntrons(*a.Exon)
	if len(neighbors) == 0 {
		return nil
	}

	seqs, err := c.intronSequences(ctx, t)
	if err != nil {
		return err
	}

	for _, i := range neighbors {
		if i < 0 || i >= len(t.Introns) {
			continue
		}
		if t.Introns[i].Size() < c.opts.MinIntronSize || !canonicalAt(seqs, i) {
			r.addFlag("NON_CAN_SPLICE_SURR")
			break
		}
	}
	return nil
}

func (c *Classifier) intronic(ctx context.Context, a *Annotation, ev *evidence, r *Result) error {
	t := a.Transcript
	idx := a.Intron.Index - 1
	if len(t.Introns) == 0 || idx < 0 || idx >= len(t.Introns) {
		r.addFilter("EXON_INTRON_UNDEF")
		return nil
	}

	size := t.Introns[idx].Size()
	r.addInfo("INTRON_SIZE", size)
	if size < c.opts.MinIntronSize {
		r.addFilter("SMALL_INTRON")
	}

	seqs, err := c.intronSequences(ctx, t)
	if err != nil {
		return err
	}
	if !canonicalAt(seqs, idx) {
		r.addFilter("NON_CAN_SPLICE")
	}

	if ev.nativeSplice {
		if ev.fiveUTR {
			r.addFilter("5UTR_SPLICE")
		}
		if ev.threeUTR {
			r.addFilter("3UTR_SPLICE")
		}
	}

	if a.HasConsequence(SpliceAcceptor) && c.collab.Sequence != nil {
		window, err := c.collab.Sequence.Window(ctx, t.Chrom,
			a.Start-nagnagWindowFlank, a.Start+nagnagWindowFlank, t.Strand)
		if err != nil {
			return fmt.Errorf("fetching NAGNAG window: %w", err)
		}
		if IsNAGNAG(window) {
			r.addFlag("NAGNAG_SITE")
		}
	}
	return nil
}

// intronSequences returns nil when no sequence source is configured, in
// which case every intron counts as canonical.
func (c *Classifier) intronSequences(ctx context.Context, t *Transcript) ([]string, error) {
	if c.collab.Sequence == nil {
		return nil, nil
	}
	seqs, err := c.collab.Sequence.IntronSequences(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("fetching intron sequences for %s: %w", t.ID, err)
	}
	return seqs, nil
}

func canonicalAt(seqs []string, i int) bool {
	if seqs == nil || i >= len(seqs) {
		return true
	}
	return IsCanonicalIntron(seqs[i])
}

func nativeSpliceType(a *Annotation, s *SpliceInfo) string {
	if s != nil && s.Type != "" {
		return strings.ToUpper(s.Type)
	}
	if a.HasConsequence(SpliceAcceptor) {
		return "ACCEPTOR"
	}
	return "DONOR"
}

// appendFeatures adds key:value info tags in key order. NaN values are
// skipped. With dedup set, tags already present in info are not repeated.
func appendFeatures(r *Result, features map[string]float64, dedup bool) {
	if len(features) == 0 {
		return
	}

	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var seen map[string]bool
	if dedup {
		seen = make(map[string]bool, len(r.Info))
		for _, s := range r.Info {
			seen[s] = true
		}
	}

	for _, k := range keys {
		v := features[k]
		if math.IsNaN(v) {
			continue
		}
		tag := k + ":" + formatValue(v)
		if dedup {
			if seen[tag] {
				continue
			}
			seen[tag] = true
		}
		r.Info = append(r.Info, tag)
	}
}
