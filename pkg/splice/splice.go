// Package splice scores precomputed splice-site feature vectors with the
// kernel models and answers the pipeline's splice evidence questions.
package splice

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/mchmarny/lofcall/pkg/svm"
)

const (
	TypeDonor    = "DONOR"
	TypeAcceptor = "ACCEPTOR"

	donorModelDir       = "donor"
	acceptorModelDir    = "acceptor"
	deNovoDonorModelDir = "denovo_donor"
)

// Models holds the kernel models for each site type.
type Models struct {
	Donor       *svm.Model
	Acceptor    *svm.Model
	DeNovoDonor *svm.Model
	Kernel      svm.Kernel
}

// LoadModels reads the donor, acceptor and de novo donor models from dir.
func LoadModels(dir string, kernel svm.Kernel) (*Models, error) {
	m := &Models{Kernel: kernel}
	var err error
	if m.Donor, err = svm.Load(filepath.Join(dir, donorModelDir)); err != nil {
		return nil, fmt.Errorf("loading donor model: %w", err)
	}
	if m.Acceptor, err = svm.Load(filepath.Join(dir, acceptorModelDir)); err != nil {
		return nil, fmt.Errorf("loading acceptor model: %w", err)
	}
	if m.DeNovoDonor, err = svm.Load(filepath.Join(dir, deNovoDonorModelDir)); err != nil {
		return nil, fmt.Errorf("loading de novo donor model: %w", err)
	}
	return m, nil
}

// Thresholds are the collaborator-only cutoffs.
type Thresholds struct {
	DonorDisruptionCutoff    float64
	AcceptorDisruptionCutoff float64
	DonorRescueCutoff        float64
	AcceptorRescueCutoff     float64
	MaxScanDistance          int64
	MaxDeNovoDonorDistance   int64
	// WeakDonorCutoff and SREFlankSize parameterize feature extraction,
	// which happens upstream of this package.
	WeakDonorCutoff float64
	SREFlankSize    int64
}

// Predictor implements the splice disruption, rescue scan and de novo
// donor collaborators.
type Predictor struct {
	scorer *svm.Scorer
	models *Models
	th     Thresholds
}

func NewPredictor(scorer *svm.Scorer, models *Models, th Thresholds) *Predictor {
	return &Predictor{scorer: scorer, models: models, th: th}
}

func (p *Predictor) model(siteType string) (*svm.Model, error) {
	switch strings.ToUpper(siteType) {
	case TypeDonor:
		return p.models.Donor, nil
	case TypeAcceptor:
		return p.models.Acceptor, nil
	default:
		return nil, fmt.Errorf("unknown splice site type: %q", siteType)
	}
}

func (p *Predictor) disruptionCutoff(siteType string) float64 {
	if strings.EqualFold(siteType, TypeAcceptor) {
		return p.th.AcceptorDisruptionCutoff
	}
	return p.th.DonorDisruptionCutoff
}

func (p *Predictor) rescueCutoff(siteType string) float64 {
	if strings.EqualFold(siteType, TypeAcceptor) {
		return p.th.AcceptorRescueCutoff
	}
	return p.th.DonorRescueCutoff
}

// PredictDisruption scores the splice site vector supplied with the
// annotation. Sites are scored whether or not the variant carries a splice
// donor or acceptor call.
func (p *Predictor) PredictDisruption(_ context.Context, a *lof.Annotation, _ bool) (*lof.Disruption, error) {
	site := a.Handles.SpliceSite
	if site == nil {
		return &lof.Disruption{}, nil
	}

	m, err := p.model(site.Type)
	if err != nil {
		return nil, err
	}
	prob, err := p.scorer.Probability(m, site.Features, p.models.Kernel)
	if err != nil {
		return nil, fmt.Errorf("scoring %s site: %w", site.Type, err)
	}

	features := make(map[string]float64, len(site.Features)+1)
	for k, v := range site.Features {
		features[k] = v
	}
	features["disruption_prob"] = prob

	slog.Debug("splice disruption scored", "type", site.Type, "position", site.Position, "prob", prob)
	return &lof.Disruption{
		Disrupting: prob >= p.disruptionCutoff(site.Type),
		Features:   features,
		Splice:     &lof.SpliceInfo{Type: strings.ToUpper(site.Type), Position: site.Position},
	}, nil
}

// ScanRescue looks for an alternative site of the same type close enough to
// the disrupted one to take over.
func (p *Predictor) ScanRescue(_ context.Context, a *lof.Annotation, splice *lof.SpliceInfo) (*lof.Rescue, error) {
	if splice == nil {
		return &lof.Rescue{}, nil
	}

	m, err := p.model(splice.Type)
	if err != nil {
		return nil, err
	}

	best, bestPos := math.NaN(), math.NaN()
	for _, c := range a.Handles.Alternatives {
		if !strings.EqualFold(c.Type, splice.Type) || abs(c.Position-splice.Position) > p.th.MaxScanDistance {
			continue
		}
		prob, err := p.scorer.Probability(m, c.Features, p.models.Kernel)
		if err != nil {
			return nil, fmt.Errorf("scoring alternative %s site at %d: %w", c.Type, c.Position, err)
		}
		if math.IsNaN(best) || prob > best {
			best, bestPos = prob, float64(c.Position)
		}
	}

	r := &lof.Rescue{
		Features:    map[string]float64{"rescue_prob": best, "rescue_pos": bestPos},
		LoFPosition: splice.Position,
	}
	if !math.IsNaN(best) && best >= p.rescueCutoff(splice.Type) {
		r.Rescued = true
		r.Tag = strings.ToUpper(splice.Type) + "_RESCUE"
	}
	return r, nil
}

// PredictDeNovoDonor scores a candidate donor created by the variant. It is
// a LoF when it sits near a native donor and shifts the reading frame.
func (p *Predictor) PredictDeNovoDonor(_ context.Context, a *lof.Annotation) (*lof.DeNovoDonor, error) {
	c := a.Handles.DeNovoDonor
	if c == nil || p.models.DeNovoDonor == nil {
		return &lof.DeNovoDonor{}, nil
	}

	prob, err := p.scorer.Probability(p.models.DeNovoDonor, c.Features, p.models.Kernel)
	if err != nil {
		return nil, fmt.Errorf("scoring de novo donor: %w", err)
	}

	dist, ok := NearestDonorDistance(a.Transcript, c.Position)
	res := &lof.DeNovoDonor{
		Probability: prob,
		LoFPosition: c.Position,
		Features:    map[string]float64{"denovo_prob": prob},
	}
	if ok {
		res.Features["denovo_dist"] = float64(dist)
		res.LoF = dist > 0 && dist <= p.th.MaxDeNovoDonorDistance && dist%3 != 0
	}
	return res, nil
}

// NearestDonorDistance returns the distance from pos to the closest native
// donor boundary (the 3' end of an exon that is followed by an intron).
func NearestDonorDistance(t *lof.Transcript, pos int64) (int64, bool) {
	if t == nil || len(t.Exons) < 2 {
		return 0, false
	}
	best, found := int64(0), false
	for _, e := range t.Exons[:len(t.Exons)-1] {
		donor := e.End
		if t.IsReverseStrand() {
			donor = e.Start
		}
		if d := abs(pos - donor); !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
