package svm

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Kernel selects the kernel function used against each support vector.
type Kernel int

const (
	KernelLinear Kernel = iota
	KernelRadial
)

func (k Kernel) String() string {
	if k == KernelRadial {
		return "radial"
	}
	return "linear"
}

// ParseKernel maps a kernel name to a Kernel. Unknown names are linear.
func ParseKernel(s string) Kernel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "radial", "rbf":
		return KernelRadial
	default:
		return KernelLinear
	}
}

// Scorer evaluates decision-function margins through a shared Cache.
type Scorer struct {
	cache        *Cache
	computations atomic.Uint64
}

// NewScorer returns a Scorer backed by cache. A nil cache gets a private one.
func NewScorer(cache *Cache) *Scorer {
	if cache == nil {
		cache = NewCache()
	}
	return &Scorer{cache: cache}
}

// Computations reports how many times the support vector sum actually ran.
func (s *Scorer) Computations() uint64 {
	return s.computations.Load()
}

// Evaluate returns the margin of features under m using kernel k.
func (s *Scorer) Evaluate(m *Model, features map[string]float64, k Kernel) (float64, error) {
	if m == nil {
		return 0, fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	key := cacheKey{model: m, kernel: k, sig: Signature(features)}
	return s.cache.getOrCompute(key, func() (float64, error) {
		return s.margin(m, features, k)
	})
}

func (s *Scorer) margin(m *Model, features map[string]float64, k Kernel) (float64, error) {
	scaled := make([]float64, len(m.Features))
	for i, name := range m.Features {
		v, ok := features[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q (model %s)", ErrMissingFeature, name, m.Name)
		}
		sc := m.Scale[name]
		if sc == 0 {
			return 0, fmt.Errorf("%w: zero scale for feature %q (model %s)", ErrInvalidModel, name, m.Name)
		}
		scaled[i] = (v - m.Center[name]) / sc
	}

	s.computations.Add(1)

	var sum float64
	gamma := m.Gamma()
	for _, sv := range m.Vectors {
		var kv float64
		if k == KernelRadial {
			var d float64
			for i, x := range scaled {
				diff := x - sv.Values[i]
				d += diff * diff
			}
			kv = math.Exp(-gamma * d)
		} else {
			for i, x := range scaled {
				kv += x * sv.Values[i]
			}
		}
		sum += sv.Alpha * kv
	}

	return sum - m.Rho(), nil
}

// Probability converts a margin into a calibrated probability with the
// model's Platt parameters.
func Probability(margin float64, m *Model) float64 {
	return 1 / (1 + math.Exp(-(m.Misc[MiscProbA]*margin + m.Misc[MiscProbB])))
}

// Probability evaluates features and returns the calibrated probability.
func (s *Scorer) Probability(m *Model, features map[string]float64, k Kernel) (float64, error) {
	margin, err := s.Evaluate(m, features, k)
	if err != nil {
		return 0, err
	}
	return Probability(margin, m), nil
}
