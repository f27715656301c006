package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mchmarny/lofcall/pkg/svm"
	urfave "github.com/urfave/cli/v3"
)

const (
	modelFlagName   = "model"
	kernelFlagName  = "kernel"
	featureFlagName = "feature"
)

func scoreCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "score",
		Usage:  "Evaluate a kernel model against one feature vector",
		Action: cmdScore,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     modelFlagName,
				Usage:    "Directory holding sv.tsv, center.tsv, scale.tsv and misc.tsv",
				Required: true,
			},
			&urfave.StringFlag{
				Name:  kernelFlagName,
				Usage: "Kernel type [linear, radial]",
				Value: svm.KernelLinear.String(),
			},
			&urfave.StringSliceFlag{
				Name:    featureFlagName,
				Aliases: []string{"f"},
				Usage:   "Feature value as name=value (repeatable)",
			},
		},
	}
}

// Score is the output of the score command.
type Score struct {
	Model       string  `json:"model" yaml:"model"`
	Kernel      string  `json:"kernel" yaml:"kernel"`
	Margin      float64 `json:"margin" yaml:"margin"`
	Probability float64 `json:"probability" yaml:"probability"`
}

func cmdScore(ctx context.Context, cmd *urfave.Command) error {
	features, err := parseFeatures(cmd.StringSlice(featureFlagName))
	if err != nil {
		return err
	}

	dir := cmd.String(modelFlagName)
	m, err := svm.Load(dir)
	if err != nil {
		return err
	}

	k := svm.ParseKernel(cmd.String(kernelFlagName))
	margin, err := svm.NewScorer(svm.NewCache()).Evaluate(m, features, k)
	if err != nil {
		return err
	}

	return encode(writer(cmd), getConfig(ctx).Format, &Score{
		Model:       dir,
		Kernel:      k.String(),
		Margin:      margin,
		Probability: svm.Probability(margin, m),
	})
}

func parseFeatures(pairs []string) (map[string]float64, error) {
	features := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid feature %q, expected name=value", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for feature %s: %w", name, err)
		}
		features[name] = v
	}
	return features, nil
}
