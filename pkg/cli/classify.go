package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/mchmarny/lofcall/pkg/config"
	"github.com/mchmarny/lofcall/pkg/data"
	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/mchmarny/lofcall/pkg/seq"
	"github.com/mchmarny/lofcall/pkg/splice"
	"github.com/mchmarny/lofcall/pkg/svm"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	inputFlagName   = "input"
	workersFlagName = "workers"
)

func classifyCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "classify",
		Usage:  "Classify variant-transcript annotations",
		Action: cmdClassify,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    inputFlagName,
				Aliases: []string{"i"},
				Usage:   "JSON stream of variant-transcript annotations (- for stdin)",
				Value:   "-",
			},
			&urfave.IntFlag{
				Name:  workersFlagName,
				Usage: "Number of annotations classified concurrently",
				Value: runtime.NumCPU(),
			},
		},
	}
}

// Call is one output record. Err is set when a collaborator failed for
// this annotation; the remaining annotations are still classified.
type Call struct {
	Transcript string `json:"transcript" yaml:"transcript"`
	Start      int64  `json:"start" yaml:"start"`
	Allele     string `json:"allele" yaml:"allele"`
	lof.Record `yaml:",inline"`
	Err        string `json:"error,omitempty" yaml:"error,omitempty"`
}

func cmdClassify(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(ctx)

	in, closeIn, err := openInput(cmd.String(inputFlagName))
	if err != nil {
		return err
	}
	defer closeIn()

	anns, err := readAnnotations(in)
	if err != nil {
		return err
	}

	c, closer, err := buildClassifier(ctx, cfg.Config, cfg.Dir)
	if err != nil {
		return err
	}
	defer closer()

	calls, err := classifyAll(ctx, c, anns, cmd.Int(workersFlagName))
	if err != nil {
		return err
	}

	return encode(writer(cmd), cfg.Format, calls)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// readAnnotations decodes a stream of JSON annotation objects, one per
// line or concatenated.
func readAnnotations(r io.Reader) ([]*lof.Annotation, error) {
	dec := json.NewDecoder(r)
	list := make([]*lof.Annotation, 0)
	for {
		var a lof.Annotation
		err := dec.Decode(&a)
		if err == io.EOF {
			return list, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding annotation %d: %w", len(list)+1, err)
		}
		list = append(list, &a)
	}
}

// classifyAll runs the classifier over anns with at most workers in
// flight and returns the calls in input order.
func classifyAll(ctx context.Context, c *lof.Classifier, anns []*lof.Annotation, workers int) ([]*Call, error) {
	if workers < 1 {
		workers = 1
	}

	calls := make([]*Call, len(anns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, a := range anns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			call := &Call{Start: a.Start, Allele: a.Allele}
			if a.Transcript != nil {
				call.Transcript = a.Transcript.ID
			}
			r, err := c.Classify(gctx, a)
			if err != nil {
				slog.Debug("classification failed", "transcript", call.Transcript, "start", a.Start, "error", err)
				call.Err = err.Error()
			} else {
				call.Record = r.Record()
			}
			calls[i] = call
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classifying annotations: %w", err)
	}
	return calls, nil
}

// buildClassifier wires the collaborators the config points at. Sources
// left empty skip the checks that depend on them.
func buildClassifier(ctx context.Context, cfg *config.Config, dir string) (*lof.Classifier, func(), error) {
	var collab lof.Collaborators
	closers := make([]func(), 0)
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	src := cfg.Sources
	if src.ModelDir != "" {
		models, err := splice.LoadModels(resolvePath(dir, src.ModelDir), svm.ParseKernel(src.Kernel))
		if err != nil {
			return nil, nil, err
		}
		p := splice.NewPredictor(svm.NewScorer(svm.NewCache()), models, cfg.SpliceThresholds())
		collab.Disruption = p
		collab.Rescue = p
		collab.DeNovo = p
		slog.Debug("splice models loaded", "dir", src.ModelDir, "kernel", models.Kernel)
	}

	var ref, anc seq.Genome
	if src.ReferenceFasta != "" {
		f, err := seq.LoadFasta(resolvePath(dir, src.ReferenceFasta))
		if err != nil {
			return nil, nil, fmt.Errorf("loading reference: %w", err)
		}
		ref = f
	}
	if src.AncestralFasta != "" {
		f, err := seq.LoadFasta(resolvePath(dir, src.AncestralFasta))
		if err != nil {
			return nil, nil, fmt.Errorf("loading ancestral sequence: %w", err)
		}
		anc = f
	}
	if ref != nil || anc != nil {
		p := seq.NewProvider(ref, anc, seq.NewIntronCache())
		if ref != nil {
			collab.Sequence = p
		}
		if anc != nil {
			collab.Ancestral = p
		}
	}

	if src.Database != "" {
		store, err := data.Open(ctx, resolvePath(dir, src.Database))
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		closers = append(closers, func() { store.Close() })
		collab.Distance = store
		collab.Conservation = store
	}

	return lof.NewClassifier(cfg.Options(), collab), closeAll, nil
}
