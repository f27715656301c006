package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/lofcall/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

const (
	phyloCSFFlagName = "phylocsf"
	gerpFlagName     = "gerp"
	dsnFlagName      = "db"
)

func dbCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "db",
		Usage: "Conservation score database commands",
		Commands: []*urfave.Command{
			{
				Name:   "load",
				Usage:  "Import PhyloCSF and GERP scores",
				Action: cmdDBLoad,
				Flags: []urfave.Flag{
					&urfave.StringFlag{
						Name:  phyloCSFFlagName,
						Usage: "TSV of transcript_id, exon_number, score, max_score",
					},
					&urfave.StringFlag{
						Name:  gerpFlagName,
						Usage: "TSV of chrom, pos, score",
					},
					&urfave.StringFlag{
						Name:  dsnFlagName,
						Usage: "sqlite path or postgres:// DSN (default: sources.database from config)",
					},
				},
			},
		},
	}
}

// LoadResult reports the rows imported by db load.
type LoadResult struct {
	Database string `json:"database" yaml:"database"`
	PhyloCSF int    `json:"phylocsf" yaml:"phylocsf"`
	GERP     int    `json:"gerp" yaml:"gerp"`
}

func cmdDBLoad(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(ctx)

	dsn := cmd.String(dsnFlagName)
	if dsn == "" {
		dsn = resolvePath(cfg.Dir, cfg.Config.Sources.Database)
	}
	if dsn == "" {
		dsn = resolvePath(cfg.Dir, data.DataFileName)
	}

	phylo, gerp := cmd.String(phyloCSFFlagName), cmd.String(gerpFlagName)
	if phylo == "" && gerp == "" {
		return fmt.Errorf("at least one of --%s or --%s required", phyloCSFFlagName, gerpFlagName)
	}

	store, err := data.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	res, err := loadScores(ctx, store, phylo, gerp)
	if err != nil {
		return err
	}
	res.Database = dsn
	return encode(writer(cmd), cfg.Format, res)
}

func loadScores(ctx context.Context, store *data.Store, phylo, gerp string) (*LoadResult, error) {
	res := &LoadResult{}
	var err error
	if phylo != "" {
		if res.PhyloCSF, err = importFile(phylo, func(f *os.File) (int, error) {
			return store.ImportORFScores(ctx, f)
		}); err != nil {
			return nil, err
		}
	}
	if gerp != "" {
		if res.GERP, err = importFile(gerp, func(f *os.File) (int, error) {
			return store.ImportGERPScores(ctx, f)
		}); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func importFile(path string, fn func(*os.File) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	n, err := fn(f)
	if err != nil {
		return n, fmt.Errorf("importing %s: %w", path, err)
	}
	slog.Info("imported", "file", path, "rows", n)
	return n, nil
}
