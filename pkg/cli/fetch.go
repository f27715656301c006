package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mchmarny/lofcall/pkg/net"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const maxParallelDownloads = 4

const (
	manifestFlagName = "manifest"
	dirFlagName      = "dir"
)

func fetchCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "fetch",
		Usage:  "Download model and data files listed in a manifest",
		Action: cmdFetch,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     manifestFlagName,
				Usage:    "URL of a JSON manifest listing the model and data files",
				Required: true,
			},
			&urfave.StringFlag{
				Name:  dirFlagName,
				Usage: "Directory the files are written to (default: config directory)",
			},
		},
	}
}

// Manifest lists the files to download.
type Manifest struct {
	Files []*ManifestFile `json:"files"`
}

// ManifestFile is one download. Path is relative to the target directory.
type ManifestFile struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func cmdFetch(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(ctx)
	dir := cmd.String(dirFlagName)
	if dir == "" {
		dir = cfg.Dir
	}
	if dir == "" {
		return errors.New("target directory required")
	}

	client := net.GetHTTPClient()
	var m Manifest
	if err := net.GetJSON(ctx, client, cmd.String(manifestFlagName), &m); err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	paths, err := fetchFiles(ctx, &m, dir)
	if err != nil {
		return err
	}

	return encode(writer(cmd), cfg.Format, paths)
}

// fetchFiles downloads every manifest entry into dir and returns the
// written paths in manifest order.
func fetchFiles(ctx context.Context, m *Manifest, dir string) ([]string, error) {
	client := net.GetHTTPClient()
	paths := make([]string, len(m.Files))

	for i, f := range m.Files {
		p, err := targetPath(dir, f.Path)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)
	for i, f := range m.Files {
		g.Go(func() error {
			slog.Debug("downloading", "url", f.URL, "path", paths[i])
			if err := net.Download(gctx, client, f.URL, paths[i]); err != nil {
				return fmt.Errorf("downloading %s: %w", f.URL, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// targetPath keeps manifest paths inside dir.
func targetPath(dir, p string) (string, error) {
	clean := filepath.Clean(p)
	if p == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid manifest path: %q", p)
	}
	return filepath.Join(dir, clean), nil
}
