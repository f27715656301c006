package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

var ErrorURLNotFound = errors.New("URL not found")

func getResp(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	resp, err := client.Do(req) //nolint:gosec // URL comes from the operator's manifest
	if err != nil {
		return nil, fmt.Errorf("error executing HTTP Get request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrorURLNotFound, url)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status (%d - %s): %s", resp.StatusCode, resp.Status, url)
	}
	return resp, nil
}

// Download writes the content of url to path. The file is written to a
// temporary name first so a failed download never leaves a partial file.
func Download(ctx context.Context, client *http.Client, url, path string) (retErr error) {
	resp, err := getResp(ctx, client, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp)
		}
	}()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("moving %s into place: %w", path, err)
	}

	slog.Debug("downloaded", "url", url, "path", path, "bytes", n)
	return nil
}
