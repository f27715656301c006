package net

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetJSON retrieves the HTTP content and decodes it into the passed target.
func GetJSON[T any](ctx context.Context, client *http.Client, url string, target *T) error {
	resp, err := getResp(ctx, client, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}
