// Package authtoken fetches the bearer token the canvas server expects in
// AUTH.
package authtoken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Fetch asks url for a token. An empty token with a nil error means the
// user is not logged in and the session will be view only.
func Fetch(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("error building token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error fetching token: unexpected status %s", resp.Status)
	}

	var result struct {
		Token *string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}
	if result.Token == nil {
		return "", nil
	}
	return *result.Token, nil
}
