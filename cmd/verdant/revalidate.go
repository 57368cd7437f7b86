package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/verdant/internal/config"
	"github.com/vango-dev/verdant/internal/errors"
	"github.com/vango-dev/verdant/pkg/revalidate"
)

func revalidateCmd() *cobra.Command {
	var (
		server  string
		secret  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "revalidate <path>...",
		Short: "Ask a running server to regenerate pages",
		Long: `Ask a running server to regenerate cached pages now.

The secret defaults to VERDANT_REVALIDATE_SECRET.

Examples:
  verdant revalidate /products/42
  verdant revalidate --server=https://shop.example.com / /products`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if server == "" {
				server = cfg.URL()
			}
			if secret == "" {
				secret = cfg.Revalidate.Secret
			}
			client := &http.Client{Timeout: timeout}
			for _, path := range args {
				resp, err := requestRevalidation(cmd.Context(), client, server+cfg.Paths.Revalidate, path, secret)
				if err != nil {
					return err
				}
				success("Revalidated %s at %s", resp.Path, time.UnixMilli(resp.Now).Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL (default from config)")
	cmd.Flags().StringVar(&secret, "secret", "", "Revalidation secret (default $"+config.EnvRevalidateSecret+")")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	return cmd
}

// requestRevalidation posts one revalidation request.
func requestRevalidation(ctx context.Context, client *http.Client, endpoint, path, secret string) (*revalidate.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(revalidate.Request{Path: path, Secret: secret})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New("V161").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New("V161").WithDetail("Could not reach " + endpoint).Wrap(err)
	}
	defer resp.Body.Close()

	var out revalidate.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.New("V161").WithDetail(fmt.Sprintf("%s answered %d with an unreadable body", endpoint, resp.StatusCode)).Wrap(err)
	}
	if resp.StatusCode != http.StatusOK || !out.Revalidated {
		detail := fmt.Sprintf("%s answered %d for %s", endpoint, resp.StatusCode, path)
		if out.Error != "" {
			detail += ": " + out.Error
		}
		e := errors.New("V161").WithDetail(detail)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			e = e.WithSuggestion("Check " + config.EnvRevalidateSecret + " matches the server")
		}
		return nil, e
	}
	return &out, nil
}

