package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/authfence/api"
)

type probeOptions struct {
	url      string
	purpose  string
	key      string
	count    int
	interval time.Duration
	timeout  time.Duration
}

// newProbeCmd sends repeated /check calls to a running service, the way a
// reverse proxy or application would consult it.
func newProbeCmd() *cobra.Command {
	opts := probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send check requests to a running authfence service",
		Example: `  authfence probe --purpose login --count 25
  authfence probe --key "signup:203.0.113.7:curl" --count 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.count <= 0 {
				return fmt.Errorf("count must be positive")
			}
			client := &http.Client{Timeout: opts.timeout}
			return runProbe(cmd.OutOrStdout(), client, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080", "service base URL")
	cmd.Flags().StringVar(&opts.purpose, "purpose", "login", "purpose label")
	cmd.Flags().StringVar(&opts.key, "key", "", "explicit key instead of one derived from request headers")
	cmd.Flags().IntVar(&opts.count, "count", 10, "number of requests to send")
	cmd.Flags().DurationVar(&opts.interval, "interval", 50*time.Millisecond, "delay between requests")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")
	return cmd
}

func runProbe(out io.Writer, client *http.Client, opts probeOptions) error {
	endpoint := strings.TrimRight(opts.url, "/") + "/check"

	var allowed, blocked int
	for i := 1; i <= opts.count; i++ {
		resp, err := probeOnce(client, endpoint, api.CheckRequest{Key: opts.key, Purpose: opts.purpose})
		if err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}

		if resp.Allowed {
			allowed++
			fmt.Fprintf(out, "request %2d: ALLOWED  (%d remaining)\n", i, resp.Remaining)
		} else {
			blocked++
			fmt.Fprintf(out, "request %2d: BLOCKED  (retry after %dms)\n", i, resp.RetryAfterMs)
		}

		if opts.interval > 0 && i < opts.count {
			time.Sleep(opts.interval)
		}
	}

	fmt.Fprintf(out, "allowed=%d blocked=%d\n", allowed, blocked)
	return nil
}

func probeOnce(client *http.Client, endpoint string, req api.CheckRequest) (*api.CheckResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpResp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusTooManyRequests {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(httpResp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, apiErr.Error)
	}

	var resp api.CheckResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
