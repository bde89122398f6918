package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func queueCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or drain the running service's queue",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "base URL of the running service")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print queue, worker and dispatch stats",
		Run: func(cmd *cobra.Command, args []string) {
			body, err := httpJSON(http.MethodGet, strings.TrimRight(addr, "/")+"/health/queue", nil)
			if err != nil {
				fail(err)
			}
			fmt.Println(body)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Discard all pending jobs",
		Run: func(cmd *cobra.Command, args []string) {
			body, err := httpJSON(http.MethodPost, strings.TrimRight(addr, "/")+"/health/queue/drain", nil)
			if err != nil {
				fail(err)
			}
			fmt.Println(body)
		},
	})
	return cmd
}

// httpJSON performs a request and returns the indented response body.
func httpJSON(method, url string, reqBody io.Reader) (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s %s: %s", method, url, resp.Status)
	}
	var buf map[string]any
	if err := json.Unmarshal(raw, &buf); err != nil {
		return string(raw), nil
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return string(raw), nil
	}
	return string(pretty), nil
}
