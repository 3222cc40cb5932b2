package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"mamba-hq/mamba/pkg/cli"
	"mamba-hq/mamba/pkg/config"
	"mamba-hq/mamba/pkg/proxy"
	"mamba-hq/mamba/pkg/rotation"
)

var checkFlags struct {
	timeout time.Duration
	format  string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test gateway connectivity for each configured provider",
	Long: `Send one test chat completion through the proxy for every provider
that has both an API key pool and a test model configured.

The command starts the forwarding core on a loopback port, so the request
takes the exact path production traffic takes: credential rotation, path
rewriting, and the upstream round trip.

Examples:
  # Test all configured providers
  mamba check

  # Machine-readable results
  mamba check --format json`,
	RunE: checkProviders,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", 30*time.Second, "per-provider request timeout")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
}

// checkResult is one provider's connectivity test outcome.
type checkResult struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   int    `json:"status,omitempty"`
	Content  string `json:"content,omitempty"`
	Error    string `json:"error,omitempty"`
	OK       bool   `json:"ok"`
}

func checkProviders(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Only providers with keys and a test model are testable.
	var names []string
	for name, p := range cfg.Providers {
		if len(p.APIKeys) > 0 && p.TestModel != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return cli.NewCommandError("check",
			fmt.Errorf("no providers with both api_keys and test_model configured"))
	}
	sort.Strings(names)

	state, err := buildRotation(cfg)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return cli.NewCommandError("check", fmt.Errorf("failed to start local listener: %w", err))
	}
	defer listener.Close()

	forwarder := proxy.NewForwarder(rotation.NewHolder(state), cfg.Upstream, nil, nil, nil)
	go http.Serve(listener, forwarder)

	baseURL := "http://" + listener.Addr().String()

	if checkFlags.format != "json" {
		fmt.Printf("Testing %d provider(s) through %d gateway(s)\n\n", len(names), state.GatewayCount())
		for _, name := range names {
			p := cfg.Providers[name]
			fmt.Printf("  %s: %d key(s)", name, len(p.APIKeys))
			for _, key := range p.APIKeys {
				fmt.Printf(" %s", cli.MaskCredential(key))
			}
			fmt.Println()
		}
		fmt.Println()
	}

	status := cli.NewStatusWriter(os.Stdout)
	if checkFlags.format == "json" {
		status = cli.NewStatusWriter(io.Discard)
	}

	client := &http.Client{Timeout: checkFlags.timeout}
	results := make([]checkResult, 0, len(names))

	for _, name := range names {
		result := testProvider(client, baseURL, name, cfg.Providers[name].TestModel)
		results = append(results, result)

		if result.OK {
			status.Pass(name, fmt.Sprintf("%d  %s", result.Status, result.Content))
		} else {
			status.Fail(name, result.Error)
		}
	}

	if checkFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, results); err != nil {
			return err
		}
	}

	if !status.Summary() {
		return cli.NewCommandError("check", fmt.Errorf("%d provider(s) failed", status.Failed()))
	}
	return nil
}

// testProvider sends one chat completion for the provider's test model and
// extracts the assistant reply from the response.
func testProvider(client *http.Client, baseURL, provider, testModel string) checkResult {
	result := checkResult{
		Provider: provider,
		Model:    provider + "/" + testModel,
	}

	payload, err := json.Marshal(map[string]interface{}{
		"model": result.Model,
		"messages": []map[string]string{
			{"role": "user", "content": "Say 'Hello from provider!' in one short sentence."},
		},
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := client.Post(baseURL+"/v1/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
		return result
	}

	result.OK = true
	result.Content = truncate(extractContent(body), 80)
	return result
}

// extractContent pulls choices[0].message.content out of a completion
// response, or returns an empty string when the shape is unexpected.
func extractContent(body []byte) string {
	var doc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Choices) == 0 {
		return ""
	}
	return doc.Choices[0].Message.Content
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
