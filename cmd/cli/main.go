package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	userEmail string
)

func main() {
	root := &cobra.Command{
		Use:   "dataset-cli",
		Short: "CLI client for the dataset script service",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("DATASET_API_KEY"), "API key")
	root.PersistentFlags().StringVar(&userEmail, "user-email", "", "Caller identity sent with each request")

	execCmd := &cobra.Command{
		Use:   "exec [code]",
		Short: "Execute a script against the dataset namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExec,
	}
	root.AddCommand(execCmd)

	execFileCmd := &cobra.Command{
		Use:   "exec-file [file]",
		Short: "Execute a script from a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecFile,
	}
	root.AddCommand(execFileCmd)

	root.AddCommand(&cobra.Command{
		Use:   "docs",
		Short: "Fetch the dataset documentation",
		RunE:  runDocs,
	})

	root.AddCommand(&cobra.Command{
		Use:   "events [request-id]",
		Short: "List audit events, optionally for one request",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEvents,
	})

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE:  runHealth,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	var code string

	if len(args) > 0 {
		code = args[0]
	} else {
		// Read from stdin
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		code = string(data)
	}

	return executeCode(code)
}

func runExecFile(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return executeCode(string(data))
}

func executeCode(code string) error {
	body, _ := json.Marshal(map[string]any{"code": code})

	req, err := http.NewRequest(http.MethodPost, serverURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	setIdentity(req)

	client := &http.Client{Timeout: 70 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Result    string `json:"result"`
		RequestID string `json:"request_id"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if result.Error != "" {
		return fmt.Errorf("server error: %s", result.Error)
	}

	fmt.Print(result.Result)
	return nil
}

func runDocs(_ *cobra.Command, _ []string) error {
	req, _ := http.NewRequest(http.MethodGet, serverURL+"/docs", nil)
	setIdentity(req)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Docs string `json:"docs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Print(result.Docs)
	return nil
}

func runEvents(_ *cobra.Command, args []string) error {
	url := serverURL + "/events"
	if len(args) > 0 {
		url += "/" + args[0]
	}

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	setIdentity(req)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result any
	json.NewDecoder(resp.Body).Decode(&result)
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))
	return nil
}

func runHealth(_ *cobra.Command, _ []string) error {
	resp, err := http.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))
	return nil
}

func setIdentity(req *http.Request) {
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if userEmail != "" {
		req.Header.Set("X-User-Email", userEmail)
	}
}
