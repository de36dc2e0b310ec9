package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/happyhackingspace/openie"
)

// isTerminal reports whether r is the process stdin attached to a terminal.
func isTerminal(r io.Reader) bool {
	if r != io.Reader(os.Stdin) {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func loadModel(modelPath string) (*openie.Model, error) {
	if modelPath != "" {
		slog.Debug("Loading model", "path", modelPath)
		return openie.Load(modelPath)
	}
	return openie.New()
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// fetch returns the content of a URL or a local file.
func fetch(target string) (string, error) {
	if isURL(target) {
		resp, err := http.Get(target)
		if err != nil {
			return "", fmt.Errorf("fetch URL: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch URL: HTTP %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return string(body), nil
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

// readInput reads the command input from the first argument or from stdin.
// Stdin holding a single URL is fetched. The second result names the source.
func readInput(args []string, stdin io.Reader) (string, string, error) {
	if len(args) > 0 {
		slog.Debug("Fetching input", "target", args[0])
		content, err := fetch(args[0])
		return content, args[0], err
	}

	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(stdin)
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", "", fmt.Errorf("stdin is empty")
	}

	if isURL(content) && !strings.ContainsAny(content, " \n") {
		slog.Debug("Stdin contains URL", "url", content)
		fetched, err := fetch(content)
		if err != nil {
			return "", "", err
		}
		return fetched, content, nil
	}
	return content, "stdin", nil
}
