package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var optionSep = regexp.MustCompile(`[\t =]+`)

// ReadOptions parses "key value" lines (separated by spaces, tabs or '=').
// Lines without a value are skipped; the first occurrence of a key wins.
func ReadOptions(r io.Reader) (map[string]string, error) {
	opts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := optionSep.Split(line, 3)
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		if _, ok := opts[parts[0]]; !ok {
			opts[parts[0]] = parts[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}
	return opts, nil
}

// ReadOptionsFile parses an options file.
func ReadOptionsFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadOptions(f)
}
