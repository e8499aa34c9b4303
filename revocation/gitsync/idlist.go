package gitsync

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// readIDList parses a revocation list file: one hex-encoded id per
// non-blank, non-comment line.
func readIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gitsync: open %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gitsync: read %s: %w", path, err)
	}
	return ids, nil
}
