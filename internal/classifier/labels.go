package classifier

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the newline-delimited label file. Order matters: the line
// index is the model output index. Blank lines are skipped.
func LoadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening label file %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			getLogger().Warn("failed to close label file", "path", path, "error", err)
		}
	}()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading label file %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s contains no labels", path)
	}
	return labels, nil
}
