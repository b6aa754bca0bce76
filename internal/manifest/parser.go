package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// LoadFileList reads a compile file list. Files with a .yaml or .yml
// extension must contain a top-level "files" sequence; any other file is
// read as plain text with one path per line, where blank lines and lines
// starting with # are ignored. Order is preserved.
func LoadFileList(path string) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		res, err := Validate(KindFileList, data)
		if err != nil {
			return nil, fmt.Errorf("parsing file list %s: %w", path, err)
		}
		if !res.Valid {
			return nil, fmt.Errorf("invalid file list %s: %s", path, joinIssues(res.Issues))
		}
		var fl FileList
		if err := yaml.Unmarshal(data, &fl); err != nil {
			return nil, fmt.Errorf("parsing file list %s: %w", path, err)
		}
		return fl.Files, nil
	default:
		return parseLines(data)
	}
}

func parseLines(data []byte) ([]string, error) {
	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file list: %w", err)
	}
	return files, nil
}

// ParseAgent reads an agent.yaml file.
func ParseAgent(path string) (*AgentManifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var m AgentManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing agent manifest %s: %w", path, err)
	}
	return &m, nil
}

func joinIssues(issues []ValidationIssue) string {
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = issue.String()
	}
	return strings.Join(msgs, "; ")
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
