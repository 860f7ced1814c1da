package agents

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

var (
	errNoFrontMatter = errors.New("missing front-matter delimiter")
	errUnclosed      = errors.New("unclosed front-matter block")
	errNoName        = errors.New("front matter declares no name")
)

// header is the subset of descriptor front matter the relay reads.
type header struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func parseDescriptorFile(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	return ParseDescriptor(raw)
}

// ParseDescriptor extracts name and description from a descriptor's front
// matter. Descriptions are free text and often contain unquoted colons that
// are not valid YAML, so a block YAML rejects is scanned line by line.
func ParseDescriptor(raw []byte) (*Descriptor, error) {
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(s, frontMatterDelimiter) {
		return nil, errNoFrontMatter
	}
	block, ok := frontMatterBlock(s)
	if !ok {
		return nil, errUnclosed
	}

	var h header
	if err := yaml.Unmarshal([]byte(block), &h); err != nil {
		h = scanHeader(block)
	}

	name := strings.TrimSpace(h.Name)
	if name == "" {
		return nil, errNoName
	}
	desc := strings.TrimSpace(h.Description)
	if desc == "" {
		desc = defaultDescription
	}
	return &Descriptor{Name: name, Description: desc}, nil
}

// frontMatterBlock returns the text between the opening delimiter line and
// the first line consisting solely of the delimiter.
func frontMatterBlock(s string) (string, bool) {
	lines := strings.Split(s, "\n")
	if strings.TrimSpace(lines[0]) != frontMatterDelimiter {
		return "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelimiter {
			return strings.Join(lines[1:i], "\n"), true
		}
	}
	return "", false
}

// scanHeader reads top-level `key: value` lines without YAML semantics.
func scanHeader(block string) header {
	var h header
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch key {
		case "name":
			h.Name = value
		case "description":
			h.Description = value
		}
	}
	return h
}
