// Package agents discovers the roster of agent identities the relay can
// deliver to.
//
// An agent is declared by a markdown descriptor file whose front matter
// carries a `name` and a `description`. The declared name, not the file name,
// is the canonical identity. Discovery is a pure function of the filesystem
// at call time: nothing is cached, so descriptor edits take effect on the
// next call.
package agents

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Origin tags where a descriptor was found. It only affects display grouping
// and duplicate precedence.
type Origin string

const (
	OriginProject Origin = "project"
	OriginGlobal  Origin = "global"
)

// defaultDescription is shown for descriptors that declare no description.
const defaultDescription = "No description available"

// Descriptor is one discovered agent.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Origin      Origin `json:"origin"`
	Path        string `json:"path"`
}

// Root is a directory scanned for descriptor files.
type Root struct {
	Dir    string
	Origin Origin
}

// Directory is the read side the request handler depends on.
type Directory interface {
	Discover() []Descriptor
	Roots() []Root
}

// Resolver scans descriptor roots on every call.
type Resolver struct {
	roots []Root
	log   zerolog.Logger
}

// NewResolver creates a Resolver over the project root and the global root.
// Either may be empty, in which case it is not scanned.
func NewResolver(projectDir, globalDir string, log zerolog.Logger) *Resolver {
	var roots []Root
	if projectDir != "" {
		roots = append(roots, Root{Dir: projectDir, Origin: OriginProject})
	}
	if globalDir != "" && filepath.Clean(globalDir) != filepath.Clean(projectDir) {
		roots = append(roots, Root{Dir: globalDir, Origin: OriginGlobal})
	}
	return &Resolver{roots: roots, log: log.With().Str("component", "agents").Logger()}
}

// Roots returns the scanned directories in precedence order.
func (r *Resolver) Roots() []Root {
	out := make([]Root, len(r.roots))
	copy(out, r.roots)
	return out
}

// Discover returns the current roster: project descriptors sorted by name,
// then global descriptors sorted by name.
//
// When two descriptors declare the same name the first one wins. Project
// descriptors shadow global ones, and within a root the lexically first file
// wins. Missing roots and unparsable descriptors are skipped.
func (r *Resolver) Discover() []Descriptor {
	seen := make(map[string]string)
	var result []Descriptor

	for _, root := range r.roots {
		entries, err := os.ReadDir(root.Dir)
		if err != nil {
			if !os.IsNotExist(err) {
				r.log.Debug().Err(err).Str("dir", root.Dir).Msg("skipping unreadable agent directory")
			}
			continue
		}

		var found []Descriptor
		for _, entry := range entries {
			if entry.IsDir() || !isCandidate(entry.Name()) {
				continue
			}
			path := filepath.Join(root.Dir, entry.Name())
			desc, err := parseDescriptorFile(path)
			if err != nil {
				r.log.Debug().Err(err).Str("path", path).Msg("skipping agent descriptor")
				continue
			}
			if prev, dup := seen[desc.Name]; dup {
				r.log.Debug().Str("name", desc.Name).Str("path", path).Str("shadowed_by", prev).
					Msg("duplicate agent name")
				continue
			}
			seen[desc.Name] = path
			desc.Origin = root.Origin
			desc.Path = path
			found = append(found, *desc)
		}

		sort.SliceStable(found, func(i, j int) bool { return found[i].Name < found[j].Name })
		result = append(result, found...)
	}

	return result
}

// isCandidate reports whether a file name may be an agent descriptor.
// Template files (leading underscore or "example" in the name) are ignored.
func isCandidate(name string) bool {
	if filepath.Ext(name) != ".md" {
		return false
	}
	stem := strings.TrimSuffix(name, ".md")
	if strings.HasPrefix(stem, "_") || strings.Contains(strings.ToLower(stem), "example") {
		return false
	}
	return true
}

// Names returns the identities of a roster in roster order.
func Names(roster []Descriptor) []string {
	names := make([]string, len(roster))
	for i, d := range roster {
		names[i] = d.Name
	}
	return names
}

// Lookup finds a descriptor by exact name.
func Lookup(roster []Descriptor, name string) (Descriptor, bool) {
	for _, d := range roster {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// GroupByOrigin splits a roster into project and global descriptors,
// preserving order.
func GroupByOrigin(roster []Descriptor) (project, global []Descriptor) {
	for _, d := range roster {
		if d.Origin == OriginGlobal {
			global = append(global, d)
		} else {
			project = append(project, d)
		}
	}
	return project, global
}
