// Package suite loads the definition of a DRP integration test suite.
package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a suite file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported suite file extension %q", filepath.Ext(path))
	}
}

// Comparison pairs a reference product with the file the pipeline wrote.
type Comparison struct {
	Expected string `yaml:"expected" toml:"expected"`
	Actual   string `yaml:"actual" toml:"actual"`
}

// Case is one queue directory to run through the backbone, followed by the
// comparisons that must hold afterwards.
type Case struct {
	Name    string       `yaml:"name" toml:"name"`
	Queue   string       `yaml:"queue" toml:"queue"`
	Compare []Comparison `yaml:"compare,omitempty" toml:"compare,omitempty"`
}

// Suite is an ordered list of cases.
type Suite struct {
	Dir   string `yaml:"-" toml:"-"` // directory relative paths resolve against
	Cases []Case `yaml:"cases" toml:"cases"`
}

// Load reads, resolves and validates the suite file at path.
func Load(path string) (*Suite, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for suite file '%s': %w", path, err)
	}
	return Parse(data, format, filepath.Dir(absPath))
}

// Parse decodes a suite and resolves its relative paths against dir.
func Parse(data []byte, format Format, dir string) (*Suite, error) {
	s := &Suite{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("failed to parse suite: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse suite: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse suite: unknown field %s", undecoded[0])
		}
	default:
		return nil, fmt.Errorf("unsupported suite format %q", format)
	}

	s.Dir = dir
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.resolve()
	return s, nil
}

// Validate checks that every case is complete and uniquely named.
func (s *Suite) Validate() error {
	if len(s.Cases) == 0 {
		return errors.New("suite has no cases")
	}
	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i)
		}
		if strings.ContainsAny(c.Name, `/\`) || c.Name == "." || c.Name == ".." {
			return fmt.Errorf("case name %q cannot be used as a file name", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
		if c.Queue == "" {
			return fmt.Errorf("case %q has no queue directory", c.Name)
		}
		for j, cmp := range c.Compare {
			if cmp.Expected == "" || cmp.Actual == "" {
				return fmt.Errorf("case %q: comparison %d needs both expected and actual", c.Name, j)
			}
		}
	}
	return nil
}

func (s *Suite) resolve() {
	for i := range s.Cases {
		c := &s.Cases[i]
		c.Queue = s.abs(c.Queue)
		for j := range c.Compare {
			c.Compare[j].Expected = s.abs(c.Compare[j].Expected)
			c.Compare[j].Actual = s.abs(c.Compare[j].Actual)
		}
	}
}

func (s *Suite) abs(path string) string {
	if filepath.IsAbs(path) || s.Dir == "" {
		return path
	}
	return filepath.Join(s.Dir, path)
}

// Select returns a suite with only the named cases, in suite order. No
// names selects every case.
func (s *Suite) Select(names ...string) (*Suite, error) {
	if len(names) == 0 {
		return s, nil
	}
	out := &Suite{Dir: s.Dir}
	for _, c := range s.Cases {
		if slices.Contains(names, c.Name) {
			out.Cases = append(out.Cases, c)
		}
	}
	for _, name := range names {
		if !slices.ContainsFunc(out.Cases, func(c Case) bool { return c.Name == name }) {
			return nil, fmt.Errorf("unknown case %q", name)
		}
	}
	return out, nil
}
