// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/aumtech/logbundle/pkg/defaults"
	"github.com/aumtech/logbundle/pkg/errors"
)

// wrapperKey is the top-level key the collector's config file nests its
// sources under. A bare source mapping is accepted too.
const wrapperKey = "dirs"

// SourceSpec is one directory and glob pattern rule of a named source.
type SourceSpec struct {
	// Source is the logical source name the rule was declared under.
	Source string `json:"source" yaml:"source"`

	// Path is the directory the pattern is expanded in.
	Path string `json:"path" yaml:"path"`

	// Pattern is a shell glob matched against names directly under Path.
	Pattern string `json:"filename" yaml:"filename"`
}

// IsDumpSource reports whether the rule marks Path as a core dump location.
func (s SourceSpec) IsDumpSource() bool {
	return s.Pattern == defaults.DumpSourcePattern
}

// String implements fmt.Stringer.
func (s SourceSpec) String() string {
	return fmt.Sprintf("%s:%s/%s", s.Source, s.Path, s.Pattern)
}

// Catalog holds the source rules in the order they were declared.
type Catalog struct {
	specs []SourceSpec
}

// New builds a catalog from already decoded rules, validating each one.
func New(specs ...SourceSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "no sources configured")
	}
	for i, s := range specs {
		if err := validate(s, i); err != nil {
			return nil, err
		}
	}
	out := make([]SourceSpec, len(specs))
	copy(out, specs)
	return &Catalog{specs: out}, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfig, "failed to read configuration", err,
			map[string]any{"path": path})
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded", "path", path, "rules", c.Len())
	return c, nil
}

// Parse decodes a configuration document. JSON and YAML are both accepted and
// the declaration order of sources is preserved.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "configuration is empty")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "failed to parse configuration", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "configuration is empty")
	}

	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrCodeConfig, "configuration must be a mapping of source name to rules")
	}
	if dirs := lookup(root, wrapperKey); dirs != nil && dirs.Kind == yaml.MappingNode {
		root = dirs
	}

	// A repeated source name replaces the earlier rules but keeps the
	// position of its first declaration, as a JSON object decode would.
	var order []string
	groups := make(map[string][]SourceSpec)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		rules := resolve(root.Content[i+1])
		if rules.Kind != yaml.SequenceNode {
			return nil, errors.NewWithContext(errors.ErrCodeConfig, "source rules must be a list",
				map[string]any{"source": name})
		}

		group := make([]SourceSpec, 0, len(rules.Content))
		for _, item := range rules.Content {
			var raw struct {
				Path     *string `yaml:"path"`
				Filename *string `yaml:"filename"`
			}
			if err := item.Decode(&raw); err != nil {
				return nil, errors.WrapWithContext(errors.ErrCodeConfig, "invalid source rule", err,
					map[string]any{"source": name, "line": item.Line})
			}
			s := SourceSpec{Source: name}
			if raw.Path != nil {
				s.Path = *raw.Path
			}
			if raw.Filename != nil {
				s.Pattern = *raw.Filename
			}
			group = append(group, s)
		}

		if _, dup := groups[name]; dup {
			slog.Warn("source declared more than once, keeping the last declaration",
				"source", name, "line", root.Content[i].Line)
		} else {
			order = append(order, name)
		}
		groups[name] = group
	}

	var specs []SourceSpec
	for _, name := range order {
		specs = append(specs, groups[name]...)
	}

	return New(specs...)
}

// All returns an iterator over the rules in declaration order.
func (c *Catalog) All() iter.Seq[SourceSpec] {
	return func(yield func(SourceSpec) bool) {
		for _, s := range c.specs {
			if !yield(s) {
				return
			}
		}
	}
}

// Specs returns a copy of the rules in declaration order.
func (c *Catalog) Specs() []SourceSpec {
	return slices.Collect(c.All())
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Sources returns the distinct source names in declaration order.
func (c *Catalog) Sources() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range c.specs {
		if !seen[s.Source] {
			seen[s.Source] = true
			names = append(names, s.Source)
		}
	}
	return names
}

func validate(s SourceSpec, index int) error {
	ctx := map[string]any{"source": s.Source, "index": index}
	switch {
	case s.Source == "":
		return errors.NewWithContext(errors.ErrCodeConfig, "source name is empty", ctx)
	case s.Path == "":
		return errors.NewWithContext(errors.ErrCodeConfig, "source rule is missing path", ctx)
	case s.Pattern == "":
		return errors.NewWithContext(errors.ErrCodeConfig, "source rule is missing filename", ctx)
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// lookup returns the value of the last occurrence of key in mapping m.
func lookup(m *yaml.Node, key string) *yaml.Node {
	var found *yaml.Node
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			found = resolve(m.Content[i+1])
		}
	}
	return found
}
