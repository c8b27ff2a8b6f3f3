package parser

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectors []byte

type Mode string

const (
	// ModeText reads the trimmed text of the matched node, falling back to
	// its Attr attribute when the text is empty.
	ModeText Mode = "text"
	// ModeAttr reads the first usable value among Attrs.
	ModeAttr Mode = "attr"
)

// Cascade is an ordered list of selectors for one extraction role.
type Cascade struct {
	Selectors []string `yaml:"selectors"`
	Mode      Mode     `yaml:"mode"`
	Attr      string   `yaml:"attr"`
	Attrs     []string `yaml:"attrs"`
}

// Tables holds every cascade the layout parser and page fetcher use.
type Tables struct {
	Version   string  `yaml:"version"`
	Readiness Cascade `yaml:"readiness"`
	Container Cascade `yaml:"container"`
	Title     Cascade `yaml:"title"`
	Price     Cascade `yaml:"price"`
	Image     Cascade `yaml:"image"`
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() Tables {
	t, err := ParseTables(defaultSelectors)
	if err != nil {
		panic(fmt.Sprintf("embedded selectors.yaml is invalid: %v", err))
	}
	return t
}

// LoadTables reads selector tables from a YAML file.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read selectors file: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("failed to parse selectors YAML: %w", err)
	}

	roles := []struct {
		name    string
		cascade *Cascade
	}{
		{"readiness", &t.Readiness},
		{"container", &t.Container},
		{"title", &t.Title},
		{"price", &t.Price},
		{"image", &t.Image},
	}

	for _, r := range roles {
		if err := r.cascade.normalize(); err != nil {
			return Tables{}, fmt.Errorf("%s: %w", r.name, err)
		}
	}

	if t.Image.Mode != ModeAttr {
		return Tables{}, fmt.Errorf("image: mode must be %q", ModeAttr)
	}

	return t, nil
}

// normalize fills defaults, drops duplicate selectors and checks that every
// selector compiles.
func (c *Cascade) normalize() error {
	if len(c.Selectors) == 0 {
		return fmt.Errorf("at least one selector is required")
	}

	if c.Mode == "" {
		c.Mode = ModeText
	}

	switch c.Mode {
	case ModeText:
		if c.Attr == "" {
			c.Attr = "title"
		}
	case ModeAttr:
		if len(c.Attrs) == 0 && c.Attr != "" {
			c.Attrs = []string{c.Attr}
		}
		if len(c.Attrs) == 0 {
			return fmt.Errorf("attr mode needs at least one attribute")
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	seen := make(map[string]bool, len(c.Selectors))
	unique := c.Selectors[:0]
	for _, sel := range c.Selectors {
		if seen[sel] {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("invalid selector %q: %w", sel, err)
		}
		seen[sel] = true
		unique = append(unique, sel)
	}
	c.Selectors = unique

	return nil
}
