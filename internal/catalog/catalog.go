// Package catalog describes the subjects a session can draw from.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCompulsory is the language subject every multi-subject session starts with.
const DefaultCompulsory = "english"

type Subject struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name"`
	// Passage-bearing subjects carry reading-passage groups of GroupSize questions.
	PassageBearing bool `yaml:"passage_bearing,omitempty" json:"passage_bearing"`
	GroupSize      int  `yaml:"group_size,omitempty" json:"group_size,omitempty"`
}

type Catalog struct {
	Compulsory string    `yaml:"compulsory" json:"compulsory"`
	Subjects   []Subject `yaml:"subjects" json:"subjects"`
}

// Default is the built-in catalogue used when no file is configured.
func Default() Catalog {
	ids := []string{
		"mathematics", "physics", "chemistry", "biology", "economics",
		"government", "literature", "geography", "commerce", "crk",
	}
	c := Catalog{
		Compulsory: DefaultCompulsory,
		Subjects: []Subject{{
			ID: DefaultCompulsory, Name: DisplayName(DefaultCompulsory), PassageBearing: true, GroupSize: 10,
		}},
	}
	for _, id := range ids {
		c.Subjects = append(c.Subjects, Subject{ID: id, Name: DisplayName(id)})
	}
	return c
}

// Load reads a YAML catalogue. An empty path yields Default().
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	c.Compulsory = strings.TrimSpace(strings.ToLower(c.Compulsory))
	if c.Compulsory == "" {
		c.Compulsory = DefaultCompulsory
	}
	for i := range c.Subjects {
		c.Subjects[i].ID = strings.TrimSpace(strings.ToLower(c.Subjects[i].ID))
		if c.Subjects[i].Name == "" {
			c.Subjects[i].Name = DisplayName(c.Subjects[i].ID)
		}
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) Validate() error {
	seen := map[string]bool{}
	for _, s := range c.Subjects {
		if s.ID == "" {
			return errors.New("subject.id is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate subject id: %s", s.ID)
		}
		seen[s.ID] = true
		if s.PassageBearing && s.GroupSize <= 0 {
			return fmt.Errorf("subject %s: group_size must be positive for passage-bearing subjects", s.ID)
		}
	}
	if !seen[c.Compulsory] {
		return fmt.Errorf("compulsory subject %q not in catalog", c.Compulsory)
	}
	return nil
}

func (c Catalog) Lookup(id string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

func (c Catalog) IDs() []string {
	out := make([]string, len(c.Subjects))
	for i, s := range c.Subjects {
		out[i] = s.ID
	}
	return out
}

// DisplayName capitalises the first letter of a subject id.
func DisplayName(id string) string {
	if id == "" {
		return ""
	}
	return strings.ToUpper(id[:1]) + id[1:]
}
