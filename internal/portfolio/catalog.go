package portfolio

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AllCategories selects every project.
const AllCategories = "All"

//go:embed catalog.yaml
var defaultCatalog []byte

var errEmptyCatalog = errors.New("portfolio: catalog has no projects")

// Project is one showcased piece of work.
type Project struct {
	ID          int      `json:"id" mapstructure:"id"`
	Title       string   `json:"title" mapstructure:"title"`
	Description string   `json:"description" mapstructure:"description"`
	Image       string   `json:"image" mapstructure:"image"`
	Tags        []string `json:"tags" mapstructure:"tags"`
	Category    string   `json:"category" mapstructure:"category"`
	GitHub      string   `json:"github" mapstructure:"github"`
	Demo        string   `json:"demo" mapstructure:"demo"`
}

// Skill is a named proficiency in percent.
type Skill struct {
	Name  string `json:"name" mapstructure:"name"`
	Level int    `json:"level" mapstructure:"level"`
}

// SkillCategory groups skills under a heading.
type SkillCategory struct {
	Title  string  `json:"title" mapstructure:"title"`
	Skills []Skill `json:"skills" mapstructure:"skills"`
}

// Catalog is the read-only portfolio content.
type Catalog struct {
	projects     []Project
	skills       []SkillCategory
	technologies []string
}

// LoadDefault parses the catalog compiled into the binary.
func LoadDefault() (*Catalog, error) {
	return Load(defaultCatalog)
}

// Load parses a YAML catalog document.
func Load(document []byte) (*Catalog, error) {
	reader := viper.New()
	reader.SetConfigType("yaml")
	if err := reader.ReadConfig(bytes.NewReader(document)); err != nil {
		return nil, fmt.Errorf("portfolio: read catalog: %w", err)
	}

	var catalog Catalog
	if err := reader.UnmarshalKey("projects", &catalog.projects); err != nil {
		return nil, fmt.Errorf("portfolio: decode projects: %w", err)
	}
	if err := reader.UnmarshalKey("skills", &catalog.skills); err != nil {
		return nil, fmt.Errorf("portfolio: decode skills: %w", err)
	}
	catalog.technologies = reader.GetStringSlice("technologies")

	if len(catalog.projects) == 0 {
		return nil, errEmptyCatalog
	}
	for _, category := range catalog.skills {
		for _, skill := range category.Skills {
			if skill.Level < 0 || skill.Level > 100 {
				return nil, fmt.Errorf("portfolio: skill %q level %d outside 0..100", skill.Name, skill.Level)
			}
		}
	}
	return &catalog, nil
}

// Projects returns the projects in category, matched case-insensitively.
// An empty category or AllCategories returns everything.
func (c *Catalog) Projects(category string) []Project {
	category = strings.TrimSpace(category)
	out := make([]Project, 0, len(c.projects))
	for _, project := range c.projects {
		if category == "" || strings.EqualFold(category, AllCategories) || strings.EqualFold(project.Category, category) {
			out = append(out, project)
		}
	}
	return out
}

// Categories returns AllCategories followed by each project category in
// first-seen order.
func (c *Catalog) Categories() []string {
	seen := map[string]bool{}
	out := []string{AllCategories}
	for _, project := range c.projects {
		key := strings.ToLower(project.Category)
		if project.Category == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, project.Category)
	}
	return out
}

// Skills returns the skill categories.
func (c *Catalog) Skills() []SkillCategory {
	return append([]SkillCategory(nil), c.skills...)
}

// Technologies returns the additional technologies list.
func (c *Catalog) Technologies() []string {
	return append([]string(nil), c.technologies...)
}
