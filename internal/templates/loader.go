package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warelinehq/wareline/internal/store"
)

// Template names a reusable column layout for new warehouses. Templates are
// plain YAML files dropped into the templates dir; the file name (without
// extension) is only a fallback for a missing name field.
type Template struct {
	Name    string         `yaml:"name"`
	Columns []store.Column `yaml:"columns"`
}

// Default is the layout applied when no template is named: the day timestamp
// plus quantity and weight counts.
func Default() Template {
	return Template{
		Name: "default",
		Columns: []store.Column{
			{Title: "day", DataIndex: store.DayIndex, DataType: "date"},
			{Title: "qty", DataIndex: "qty", DataType: "number"},
			{Title: "weight", DataIndex: "weight", DataType: "number"},
		},
	}
}

// Load reads every *.yaml/*.yml template under dir, sorted by name. A missing
// dir is not an error; a malformed template is.
func Load(dir string) ([]Template, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read templates dir %q: %w", dir, err)
	}

	templates := make([]Template, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		tmpl, err := parseFile(path)
		if err != nil {
			return nil, err
		}

		if prev, exists := seen[tmpl.Name]; exists {
			return nil, fmt.Errorf("duplicate template name %q in %s (already in %s)", tmpl.Name, path, prev)
		}
		seen[tmpl.Name] = path
		templates = append(templates, tmpl)
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

// Find returns the named template from dir, or the builtin default for the
// empty name or "default".
func Find(dir, name string) (Template, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "default" {
		return Default(), nil
	}

	templates, err := Load(dir)
	if err != nil {
		return Template{}, err
	}
	for _, tmpl := range templates {
		if tmpl.Name == name {
			return tmpl, nil
		}
	}
	return Template{}, fmt.Errorf("template %q not found in %s", name, dir)
}

func parseFile(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template %q: %w", path, err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(content, &tmpl); err != nil {
		return Template{}, fmt.Errorf("parse template %q: %w", path, err)
	}

	if strings.TrimSpace(tmpl.Name) == "" {
		tmpl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(tmpl.Columns) == 0 {
		return Template{}, fmt.Errorf("template %q has no columns", path)
	}

	seen := make(map[string]struct{}, len(tmpl.Columns))
	for i, col := range tmpl.Columns {
		if strings.TrimSpace(col.DataIndex) == "" {
			return Template{}, fmt.Errorf("template %q column %d missing dataIndex", path, i)
		}
		if _, dup := seen[col.DataIndex]; dup {
			return Template{}, fmt.Errorf("template %q has duplicate dataIndex %q", path, col.DataIndex)
		}
		seen[col.DataIndex] = struct{}{}
		if strings.TrimSpace(col.Title) == "" {
			tmpl.Columns[i].Title = col.DataIndex
		}
	}

	return tmpl, nil
}
